package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Default analyzer thresholds.
const (
	DefaultHighCouplingThreshold = 10
	DefaultUnstableThreshold     = 0.7
	DefaultStableThreshold       = 0.3
)

// Modules with abstraction below abstractionFloor and instability above
// abstractionInstabilityFloor get an increase_abstraction recommendation.
// Unlike the unstable threshold these are not configurable.
const (
	abstractionFloor            = 0.2
	abstractionInstabilityFloor = 0.5
)

// Violation and recommendation categories.
const (
	ViolationCyclicDependency   = "cyclic_dependency"
	ViolationUnstableToUnstable = "unstable_to_unstable"

	RecommendReduceCoupling      = "reduce_coupling"
	RecommendDependencyInversion = "dependency_inversion"
	RecommendIncreaseAbstraction = "increase_abstraction"
)

// AnalyzerOptions tunes the coupling analyzer.
type AnalyzerOptions struct {
	HighCouplingThreshold int
	UnstableThreshold     float64
	CycleDedup            CycleDedup
}

// InstabilityDistribution buckets modules by instability.
type InstabilityDistribution struct {
	Stable   int `json:"stable" yaml:"stable"`     // I < 0.3
	Moderate int `json:"moderate" yaml:"moderate"` // 0.3 <= I <= unstable threshold
	Unstable int `json:"unstable" yaml:"unstable"` // I > unstable threshold (0.7 by default)
}

// CouplingSummary aggregates metrics over all modules.
type CouplingSummary struct {
	TotalModules            int                     `json:"total_modules" yaml:"total_modules"`
	TotalDependencies       int                     `json:"total_dependencies" yaml:"total_dependencies"`
	AverageInstability      float64                 `json:"average_instability" yaml:"average_instability"`
	AverageAbstraction      float64                 `json:"average_abstraction" yaml:"average_abstraction"`
	InstabilityDistribution InstabilityDistribution `json:"instability_distribution" yaml:"instability_distribution"`
}

// HighCouplingModule is a module at or above the coupling threshold.
type HighCouplingModule struct {
	Module        string  `json:"module" yaml:"module"`
	TotalCoupling int     `json:"total_coupling" yaml:"total_coupling"`
	Afferent      int     `json:"afferent" yaml:"afferent"`
	Efferent      int     `json:"efferent" yaml:"efferent"`
	Instability   float64 `json:"instability" yaml:"instability"`
	RiskLevel     string  `json:"risk_level" yaml:"risk_level"`
}

// Violation is an architectural rule broken by the graph.
type Violation struct {
	Type        string   `json:"type" yaml:"type"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Modules     []string `json:"modules,omitempty" yaml:"modules,omitempty"`
	From        string   `json:"from,omitempty" yaml:"from,omitempty"`
	To          string   `json:"to,omitempty" yaml:"to,omitempty"`
	Description string   `json:"description" yaml:"description"`
}

// Recommendation is a prioritized improvement suggestion.
type Recommendation struct {
	Category   string   `json:"category" yaml:"category"`
	Priority   Severity `json:"priority" yaml:"priority"`
	Modules    []string `json:"modules,omitempty" yaml:"modules,omitempty"`
	Suggestion string   `json:"suggestion" yaml:"suggestion"`
}

// CouplingReport is the full output of the coupling analyzer.
type CouplingReport struct {
	Summary         CouplingSummary      `json:"summary" yaml:"summary"`
	HighCoupling    []HighCouplingModule `json:"high_coupling" yaml:"high_coupling"`
	Violations      []Violation          `json:"violations" yaml:"violations"`
	Recommendations []Recommendation     `json:"recommendations" yaml:"recommendations"`
}

// CouplingAnalyzer reads a built graph and reports coupling problems.
type CouplingAnalyzer struct {
	graph *Graph
	opts  AnalyzerOptions
}

// NewCouplingAnalyzer creates an analyzer, filling unset thresholds with defaults.
func NewCouplingAnalyzer(g *Graph, opts AnalyzerOptions) *CouplingAnalyzer {
	if opts.HighCouplingThreshold <= 0 {
		opts.HighCouplingThreshold = DefaultHighCouplingThreshold
	}
	if opts.UnstableThreshold <= 0 {
		opts.UnstableThreshold = DefaultUnstableThreshold
	}
	if g == nil {
		g = &Graph{}
	}
	return &CouplingAnalyzer{graph: g, opts: opts}
}

// Analyze runs cycle detection itself and returns the full report.
func (a *CouplingAnalyzer) Analyze() CouplingReport {
	return a.AnalyzeWithCycles(NewCycleDetector(a.graph, a.opts.CycleDedup).Detect())
}

// AnalyzeWithCycles builds the report from cycles detected elsewhere.
func (a *CouplingAnalyzer) AnalyzeWithCycles(cycles []Cycle) CouplingReport {
	return CouplingReport{
		Summary:         a.Summary(),
		HighCoupling:    a.HighCoupling(a.opts.HighCouplingThreshold),
		Violations:      a.Violations(cycles),
		Recommendations: a.Recommendations(),
	}
}

// Summary averages metrics over all modules. An empty graph yields the zero
// value. The unstable bucket uses the same threshold as UnstableViolations.
func (a *CouplingAnalyzer) Summary() CouplingSummary {
	if len(a.graph.Nodes) == 0 {
		return CouplingSummary{}
	}

	var sumI, sumA float64
	var dist InstabilityDistribution
	for _, n := range a.graph.Nodes {
		sumI += n.Instability
		sumA += n.Abstraction
		switch {
		case n.Instability < DefaultStableThreshold:
			dist.Stable++
		case n.Instability <= a.opts.UnstableThreshold:
			dist.Moderate++
		default:
			dist.Unstable++
		}
	}

	count := float64(len(a.graph.Nodes))
	return CouplingSummary{
		TotalModules:            len(a.graph.Nodes),
		TotalDependencies:       len(a.graph.Edges),
		AverageInstability:      round(sumI/count, 3),
		AverageAbstraction:      round(sumA/count, 3),
		InstabilityDistribution: dist,
	}
}

// HighCoupling lists modules whose Ca+Ce reaches threshold, most coupled first.
func (a *CouplingAnalyzer) HighCoupling(threshold int) []HighCouplingModule {
	var out []HighCouplingModule
	for _, name := range a.graph.SortedNames() {
		n := a.graph.Nodes[name]
		total := n.TotalCoupling()
		if total < threshold {
			continue
		}
		risk := "medium"
		if total > threshold*2 {
			risk = "high"
		}
		out = append(out, HighCouplingModule{
			Module:        name,
			TotalCoupling: total,
			Afferent:      n.AfferentCoupling,
			Efferent:      n.EfferentCoupling,
			Instability:   n.Instability,
			RiskLevel:     risk,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCoupling > out[j].TotalCoupling
	})
	return out
}

// Violations reports every cycle and every dependency between two unstable modules.
func (a *CouplingAnalyzer) Violations(cycles []Cycle) []Violation {
	return append(CycleViolations(cycles), a.UnstableViolations()...)
}

// CycleViolations turns detected cycles into violations.
func CycleViolations(cycles []Cycle) []Violation {
	var out []Violation
	for _, c := range cycles {
		out = append(out, Violation{
			Type:        ViolationCyclicDependency,
			Severity:    SeverityHigh,
			Modules:     c.Modules,
			Description: "cyclic dependency: " + strings.Join(c.Members(), " -> "),
		})
	}
	return out
}

// UnstableViolations reports dependencies whose both ends exceed the
// unstable threshold.
func (a *CouplingAnalyzer) UnstableViolations() []Violation {
	var out []Violation
	limit := a.opts.UnstableThreshold
	for _, name := range a.graph.SortedNames() {
		n := a.graph.Nodes[name]
		if n.Instability <= limit {
			continue
		}
		for _, dep := range n.Dependencies {
			target := a.graph.Node(dep.TargetModule)
			if target == nil || target.Instability <= limit {
				continue
			}
			out = append(out, Violation{
				Type:        ViolationUnstableToUnstable,
				Severity:    SeverityMedium,
				From:        name,
				To:          dep.TargetModule,
				Description: fmt.Sprintf("unstable module %s depends on unstable module %s", name, dep.TargetModule),
			})
		}
	}
	return out
}

// Recommendations returns prioritized suggestions derived from the metrics.
func (a *CouplingAnalyzer) Recommendations() []Recommendation {
	var out []Recommendation

	if high := a.HighCoupling(a.opts.HighCouplingThreshold); len(high) > 0 {
		if len(high) > 3 {
			high = high[:3]
		}
		modules := make([]string, len(high))
		for i, h := range high {
			modules[i] = h.Module
		}
		out = append(out, Recommendation{
			Category:   RecommendReduceCoupling,
			Priority:   SeverityHigh,
			Modules:    modules,
			Suggestion: "Split highly coupled modules into smaller ones with a single responsibility",
		})
	}

	out = append(out, Recommendation{
		Category:   RecommendDependencyInversion,
		Priority:   SeverityMedium,
		Suggestion: "High-level modules should depend on abstractions, not on low-level modules",
	})

	var lowAbstraction []string
	for _, name := range a.graph.SortedNames() {
		n := a.graph.Nodes[name]
		if n.Abstraction < abstractionFloor && n.Instability > abstractionInstabilityFloor {
			lowAbstraction = append(lowAbstraction, name)
		}
	}
	if len(lowAbstraction) > 0 {
		out = append(out, Recommendation{
			Category:   RecommendIncreaseAbstraction,
			Priority:   SeverityMedium,
			Modules:    lowAbstraction,
			Suggestion: "These modules are unstable with little abstraction; extract interfaces or abstract types",
		})
	}
	return out
}
