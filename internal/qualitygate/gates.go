package qualitygate

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// NoCriticalCyclesGate fails when any cycle is graded critical.
type NoCriticalCyclesGate struct {
	severity GateSeverity
}

func NewNoCriticalCyclesGate(severity GateSeverity) *NoCriticalCyclesGate {
	return &NoCriticalCyclesGate{severity: severity}
}

func (g *NoCriticalCyclesGate) Name() string           { return "no_critical_cycles" }
func (g *NoCriticalCyclesGate) Severity() GateSeverity { return g.severity }
func (g *NoCriticalCyclesGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	for _, c := range ctx.Cycles {
		if c.Severity == depgraph.SeverityCritical {
			r.Details = append(r.Details, strings.Join(c.Modules, " -> "))
		}
	}
	if len(r.Details) == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = "No critical cycles"
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("%d critical cycles found", len(r.Details))
	}
	return r, nil
}

// MaxCyclesGate caps the number of detected cycles.
type MaxCyclesGate struct {
	MaxCycles int
	severity  GateSeverity
}

func NewMaxCyclesGate(maxCycles int, severity GateSeverity) *MaxCyclesGate {
	return &MaxCyclesGate{MaxCycles: maxCycles, severity: severity}
}

func (g *MaxCyclesGate) Name() string           { return "max_cycles" }
func (g *MaxCyclesGate) Severity() GateSeverity { return g.severity }
func (g *MaxCyclesGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: float64(g.MaxCycles),
	}
	count := len(ctx.Cycles)
	if count <= g.MaxCycles {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("Cycle count %d within limit %d", count, g.MaxCycles)
		return r, nil
	}
	r.Status = GateFailed
	r.Score = float64(g.MaxCycles) / float64(count)
	r.Message = fmt.Sprintf("Cycle count %d exceeds limit %d", count, g.MaxCycles)
	for _, c := range ctx.Cycles {
		r.Details = append(r.Details, fmt.Sprintf("%s [%s]", strings.Join(c.Modules, " -> "), c.Severity))
	}
	return r, nil
}

// MaxDistanceGate checks the average distance from the main sequence.
type MaxDistanceGate struct {
	MaxDistance float64
	severity    GateSeverity
}

func NewMaxDistanceGate(maxDistance float64, severity GateSeverity) *MaxDistanceGate {
	return &MaxDistanceGate{MaxDistance: maxDistance, severity: severity}
}

func (g *MaxDistanceGate) Name() string           { return "max_distance" }
func (g *MaxDistanceGate) Severity() GateSeverity { return g.severity }
func (g *MaxDistanceGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MaxDistance,
	}
	if ctx.Modules == 0 {
		r.Status = GateSkipped
		r.Message = "No modules to evaluate"
		return r, nil
	}

	r.Score = 1.0 - ctx.AverageDistance
	if ctx.AverageDistance <= g.MaxDistance {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Average distance %.3f within limit %.3f", ctx.AverageDistance, g.MaxDistance)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Average distance %.3f exceeds limit %.3f", ctx.AverageDistance, g.MaxDistance)
	}
	return r, nil
}

// HighCouplingGate caps the number of highly coupled modules.
type HighCouplingGate struct {
	MaxModules int
	severity   GateSeverity
}

func NewHighCouplingGate(maxModules int, severity GateSeverity) *HighCouplingGate {
	return &HighCouplingGate{MaxModules: maxModules, severity: severity}
}

func (g *HighCouplingGate) Name() string           { return "high_coupling" }
func (g *HighCouplingGate) Severity() GateSeverity { return g.severity }
func (g *HighCouplingGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: float64(g.MaxModules),
	}
	count := len(ctx.HighCoupling)
	if count <= g.MaxModules {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("%d highly coupled modules within limit %d", count, g.MaxModules)
		return r, nil
	}
	r.Status = GateFailed
	if ctx.Modules > 0 {
		r.Score = 1.0 - float64(count)/float64(ctx.Modules)
	}
	r.Message = fmt.Sprintf("%d highly coupled modules exceed limit %d", count, g.MaxModules)
	for _, m := range ctx.HighCoupling {
		r.Details = append(r.Details, fmt.Sprintf("%s: %d (%s risk)", m.Module, m.TotalCoupling, m.RiskLevel))
	}
	return r, nil
}
