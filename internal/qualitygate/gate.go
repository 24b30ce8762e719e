// Package qualitygate evaluates architectural gates over an analyzed
// dependency graph.
package qualitygate

import (
	"fmt"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// GateStatus represents the result of a quality gate check.
type GateStatus string

const (
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
	GateSkipped GateStatus = "skipped"
)

// GateSeverity indicates how critical a gate failure is.
type GateSeverity string

const (
	SeverityCritical GateSeverity = "critical" // later gates are skipped
	SeverityRequired GateSeverity = "required" // fails the pipeline
	SeverityAdvisory GateSeverity = "advisory" // reported only
)

// GateResult captures the outcome of a single gate evaluation.
type GateResult struct {
	Name        string        `json:"name"`
	Status      GateStatus    `json:"status"`
	Severity    GateSeverity  `json:"severity"`
	Score       float64       `json:"score"` // 0.0-1.0 normalized
	Threshold   float64       `json:"threshold"`
	Message     string        `json:"message"`
	Details     []string      `json:"details,omitempty"`
	Duration    time.Duration `json:"duration"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Gate is the interface all quality gates must implement.
type Gate interface {
	Name() string
	Severity() GateSeverity
	Evaluate(ctx *EvalContext) (*GateResult, error)
}

// EvalContext provides data for gate evaluation.
type EvalContext struct {
	Modules         int
	Cycles          []depgraph.Cycle
	AverageDistance float64
	HighCoupling    []depgraph.HighCouplingModule
	Violations      []depgraph.Violation
}

// NewEvalContext summarizes an analyzed graph for the gates.
func NewEvalContext(g *depgraph.Graph, cycles []depgraph.Cycle, coupling depgraph.CouplingReport) *EvalContext {
	ctx := &EvalContext{
		Cycles:       cycles,
		HighCoupling: coupling.HighCoupling,
		Violations:   coupling.Violations,
	}
	if g == nil || len(g.Nodes) == 0 {
		return ctx
	}
	ctx.Modules = len(g.Nodes)
	var sum float64
	for _, n := range g.Nodes {
		sum += n.Distance
	}
	ctx.AverageDistance = sum / float64(len(g.Nodes))
	return ctx
}

// PipelineResult captures the complete gate pipeline evaluation.
type PipelineResult struct {
	Status       GateStatus    `json:"status"` // failed if any critical or required gate fails
	Gates        []GateResult  `json:"gates"`
	PassedCount  int           `json:"passed_count"`
	FailedCount  int           `json:"failed_count"`
	SkippedCount int           `json:"skipped_count"`
	Duration     time.Duration `json:"duration"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Summary      string        `json:"summary"`
}

// Failed reports whether the pipeline blocks.
func (r *PipelineResult) Failed() bool {
	return r.Status == GateFailed
}

// Pipeline orchestrates multiple quality gates in sequence.
type Pipeline struct {
	gates []Gate
}

// NewPipeline creates a new quality gate pipeline.
func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// AddGate appends a gate to the pipeline.
func (p *Pipeline) AddGate(g Gate) {
	p.gates = append(p.gates, g)
}

// Len returns the number of gates.
func (p *Pipeline) Len() int {
	return len(p.gates)
}

// Run evaluates all gates against the provided context.
func (p *Pipeline) Run(ctx *EvalContext) *PipelineResult {
	start := time.Now()
	result := &PipelineResult{
		Status:      GatePassed,
		EvaluatedAt: start,
	}

	aborted := false
	for _, gate := range p.gates {
		if aborted {
			result.Gates = append(result.Gates, GateResult{
				Name:        gate.Name(),
				Status:      GateSkipped,
				Severity:    gate.Severity(),
				Message:     "Skipped due to critical gate failure",
				EvaluatedAt: time.Now(),
			})
			result.SkippedCount++
			continue
		}

		gateStart := time.Now()
		gr, err := gate.Evaluate(ctx)
		if err != nil {
			gr = &GateResult{
				Name:     gate.Name(),
				Status:   GateFailed,
				Severity: gate.Severity(),
				Message:  fmt.Sprintf("Gate evaluation error: %v", err),
			}
		}
		gr.Duration = time.Since(gateStart)
		gr.EvaluatedAt = gateStart
		result.Gates = append(result.Gates, *gr)

		switch gr.Status {
		case GatePassed:
			result.PassedCount++
		case GateFailed:
			result.FailedCount++
			switch gr.Severity {
			case SeverityCritical:
				aborted = true
				result.Status = GateFailed
			case SeverityRequired:
				result.Status = GateFailed
			}
		case GateSkipped:
			result.SkippedCount++
		}
	}

	result.Duration = time.Since(start)
	result.Summary = formatSummary(result)
	return result
}

func formatSummary(r *PipelineResult) string {
	return fmt.Sprintf("Quality Gates: %d passed, %d failed, %d skipped [%s]",
		r.PassedCount, r.FailedCount, r.SkippedCount, r.Status)
}
