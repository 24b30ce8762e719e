package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// RunMetrics collects statistics for one analysis run.
type RunMetrics struct {
	mu sync.Mutex

	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Duration   time.Duration  `json:"duration_ms,omitempty"`
	Input      InputMetrics   `json:"input"`
	Graph      GraphMetrics   `json:"graph"`
	Findings   FindingMetrics `json:"findings"`
	Stages     []StageMetrics `json:"stages"`
	Errors     []string       `json:"errors,omitempty"`
}

type InputMetrics struct {
	Files      int            `json:"files"`
	Skipped    int            `json:"skipped"`
	Records    int            `json:"records"`
	ByLanguage map[string]int `json:"by_language,omitempty"`
}

type GraphMetrics struct {
	Modules         int     `json:"modules"`
	Edges           int     `json:"edges"`
	AverageCoupling float64 `json:"average_coupling"`
	MostCoupled     string  `json:"most_coupled,omitempty"`
}

type FindingMetrics struct {
	Cycles         int `json:"cycles"`
	CriticalCycles int `json:"critical_cycles"`
	HighCoupling   int `json:"high_coupling"`
	Violations     int `json:"violations"`
}

type StageMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Err      string        `json:"error,omitempty"`
}

// New starts tracking a run.
func New() *RunMetrics {
	return &RunMetrics{StartedAt: time.Now()}
}

// CollectInput counts the files handed to the builder.
func (m *RunMetrics) CollectInput(files []depgraph.FileAnalysis, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Input.Files = len(files)
	m.Input.Skipped = skipped
	m.Input.ByLanguage = make(map[string]int)
	for _, f := range files {
		m.Input.Records += len(f.Dependencies)
		if f.Language != "" {
			m.Input.ByLanguage[f.Language]++
		}
	}
}

// CollectGraph copies graph-wide statistics.
func (m *RunMetrics) CollectGraph(g *depgraph.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Graph = GraphMetrics{
		Modules:         g.Metadata.TotalNodes,
		Edges:           g.Metadata.TotalEdges,
		AverageCoupling: g.Metadata.AverageCoupling,
		MostCoupled:     g.Metadata.MaxCouplingModule,
	}
}

// CollectCycles counts detected cycles.
func (m *RunMetrics) CollectCycles(cycles []depgraph.Cycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Findings.Cycles = len(cycles)
	m.Findings.CriticalCycles = 0
	for _, c := range cycles {
		if c.Severity == depgraph.SeverityCritical {
			m.Findings.CriticalCycles++
		}
	}
}

// CollectCoupling counts coupling findings.
func (m *RunMetrics) CollectCoupling(r depgraph.CouplingReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Findings.HighCoupling = len(r.HighCoupling)
	m.Findings.Violations = len(r.Violations)
}

// AddStage records a single stage's timing and outcome. Safe for concurrent use.
func (m *RunMetrics) AddStage(name string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := StageMetrics{Name: name, Duration: d}
	if err != nil {
		s.Err = err.Error()
		m.Errors = append(m.Errors, fmt.Sprintf("%s: %v", name, err))
	}
	m.Stages = append(m.Stages, s)
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        MODGRAPH ANALYSIS RUN         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ INPUT\n")
	fmt.Fprintf(w, "║   Files:       %d\n", m.Input.Files)
	fmt.Fprintf(w, "║   Skipped:     %d\n", m.Input.Skipped)
	fmt.Fprintf(w, "║   Records:     %d\n", m.Input.Records)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GRAPH\n")
	fmt.Fprintf(w, "║   Modules:     %d\n", m.Graph.Modules)
	fmt.Fprintf(w, "║   Edges:       %d\n", m.Graph.Edges)
	fmt.Fprintf(w, "║   Avg Coupl.:  %.2f\n", m.Graph.AverageCoupling)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ FINDINGS\n")
	fmt.Fprintf(w, "║   Cycles:      %d (%d critical)\n", m.Findings.Cycles, m.Findings.CriticalCycles)
	fmt.Fprintf(w, "║   High Coupl.: %d\n", m.Findings.HighCoupling)
	fmt.Fprintf(w, "║   Violations:  %d\n", m.Findings.Violations)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ STAGES\n")
	for _, s := range m.Stages {
		status := "OK"
		if s.Err != "" {
			status = "FAILED"
		}
		fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Microsecond), status)
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.MarshalIndent(m, "", "  ")
}
