package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

func TestRunMetrics_Collect(t *testing.T) {
	m := New()
	files := []depgraph.FileAnalysis{
		{RelativePath: "a/x.py", Language: "python", Dependencies: []depgraph.DependencyRecord{
			{SourceModule: "a", TargetModule: "b"},
		}},
		{RelativePath: "b/y.py", Language: "python", Dependencies: []depgraph.DependencyRecord{
			{SourceModule: "b", TargetModule: "a"},
		}},
		{RelativePath: "infra/main.tf", Language: "terraform"},
	}
	m.CollectInput(files, 2)
	if m.Input.Files != 3 || m.Input.Skipped != 2 || m.Input.Records != 2 {
		t.Errorf("unexpected input metrics %+v", m.Input)
	}
	if m.Input.ByLanguage["python"] != 2 || m.Input.ByLanguage["terraform"] != 1 {
		t.Errorf("unexpected language counts %v", m.Input.ByLanguage)
	}

	g := depgraph.BuildGraph(files, depgraph.BuilderOptions{})
	m.CollectGraph(g)
	if m.Graph.Modules != 3 || m.Graph.Edges != 2 {
		t.Errorf("unexpected graph metrics %+v", m.Graph)
	}

	cycles := depgraph.NewCycleDetector(g, "").Detect()
	m.CollectCycles(cycles)
	if m.Findings.Cycles != 1 || m.Findings.CriticalCycles != 1 {
		t.Errorf("unexpected cycle metrics %+v", m.Findings)
	}

	m.CollectCoupling(depgraph.NewCouplingAnalyzer(g, depgraph.AnalyzerOptions{}).AnalyzeWithCycles(cycles))
	if m.Findings.Violations != 1 {
		t.Errorf("expected 1 violation, got %d", m.Findings.Violations)
	}
}

func TestRunMetrics_Stages(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddStage("cycles", time.Millisecond, nil)
		}()
	}
	wg.Wait()
	m.AddStage("store", time.Millisecond, errors.New("connection refused"))
	m.Finish()

	if len(m.Stages) != 9 {
		t.Errorf("expected 9 stages, got %d", len(m.Stages))
	}
	if len(m.Errors) != 1 || !strings.Contains(m.Errors[0], "store: connection refused") {
		t.Errorf("unexpected errors %v", m.Errors)
	}
	if m.FinishedAt.IsZero() {
		t.Error("expected a finished run")
	}
}

func TestRunMetrics_PrintSummary(t *testing.T) {
	m := New()
	m.AddStage("build", 2*time.Millisecond, nil)
	m.AddStage("store", time.Millisecond, errors.New("boom"))
	m.Finish()

	var buf bytes.Buffer
	m.PrintSummary(&buf)
	out := buf.String()
	for _, want := range []string{"MODGRAPH ANALYSIS RUN", "build", "FAILED", "store: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestRunMetrics_JSON(t *testing.T) {
	m := New()
	m.AddStage("build", time.Millisecond, nil)
	m.Finish()

	data, err := m.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"started_at", "input", "graph", "findings", "stages"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}
