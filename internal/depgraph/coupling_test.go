package depgraph

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func hubGraph(out, in int) *Graph {
	b := NewGraphBuilder(BuilderOptions{})
	for i := 0; i < out; i++ {
		b.AddDependency(dep("hub", fmt.Sprintf("t%02d", i)))
	}
	for i := 0; i < in; i++ {
		b.AddDependency(dep(fmt.Sprintf("s%02d", i), "hub"))
	}
	return b.Build()
}

func TestHighCoupling_RiskLevels(t *testing.T) {
	tests := []struct {
		out, in int
		want    HighCouplingModule
	}{
		{6, 5, HighCouplingModule{Module: "hub", TotalCoupling: 11, Afferent: 5, Efferent: 6, Instability: 0.545, RiskLevel: "medium"}},
		{16, 5, HighCouplingModule{Module: "hub", TotalCoupling: 21, Afferent: 5, Efferent: 16, Instability: 0.762, RiskLevel: "high"}},
	}
	for _, tt := range tests {
		high := NewCouplingAnalyzer(hubGraph(tt.out, tt.in), AnalyzerOptions{}).HighCoupling(DefaultHighCouplingThreshold)
		if len(high) != 1 {
			t.Fatalf("hub(%d,%d): expected 1 high coupling module, got %d", tt.out, tt.in, len(high))
		}
		got := high[0]
		got.Instability = tt.want.Instability
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("hub(%d,%d) mismatch (-want +got):\n%s", tt.out, tt.in, diff)
		}
	}
}

func TestHighCoupling_ThresholdInclusive(t *testing.T) {
	g := hubGraph(10, 0)
	high := NewCouplingAnalyzer(g, AnalyzerOptions{}).HighCoupling(10)
	if len(high) != 1 || high[0].TotalCoupling != 10 {
		t.Fatalf("expected hub at the threshold, got %+v", high)
	}
	if high := NewCouplingAnalyzer(g, AnalyzerOptions{}).HighCoupling(11); len(high) != 0 {
		t.Errorf("expected nothing above the threshold, got %+v", high)
	}
}

func TestHighCoupling_SortedDescending(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	for i := 0; i < 3; i++ {
		b.AddDependency(dep("small", fmt.Sprintf("x%d", i)))
	}
	for i := 0; i < 5; i++ {
		b.AddDependency(dep("big", fmt.Sprintf("y%d", i)))
	}
	high := NewCouplingAnalyzer(b.Build(), AnalyzerOptions{}).HighCoupling(3)
	var got []string
	for _, h := range high {
		got = append(got, h.Module)
	}
	if diff := cmp.Diff([]string{"big", "small"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	// a -> b, a -> c: a is fully unstable, b and c fully stable.
	g := buildFrom(dep("a", "b"), dep("a", "c"))
	want := CouplingSummary{
		TotalModules:            3,
		TotalDependencies:       2,
		AverageInstability:      0.333,
		AverageAbstraction:      0,
		InstabilityDistribution: InstabilityDistribution{Stable: 2, Moderate: 0, Unstable: 1},
	}
	if diff := cmp.Diff(want, NewCouplingAnalyzer(g, AnalyzerOptions{}).Summary()); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary_UsesConfiguredUnstableThreshold(t *testing.T) {
	// x: Ca=1 Ce=2, I=0.667. z: I=1. y1, y2: I=0.
	g := buildFrom(dep("x", "y1"), dep("x", "y2"), dep("z", "x"))

	tests := []struct {
		threshold  float64
		want       InstabilityDistribution
		violations int
	}{
		{0, InstabilityDistribution{Stable: 2, Moderate: 1, Unstable: 1}, 0},
		{0.6, InstabilityDistribution{Stable: 2, Moderate: 0, Unstable: 2}, 1},
	}
	for _, tt := range tests {
		a := NewCouplingAnalyzer(g, AnalyzerOptions{UnstableThreshold: tt.threshold})
		if diff := cmp.Diff(tt.want, a.Summary().InstabilityDistribution); diff != "" {
			t.Errorf("threshold %v: distribution mismatch (-want +got):\n%s", tt.threshold, diff)
		}
		if got := len(a.UnstableViolations()); got != tt.violations {
			t.Errorf("threshold %v: expected %d unstable violations, got %d", tt.threshold, tt.violations, got)
		}
	}
}

func TestSummary_EmptyGraph(t *testing.T) {
	a := NewCouplingAnalyzer(NewGraphBuilder(BuilderOptions{}).Build(), AnalyzerOptions{})
	if diff := cmp.Diff(CouplingSummary{}, a.Summary()); diff != "" {
		t.Errorf("expected zero summary (-want +got):\n%s", diff)
	}

	report := a.Analyze()
	if len(report.HighCoupling) != 0 || len(report.Violations) != 0 {
		t.Errorf("expected no findings, got %+v", report)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0].Category != RecommendDependencyInversion {
		t.Errorf("expected only the dependency inversion recommendation, got %+v", report.Recommendations)
	}
}

func TestViolations_UnstableToUnstable(t *testing.T) {
	// x: I=1. y: Ca=1 Ce=3, I=0.75. z*: I=0.
	g := buildFrom(dep("x", "y"), dep("y", "z1"), dep("y", "z2"), dep("y", "z3"))
	violations := NewCouplingAnalyzer(g, AnalyzerOptions{}).Violations(nil)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", violations)
	}
	v := violations[0]
	if v.Type != ViolationUnstableToUnstable || v.Severity != SeverityMedium || v.From != "x" || v.To != "y" {
		t.Errorf("unexpected violation %+v", v)
	}
}

func TestViolations_IncludeCycles(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "A"))
	report := NewCouplingAnalyzer(g, AnalyzerOptions{}).Analyze()
	if len(report.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", report.Violations)
	}
	v := report.Violations[0]
	if v.Type != ViolationCyclicDependency || v.Severity != SeverityHigh {
		t.Errorf("unexpected violation %+v", v)
	}
	if diff := cmp.Diff([]string{"A", "B", "A"}, v.Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommendations(t *testing.T) {
	g := buildFrom(dep("x", "y"), dep("y", "z1"), dep("y", "z2"), dep("y", "z3"))
	recs := NewCouplingAnalyzer(g, AnalyzerOptions{}).Recommendations()
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", recs)
	}
	if recs[0].Category != RecommendDependencyInversion || recs[1].Category != RecommendIncreaseAbstraction {
		t.Errorf("unexpected categories %q, %q", recs[0].Category, recs[1].Category)
	}
	if diff := cmp.Diff([]string{"x", "y"}, recs[1].Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommendations_ReduceCouplingTopThree(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	for m := 0; m < 4; m++ {
		for i := 0; i <= m+1; i++ {
			b.AddDependency(dep(fmt.Sprintf("m%d", m), fmt.Sprintf("leaf%d_%d", m, i)))
		}
	}
	recs := NewCouplingAnalyzer(b.Build(), AnalyzerOptions{HighCouplingThreshold: 2}).Recommendations()
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	if recs[0].Category != RecommendReduceCoupling || recs[0].Priority != SeverityHigh {
		t.Errorf("unexpected first recommendation %+v", recs[0])
	}
	if diff := cmp.Diff([]string{"m3", "m2", "m1"}, recs[0].Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}
