package depgraph

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func dep(from, to string) DependencyRecord {
	return DependencyRecord{SourceModule: from, TargetModule: to, Kind: KindImport, Strength: 1}
}

func buildFrom(records ...DependencyRecord) *Graph {
	b := NewGraphBuilder(BuilderOptions{})
	for _, r := range records {
		b.AddDependency(r)
	}
	return b.Build()
}

func checkCouplingCounts(t *testing.T, nodes map[string]*ModuleNode) {
	t.Helper()
	for name, n := range nodes {
		if n.AfferentCoupling != len(n.Dependents) {
			t.Errorf("%s: Ca=%d, len(dependents)=%d", name, n.AfferentCoupling, len(n.Dependents))
		}
		if n.EfferentCoupling != len(n.Dependencies) {
			t.Errorf("%s: Ce=%d, len(dependencies)=%d", name, n.EfferentCoupling, len(n.Dependencies))
		}
	}
}

// Normalization

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"src.foo.bar", "src"},
		{"", "root"},
		{"pkg/sub", "pkg"},
		{"utils.py", "utils"},
		{"a/b.c", "a"},
		{"lib", "lib"},
		{"./local", "root"},
		{"/abs/path", "root"},
		{"react", "react"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestModuleNameFor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "root"},
		{"pkg/__init__.py", "pkg"},
		{"__init__.py", "root"},
		{"a/b/c.py", "a"},
		{"web/components/index.ts", "components"},
		{"crate/net/mod.rs", "net"},
		{`api\handlers\user.go`, "api"},
		{"setup.py", "setup.py"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ModuleNameFor(tt.in); got != tt.want {
				t.Errorf("ModuleNameFor(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Builder

func TestAddDependency_Idempotent(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	if !b.AddDependency(dep("a", "b")) {
		t.Fatal("first insert should add an edge")
	}
	if b.AddDependency(dep("a", "b")) {
		t.Error("duplicate insert should not add an edge")
	}
	if got := len(b.Module("a").Dependencies); got != 1 {
		t.Errorf("expected 1 dependency, got %d", got)
	}
	if got := len(b.Module("b").Dependents); got != 1 {
		t.Errorf("expected 1 dependent, got %d", got)
	}
}

func TestAddDependency_KindAsymmetry(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	b.AddDependency(dep("a", "b"))
	call := dep("a", "b")
	call.Kind = KindCall
	b.AddDependency(call)

	a, bn := b.Module("a"), b.Module("b")
	if a.EfferentCoupling != 2 {
		t.Errorf("forward dedup is per kind: expected Ce=2, got %d", a.EfferentCoupling)
	}
	if bn.AfferentCoupling != 1 {
		t.Errorf("reverse dedup ignores kind: expected Ca=1, got %d", bn.AfferentCoupling)
	}
	rev := bn.Dependents[0]
	if rev.SourceModule != "b" || rev.TargetModule != "a" || rev.Kind != KindImport {
		t.Errorf("unexpected mirrored record: %+v", rev)
	}
}

func TestAddDependency_SelfLoopDropped(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	if b.AddDependency(dep("pkg/a", "pkg.b")) {
		t.Error("self reference after normalization should be dropped")
	}
	if b.Len() != 0 {
		t.Errorf("dropped record must not create nodes, got %d", b.Len())
	}

	g := buildFrom(dep("x", "x"), dep("x", "y"))
	for _, e := range g.Edges {
		if e.SourceModule == e.TargetModule {
			t.Errorf("self edge in graph: %+v", e)
		}
	}
}

func TestAddDependency_NormalizesAndDefaults(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	b.AddDependency(DependencyRecord{SourceModule: "api/handlers", TargetModule: "store.models"})
	d := b.Module("api").Dependencies[0]
	if d.TargetModule != "store" {
		t.Errorf("expected target store, got %q", d.TargetModule)
	}
	if d.Kind != KindImport {
		t.Errorf("expected default kind import, got %q", d.Kind)
	}
	if d.Strength != 1.0 {
		t.Errorf("expected default strength 1.0, got %v", d.Strength)
	}
	if b.Module("store") == nil {
		t.Error("target node should be created lazily")
	}
}

func TestCouplingCounts_RandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"a", "b", "c", "d", "e", "f"}
	b := NewGraphBuilder(BuilderOptions{})
	for i := 0; i < 300; i++ {
		rec := dep(names[rng.Intn(len(names))], names[rng.Intn(len(names))])
		rec.Kind = AllKinds[rng.Intn(3)]
		b.AddDependency(rec)
		checkCouplingCounts(t, b.modules)
	}
	g := b.Build()
	checkCouplingCounts(t, g.Nodes)

	for name, n := range g.Nodes {
		seen := map[string]bool{}
		for _, d := range n.Dependencies {
			key := d.TargetModule + "/" + string(d.Kind)
			if seen[key] {
				t.Errorf("%s has duplicate dependency %s", name, key)
			}
			seen[key] = true
		}
		if n.Instability < 0 || n.Instability > 1 {
			t.Errorf("%s: instability %v out of range", name, n.Instability)
		}
		if n.Distance < 0 || n.Distance > 1 {
			t.Errorf("%s: distance %v out of range", name, n.Distance)
		}
		if want := math.Abs(n.Abstraction + n.Instability - 1); n.Distance != want {
			t.Errorf("%s: distance %v, want %v", name, n.Distance, want)
		}
	}
}

func TestAddFile(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	b.AddFile(FileAnalysis{
		RelativePath: "billing/__init__.py",
		Path:         "/repo/billing/__init__.py",
		Classes:      []string{"AbstractInvoice", "Invoice"},
		Interfaces:   []string{"Payable"},
		Dependencies: []DependencyRecord{dep("billing", "ledger")},
	})
	b.AddFile(FileAnalysis{RelativePath: "billing/tax.py", Classes: []string{"Invoice"}})

	n := b.Module("billing")
	if n == nil {
		t.Fatal("billing module not registered")
	}
	if n.Path != "/repo/billing" {
		t.Errorf("expected path /repo/billing, got %q", n.Path)
	}
	if diff := cmp.Diff([]string{"AbstractInvoice", "Invoice"}, n.CoreClasses); diff != "" {
		t.Errorf("core classes mismatch (-want +got):\n%s", diff)
	}
	if n.EfferentCoupling != 1 {
		t.Errorf("expected Ce=1, got %d", n.EfferentCoupling)
	}
}

func TestBuild_Metadata(t *testing.T) {
	g := buildFrom(
		dep("hub", "a"), dep("hub", "b"), dep("hub", "c"),
		dep("a", "b"),
	)
	md := g.Metadata
	if md.TotalNodes != 4 {
		t.Errorf("expected 4 nodes, got %d", md.TotalNodes)
	}
	if md.TotalEdges != 4 {
		t.Errorf("expected 4 edges, got %d", md.TotalEdges)
	}
	// hub 3, a 2, b 2, c 1 -> 8/4
	if md.AverageCoupling != 2.0 {
		t.Errorf("expected average coupling 2.0, got %v", md.AverageCoupling)
	}
	if md.MaxCouplingModule != "hub" {
		t.Errorf("expected hub as max coupling module, got %q", md.MaxCouplingModule)
	}
	var names []string
	for _, m := range md.CoreModules {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"hub", "a", "b", "c"}, names); diff != "" {
		t.Errorf("core modules mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CoreModuleCount(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{CoreModuleCount: 2})
	for _, r := range []DependencyRecord{dep("a", "b"), dep("c", "d"), dep("e", "f")} {
		b.AddDependency(r)
	}
	if got := len(b.Build().Metadata.CoreModules); got != 2 {
		t.Errorf("expected 2 core modules, got %d", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	g := NewGraphBuilder(BuilderOptions{}).Build()
	if g.Metadata.TotalNodes != 0 || g.Metadata.AverageCoupling != 0 || g.Metadata.MaxCouplingModule != "" {
		t.Errorf("unexpected metadata for empty graph: %+v", g.Metadata)
	}
}

// Metrics

func TestMetrics_TwoCycleInstability(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "A"))
	for _, name := range []string{"A", "B"} {
		if got := g.Node(name).Instability; got != 0.5 {
			t.Errorf("%s: expected instability 0.5, got %v", name, got)
		}
	}
}

func TestMetrics_Chain(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "C"))
	a, c := g.Node("A"), g.Node("C")
	if a.AfferentCoupling != 0 || a.EfferentCoupling != 1 {
		t.Errorf("A: expected Ca=0 Ce=1, got Ca=%d Ce=%d", a.AfferentCoupling, a.EfferentCoupling)
	}
	if c.AfferentCoupling != 1 || c.EfferentCoupling != 0 {
		t.Errorf("C: expected Ca=1 Ce=0, got Ca=%d Ce=%d", c.AfferentCoupling, c.EfferentCoupling)
	}
	if a.Instability != 1 || c.Instability != 0 {
		t.Errorf("unexpected instability A=%v C=%v", a.Instability, c.Instability)
	}
}

func TestMetrics_IsolatedModule(t *testing.T) {
	g := BuildGraph([]FileAnalysis{
		{RelativePath: "lonely/x.py"},
		{RelativePath: "shapes/y.py", Classes: []string{"ShapeInterface", "Circle"}},
	}, BuilderOptions{})

	lonely := g.Node("lonely")
	if lonely.Instability != 0 {
		t.Errorf("expected instability 0, got %v", lonely.Instability)
	}
	if lonely.Distance != math.Abs(lonely.Abstraction-1) {
		t.Errorf("expected distance |A-1|, got %v", lonely.Distance)
	}

	shapes := g.Node("shapes")
	if shapes.Abstraction != 0.5 {
		t.Errorf("expected abstraction 0.5, got %v", shapes.Abstraction)
	}
	if shapes.Distance != 0.5 {
		t.Errorf("expected distance 0.5, got %v", shapes.Distance)
	}
}

func TestMetrics_Abstraction(t *testing.T) {
	nodes := map[string]*ModuleNode{
		"m": {
			Name:             "m",
			CoreClasses:      []string{"AbstractBase", "Service"},
			PublicInterfaces: []string{"Api"},
		},
	}
	CalculateMetrics(nodes)
	m := nodes["m"]
	if math.Abs(m.Abstraction-1.0/3.0) > 1e-9 {
		t.Errorf("expected abstraction 1/3, got %v", m.Abstraction)
	}
	if m.Metrics.Abstraction != 0.333 {
		t.Errorf("expected rounded snapshot 0.333, got %v", m.Metrics.Abstraction)
	}
	if m.Metrics.Distance != 0.667 {
		t.Errorf("expected rounded distance 0.667, got %v", m.Metrics.Distance)
	}
}

// Cycles

func TestDetect_TwoCycle(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "A"))
	cycles := NewCycleDetector(g, "").Detect()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	c := cycles[0]
	if c.Length != 2 {
		t.Errorf("expected length 2, got %d", c.Length)
	}
	if c.Severity != SeverityCritical {
		t.Errorf("expected critical, got %s", c.Severity)
	}
	if diff := cmp.Diff([]string{"A", "B", "A"}, c.Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
	if len(c.Suggestions) != 4 {
		t.Errorf("expected 4 suggestions, got %d", len(c.Suggestions))
	}
}

func TestDetect_AcyclicChain(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "C"))
	if cycles := NewCycleDetector(g, DedupMembers).Detect(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestDetect_Triangle(t *testing.T) {
	g := buildFrom(dep("b", "c"), dep("c", "a"), dep("a", "b"))
	cycles := NewCycleDetector(g, "").Detect()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "a"}, cycles[0].Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
	if cycles[0].Severity != SeverityHigh {
		t.Errorf("expected high, got %s", cycles[0].Severity)
	}
}

func TestDetect_FirstCyclePerTraversal(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "A"), dep("A", "C"), dep("C", "A"))
	cycles := NewCycleDetector(g, "").Detect()
	if len(cycles) != 1 {
		t.Fatalf("expected the traversal to stop at the first cycle, got %d cycles", len(cycles))
	}
	if diff := cmp.Diff([]string{"A", "B", "A"}, cycles[0].Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_DisjointCycles(t *testing.T) {
	g := buildFrom(dep("A", "B"), dep("B", "A"), dep("C", "D"), dep("D", "C"))
	cycles := NewCycleDetector(g, "").Detect()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	if cycles[0].ID != 1 || cycles[1].ID != 2 {
		t.Errorf("unexpected ids %d, %d", cycles[0].ID, cycles[1].ID)
	}
}

func TestDetect_DeepChainIsIterative(t *testing.T) {
	b := NewGraphBuilder(BuilderOptions{})
	const n = 20000
	name := func(i int) string { return fmt.Sprintf("m%05d", i) }
	for i := 0; i < n-1; i++ {
		b.AddDependency(dep(name(i), name(i+1)))
	}
	b.AddDependency(dep(name(n-1), name(0)))
	cycles := NewCycleDetector(b.Build(), "").Detect()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].Length != n {
		t.Errorf("expected length %d, got %d", n, cycles[0].Length)
	}
	if cycles[0].Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", cycles[0].Severity)
	}
}

func TestNormalizeCycle(t *testing.T) {
	got := NormalizeCycle([]string{"c", "a", "b", "c"})
	if diff := cmp.Diff([]string{"a", "b", "c", "a"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	short := []string{"x", "x"}
	if diff := cmp.Diff(short, NormalizeCycle(short)); diff != "" {
		t.Errorf("short cycles are returned unchanged:\n%s", diff)
	}
}

func TestUniqueCycles_DedupModes(t *testing.T) {
	raw := [][]string{
		{"a", "b", "c", "a"},
		{"b", "c", "a", "b"}, // rotation of the first
		{"a", "c", "b", "a"}, // same members, other direction
	}

	members := (&CycleDetector{dedup: DedupMembers}).unique(raw)
	if len(members) != 1 {
		t.Errorf("member dedup: expected 1 cycle, got %d", len(members))
	}

	rotation := (&CycleDetector{dedup: DedupRotation}).unique(raw)
	want := [][]string{{"a", "b", "c", "a"}, {"a", "c", "b", "a"}}
	if diff := cmp.Diff(want, rotation); diff != "" {
		t.Errorf("rotation dedup mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleSeverity(t *testing.T) {
	tests := []struct {
		length int
		want   Severity
	}{
		{2, SeverityCritical},
		{3, SeverityHigh},
		{4, SeverityMedium},
		{5, SeverityMedium},
		{6, SeverityLow},
		{40, SeverityLow},
	}
	for _, tt := range tests {
		if got := CycleSeverity(tt.length); got != tt.want {
			t.Errorf("CycleSeverity(%d) = %s, want %s", tt.length, got, tt.want)
		}
	}
}

func TestDetect_EmptyGraph(t *testing.T) {
	if cycles := NewCycleDetector(&Graph{}, "").Detect(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %d", len(cycles))
	}
	if cycles := NewCycleDetector(nil, "").Detect(); len(cycles) != 0 {
		t.Errorf("expected no cycles for nil graph, got %d", len(cycles))
	}
}
