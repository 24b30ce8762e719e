package depgraph

import (
	"math"
	"path"
	"sort"
	"strings"
)

// RootModule is the module name used when no better name can be derived.
const RootModule = "root"

// DefaultCoreModuleCount is how many modules Build reports as core modules.
const DefaultCoreModuleCount = 5

// packageIndexFiles name a directory as a module rather than belonging to its first segment.
var packageIndexFiles = map[string]bool{
	"__init__.py": true,
	"index.js":    true,
	"index.jsx":   true,
	"index.ts":    true,
	"index.tsx":   true,
	"mod.rs":      true,
}

// strippedPrefixes are removed by Normalize. The order matters.
var strippedPrefixes = []string{"src.", "lib.", "core.", "app."}

// BuilderOptions tunes graph construction.
type BuilderOptions struct {
	CoreModuleCount int
}

// GraphBuilder accumulates dependency records into a module registry and
// produces a Graph. It is not safe for concurrent use.
type GraphBuilder struct {
	opts    BuilderOptions
	modules map[string]*ModuleNode
}

// NewGraphBuilder creates an empty builder.
func NewGraphBuilder(opts BuilderOptions) *GraphBuilder {
	if opts.CoreModuleCount <= 0 {
		opts.CoreModuleCount = DefaultCoreModuleCount
	}
	return &GraphBuilder{
		opts:    opts,
		modules: make(map[string]*ModuleNode),
	}
}

// ModuleNameFor derives a module name from a file path relative to the project root.
// Package-index files name their parent directory; any other file belongs to
// its first path segment.
func ModuleNameFor(relativePath string) string {
	p := strings.Trim(strings.ReplaceAll(relativePath, "\\", "/"), "/")
	if p == "" {
		return RootModule
	}
	parts := strings.Split(p, "/")
	if packageIndexFiles[parts[len(parts)-1]] {
		if len(parts) > 1 {
			return parts[len(parts)-2]
		}
		return RootModule
	}
	return parts[0]
}

// Normalize reduces a raw module reference to a module name.
//
// Truncation at the first '.' happens before prefix stripping, so
// "src.foo.bar" becomes "src", not "foo".
func Normalize(name string) string {
	if name == "" {
		return RootModule
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	for _, prefix := range strippedPrefixes {
		name = strings.TrimPrefix(name, prefix)
	}
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return RootModule
	}
	return name
}

// ensure returns the named node, creating an empty one on first reference.
func (b *GraphBuilder) ensure(name string) *ModuleNode {
	n, ok := b.modules[name]
	if !ok {
		n = &ModuleNode{Name: name}
		b.modules[name] = n
	}
	return n
}

// AddDependency inserts one record. Both endpoints are normalized; records
// that collapse to a self-reference are dropped. It reports whether a new
// outgoing edge was recorded.
func (b *GraphBuilder) AddDependency(rec DependencyRecord) bool {
	source := Normalize(rec.SourceModule)
	target := Normalize(rec.TargetModule)
	if source == target {
		return false
	}
	if rec.Kind == "" {
		rec.Kind = KindImport
	}
	rec.Strength = clampStrength(rec.Strength)

	src := b.ensure(source)
	dst := b.ensure(target)

	added := false
	if !hasDependency(src.Dependencies, target, rec.Kind) {
		fwd := rec
		fwd.SourceModule = source
		fwd.TargetModule = target
		src.Dependencies = append(src.Dependencies, fwd)
		added = true
	}

	// Dependents dedup ignores the kind: one entry per depending module.
	if !hasDependent(dst.Dependents, source) {
		rev := rec
		rev.SourceModule = target
		rev.TargetModule = source
		dst.Dependents = append(dst.Dependents, rev)
	}

	refreshCoupling(src)
	refreshCoupling(dst)
	return added
}

// AddFile registers the module owning the file and inserts its records.
func (b *GraphBuilder) AddFile(fa FileAnalysis) {
	name := ModuleNameFor(fa.RelativePath)
	n := b.ensure(name)
	if n.Path == "" {
		dir := fa.Path
		if dir == "" {
			dir = fa.RelativePath
		}
		if dir != "" {
			n.Path = path.Dir(strings.ReplaceAll(dir, "\\", "/"))
		}
	}
	n.CoreClasses = appendUnique(n.CoreClasses, fa.Classes...)
	n.PublicInterfaces = appendUnique(n.PublicInterfaces, fa.Interfaces...)

	for _, rec := range fa.Dependencies {
		b.AddDependency(rec)
	}
}

// Module returns the node registered under name, or nil.
func (b *GraphBuilder) Module(name string) *ModuleNode {
	return b.modules[name]
}

// Len returns the number of registered modules.
func (b *GraphBuilder) Len() int {
	return len(b.modules)
}

// Build computes metrics and metadata and returns the finished graph.
// The builder must not be used afterwards.
func (b *GraphBuilder) Build() *Graph {
	CalculateMetrics(b.modules)

	g := &Graph{Nodes: b.modules}
	for _, name := range sortedKeys(b.modules) {
		g.Edges = append(g.Edges, b.modules[name].Dependencies...)
	}

	g.Metadata = Metadata{
		TotalNodes:        len(g.Nodes),
		TotalEdges:        len(g.Edges),
		AverageCoupling:   averageCoupling(g.Nodes),
		MaxCouplingModule: maxCouplingModule(g.Nodes),
		CoreModules:       coreModules(g.Nodes, b.opts.CoreModuleCount),
	}
	return g
}

// BuildGraph is a convenience wrapper over NewGraphBuilder, AddFile and Build.
func BuildGraph(files []FileAnalysis, opts BuilderOptions) *Graph {
	b := NewGraphBuilder(opts)
	for _, fa := range files {
		b.AddFile(fa)
	}
	return b.Build()
}

func hasDependency(deps []DependencyRecord, target string, kind DependencyKind) bool {
	for _, d := range deps {
		if d.TargetModule == target && d.Kind == kind {
			return true
		}
	}
	return false
}

func hasDependent(deps []DependencyRecord, source string) bool {
	for _, d := range deps {
		if d.TargetModule == source {
			return true
		}
	}
	return false
}

func refreshCoupling(n *ModuleNode) {
	n.EfferentCoupling = len(n.Dependencies)
	n.AfferentCoupling = len(n.Dependents)
}

// clampStrength treats a missing strength as 1.0 and bounds the rest to [0,1].
func clampStrength(s float64) float64 {
	switch {
	case s <= 0 || math.IsNaN(s):
		return 1.0
	case s > 1:
		return 1.0
	default:
		return s
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

func averageCoupling(nodes map[string]*ModuleNode) float64 {
	if len(nodes) == 0 {
		return 0
	}
	total := 0
	for _, n := range nodes {
		total += n.TotalCoupling()
	}
	return round(float64(total)/float64(len(nodes)), 2)
}

func maxCouplingModule(nodes map[string]*ModuleNode) string {
	best, top := "", -1
	for _, name := range sortedKeys(nodes) {
		if c := nodes[name].TotalCoupling(); c > top {
			best, top = name, c
		}
	}
	return best
}

func coreModules(nodes map[string]*ModuleNode, count int) []CoreModule {
	scores := make([]CoreModule, 0, len(nodes))
	for _, n := range nodes {
		scores = append(scores, CoreModule{
			Name:        n.Name,
			Score:       n.TotalCoupling(),
			Afferent:    n.AfferentCoupling,
			Efferent:    n.EfferentCoupling,
			Instability: n.Instability,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Name < scores[j].Name
	})
	if len(scores) > count {
		scores = scores[:count]
	}
	return scores
}

func sortedKeys(nodes map[string]*ModuleNode) []string {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
