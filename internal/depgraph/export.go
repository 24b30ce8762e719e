package depgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatDOT      Format = "dot"
	FormatMermaid  Format = "mermaid"
	FormatHTML     Format = "html"
)

// ErrUnknownFormat is returned by Export for unsupported formats.
var ErrUnknownFormat = errors.New("unknown export format")

// Report bundles everything one analysis run produces.
type Report struct {
	Graph       *Graph         `json:"graph" yaml:"graph"`
	Cycles      []Cycle        `json:"cycles" yaml:"cycles"`
	Coupling    CouplingReport `json:"coupling" yaml:"coupling"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
}

// Export renders the report in the requested format.
func Export(r *Report, format Format) ([]byte, error) {
	switch format {
	case FormatText, "":
		return []byte(FormatSummary(r)), nil
	case FormatMarkdown, "md":
		return []byte(ExportMarkdown(r)), nil
	case FormatJSON:
		return ExportJSON(r)
	case FormatYAML, "yml":
		return ExportYAML(r)
	case FormatDOT:
		return []byte(ExportDOT(r.Graph)), nil
	case FormatMermaid:
		return []byte(ExportMermaid(r.Graph)), nil
	case FormatHTML, "htm":
		return ExportHTML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ExportDOT generates a Graphviz DOT representation of the graph. Nodes are
// colored by instability; inheritance edges are dashed.
func ExportDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph DependencyGraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontsize=10];\n")
	b.WriteString("  edge [arrowsize=0.5];\n\n")

	if g == nil {
		b.WriteString("}\n")
		return b.String()
	}

	for _, name := range g.SortedNames() {
		n := g.Nodes[name]
		shape := "ellipse"
		if n.Abstraction > 0.5 {
			shape = "box"
		}
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\\n(I=%.2f)\" shape=%s fillcolor=\"%s\"];\n",
			name, name, n.Instability, shape, instabilityColor(n.Instability)))
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s color=\"%s\"];\n",
			e.SourceModule, e.TargetModule, edgeStyle(e.Kind), edgeColor(e.Kind)))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid generates a Mermaid flowchart. Parallel edges of different
// kinds between the same pair are drawn once.
func ExportMermaid(g *Graph) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	if g == nil {
		return b.String()
	}

	for _, name := range g.SortedNames() {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", sanitizeMermaidID(name), name))
	}

	type pair struct{ from, to string }
	seen := make(map[pair]bool)
	for _, e := range g.Edges {
		key := pair{e.SourceModule, e.TargetModule}
		if seen[key] {
			continue
		}
		seen[key] = true
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			sanitizeMermaidID(e.SourceModule), mermaidArrow(e.Kind), sanitizeMermaidID(e.TargetModule)))
	}
	return b.String()
}

// ExportJSON serializes the report to JSON.
func ExportJSON(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ExportYAML serializes the report to YAML.
func ExportYAML(r *Report) ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return data, nil
}

// FormatSummary returns a human-readable summary of the report.
func FormatSummary(r *Report) string {
	var b strings.Builder
	b.WriteString("Module Dependency Analysis\n")
	b.WriteString("==========================\n\n")

	md := Metadata{}
	if r.Graph != nil {
		md = r.Graph.Metadata
	}
	b.WriteString(fmt.Sprintf("Modules:          %d\n", md.TotalNodes))
	b.WriteString(fmt.Sprintf("Dependencies:     %d\n", md.TotalEdges))
	b.WriteString(fmt.Sprintf("Avg Coupling:     %.2f\n", md.AverageCoupling))
	if md.MaxCouplingModule != "" {
		b.WriteString(fmt.Sprintf("Most Coupled:     %s\n", md.MaxCouplingModule))
	}
	s := r.Coupling.Summary
	b.WriteString(fmt.Sprintf("Avg Instability:  %.3f\n", s.AverageInstability))
	b.WriteString(fmt.Sprintf("Avg Abstraction:  %.3f\n", s.AverageAbstraction))
	b.WriteString(fmt.Sprintf("Stable/Moderate/Unstable: %d/%d/%d\n",
		s.InstabilityDistribution.Stable, s.InstabilityDistribution.Moderate, s.InstabilityDistribution.Unstable))

	b.WriteString("\n")
	b.WriteString(FormatCycles(r.Cycles))

	if len(r.Coupling.Violations) > 0 {
		b.WriteString(fmt.Sprintf("\nViolations: %d\n", len(r.Coupling.Violations)))
		for _, v := range r.Coupling.Violations {
			b.WriteString(fmt.Sprintf("  [%s] %s\n", v.Severity, v.Description))
		}
	}
	return b.String()
}

// FormatCycles lists cycles one per line.
func FormatCycles(cycles []Cycle) string {
	if len(cycles) == 0 {
		return "No cyclic dependencies detected\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cyclic Dependencies: %d\n", len(cycles)))
	for _, c := range cycles {
		b.WriteString(fmt.Sprintf("  %d: %s [%s]\n", c.ID, strings.Join(c.Members(), " -> "), c.Severity))
	}
	return b.String()
}

func sanitizeMermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func instabilityColor(i float64) string {
	switch {
	case i > DefaultUnstableThreshold:
		return "lightcoral"
	case i < DefaultStableThreshold:
		return "lightgreen"
	default:
		return "lightyellow"
	}
}

func edgeStyle(kind DependencyKind) string {
	switch kind {
	case KindInherit:
		return "dashed"
	case KindConfig, KindDatabase:
		return "dotted"
	default:
		return "solid"
	}
}

func edgeColor(kind DependencyKind) string {
	switch kind {
	case KindInherit:
		return "blue"
	case KindCall:
		return "green"
	case KindExternal:
		return "gray"
	default:
		return "black"
	}
}

func mermaidArrow(kind DependencyKind) string {
	switch kind {
	case KindInherit:
		return "--|>"
	case KindConfig, KindDatabase:
		return "-.->"
	default:
		return "-->"
	}
}
