package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

// DependencyKind classifies a dependency between two modules.
type DependencyKind string

const (
	KindImport      DependencyKind = "import"
	KindInherit     DependencyKind = "inherit"
	KindComposition DependencyKind = "composition"
	KindAggregation DependencyKind = "aggregation"
	KindAssociation DependencyKind = "association"
	KindCall        DependencyKind = "call"
	KindDataFlow    DependencyKind = "data_flow"
	KindConfig      DependencyKind = "config"
	KindDatabase    DependencyKind = "database"
	KindExternal    DependencyKind = "external"
)

// ErrUnknownKind is returned when decoding a dependency kind outside the closed set.
var ErrUnknownKind = errors.New("unknown dependency kind")

// AllKinds lists every dependency kind in declaration order.
var AllKinds = []DependencyKind{
	KindImport, KindInherit, KindComposition, KindAggregation, KindAssociation,
	KindCall, KindDataFlow, KindConfig, KindDatabase, KindExternal,
}

// ParseKind converts a string into a DependencyKind. The empty string maps to import.
func ParseKind(s string) (DependencyKind, error) {
	if s == "" {
		return KindImport, nil
	}
	k := DependencyKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// UnmarshalText validates kinds decoded from JSON or YAML input.
func (k *DependencyKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DependencyRecord is one observed edge between two modules.
type DependencyRecord struct {
	SourceModule string         `json:"source_module" yaml:"source_module"`
	TargetModule string         `json:"target_module" yaml:"target_module"`
	Kind         DependencyKind `json:"kind" yaml:"kind"`
	Strength     float64        `json:"strength" yaml:"strength"` // 0-1
	FilePath     string         `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Line         int            `json:"line,omitempty" yaml:"line,omitempty"`
	ElementName  string         `json:"element_name,omitempty" yaml:"element_name,omitempty"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// NodeMetrics is the rounded metric snapshot handed to reporting.
type NodeMetrics struct {
	AfferentCoupling int     `json:"afferent_coupling" yaml:"afferent_coupling"`
	EfferentCoupling int     `json:"efferent_coupling" yaml:"efferent_coupling"`
	Instability      float64 `json:"instability" yaml:"instability"`
	Abstraction      float64 `json:"abstraction" yaml:"abstraction"`
	Distance         float64 `json:"distance" yaml:"distance"`
}

// ModuleNode is a module in the dependency graph together with its coupling metrics.
type ModuleNode struct {
	Name             string             `json:"name" yaml:"name"`
	Path             string             `json:"path,omitempty" yaml:"path,omitempty"`
	AfferentCoupling int                `json:"afferent_coupling" yaml:"afferent_coupling"` // Ca
	EfferentCoupling int                `json:"efferent_coupling" yaml:"efferent_coupling"` // Ce
	Instability      float64            `json:"instability" yaml:"instability"`
	Abstraction      float64            `json:"abstraction" yaml:"abstraction"`
	Distance         float64            `json:"distance" yaml:"distance"`
	Dependencies     []DependencyRecord `json:"dependencies,omitempty" yaml:"dependencies,omitempty"` // outgoing
	Dependents       []DependencyRecord `json:"dependents,omitempty" yaml:"dependents,omitempty"`     // incoming, mirrored
	CoreClasses      []string           `json:"core_classes,omitempty" yaml:"core_classes,omitempty"`
	PublicInterfaces []string           `json:"public_interfaces,omitempty" yaml:"public_interfaces,omitempty"`
	Metrics          NodeMetrics        `json:"metrics" yaml:"metrics"`
}

// TotalCoupling returns Ca + Ce.
func (n *ModuleNode) TotalCoupling() int {
	return n.AfferentCoupling + n.EfferentCoupling
}

// CoreModule ranks a module by its total coupling.
type CoreModule struct {
	Name        string  `json:"name" yaml:"name"`
	Score       int     `json:"score" yaml:"score"`
	Afferent    int     `json:"afferent" yaml:"afferent"`
	Efferent    int     `json:"efferent" yaml:"efferent"`
	Instability float64 `json:"instability" yaml:"instability"`
}

// Metadata holds graph-wide statistics computed at the end of a build.
type Metadata struct {
	TotalNodes        int          `json:"total_nodes" yaml:"total_nodes"`
	TotalEdges        int          `json:"total_edges" yaml:"total_edges"`
	AverageCoupling   float64      `json:"average_coupling" yaml:"average_coupling"`
	MaxCouplingModule string       `json:"max_coupling_module,omitempty" yaml:"max_coupling_module,omitempty"`
	CoreModules       []CoreModule `json:"core_modules" yaml:"core_modules"`
}

// Graph is the module dependency graph. It is read-only once returned by Build.
type Graph struct {
	Nodes    map[string]*ModuleNode `json:"nodes" yaml:"nodes"`
	Edges    []DependencyRecord     `json:"edges" yaml:"edges"`
	Metadata Metadata               `json:"metadata" yaml:"metadata"`
}

// Node returns the named module, or nil.
func (g *Graph) Node(name string) *ModuleNode {
	if g == nil || g.Nodes == nil {
		return nil
	}
	return g.Nodes[name]
}

// SortedNames returns node names in ascending order.
func (g *Graph) SortedNames() []string {
	return sortedKeys(g.Nodes)
}

// FileAnalysis is the per-file input handed over by the extraction front end.
type FileAnalysis struct {
	RelativePath string             `json:"relative_path" yaml:"relative_path"`
	Path         string             `json:"path,omitempty" yaml:"path,omitempty"`
	Language     string             `json:"language,omitempty" yaml:"language,omitempty"`
	Content      string             `json:"content,omitempty" yaml:"content,omitempty"`
	Dependencies []DependencyRecord `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Classes      []string           `json:"classes,omitempty" yaml:"classes,omitempty"`
	Interfaces   []string           `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}
