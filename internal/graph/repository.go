// Package graph persists analyzed dependency graphs.
package graph

import (
	"context"
	"errors"
	"sort"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// ErrProjectNotFound is returned when nothing is stored for a project.
var ErrProjectNotFound = errors.New("project not found")

// Repository provides graph storage for analyzed module graphs. Graphs are
// scoped by project so several repositories can share one database.
type Repository interface {
	// SaveGraph replaces the stored graph of project.
	SaveGraph(ctx context.Context, project string, g *depgraph.Graph) error
	// LoadRecords returns the stored edges of project, sorted by source then target.
	LoadRecords(ctx context.Context, project string) ([]depgraph.DependencyRecord, error)
	// QueryDependents returns the modules of project that depend on module.
	QueryDependents(ctx context.Context, project, module string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// ModuleRow is the stored form of a module node.
type ModuleRow struct {
	Name        string
	Afferent    int
	Efferent    int
	Instability float64
	Abstraction float64
	Distance    float64
}

// ModuleRows flattens the nodes of g in name order.
func ModuleRows(g *depgraph.Graph) []ModuleRow {
	names := g.SortedNames()
	rows := make([]ModuleRow, 0, len(names))
	for _, name := range names {
		n := g.Nodes[name]
		rows = append(rows, ModuleRow{
			Name:        name,
			Afferent:    n.Metrics.AfferentCoupling,
			Efferent:    n.Metrics.EfferentCoupling,
			Instability: n.Metrics.Instability,
			Abstraction: n.Metrics.Abstraction,
			Distance:    n.Metrics.Distance,
		})
	}
	return rows
}

// SortRecords orders records by source, target then kind.
func SortRecords(recs []depgraph.DependencyRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.SourceModule != b.SourceModule {
			return a.SourceModule < b.SourceModule
		}
		if a.TargetModule != b.TargetModule {
			return a.TargetModule < b.TargetModule
		}
		return a.Kind < b.Kind
	})
}
