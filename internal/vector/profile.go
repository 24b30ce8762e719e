// Package vector indexes modules by their coupling profile so structurally
// similar modules can be found across a codebase.
package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// Dimensions is the length of a profile vector.
const Dimensions = 6

// Profile builds the vector of one module: instability, abstraction,
// distance, afferent and efferent coupling scaled by maxCoupling, and 1 when
// the module sits on a cycle.
func Profile(n *depgraph.ModuleNode, maxCoupling int, inCycle bool) []float32 {
	v := make([]float32, Dimensions)
	v[0] = float32(n.Metrics.Instability)
	v[1] = float32(n.Metrics.Abstraction)
	v[2] = float32(n.Metrics.Distance)
	if maxCoupling > 0 {
		v[3] = float32(n.Metrics.AfferentCoupling) / float32(maxCoupling)
		v[4] = float32(n.Metrics.EfferentCoupling) / float32(maxCoupling)
	}
	if inCycle {
		v[5] = 1
	}
	return v
}

// PointID derives a stable identifier so re-indexing a project overwrites
// its previous points.
func PointID(project, module string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("modgraph://"+project+"/"+module)).String()
}

// Documents converts every module of g to a profile document.
func Documents(project string, g *depgraph.Graph, cycles []depgraph.Cycle) []Document {
	onCycle := make(map[string]bool)
	for _, c := range cycles {
		for _, m := range c.Modules {
			onCycle[m] = true
		}
	}
	maxCoupling := 0
	for _, n := range g.Nodes {
		if t := n.TotalCoupling(); t > maxCoupling {
			maxCoupling = t
		}
	}

	names := g.SortedNames()
	docs := make([]Document, 0, len(names))
	for _, name := range names {
		n := g.Nodes[name]
		docs = append(docs, Document{
			ID:      PointID(project, name),
			Project: project,
			Module:  name,
			Vector:  Profile(n, maxCoupling, onCycle[name]),
			Metadata: map[string]string{
				"afferent":    strconv.Itoa(n.Metrics.AfferentCoupling),
				"efferent":    strconv.Itoa(n.Metrics.EfferentCoupling),
				"instability": strconv.FormatFloat(n.Metrics.Instability, 'f', 3, 64),
			},
		})
	}
	return docs
}

// Indexer stores profiles and answers similarity queries.
type Indexer struct {
	repo Repository
	// profiles of the last indexed graph, keyed by module.
	profiles map[string][]float32
}

// NewIndexer creates an Indexer.
func NewIndexer(repo Repository) *Indexer {
	return &Indexer{repo: repo, profiles: make(map[string][]float32)}
}

// Index upserts the profile of every module of g under project.
func (ix *Indexer) Index(ctx context.Context, project string, g *depgraph.Graph, cycles []depgraph.Cycle) (int, error) {
	docs := Documents(project, g, cycles)
	if len(docs) == 0 {
		return 0, nil
	}
	if err := ix.repo.Upsert(ctx, docs); err != nil {
		return 0, fmt.Errorf("upsert profiles: %w", err)
	}
	for _, d := range docs {
		ix.profiles[d.Module] = d.Vector
	}
	return len(docs), nil
}

// Similar returns up to topK modules whose profile is closest to module's,
// excluding module itself.
func (ix *Indexer) Similar(ctx context.Context, project, module string, topK int) ([]SearchResult, error) {
	vec, ok := ix.profiles[module]
	if !ok {
		return nil, fmt.Errorf("module %q is not indexed", module)
	}
	results, err := ix.repo.Search(ctx, project, vec, topK+1)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	out := make([]SearchResult, 0, topK)
	for _, r := range results {
		if r.Module == module {
			continue
		}
		if len(out) == topK {
			break
		}
		out = append(out, r)
	}
	return out, nil
}
