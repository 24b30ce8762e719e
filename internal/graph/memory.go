package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

// MemoryRepository keeps graphs in process. It backs tests and single-shot
// CLI runs where no database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]memoryProject
}

type memoryProject struct {
	modules []ModuleRow
	edges   []depgraph.DependencyRecord
}

// NewMemory creates an empty in-process repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{projects: make(map[string]memoryProject)}
}

func (r *MemoryRepository) SaveGraph(ctx context.Context, project string, g *depgraph.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edges := make([]depgraph.DependencyRecord, len(g.Edges))
	copy(edges, g.Edges)
	SortRecords(edges)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project] = memoryProject{modules: ModuleRows(g), edges: edges}
	return nil
}

func (r *MemoryRepository) LoadRecords(ctx context.Context, project string) ([]depgraph.DependencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[project]
	if !ok {
		return nil, ErrProjectNotFound
	}
	out := make([]depgraph.DependencyRecord, len(p.edges))
	copy(out, p.edges)
	return out, nil
}

func (r *MemoryRepository) QueryDependents(ctx context.Context, project, module string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[project]
	if !ok {
		return nil, ErrProjectNotFound
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range p.edges {
		if e.TargetModule == module && !seen[e.SourceModule] {
			seen[e.SourceModule] = true
			out = append(out, e.SourceModule)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Modules returns the stored module rows of project.
func (r *MemoryRepository) Modules(project string) []ModuleRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projects[project].modules
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

var _ Repository = (*MemoryRepository)(nil)
