package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryRepository is an in-process Repository using cosine similarity.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-process repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]Document)}
}

func (r *MemoryRepository) Upsert(_ context.Context, docs []Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return nil
}

func (r *MemoryRepository) Search(_ context.Context, project string, vec []float32, topK int) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var results []SearchResult
	for _, d := range r.docs {
		if d.Project != project {
			continue
		}
		results = append(results, SearchResult{
			ID:       d.ID,
			Module:   d.Module,
			Score:    cosine(vec, d.Vector),
			Metadata: d.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Module < results[j].Module
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (r *MemoryRepository) Close() error { return nil }

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ Repository = (*MemoryRepository)(nil)
