package vector

import "context"

// Document is one module's coupling profile.
type Document struct {
	ID       string
	Project  string
	Module   string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Module   string
	Score    float32
	Metadata map[string]string
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// Upsert inserts or updates documents.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the top-k most similar documents within project.
	Search(ctx context.Context, project string, vector []float32, topK int) ([]SearchResult, error)
	// Close releases resources.
	Close() error
}
