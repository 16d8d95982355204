package search

import "context"

// Repository answers nearest-neighbor queries against the vector index.
type Repository interface {
	// SearchByVector returns the limit nearest chunks to the query vector,
	// best first.
	SearchByVector(ctx context.Context, queryVector []float32, limit int) ([]*SearchResult, error)
}

// Embedder converts a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
