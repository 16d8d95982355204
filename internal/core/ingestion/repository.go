package ingestion

import "context"

// Embedder converts text into fixed-length vectors.
type Embedder interface {
	// Embed generates the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed generates embeddings for up to MaxBatchSize texts at once.
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension this embedder produces.
	Dimension() int

	// MaxBatchSize returns the largest batch BatchEmbed accepts.
	MaxBatchSize() int
}

// VectorStore holds embedded chunks and answers nearest-neighbor queries.
// Implementations: the flat file index and the pgvector-backed store.
type VectorStore interface {
	// Reset discards all rows and fixes the vector dimension.
	Reset(ctx context.Context, dimension int) error

	// Upsert appends chunks with their vectors. Chunks and vectors must be
	// positionally aligned.
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error

	// Flush persists the store. A no-op for stores that write through.
	Flush(ctx context.Context) error

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)
}
