package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ipc-assist/internal/core/corpus"
)

// BuildService turns the corpus into an embedded, persisted vector index.
type BuildService struct {
	store    VectorStore
	embedder Embedder
	chunker  *Chunker
	logger   *slog.Logger
}

// BuildServiceOption configures a BuildService.
type BuildServiceOption func(*BuildService)

// WithBuildLogger sets the logger for the BuildService.
func WithBuildLogger(logger *slog.Logger) BuildServiceOption {
	return func(s *BuildService) {
		s.logger = logger
	}
}

// NewBuildService creates a new BuildService.
func NewBuildService(store VectorStore, embedder Embedder, chunker *Chunker, opts ...BuildServiceOption) *BuildService {
	s := &BuildService{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Build chunks and embeds every section and replaces the store contents.
// The store is only persisted after every row is in place, and a failed
// build discards whatever it already wrote, so the next run sees either
// the complete index or an empty store.
func (s *BuildService) Build(ctx context.Context, sections []corpus.Section) (*BuildResult, error) {
	start := time.Now()

	if len(sections) == 0 {
		return nil, fmt.Errorf("no sections to index")
	}

	chunks := s.chunker.ChunkAll(sections)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunking produced no chunks")
	}

	s.logger.Info("building vector index",
		"sections", len(sections),
		"chunks", len(chunks),
		"dimension", s.embedder.Dimension(),
	)

	if err := s.store.Reset(ctx, s.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("failed to reset vector store: %w", err)
	}

	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	for offset := 0; offset < len(chunks); offset += batchSize {
		end := offset + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			s.discardPartial(ctx)
			return nil, fmt.Errorf("failed to embed batch at offset %d: %w", offset, err)
		}
		if len(vectors) != len(batch) {
			s.discardPartial(ctx)
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		if err := s.store.Upsert(ctx, batch, vectors); err != nil {
			s.discardPartial(ctx)
			return nil, fmt.Errorf("failed to upsert batch at offset %d: %w", offset, err)
		}

		s.logger.Debug("embedded batch", "offset", offset, "size", len(batch))
	}

	if err := s.store.Flush(ctx); err != nil {
		s.discardPartial(ctx)
		return nil, fmt.Errorf("failed to persist vector store: %w", err)
	}

	result := &BuildResult{
		Sections:  len(sections),
		Chunks:    len(chunks),
		Dimension: s.embedder.Dimension(),
		Rebuilt:   true,
		Duration:  time.Since(start),
	}

	s.logger.Info("vector index built",
		"chunks", result.Chunks,
		"duration", result.Duration.String(),
	)

	return result, nil
}

// discardPartial clears the rows an aborted build already wrote. On stores
// that are durable at Upsert time a partial index would otherwise pass the
// next startup's readiness check and serve a truncated corpus. The cleanup
// runs even when the build died from context cancellation.
func (s *BuildService) discardPartial(ctx context.Context) {
	if err := s.store.Reset(context.WithoutCancel(ctx), s.embedder.Dimension()); err != nil {
		s.logger.Warn("failed to discard partial index state", "error", err)
	}
}
