package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-assist/internal/core/corpus"
)

// stubEmbedder returns deterministic vectors and records batch sizes.
type stubEmbedder struct {
	dimension int
	batchSize int
	batches   []int
	failAt    int // batch index to fail at, -1 disables
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(context.Background(), []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *stubEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	if e.failAt >= 0 && len(e.batches) == e.failAt {
		return nil, fmt.Errorf("embedding backend down")
	}
	e.batches = append(e.batches, len(texts))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, e.dimension)
		vectors[i][0] = 1
	}
	return vectors, nil
}

func (e *stubEmbedder) Dimension() int    { return e.dimension }
func (e *stubEmbedder) MaxBatchSize() int { return e.batchSize }

// stubStore is write-through like the postgres backend: rows are visible
// as soon as they are upserted, before any flush.
type stubStore struct {
	resetDim int
	resets   int
	rows     int
	flushed  bool
}

func (s *stubStore) Reset(_ context.Context, dimension int) error {
	s.resetDim = dimension
	s.resets++
	s.rows = 0
	return nil
}

func (s *stubStore) Upsert(_ context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("misaligned upsert")
	}
	s.rows += len(chunks)
	return nil
}

func (s *stubStore) Flush(context.Context) error {
	s.flushed = true
	return nil
}

func (s *stubStore) Count(context.Context) (int, error) { return s.rows, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSections(n int) []corpus.Section {
	sections := make([]corpus.Section, n)
	for i := range sections {
		sections[i] = corpus.Section{
			ID:   fmt.Sprintf("IPC %d", i+1),
			Text: fmt.Sprintf("IPC %d: Provision number %d of the Indian Penal Code.", i+1, i+1),
		}
	}
	return sections
}

func TestBuildServiceBuild(t *testing.T) {
	chunker := newTestChunker(t)
	embedder := &stubEmbedder{dimension: 8, batchSize: 2, failAt: -1}
	store := &stubStore{}
	svc := NewBuildService(store, embedder, chunker, WithBuildLogger(discardLogger()))

	result, err := svc.Build(context.Background(), testSections(5))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Sections)
	assert.Equal(t, 5, result.Chunks)
	assert.Equal(t, 8, result.Dimension)
	assert.True(t, result.Rebuilt)

	assert.Equal(t, 8, store.resetDim)
	assert.Equal(t, 5, store.rows)
	assert.True(t, store.flushed, "a completed build must be flushed")
	assert.Equal(t, []int{2, 2, 1}, embedder.batches, "chunks are embedded in embedder-sized batches")
}

func TestBuildServiceBuildEmptyCorpus(t *testing.T) {
	chunker := newTestChunker(t)
	svc := NewBuildService(&stubStore{}, &stubEmbedder{dimension: 8, batchSize: 2, failAt: -1}, chunker,
		WithBuildLogger(discardLogger()))

	_, err := svc.Build(context.Background(), nil)
	require.Error(t, err)
}

func TestBuildServiceBuildEmbedFailure(t *testing.T) {
	chunker := newTestChunker(t)
	embedder := &stubEmbedder{dimension: 8, batchSize: 2, failAt: 1}
	store := &stubStore{}
	svc := NewBuildService(store, embedder, chunker, WithBuildLogger(discardLogger()))

	_, err := svc.Build(context.Background(), testSections(5))
	require.Error(t, err)

	assert.False(t, store.flushed, "a failed build must not be persisted")
	assert.Zero(t, store.rows, "rows written before the failure must be discarded")
	assert.Equal(t, 2, store.resets, "the failed build resets the store a second time to drop partial rows")
}
