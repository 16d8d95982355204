package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-assist/internal/core/ingestion"
	"ipc-assist/internal/core/search"
	"ipc-assist/internal/platform/config"
)

// fixedEmbedder produces vectors of a fixed dimension without a backend.
type fixedEmbedder struct {
	dimension int
}

func (e fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e fixedEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, e.dimension)
		vectors[i][0] = 1
	}
	return vectors, nil
}

func (e fixedEmbedder) Dimension() int    { return e.dimension }
func (e fixedEmbedder) MaxBatchSize() int { return 64 }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	if _, err := ingestion.NewChunker(); err != nil {
		t.Skip("tiktoken encoding unavailable:", err)
	}

	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.jsonl")
	lines := `{"text": "IPC 302: Murder. Whoever commits murder shall be punished. Punishment: Death, or imprisonment for life, and fine."}` + "\n" +
		`{"text": "IPC 379: Theft. Whoever commits theft shall be punished. Punishment: Imprisonment up to 3 years, or fine, or both."}` + "\n"
	require.NoError(t, os.WriteFile(corpusPath, []byte(lines), 0o644))

	return &config.Config{
		Corpus: config.CorpusConfig{DataFile: corpusPath},
		Index: config.IndexConfig{
			Backend:      config.StoreFlat,
			VectorPath:   filepath.Join(dir, "vectors.index"),
			MetadataPath: filepath.Join(dir, "metadata.json"),
		},
		Ollama: config.OllamaConfig{
			BaseURL:   "http://localhost:11434/v1",
			APIKey:    "test",
			ChatModel: "test-model",
		},
		Retrieval: config.RetrievalConfig{InitialK: 20, FinalK: 15},
	}
}

func newTestContainer(t *testing.T, cfg *config.Config, dimension int) *ServiceContainer {
	t.Helper()

	c, err := NewContainer(context.Background(), cfg,
		WithContainerLogger(discardLogger()),
		WithContainerEmbedder(fixedEmbedder{dimension: dimension}),
	)
	require.NoError(t, err)
	return c
}

func TestEnsureIndexReusesIntactCache(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := newTestContainer(t, cfg, 3)
	built, err := first.EnsureIndex(ctx, false)
	require.NoError(t, err)
	assert.True(t, built.Rebuilt)

	second := newTestContainer(t, cfg, 3)
	reused, err := second.EnsureIndex(ctx, false)
	require.NoError(t, err)
	assert.False(t, reused.Rebuilt, "an intact cache at the right dimension must be reused")
	assert.Equal(t, built.Chunks, reused.Chunks)
}

func TestEnsureIndexRebuildsOnDimensionChange(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := newTestContainer(t, cfg, 3)
	_, err := first.EnsureIndex(ctx, false)
	require.NoError(t, err)

	// same cache pair, but the embedding model now produces 4-dim vectors
	second := newTestContainer(t, cfg, 4)
	result, err := second.EnsureIndex(ctx, false)
	require.NoError(t, err)
	assert.True(t, result.Rebuilt, "a cache built at another dimension must be rebuilt")
	assert.Equal(t, 4, result.Dimension)

	retrieval, err := second.SearchService.Retrieve(ctx, search.RetrieveParams{Query: "what is the punishment for theft"})
	require.NoError(t, err, "queries must work right after the rebuild")
	assert.NotEmpty(t, retrieval.Results)
}

func TestStatusReportsDimensionMismatchAsStale(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := newTestContainer(t, cfg, 3)
	_, err := first.EnsureIndex(ctx, false)
	require.NoError(t, err)

	second := newTestContainer(t, cfg, 4)
	status, err := second.Status(ctx)
	require.NoError(t, err)

	assert.True(t, status.Stale, "a dimension mismatch is staleness, not readiness")
	assert.False(t, status.Ready)
	assert.Equal(t, 3, status.Dimension)
}

func TestEnsureIndexForceRebuilds(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c := newTestContainer(t, cfg, 3)
	_, err := c.EnsureIndex(ctx, false)
	require.NoError(t, err)

	result, err := c.EnsureIndex(ctx, true)
	require.NoError(t, err)
	assert.True(t, result.Rebuilt)
}

func TestNewContainerMissingCorpus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.DataFile = filepath.Join(t.TempDir(), "absent.jsonl")

	_, err := NewContainer(context.Background(), cfg,
		WithContainerLogger(discardLogger()),
		WithContainerEmbedder(fixedEmbedder{dimension: 3}),
	)
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "corpus")
}
