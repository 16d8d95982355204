package flatindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-assist/internal/core/ingestion"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	return New(filepath.Join(dir, "vectors.index"), filepath.Join(dir, "metadata.json"))
}

func chunk(sectionID, text string) ingestion.Chunk {
	return ingestion.Chunk{ID: uuid.New(), SectionID: sectionID, Text: text}
}

func populate(t *testing.T, s *Store) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, s.Reset(ctx, 3))
	require.NoError(t, s.Upsert(ctx,
		[]ingestion.Chunk{
			chunk("IPC 302", "murder"),
			chunk("IPC 379", "theft"),
			chunk("IPC 420", "cheating"),
		},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	))
}

func TestStoreSearchReturnsNearestFirst(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)

	results, err := s.SearchByVector(context.Background(), []float32{0.1, 0.9, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "IPC 379", results[0].SectionID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStorePersistenceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)
	require.NoError(t, s.Flush(context.Background()))

	reloaded := New(s.indexPath, s.metaPath)
	require.NoError(t, reloaded.Load())

	count, err := reloaded.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, reloaded.Dimension())

	results, err := reloaded.SearchByVector(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "IPC 302", results[0].SectionID)
	assert.Equal(t, "murder", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestStoreLoadMissingCache(t *testing.T) {
	s := newTestStore(t)

	err := s.Load()
	require.ErrorIs(t, err, ErrCacheMissing)
}

func TestStoreLoadMissingSidecar(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, os.Remove(s.metaPath))

	reloaded := New(s.indexPath, s.metaPath)
	require.ErrorIs(t, reloaded.Load(), ErrCacheMissing)
}

func TestStoreLoadMisalignedSidecar(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)
	require.NoError(t, s.Flush(context.Background()))

	// drop one entry so the sidecar disagrees with the index row count
	require.NoError(t, os.WriteFile(s.metaPath,
		[]byte(`[{"sectionId":"IPC 302","ordinal":0,"text":"murder"}]`), 0o644))

	reloaded := New(s.indexPath, s.metaPath)
	require.ErrorIs(t, reloaded.Load(), ErrCacheMisaligned)
}

func TestStoreLoadCorruptIndex(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)
	require.NoError(t, s.Flush(context.Background()))

	raw, err := os.ReadFile(s.indexPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.indexPath, raw[:len(raw)-4], 0o644))

	reloaded := New(s.indexPath, s.metaPath)
	require.ErrorIs(t, reloaded.Load(), ErrCacheMisaligned)
}

func TestStoreUpsertValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []ingestion.Chunk{chunk("IPC 1", "x")}, [][]float32{{1, 0, 0}})
	require.Error(t, err, "upsert before reset must fail")

	require.NoError(t, s.Reset(ctx, 3))

	err = s.Upsert(ctx, []ingestion.Chunk{chunk("IPC 1", "x")}, [][]float32{{1, 0}})
	require.Error(t, err, "wrong dimension must fail")

	err = s.Upsert(ctx, []ingestion.Chunk{chunk("IPC 1", "x")}, nil)
	require.Error(t, err, "misaligned lengths must fail")
}

func TestStoreSearchDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)

	_, err := s.SearchByVector(context.Background(), []float32{1, 0}, 5)
	require.Error(t, err)
}

func TestStoreResetClearsRows(t *testing.T) {
	s := newTestStore(t)
	populate(t, s)

	require.NoError(t, s.Reset(context.Background(), 3))
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
