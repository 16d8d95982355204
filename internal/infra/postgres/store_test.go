package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-assist/internal/core/ingestion"
)

// setupTestStore connects to a local test database. The suite is skipped
// when no PostgreSQL with the pgvector extension is reachable.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := New(ctx, ConnectionParams{
		Host:     "localhost",
		Port:     5432,
		User:     "ipcassist_test",
		Password: "ipcassist_test",
		DBName:   "ipcassist_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Skip("test database unavailable, skipping integration tests:", err)
	}
	t.Cleanup(func() {
		_, _ = store.pool.Exec(ctx, "DROP TABLE IF EXISTS ipc_chunks")
		store.Close()
	})
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Reset(ctx, 3))
	assert.Equal(t, 3, store.Dimension())

	chunks := []ingestion.Chunk{
		{ID: uuid.New(), SectionID: "IPC 302", Ordinal: 0, Text: "murder"},
		{ID: uuid.New(), SectionID: "IPC 379", Ordinal: 0, Text: "theft"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}
	require.NoError(t, store.Upsert(ctx, chunks, vectors))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.SearchByVector(ctx, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "IPC 302", results[0].SectionID)
	assert.Equal(t, "murder", results[0].Text)
}

func TestStoreCountWithoutTable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _ = store.pool.Exec(ctx, "DROP TABLE IF EXISTS ipc_chunks")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "a fresh database reports an empty index")
}
