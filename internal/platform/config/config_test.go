package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/legal_data.jsonl", cfg.Corpus.DataFile)
	assert.Equal(t, StoreFlat, cfg.Index.Backend)
	assert.Equal(t, "data/ipc_vectors.index", cfg.Index.VectorPath)
	assert.Equal(t, "data/ipc_metadata.json", cfg.Index.MetadataPath)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3.1", cfg.Ollama.ChatModel)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbeddingModel)
	assert.Equal(t, 768, cfg.Ollama.EmbeddingDimension)
	assert.Equal(t, 20, cfg.Retrieval.InitialK)
	assert.Equal(t, 15, cfg.Retrieval.FinalK)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VECTOR_STORE", StorePostgres)
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("K_FINAL_RERANKED", "7")
	t.Setenv("DB_PORT", "15432")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Index.Backend)
	assert.Equal(t, "mistral", cfg.Ollama.ChatModel)
	assert.Equal(t, 7, cfg.Retrieval.FinalK)
	assert.Equal(t, 15432, cfg.Database.Port)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSION", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.Ollama.EmbeddingDimension)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("VECTOR_STORE", "redis")

	_, err := Load("")
	require.Error(t, err)
}
