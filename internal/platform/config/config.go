// Package config loads application settings from the environment, with an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreFlat     = "flat"
	StorePostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	Corpus    CorpusConfig
	Index     IndexConfig
	Database  DatabaseConfig
	Ollama    OllamaConfig
	Retrieval RetrievalConfig
	Server    ServerConfig

	// LoggingConfigPath points at the YAML log sink configuration.
	LoggingConfigPath string
}

// CorpusConfig locates the corpus file.
type CorpusConfig struct {
	DataFile string
}

// IndexConfig configures the vector index cache and backend.
type IndexConfig struct {
	Backend      string // StoreFlat or StorePostgres
	VectorPath   string // flat backend: binary index file
	MetadataPath string // flat backend: JSON metadata sidecar
}

// DatabaseConfig is the PostgreSQL connection configuration, used only with
// the postgres backend.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OllamaConfig configures the local LLM server.
type OllamaConfig struct {
	BaseURL            string
	APIKey             string // Ollama ignores the value but the SDK requires one
	ChatModel          string
	EmbeddingModel     string
	EmbeddingDimension int
}

// RetrievalConfig holds the retrieval tunables.
type RetrievalConfig struct {
	InitialK int // semantic candidates before reranking
	FinalK   int // results kept after reranking
}

// ServerConfig configures the HTTP chat server.
type ServerConfig struct {
	Port int
}

// Load reads configuration from the environment, first applying the .env
// file at envFilePath when it exists.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// absent file is fine, the environment alone may be complete
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Corpus: CorpusConfig{
			DataFile: getEnv("DATA_FILE", "data/legal_data.jsonl"),
		},
		Index: IndexConfig{
			Backend:      getEnv("VECTOR_STORE", StoreFlat),
			VectorPath:   getEnv("VECTOR_INDEX_PATH", "data/ipc_vectors.index"),
			MetadataPath: getEnv("METADATA_PATH", "data/ipc_metadata.json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "ipcassist"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ipcassist"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Ollama: OllamaConfig{
			BaseURL:            getEnv("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
			APIKey:             getEnv("OLLAMA_API_KEY", "ollama"),
			ChatModel:          getEnv("OLLAMA_MODEL", "llama3.1"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
		},
		Retrieval: RetrievalConfig{
			InitialK: getEnvAsInt("K_INITIAL_RETRIEVAL", 20),
			FinalK:   getEnvAsInt("K_FINAL_RERANKED", 15),
		},
		Server: ServerConfig{
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		LoggingConfigPath: getEnv("LOGGING_CONFIG", "logging.yaml"),
	}

	if cfg.Index.Backend != StoreFlat && cfg.Index.Backend != StorePostgres {
		return nil, fmt.Errorf("unknown VECTOR_STORE backend %q", cfg.Index.Backend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
