// Package container wires configuration, infrastructure adapters and core
// services into a single application object.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ipc-assist/internal/core/chat"
	"ipc-assist/internal/core/corpus"
	"ipc-assist/internal/core/ingestion"
	"ipc-assist/internal/core/search"
	"ipc-assist/internal/infra/flatindex"
	"ipc-assist/internal/infra/openai"
	"ipc-assist/internal/infra/postgres"
	"ipc-assist/internal/platform/config"
)

// vectorStore is the combined store contract the container needs: writes for
// index builds and reads for retrieval.
type vectorStore interface {
	ingestion.VectorStore
	search.Repository

	// Dimension reports the embedding dimension of the stored vectors, or
	// zero when the store is empty.
	Dimension() int
}

// IndexStatus reports the state of the vector index.
type IndexStatus struct {
	Backend   string
	Count     int
	Dimension int
	Ready     bool
	Stale     bool
}

// ServiceContainer holds the wired services.
type ServiceContainer struct {
	BuildService  *ingestion.BuildService
	SearchService *search.Service
	ChatService   *chat.Service

	Sections  []corpus.Section
	LoadStats corpus.LoadStats

	cfg       *config.Config
	store     vectorStore
	flatStore *flatindex.Store // nil when the postgres backend is active
	pgStore   *postgres.Store  // nil when the flat backend is active
	embedDim  int              // dimension the active embedder produces
	logger    *slog.Logger
}

type containerOptions struct {
	logger   *slog.Logger
	embedder ingestion.Embedder
	llm      chat.LLMClient
	store    vectorStore
}

// ContainerOption customizes container construction.
type ContainerOption func(*containerOptions)

// WithContainerLogger replaces the logger.
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder injects a custom embedder.
func WithContainerEmbedder(embedder ingestion.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient injects a custom LLM client.
func WithContainerLLMClient(client chat.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llm = client
	}
}

// WithContainerStore injects a custom vector store.
func WithContainerStore(store vectorStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// NewContainer builds the container from the configuration. The corpus is
// loaded eagerly because the keyword and exact-match retrieval passes work
// directly against the parsed sections.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	loader := corpus.NewLoader(corpus.WithLoaderLogger(options.logger))
	sections, stats, err := loader.Load(cfg.Corpus.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	c := &ServiceContainer{
		Sections:  sections,
		LoadStats: stats,
		cfg:       cfg,
		logger:    options.logger,
	}

	// Vector store (flat file by default, PostgreSQL + pgvector optional)
	store := options.store
	if store == nil {
		switch cfg.Index.Backend {
		case config.StoreFlat:
			c.flatStore = flatindex.New(cfg.Index.VectorPath, cfg.Index.MetadataPath)
			store = c.flatStore
		case config.StorePostgres:
			pg, err := postgres.New(ctx, postgres.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to initialize database: %w", err)
			}
			c.pgStore = pg
			store = pg
		default:
			return nil, fmt.Errorf("unknown vector store backend %q", cfg.Index.Backend)
		}
	}
	c.store = store

	// Embedder (Ollama via the OpenAI-compatible API)
	embedder := options.embedder
	if embedder == nil {
		embedder = openai.NewEmbedder(
			cfg.Ollama.BaseURL,
			cfg.Ollama.APIKey,
			openai.WithEmbeddingModel(cfg.Ollama.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.Ollama.EmbeddingDimension),
		)
	}

	c.embedDim = embedder.Dimension()

	chunker, err := ingestion.NewChunker()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	c.BuildService = ingestion.NewBuildService(store, embedder, chunker,
		ingestion.WithBuildLogger(options.logger))

	searchEmbedder, ok := embedder.(search.Embedder)
	if !ok {
		return nil, errors.New("embedder does not support query embedding")
	}
	c.SearchService = search.NewService(sections, store, searchEmbedder,
		search.WithSearchLogger(options.logger),
		search.WithLimits(cfg.Retrieval.InitialK, cfg.Retrieval.FinalK))

	// LLM client (Ollama)
	llm := options.llm
	if llm == nil {
		llm = openai.NewClient(cfg.Ollama.BaseURL, cfg.Ollama.APIKey, cfg.Ollama.ChatModel)
	}

	c.ChatService = chat.NewService(c.SearchService, llm, chat.NewSessionStore(), cfg.Ollama.ChatModel,
		chat.WithChatLogger(options.logger))

	return c, nil
}

// EnsureIndex makes the vector index ready, reusing the persisted cache when
// it is intact and rebuilding it otherwise. With force set the cache is
// always rebuilt.
func (c *ServiceContainer) EnsureIndex(ctx context.Context, force bool) (*ingestion.BuildResult, error) {
	if !force {
		if ready, err := c.indexReady(ctx); err != nil {
			return nil, err
		} else if ready {
			count, _ := c.store.Count(ctx)
			c.logger.Info("reusing persisted vector index", slog.Int("vectors", count))
			return &ingestion.BuildResult{
				Sections:  len(c.Sections),
				Chunks:    count,
				Dimension: c.store.Dimension(),
				Rebuilt:   false,
			}, nil
		}
	}

	c.logger.Info("building vector index", slog.Int("sections", len(c.Sections)))
	result, err := c.BuildService.Build(ctx, c.Sections)
	if err != nil {
		return nil, fmt.Errorf("failed to build vector index: %w", err)
	}
	return result, nil
}

// indexReady reports whether the persisted index can be reused as-is.
func (c *ServiceContainer) indexReady(ctx context.Context) (bool, error) {
	if c.flatStore != nil {
		err := c.flatStore.Load()
		switch {
		case err == nil:
			// fall through to the count check
		case errors.Is(err, flatindex.ErrCacheMissing):
			return false, nil
		case errors.Is(err, flatindex.ErrCacheMisaligned):
			c.logger.Warn("vector cache is misaligned, rebuilding", slog.String("error", err.Error()))
			return false, nil
		default:
			return false, fmt.Errorf("failed to load vector cache: %w", err)
		}
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to inspect vector store: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	// A cache built with a different embedding model is useless: every query
	// vector would be rejected. Treat it as stale and rebuild.
	if dim := c.store.Dimension(); dim != c.embedDim {
		c.logger.Warn("vector index dimension differs from embedder, rebuilding",
			slog.Int("index", dim), slog.Int("embedder", c.embedDim))
		return false, nil
	}
	return true, nil
}

// Status reports the current index state without modifying it.
func (c *ServiceContainer) Status(ctx context.Context) (*IndexStatus, error) {
	status := &IndexStatus{Backend: c.cfg.Index.Backend}

	if c.flatStore != nil {
		err := c.flatStore.Load()
		switch {
		case errors.Is(err, flatindex.ErrCacheMissing):
			return status, nil
		case errors.Is(err, flatindex.ErrCacheMisaligned):
			status.Stale = true
			return status, nil
		case err != nil:
			return nil, fmt.Errorf("failed to load vector cache: %w", err)
		}
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect vector store: %w", err)
	}
	status.Count = count
	status.Dimension = c.store.Dimension()
	status.Ready = count > 0 && status.Dimension == c.embedDim
	status.Stale = count > 0 && status.Dimension != c.embedDim
	return status, nil
}

// Logger returns the container logger.
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Close releases held resources.
func (c *ServiceContainer) Close() {
	if c != nil && c.pgStore != nil {
		c.pgStore.Close()
	}
}
