// Package postgres is the pgvector-backed vector store, for deployments
// that keep the index in PostgreSQL instead of the flat cache files.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"ipc-assist/internal/core/ingestion"
	"ipc-assist/internal/core/search"
)

// ConnectionParams are the database connection settings.
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store implements the vector store and search repository on pgvector.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
}

// New connects to PostgreSQL, registers the pgvector types, and verifies
// the connection.
func New(ctx context.Context, params ConnectionParams) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.Host,
		params.Port,
		params.User,
		params.Password,
		params.DBName,
		params.SSLMode,
	)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	store := &Store{pool: pool}

	// The vector typmod stores the dimension, so an existing table tells us
	// the dimension it was built with.
	var dim *int32
	err = pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = to_regclass('ipc_chunks') AND attname = 'embedding'`,
	).Scan(&dim)
	if err == nil && dim != nil && *dim > 0 {
		store.dimension = int(*dim)
	}

	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Reset recreates the chunk table with the given embedding dimension.
func (s *Store) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS ipc_chunks"); err != nil {
		return fmt.Errorf("failed to drop chunk table: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE ipc_chunks (
		id UUID PRIMARY KEY,
		position INT NOT NULL UNIQUE,
		section_id TEXT NOT NULL,
		ordinal INT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, dimension)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create chunk table: %w", err)
	}
	s.dimension = dimension
	return nil
}

// Dimension returns the embedding dimension of the chunk table, or zero when
// the table does not exist yet.
func (s *Store) Dimension() int {
	return s.dimension
}

// Upsert appends chunks with their vectors, preserving insertion order in
// the position column.
func (s *Store) Upsert(ctx context.Context, chunks []ingestion.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	next, err := s.count(ctx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(
			`INSERT INTO ipc_chunks (id, position, section_id, ordinal, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			chunk.ID, next+i, chunk.SectionID, chunk.Ordinal, chunk.Text, pgvector.NewVector(vectors[i]),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	return nil
}

// Flush is a no-op: rows are durable on insert.
func (s *Store) Flush(context.Context) error {
	return nil
}

// Count returns the number of stored rows. A missing table counts as zero
// so a fresh database triggers an index build.
func (s *Store) Count(ctx context.Context) (int, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'ipc_chunks')",
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check chunk table: %w", err)
	}
	if !exists {
		return 0, nil
	}
	return s.count(ctx)
}

func (s *Store) count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ipc_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// SearchByVector returns the limit nearest chunks by cosine distance.
func (s *Store) SearchByVector(ctx context.Context, queryVector []float32, limit int) ([]*search.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT section_id, ordinal, content, 1 - (embedding <=> $1) AS score
		 FROM ipc_chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(queryVector), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []*search.SearchResult
	for rows.Next() {
		r := &search.SearchResult{}
		if err := rows.Scan(&r.SectionID, &r.Ordinal, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search rows: %w", err)
	}
	return results, nil
}

var (
	_ ingestion.VectorStore = (*Store)(nil)
	_ search.Repository     = (*Store)(nil)
)
