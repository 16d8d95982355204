// Package flatindex is a flat (exhaustive) vector index persisted as a
// binary file of float32 rows plus a JSON metadata sidecar. Row i of the
// index always describes entry i of the sidecar; the pair is written
// together by rename so readers never observe one half updated.
package flatindex

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ipc-assist/internal/core/ingestion"
	"ipc-assist/internal/core/search"
)

// magic identifies the index file format.
var magic = [8]byte{'I', 'P', 'C', 'V', 'E', 'C', '0', '1'}

var (
	// ErrCacheMissing is returned by Load when either half of the cache pair
	// is absent. Callers treat it as "build the index".
	ErrCacheMissing = errors.New("index cache missing")

	// ErrCacheMisaligned is returned by Load when the index and sidecar
	// disagree on row count, or either file is corrupt. Callers treat it
	// the same as a missing cache.
	ErrCacheMisaligned = errors.New("index cache misaligned")
)

// Entry is one sidecar record: the chunk metadata for the vector stored at
// the same position in the index file.
type Entry struct {
	SectionID string `json:"sectionId"`
	Ordinal   int    `json:"ordinal"`
	Text      string `json:"text"`
}

// Store is the in-memory flat index together with its on-disk cache pair.
type Store struct {
	mu        sync.RWMutex
	indexPath string
	metaPath  string
	dimension int
	vectors   [][]float32
	entries   []Entry
}

// New creates a Store backed by the given cache pair paths. The store is
// empty until Load or a rebuild populates it.
func New(indexPath, metaPath string) *Store {
	return &Store{
		indexPath: indexPath,
		metaPath:  metaPath,
	}
}

// Load reads the cache pair from disk. ErrCacheMissing and
// ErrCacheMisaligned both mean the index must be rebuilt.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dimension, vectors, err := readIndexFile(s.indexPath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(s.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrCacheMissing, s.metaPath)
		}
		return fmt.Errorf("failed to read metadata sidecar: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("%w: invalid metadata sidecar: %v", ErrCacheMisaligned, err)
	}

	if len(entries) != len(vectors) {
		return fmt.Errorf("%w: index has %d rows, sidecar has %d entries",
			ErrCacheMisaligned, len(vectors), len(entries))
	}

	s.dimension = dimension
	s.vectors = vectors
	s.entries = entries
	return nil
}

// Reset discards all rows and fixes the dimension for subsequent upserts.
func (s *Store) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.entries = nil
	return nil
}

// Upsert appends chunks and their vectors. Vectors are normalized on the
// way in so search reduces to a dot product.
func (s *Store) Upsert(_ context.Context, chunks []ingestion.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return fmt.Errorf("store not initialized: call Reset first")
	}

	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d has dimension %d, store expects %d", i, len(v), s.dimension)
		}
	}

	for i, chunk := range chunks {
		s.vectors = append(s.vectors, normalize(vectors[i]))
		s.entries = append(s.entries, Entry{
			SectionID: chunk.SectionID,
			Ordinal:   chunk.Ordinal,
			Text:      chunk.Text,
		})
	}
	return nil
}

// Flush writes the cache pair to disk. Each file is written to a temp name
// and renamed into place, so neither half is ever observed half-written.
// The two renames are not atomic together: a crash between them can leave
// a new index next to an old sidecar, caught on Load when the row counts
// differ.
func (s *Store) Flush(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.indexPath), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.metaPath), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	if err := writeIndexFile(s.indexPath, s.dimension, s.vectors); err != nil {
		return err
	}

	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode metadata sidecar: %w", err)
	}
	if err := writeByRename(s.metaPath, raw); err != nil {
		return fmt.Errorf("failed to write metadata sidecar: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Dimension returns the stored vector dimension, 0 when empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// SearchByVector returns the limit nearest rows by cosine similarity.
func (s *Store) SearchByVector(_ context.Context, queryVector []float32, limit int) ([]*search.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(queryVector), s.dimension)
	}
	if limit <= 0 {
		limit = 10
	}

	query := normalize(queryVector)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = scored{idx: i, score: dot(v, query)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if limit > len(scores) {
		limit = len(scores)
	}
	results := make([]*search.SearchResult, 0, limit)
	for _, sc := range scores[:limit] {
		entry := s.entries[sc.idx]
		results = append(results, &search.SearchResult{
			SectionID: entry.SectionID,
			Ordinal:   entry.Ordinal,
			Text:      entry.Text,
			Score:     sc.score,
		})
	}
	return results, nil
}

func readIndexFile(path string) (int, [][]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, fmt.Errorf("%w: %s", ErrCacheMissing, path)
		}
		return 0, nil, fmt.Errorf("failed to read index file: %w", err)
	}

	header := len(magic) + 8
	if len(raw) < header || [8]byte(raw[:8]) != magic {
		return 0, nil, fmt.Errorf("%w: bad index header", ErrCacheMisaligned)
	}

	dimension := int(binary.LittleEndian.Uint32(raw[8:12]))
	count := int(binary.LittleEndian.Uint32(raw[12:16]))
	if dimension <= 0 || count < 0 {
		return 0, nil, fmt.Errorf("%w: bad index header", ErrCacheMisaligned)
	}
	if len(raw) != header+count*dimension*4 {
		return 0, nil, fmt.Errorf("%w: index file truncated", ErrCacheMisaligned)
	}

	vectors := make([][]float32, count)
	off := header
	for i := 0; i < count; i++ {
		row := make([]float32, dimension)
		for j := 0; j < dimension; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
			off += 4
		}
		vectors[i] = row
	}
	return dimension, vectors, nil
}

func writeIndexFile(path string, dimension int, vectors [][]float32) error {
	buf := make([]byte, 0, len(magic)+8+len(vectors)*dimension*4)
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dimension))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(vectors)))
	for _, row := range vectors {
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	if err := writeByRename(path, buf); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

func writeByRename(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return append([]float32(nil), v...)
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

var (
	_ ingestion.VectorStore = (*Store)(nil)
	_ search.Repository     = (*Store)(nil)
)
