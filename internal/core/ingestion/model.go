// Package ingestion builds the vector index: sections are chunked, embedded
// and written to a vector store in corpus order.
package ingestion

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is one embeddable unit of a section's text.
type Chunk struct {
	ID        uuid.UUID
	SectionID string
	Ordinal   int // position of the chunk within its section
	Text      string
}

// BuildResult summarizes an index build.
type BuildResult struct {
	Sections  int
	Chunks    int
	Dimension int
	Rebuilt   bool // false when the persisted index was reused
	Duration  time.Duration
}
