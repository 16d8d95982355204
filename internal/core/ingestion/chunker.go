package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"ipc-assist/internal/core/corpus"
)

const (
	// DefaultMaxTokens is the largest chunk the embedder should see. Almost
	// every IPC section fits well under this, so most sections become a
	// single chunk.
	DefaultMaxTokens = 512

	// DefaultOverlapSentences is how many trailing sentences of a chunk are
	// repeated at the start of the next one when a section has to be split.
	DefaultOverlapSentences = 1
)

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Chunker splits section text into embeddable units, counting tokens with
// the cl100k_base encoding.
type Chunker struct {
	encoder          *tiktoken.Tiktoken
	maxTokens        int
	overlapSentences int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMaxTokens overrides the per-chunk token budget.
func WithMaxTokens(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlapSentences overrides the sentence overlap between split chunks.
func WithOverlapSentences(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapSentences = n
		}
	}
}

// NewChunker creates a new Chunker.
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	c := &Chunker{
		encoder:          encoder,
		maxTokens:        DefaultMaxTokens,
		overlapSentences: DefaultOverlapSentences,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ChunkSection splits one section into chunks. Sections within the token
// budget yield exactly one chunk holding the full text.
func (c *Chunker) ChunkSection(section corpus.Section) []Chunk {
	text := strings.TrimSpace(section.Text)
	if text == "" {
		return nil
	}

	if c.countTokens(text) <= c.maxTokens {
		return []Chunk{{
			ID:        uuid.New(),
			SectionID: section.ID,
			Ordinal:   0,
			Text:      text,
		}}
	}

	sentences := splitSentences(text)

	var (
		chunks  []Chunk
		current []string
		tokens  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			ID:        uuid.New(),
			SectionID: section.ID,
			Ordinal:   len(chunks),
			Text:      strings.Join(current, " "),
		})
		// carry the overlap into the next chunk
		if c.overlapSentences > 0 && c.overlapSentences < len(current) {
			current = append([]string(nil), current[len(current)-c.overlapSentences:]...)
		} else {
			current = nil
		}
		tokens = 0
		for _, s := range current {
			tokens += c.countTokens(s)
		}
	}

	for _, sentence := range sentences {
		n := c.countTokens(sentence)
		if tokens+n > c.maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		tokens += n
	}
	if len(current) > 0 {
		chunks = append(chunks, Chunk{
			ID:        uuid.New(),
			SectionID: section.ID,
			Ordinal:   len(chunks),
			Text:      strings.Join(current, " "),
		})
	}

	return chunks
}

// ChunkAll chunks every section in corpus order.
func (c *Chunker) ChunkAll(sections []corpus.Section) []Chunk {
	var chunks []Chunk
	for _, section := range sections {
		chunks = append(chunks, c.ChunkSection(section)...)
	}
	return chunks
}

func (c *Chunker) countTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

func splitSentences(text string) []string {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return sentences
}
