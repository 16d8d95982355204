package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-assist/internal/core/corpus"
)

func newTestChunker(t *testing.T, opts ...ChunkerOption) *Chunker {
	t.Helper()

	c, err := NewChunker(opts...)
	if err != nil {
		t.Skip("tiktoken encoding unavailable:", err)
	}
	return c
}

func TestChunkSectionSingleChunk(t *testing.T) {
	c := newTestChunker(t)

	section := corpus.Section{
		ID:   "IPC 379",
		Text: "IPC 379: Theft. Whoever commits theft shall be punished. Punishment: Imprisonment up to 3 years.",
	}

	chunks := c.ChunkSection(section)
	require.Len(t, chunks, 1, "a short section stays whole")

	assert.Equal(t, "IPC 379", chunks[0].SectionID)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, section.Text, chunks[0].Text)
	assert.NotZero(t, chunks[0].ID)
}

func TestChunkSectionSplitsLongText(t *testing.T) {
	c := newTestChunker(t, WithMaxTokens(32), WithOverlapSentences(1))

	var sb strings.Builder
	sb.WriteString("IPC 999: Long provision.")
	for i := 0; i < 20; i++ {
		sb.WriteString(" This clause describes yet another circumstance of the offence in detail.")
	}
	section := corpus.Section{ID: "IPC 999", Text: sb.String()}

	chunks := c.ChunkSection(section)
	require.Greater(t, len(chunks), 1, "an oversized section must split")

	for i, chunk := range chunks {
		assert.Equal(t, "IPC 999", chunk.SectionID)
		assert.Equal(t, i, chunk.Ordinal)
		assert.NotEmpty(t, chunk.Text)
	}

	// the last sentence of a chunk opens the next one
	for i := 1; i < len(chunks); i++ {
		prev := splitSentences(chunks[i-1].Text)
		require.NotEmpty(t, prev)
		assert.True(t, strings.HasPrefix(chunks[i].Text, prev[len(prev)-1]),
			"chunk %d does not carry the overlap sentence", i)
	}
}

func TestChunkSectionEmptyText(t *testing.T) {
	c := newTestChunker(t)

	assert.Nil(t, c.ChunkSection(corpus.Section{ID: "IPC 1", Text: "   "}))
}

func TestChunkAllPreservesOrder(t *testing.T) {
	c := newTestChunker(t)

	sections := []corpus.Section{
		{ID: "IPC 1", Text: "IPC 1: Title and extent of operation of the Code."},
		{ID: "IPC 2", Text: "IPC 2: Punishment of offences committed within India."},
	}

	chunks := c.ChunkAll(sections)
	require.Len(t, chunks, 2)
	assert.Equal(t, "IPC 1", chunks[0].SectionID)
	assert.Equal(t, "IPC 2", chunks[1].SectionID)
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First clause. Second clause! Third clause?")
	require.Len(t, sentences, 3)
	assert.Equal(t, "First clause.", sentences[0])
	assert.Equal(t, "Second clause!", sentences[1])
	assert.Equal(t, "Third clause?", sentences[2])

	assert.Equal(t, []string{"no terminator at all"}, splitSentences("no terminator at all"))
}
