package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longText builds a text of numbered sentences, each roughly 40 chars,
// so chunk boundaries fall between sentences.
func longText(sentences int) string {
	var b strings.Builder
	for i := range sentences {
		fmt.Fprintf(&b, "This is sentence number %03d with padding words. ", i)
	}
	return b.String()
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	c := New()
	text := "  This sentence is comfortably longer than fifty characters in total length.  "

	chunks := c.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0])
}

func TestSplit_TinyTextDiscarded(t *testing.T) {
	t.Parallel()

	c := New()

	assert.Empty(t, c.Split("Too short."))
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplit_AllSentencesCovered(t *testing.T) {
	t.Parallel()

	c := New()
	text := longText(100)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	joined := strings.Join(chunks, " ")
	for i := range 100 {
		sentence := fmt.Sprintf("This is sentence number %03d with padding words.", i)
		assert.Contains(t, joined, sentence, "sentence %d dropped", i)
	}
}

func TestSplit_ChunksRespectSizeBound(t *testing.T) {
	t.Parallel()

	c := New()
	chunks := c.Split(longText(100))

	// Each chunk stays within chunk size plus the overlap seed.
	for i, ch := range chunks {
		assert.LessOrEqual(t, len(ch), DefaultChunkSize+DefaultOverlap+1, "chunk %d too large", i)
	}
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	t.Parallel()

	c := New()
	chunks := c.Split(longText(100))
	require.Greater(t, len(chunks), 1)

	// The second chunk starts with the tail of the first.
	seed := tail(chunks[0], DefaultOverlap)
	assert.True(t, strings.HasPrefix(chunks[1], seed),
		"chunk 1 does not start with the overlap of chunk 0")
}

func TestSplit_OversizeSentenceEmittedWhole(t *testing.T) {
	t.Parallel()

	c := New(WithChunkSize(100), WithOverlap(20), WithMinLength(10))
	oversize := strings.Repeat("word ", 40) + "end." // ~204 chars, no internal terminator
	text := "A leading sentence that fills the buffer first, here. " + oversize

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	var found bool
	for _, ch := range chunks {
		if strings.Contains(ch, "word word") && strings.HasSuffix(ch, "end.") {
			found = true
			assert.Greater(t, len(ch), 100, "oversize sentence should not be split")
		}
	}
	assert.True(t, found, "oversize sentence missing from output")
}

func TestSplit_OrderPreserved(t *testing.T) {
	t.Parallel()

	c := New()
	chunks := c.Split(longText(100))

	last := -1
	for _, ch := range chunks {
		var n int
		_, err := fmt.Sscanf(ch[strings.Index(ch, "number "):], "number %d", &n)
		require.NoError(t, err)
		assert.Greater(t, n, last, "chunks out of order")
		last = n
	}
}

func TestSplit_QuestionAndExclamationTerminators(t *testing.T) {
	t.Parallel()

	c := New(WithChunkSize(80), WithOverlap(0), WithMinLength(0))
	text := "Is this the first full sentence of the test input here? " +
		"Yes indeed it certainly is the second one of them! " +
		"And a third full sentence closes out the entire set."

	chunks := c.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Contains(t, strings.Join(chunks, " "), "second one of them!")
}

func TestNew_OverlapClampedToQuarter(t *testing.T) {
	t.Parallel()

	c := New(WithChunkSize(100), WithOverlap(150))
	assert.Equal(t, 25, c.overlap)
}

func TestTail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cdef", tail("abcdef", 4))
	assert.Equal(t, "abc", tail("abc", 10))
	assert.Equal(t, "abc", tail("abc", 0))

	// Multi-byte runes are never split.
	s := "héllo wörld"
	cut := tail(s, 5)
	assert.True(t, strings.HasSuffix(s, cut))
	for _, r := range cut {
		assert.NotEqual(t, '�', r)
	}
}
