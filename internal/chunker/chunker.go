// Package chunker splits extracted document text into overlapping,
// bounded-size passages for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of characters carried over from
// the end of one chunk into the start of the next.
const DefaultOverlap = 200

// DefaultMinLength is the default minimum trimmed chunk length. Chunks at
// or below this length are discarded as near-empty fragments.
const DefaultMinLength = 50

// Chunker splits text into sentence-aligned chunks.
type Chunker struct {
	chunkSize int
	overlap   int
	minLength int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinLength sets the minimum trimmed chunk length to keep.
func WithMinLength(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minLength = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		minLength: DefaultMinLength,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new content in each chunk.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split breaks text into ordered chunks. Sentences are accumulated
// greedily; when the next sentence would overflow the chunk size, the
// current buffer is closed and the next buffer is seeded with the tail of
// the closed chunk so context carries across the boundary. A single
// sentence longer than the chunk size is emitted whole. Chunks at or
// below the minimum length are dropped. Output order matches input order.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	// Short inputs become a single chunk verbatim.
	if len(trimmed) <= c.chunkSize {
		if len(trimmed) <= c.minLength {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	var current string

	for _, sentence := range splitSentences(trimmed) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		// Oversize sentence: flush the buffer and emit it whole.
		if len(sentence) > c.chunkSize {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, sentence)
			continue
		}

		if current == "" {
			current = sentence
			continue
		}

		if len(current)+1+len(sentence) > c.chunkSize {
			chunks = append(chunks, current)
			current = tail(current, c.overlap) + " " + sentence
		} else {
			current += " " + sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	kept := chunks[:0]
	for _, ch := range chunks {
		if len(strings.TrimSpace(ch)) > c.minLength {
			kept = append(kept, ch)
		}
	}
	return kept
}

// splitSentences splits text on sentence-terminal punctuation followed by
// whitespace (or end of input), keeping the terminator with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)

	for i, r := range runes {
		b.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, b.String())
			b.Reset()
		}
	}

	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// tail returns the last n bytes of s, backed up to a rune boundary so the
// overlap never starts mid-character.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
