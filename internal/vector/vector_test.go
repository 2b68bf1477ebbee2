package vector

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	t.Run("identical vectors", func(t *testing.T) {
		t.Parallel()
		v := []float32{0.3, -0.5, 0.8}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		t.Parallel()
		a := []float32{1, 2, 3}
		b := []float32{-2, 0.5, 4}
		assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-12)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	})

	t.Run("bounded to unit interval", func(t *testing.T) {
		t.Parallel()
		a := []float32{0.1, 0.9, -0.3, 0.02}
		b := []float32{-0.7, 0.2, 0.5, 0.99}
		sim := CosineSimilarity(a, b)
		assert.LessOrEqual(t, sim, 1.0+1e-9)
		assert.GreaterOrEqual(t, sim, -1.0-1e-9)
	})

	t.Run("dimension mismatch is zero", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	})

	t.Run("zero vector is zero", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3}))
	})

	t.Run("empty vectors are zero", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, CosineSimilarity(nil, nil))
	})
}

// axisChunk builds a chunk whose embedding points along a single axis,
// rotated by the given angle from the x axis in the xy plane.
func axisChunk(id string, angle float64) Chunk {
	return Chunk{
		ID:         id,
		DocumentID: "doc-1",
		Content:    "content " + id,
		Embedding:  []float32{float32(math.Cos(angle)), float32(math.Sin(angle))},
	}
}

func TestSearch_OrderedByDescendingSimilarity(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Insert(axisChunk("far", math.Pi/2))
	m.Insert(axisChunk("near", 0.1))
	m.Insert(axisChunk("nearest", 0.01))
	m.Insert(axisChunk("mid", 0.8))

	results := m.Search([]float32{1, 0}, 3)

	require.Len(t, results, 3)
	assert.Equal(t, "nearest", results[0].Chunk.ID)
	assert.Equal(t, "near", results[1].Chunk.ID)
	assert.Equal(t, "mid", results[2].Chunk.ID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	assert.Greater(t, results[1].Similarity, results[2].Similarity)
}

func TestSearch_NeverExceedsK(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	for i := range 10 {
		m.Insert(axisChunk(fmt.Sprintf("c%d", i), float64(i)/10))
	}

	assert.Len(t, m.Search([]float32{1, 0}, 5), 5)
	assert.Len(t, m.Search([]float32{1, 0}, 100), 10)
	assert.Empty(t, m.Search([]float32{1, 0}, 0))
}

func TestSearch_SkipsChunksWithoutEmbedding(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Insert(Chunk{ID: "no-embedding", DocumentID: "doc-1", Content: "text"})
	m.Insert(axisChunk("embedded", 0))

	results := m.Search([]float32{1, 0}, 10)

	require.Len(t, results, 1)
	assert.Equal(t, "embedded", results[0].Chunk.ID)
}

func TestSearch_EmptyStore(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	assert.Empty(t, m.Search([]float32{1, 0}, 5))
}

func TestInsert_OverwriteKeepsSingleRecord(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Insert(Chunk{ID: "c1", DocumentID: "doc-1", Content: "first", Embedding: []float32{1}})
	m.Insert(Chunk{ID: "c1", DocumentID: "doc-1", Content: "second", Embedding: []float32{1}})

	total, docs := m.Stats()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, docs)

	all := m.All()
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Content)
}

func TestStats(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	for i := range 3 {
		m.Insert(Chunk{ID: fmt.Sprintf("a%d", i), DocumentID: "doc-a", Embedding: []float32{1}})
	}
	m.Insert(Chunk{ID: "b0", DocumentID: "doc-b", Embedding: []float32{1}})

	total, docs := m.Stats()
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, docs)
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Insert(Chunk{ID: "a0", DocumentID: "doc-a", Embedding: []float32{1}})
	m.Insert(Chunk{ID: "a1", DocumentID: "doc-a", Embedding: []float32{1}})
	m.Insert(Chunk{ID: "b0", DocumentID: "doc-b", Embedding: []float32{1}})

	m.DeleteDocument("doc-a")

	total, docs := m.Stats()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, docs)

	// Deleting an unknown document is a no-op.
	m.DeleteDocument("doc-missing")
	total, _ = m.Stats()
	assert.Equal(t, 1, total)
}
