// Package vector provides an in-memory vector store with brute-force
// cosine-similarity search.
//
// The store is a stand-in for a durable vector database: the API mirrors
// what a pgvector-style backend would offer (insert, top-k search, delete
// by document) so a persistent implementation can be substituted without
// touching the retrieval pipeline.
package vector

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Chunk is a bounded-size span of a document's text together with its
// embedding. Chunks are created once at indexing time and are immutable
// thereafter.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Embedding  []float32
	Index      int // position within the owning document
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Result pairs a chunk with its similarity to the query embedding.
type Result struct {
	Chunk      Chunk
	Similarity float64
}

// Memory is an in-memory vector store.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu     sync.RWMutex
	chunks map[string]Chunk    // chunk ID -> chunk
	docs   map[string][]string // document ID -> chunk IDs
}

// NewMemory creates an empty in-memory vector store.
func NewMemory() *Memory {
	return &Memory{
		chunks: make(map[string]Chunk),
		docs:   make(map[string][]string),
	}
}

// Insert stores a chunk. Chunks are keyed by ID; re-inserting an existing
// ID overwrites the previous record.
func (m *Memory) Insert(chunk Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.chunks[chunk.ID]; !exists {
		m.docs[chunk.DocumentID] = append(m.docs[chunk.DocumentID], chunk.ID)
	}
	m.chunks[chunk.ID] = chunk
}

// Search returns up to k chunks ordered by descending cosine similarity
// to the query embedding. Chunks without an embedding are skipped.
func (m *Memory) Search(query []float32, k int) []Result {
	if k <= 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		results = append(results, Result{
			Chunk:      chunk,
			Similarity: CosineSimilarity(query, chunk.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// All returns every stored chunk in unspecified order.
func (m *Memory) All() []Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Chunk, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		out = append(out, chunk)
	}
	return out
}

// DeleteDocument removes all chunks belonging to a document. Used to
// replace a document's chunks on re-indexing.
func (m *Memory) DeleteDocument(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.docs[documentID] {
		delete(m.chunks, id)
	}
	delete(m.docs, documentID)
}

// Stats reports the total chunk count and the number of distinct
// documents with at least one chunk.
func (m *Memory) Stats() (totalChunks, uniqueDocuments int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.chunks), len(m.docs)
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// It returns 0 when the vectors differ in length or either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
