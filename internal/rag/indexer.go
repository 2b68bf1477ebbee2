package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/drivechat/drivechat/internal/drive"
	"github.com/drivechat/drivechat/internal/vector"
)

// Source fetches document bytes from the document provider.
// *drive.Client satisfies this.
type Source interface {
	ListFiles(ctx context.Context) ([]drive.File, error)
	GetFile(ctx context.Context, fileID string) (drive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, string, error)
}

// TextExtractor converts raw file bytes into plain text.
// *extract.Extractor satisfies this.
type TextExtractor interface {
	Extract(ctx context.Context, fileName, mimeType string, data []byte) (string, error)
}

// TextChunker splits text into overlapping chunks.
// *chunker.Chunker satisfies this.
type TextChunker interface {
	Split(text string) []string
}

// IndexStore is the vector-store surface the indexer writes to.
// *vector.Memory satisfies this.
type IndexStore interface {
	Insert(chunk vector.Chunk)
	DeleteDocument(documentID string)
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	DocumentID      string `json:"documentId"`
	FileName        string `json:"fileName"`
	ChunksProcessed int    `json:"chunksProcessed"`
}

// Indexer runs the document indexing pipeline: download, extract, chunk,
// embed, store.
type Indexer struct {
	source    Source
	extractor TextExtractor
	chunker   TextChunker
	embedder  ai.Embedder
	store     IndexStore
	logger    *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(source Source, extractor TextExtractor, chunker TextChunker, embedder ai.Embedder, store IndexStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		source:    source,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// Index processes one source file end to end. Re-indexing the same file
// replaces its previous chunks. Chunk indices are assigned in extraction
// order.
func (idx *Indexer) Index(ctx context.Context, fileID string) (IndexResult, error) {
	file, err := idx.source.GetFile(ctx, fileID)
	if err != nil {
		return IndexResult{}, fmt.Errorf("fetching file metadata: %w", err)
	}

	data, mimeType, err := idx.source.Download(ctx, fileID)
	if err != nil {
		return IndexResult{}, fmt.Errorf("downloading %s: %w", file.Name, err)
	}

	text, err := idx.extractor.Extract(ctx, file.Name, mimeType, data)
	if err != nil {
		return IndexResult{}, fmt.Errorf("extracting %s: %w", file.Name, err)
	}

	pieces := idx.chunker.Split(text)
	docID := DocumentID(fileID)

	if len(pieces) == 0 {
		idx.store.DeleteDocument(docID)
		idx.logger.Info("no indexable content", "file", file.Name)
		return IndexResult{DocumentID: docID, FileName: file.Name}, nil
	}

	embeddings, err := idx.embedBatch(ctx, pieces)
	if err != nil {
		return IndexResult{}, fmt.Errorf("embedding %s: %w", file.Name, err)
	}

	now := time.Now().UTC()
	total := strconv.Itoa(len(pieces))

	idx.store.DeleteDocument(docID)
	for i, piece := range pieces {
		idx.store.Insert(vector.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Content:    piece,
			Embedding:  embeddings[i],
			Index:      i,
			Metadata: map[string]string{
				"fileName":    file.Name,
				"fileId":      file.ID,
				"totalChunks": total,
				"processedAt": now.Format(time.RFC3339),
			},
			CreatedAt: now,
		})
	}

	idx.logger.Info("indexed document", "file", file.Name, "chunks", len(pieces))
	return IndexResult{
		DocumentID:      docID,
		FileName:        file.Name,
		ChunksProcessed: len(pieces),
	}, nil
}

// embedBatch embeds all chunk texts in a single provider call.
func (idx *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}

	resp, err := idx.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d chunks", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

// DocumentID derives a stable document id from a source file id.
func DocumentID(fileID string) string {
	sum := sha256.Sum256([]byte(fileID))
	return hex.EncodeToString(sum[:])
}
