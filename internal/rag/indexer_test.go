package rag

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivechat/drivechat/internal/chunker"
	"github.com/drivechat/drivechat/internal/extract"
	"github.com/drivechat/drivechat/internal/testutil"
	"github.com/drivechat/drivechat/internal/vector"
)

func newTestIndexer(t *testing.T, source Source, store IndexStore) *Indexer {
	t.Helper()

	g := genkit.Init(context.Background())
	embedder := testutil.NewMockEmbedder(8).RegisterEmbedder(g)
	logger := testutil.DiscardLogger()

	ch := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(40))

	return NewIndexer(source, extract.New(logger), ch, embedder, store, logger)
}

func sentences(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("This is sentence number " + strconv.Itoa(i) + " about vacation policy. ")
	}
	return sb.String()
}

func TestIndexDocument(t *testing.T) {
	t.Parallel()

	source := testutil.NewMockSource()
	source.AddFile("file-1", "handbook.txt", "text/plain", []byte(sentences(20)))

	store := vector.NewMemory()
	idx := newTestIndexer(t, source, store)

	result, err := idx.Index(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, DocumentID("file-1"), result.DocumentID)
	assert.Equal(t, "handbook.txt", result.FileName)
	assert.Greater(t, result.ChunksProcessed, 1)

	totalChunks, uniqueDocs := store.Stats()
	assert.Equal(t, result.ChunksProcessed, totalChunks)
	assert.Equal(t, 1, uniqueDocs)

	for _, c := range store.All() {
		assert.Equal(t, result.DocumentID, c.DocumentID)
		assert.Equal(t, "handbook.txt", c.Metadata["fileName"])
		assert.Equal(t, "file-1", c.Metadata["fileId"])
		assert.Equal(t, strconv.Itoa(result.ChunksProcessed), c.Metadata["totalChunks"])
		assert.NotEmpty(t, c.Metadata["processedAt"])
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestIndexAssignsMonotonicIndices(t *testing.T) {
	t.Parallel()

	source := testutil.NewMockSource()
	source.AddFile("file-1", "doc.txt", "text/plain", []byte(sentences(30)))

	store := vector.NewMemory()
	idx := newTestIndexer(t, source, store)

	result, err := idx.Index(context.Background(), "file-1")
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, c := range store.All() {
		assert.False(t, seen[c.Index], "chunk index %d assigned twice", c.Index)
		seen[c.Index] = true
		assert.GreaterOrEqual(t, c.Index, 0)
		assert.Less(t, c.Index, result.ChunksProcessed)
	}
}

func TestIndexReindexReplacesChunks(t *testing.T) {
	t.Parallel()

	source := testutil.NewMockSource()
	source.AddFile("file-1", "doc.txt", "text/plain", []byte(sentences(20)))

	store := vector.NewMemory()
	idx := newTestIndexer(t, source, store)

	first, err := idx.Index(context.Background(), "file-1")
	require.NoError(t, err)

	source.AddFile("file-1", "doc.txt", "text/plain", []byte(sentences(5)))

	second, err := idx.Index(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Less(t, second.ChunksProcessed, first.ChunksProcessed)

	totalChunks, uniqueDocs := store.Stats()
	assert.Equal(t, second.ChunksProcessed, totalChunks, "old chunks must be replaced")
	assert.Equal(t, 1, uniqueDocs)
}

func TestIndexEmptyContent(t *testing.T) {
	t.Parallel()

	source := testutil.NewMockSource()
	source.AddFile("file-1", "empty.txt", "text/plain", []byte("   "))

	store := vector.NewMemory()
	idx := newTestIndexer(t, source, store)

	result, err := idx.Index(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Zero(t, result.ChunksProcessed)

	totalChunks, _ := store.Stats()
	assert.Zero(t, totalChunks)
}

func TestIndexUnsupportedMimeType(t *testing.T) {
	t.Parallel()

	source := testutil.NewMockSource()
	source.AddFile("file-1", "video.mp4", "video/mp4", []byte{0x00})

	idx := newTestIndexer(t, source, vector.NewMemory())

	_, err := idx.Index(context.Background(), "file-1")
	assert.ErrorIs(t, err, extract.ErrUnsupportedType)
}

func TestIndexMissingFile(t *testing.T) {
	t.Parallel()

	idx := newTestIndexer(t, testutil.NewMockSource(), vector.NewMemory())

	_, err := idx.Index(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDocumentIDStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DocumentID("file-1"), DocumentID("file-1"))
	assert.NotEqual(t, DocumentID("file-1"), DocumentID("file-2"))
	assert.Len(t, DocumentID("file-1"), 64)
}
