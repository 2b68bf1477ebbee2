package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivechat/drivechat/internal/testutil"
	"github.com/drivechat/drivechat/internal/vector"
)

func TestDocumentsList(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.source.AddFile("f1", "handbook.pdf", "application/pdf", []byte("pdf"))
	ts.source.AddFile("f2", "notes.txt", "text/plain", []byte("notes"))

	rec := ts.do(t, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "handbook.pdf", resp.Files[0].Name)
	assert.Equal(t, "notes.txt", resp.Files[1].Name)
}

func TestDocumentsListEmpty(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestDocumentsListWithoutSource(t *testing.T) {
	t.Parallel()

	h := &documentHandler{logger: testutil.DiscardLogger()}
	rec := httptest.NewRecorder()
	h.list(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "source_unavailable")
}

func TestDocumentsProcess(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.source.AddFile("f1", "doc.txt", "text/plain",
		[]byte("First sentence about the vacation policy of the company. Second sentence describes remote work arrangements in detail. Third sentence covers the health insurance benefits available. Fourth sentence explains the retirement savings plan options. Fifth sentence lists the official company holidays observed."))

	rec := ts.do(t, http.MethodPost, "/api/documents/process", `{"fileId":"f1","fileName":"doc.txt"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DocumentID)
	assert.Greater(t, resp.ChunksProcessed, 0)
	assert.Equal(t, "completed", resp.Status)

	statsRec := ts.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, statsRec.Code)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(statsRec.Body.Bytes(), &stats))
	assert.Equal(t, resp.ChunksProcessed, stats.TotalChunks)
	assert.Equal(t, 1, stats.UniqueDocuments)
}

func TestDocumentsProcessValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/documents/process", `{"fileName":"doc.txt"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")
}

func TestDocumentsProcessUnsupportedType(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.source.AddFile("f1", "clip.mp4", "video/mp4", []byte{0x00, 0x01})

	rec := ts.do(t, http.MethodPost, "/api/documents/process", `{"fileId":"f1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported_type")
}

func TestDocumentsProcessMissingFile(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/documents/process", `{"fileId":"missing"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatsMultipleChunks(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		ts.store.Insert(vector.Chunk{
			ID:         string(rune('a' + i)),
			DocumentID: "doc-1",
			Content:    "content",
			Embedding:  []float32{1, 0},
			Index:      i,
			CreatedAt:  now,
		})
	}

	rec := ts.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalChunks":3,"uniqueDocuments":1}`, rec.Body.String())
}

func TestStatsEmpty(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalChunks":0,"uniqueDocuments":0}`, rec.Body.String())
}
