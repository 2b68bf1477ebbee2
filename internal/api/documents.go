package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/drivechat/drivechat/internal/drive"
	"github.com/drivechat/drivechat/internal/extract"
)

// documentHandler holds dependencies for the document endpoints.
type documentHandler struct {
	indexer   DocumentIndexer
	documents DocumentLister
	stats     IndexStats
	logger    *slog.Logger
}

// listResponse is the body of GET /api/documents.
type listResponse struct {
	Files []drive.File `json:"files"`
}

// processRequest is the body of POST /api/documents/process.
type processRequest struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName,omitempty"`
}

// processResponse is the body of a successful POST /api/documents/process.
type processResponse struct {
	DocumentID      string `json:"documentId"`
	ChunksProcessed int    `json:"chunksProcessed"`
	Status          string `json:"status"`
}

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	TotalChunks     int `json:"totalChunks"`
	UniqueDocuments int `json:"uniqueDocuments"`
}

// list handles GET /api/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		WriteError(w, http.StatusServiceUnavailable, "source_unavailable", "document source not configured", h.logger)
		return
	}

	files, err := h.documents.ListFiles(r.Context())
	if err != nil {
		h.logger.Error("listing documents failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list documents", h.logger)
		return
	}

	if files == nil {
		files = []drive.File{}
	}
	writeJSON(w, http.StatusOK, listResponse{Files: files})
}

// process handles POST /api/documents/process.
func (h *documentHandler) process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	req.FileID = strings.TrimSpace(req.FileID)
	if req.FileID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "fileId is required", h.logger)
		return
	}

	result, err := h.indexer.Index(r.Context(), req.FileID)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			WriteError(w, http.StatusBadRequest, "unsupported_type", "unsupported document type", h.logger)
			return
		}
		h.logger.Error("indexing failed", "error", err, "file_id", req.FileID)
		WriteError(w, http.StatusInternalServerError, "process_failed", "failed to process document", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		DocumentID:      result.DocumentID,
		ChunksProcessed: result.ChunksProcessed,
		Status:          "completed",
	})
}

// getStats handles GET /api/stats.
func (h *documentHandler) getStats(w http.ResponseWriter, _ *http.Request) {
	totalChunks, uniqueDocuments := h.stats.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		TotalChunks:     totalChunks,
		UniqueDocuments: uniqueDocuments,
	})
}
