// Package api exposes the JSON/SSE HTTP surface: chat (batch and
// streaming), document listing and indexing, stats, and conversation
// history.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/drivechat/drivechat/internal/conversation"
	"github.com/drivechat/drivechat/internal/drive"
	"github.com/drivechat/drivechat/internal/rag"
)

// Answerer runs the question-answering pipeline.
// *rag.Engine satisfies this.
type Answerer interface {
	Answer(ctx context.Context, question string) (rag.Answer, error)
	AnswerStream(ctx context.Context, question string, emit func(rag.Event) error) error
}

// DocumentIndexer runs the document indexing pipeline.
// *rag.Indexer satisfies this.
type DocumentIndexer interface {
	Index(ctx context.Context, fileID string) (rag.IndexResult, error)
}

// DocumentLister lists indexable source files.
// *drive.Client satisfies this.
type DocumentLister interface {
	ListFiles(ctx context.Context) ([]drive.File, error)
}

// IndexStats reports vector store counts.
// *vector.Memory satisfies this.
type IndexStats interface {
	Stats() (totalChunks, uniqueDocuments int)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger        *slog.Logger
	Engine        Answerer           // Required
	Indexer       DocumentIndexer    // Required
	Documents     DocumentLister     // Optional: nil disables GET /api/documents
	Stats         IndexStats         // Required
	Conversations conversation.Store // Required
	CORSOrigins   []string           // Allowed origins for CORS
	TrustProxy    bool               // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst     int                // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.Indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg.Stats == nil {
		return nil, errors.New("stats provider is required")
	}
	if cfg.Conversations == nil {
		return nil, errors.New("conversation store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{
		engine:        cfg.Engine,
		conversations: cfg.Conversations,
		logger:        logger,
	}

	dh := &documentHandler{
		indexer:   cfg.Indexer,
		documents: cfg.Documents,
		stats:     cfg.Stats,
		logger:    logger,
	}

	cv := &conversationHandler{
		store:  cfg.Conversations,
		logger: logger,
	}

	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("POST /api/chat/stream", ch.stream)

	// Documents
	mux.HandleFunc("GET /api/documents", dh.list)
	mux.HandleFunc("POST /api/documents/process", dh.process)
	mux.HandleFunc("GET /api/stats", dh.getStats)

	// Conversation history
	mux.HandleFunc("GET /api/conversations/{id}/messages", cv.listMessages)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
