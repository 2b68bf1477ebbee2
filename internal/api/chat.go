package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/drivechat/drivechat/internal/conversation"
	"github.com/drivechat/drivechat/internal/rag"
)

// maxMessageLength caps chat message size in bytes.
const maxMessageLength = 4000

// titleLength caps auto-generated conversation titles.
const titleLength = 60

// Stream frame types.
const (
	frameInit  = "init"  // conversation id and citations, sent first
	frameToken = "token" // one text fragment
	frameDone  = "done"  // terminal success frame
	frameError = "error" // terminal failure frame
)

// chatRequest is the body of POST /api/chat and /api/chat/stream.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// chatResponse is the body of a successful POST /api/chat.
type chatResponse struct {
	MessageID      string         `json:"messageId"`
	ConversationID string         `json:"conversationId"`
	Content        string         `json:"content"`
	Citations      []rag.Citation `json:"citations"`
	Timestamp      time.Time      `json:"timestamp"`
}

type initFrame struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversationId"`
	Citations      []rag.Citation `json:"citations"`
}

type tokenFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type doneFrame struct {
	Type      string    `json:"type"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// chatHandler holds dependencies for the chat endpoints.
type chatHandler struct {
	engine        Answerer
	conversations conversation.Store
	logger        *slog.Logger
}

// decodeChatRequest parses and validates the chat request body.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, error) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return chatRequest{}, errors.New("invalid request body")
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return chatRequest{}, errors.New("message is required")
	}
	if len(req.Message) > maxMessageLength {
		return chatRequest{}, fmt.Errorf("message must be %d bytes or fewer", maxMessageLength)
	}

	return req, nil
}

// resolveConversation returns the existing conversation or lazily creates
// one titled from the first message.
func (h *chatHandler) resolveConversation(r *http.Request, req chatRequest) (conversation.Conversation, error) {
	if req.ConversationID != "" {
		return h.conversations.GetConversation(r.Context(), req.ConversationID)
	}
	return h.conversations.CreateConversation(r.Context(), titleFrom(req.Message))
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	conv, err := h.resolveConversation(r, req)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "conversation_not_found", "conversation not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "conversation_failed", "failed to resolve conversation", h.logger)
		return
	}

	if _, err := h.conversations.AppendMessage(r.Context(), conv.ID, conversation.RoleUser, req.Message, nil); err != nil {
		WriteError(w, http.StatusInternalServerError, "message_failed", "failed to store message", h.logger)
		return
	}

	answer, err := h.engine.Answer(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("answer failed", "error", err, "conversation_id", conv.ID)
		WriteError(w, http.StatusInternalServerError, "answer_failed", "failed to generate answer", h.logger)
		return
	}

	msg, err := h.conversations.AppendMessage(r.Context(), conv.ID, conversation.RoleAssistant, answer.Text, toStoredCitations(answer.Citations))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "message_failed", "failed to store message", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		Content:        answer.Text,
		Citations:      answer.Citations,
		Timestamp:      msg.CreatedAt,
	})
}

// stream handles POST /api/chat/stream. Validation failures are reported
// as plain HTTP errors before any SSE bytes are written; failures after
// the stream starts become a terminal error frame.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	conv, err := h.resolveConversation(r, req)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "conversation_not_found", "conversation not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "conversation_failed", "failed to resolve conversation", h.logger)
		return
	}

	if _, err := h.conversations.AppendMessage(r.Context(), conv.ID, conversation.RoleUser, req.Message, nil); err != nil {
		WriteError(w, http.StatusInternalServerError, "message_failed", "failed to store message", h.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var (
		content   strings.Builder
		citations []rag.Citation
	)

	streamErr := h.engine.AnswerStream(r.Context(), req.Message, func(e rag.Event) error {
		if e.Citations != nil {
			citations = e.Citations
			return writeFrame(w, flusher, initFrame{
				Type:           frameInit,
				ConversationID: conv.ID,
				Citations:      e.Citations,
			})
		}
		content.WriteString(e.Token)
		return writeFrame(w, flusher, tokenFrame{Type: frameToken, Content: e.Token})
	})
	if streamErr != nil {
		h.logger.Error("stream failed", "error", streamErr, "conversation_id", conv.ID)
		_ = writeFrame(w, flusher, errorFrame{Type: frameError, Error: "failed to generate answer"})
		return
	}

	msg, err := h.conversations.AppendMessage(r.Context(), conv.ID, conversation.RoleAssistant, content.String(), toStoredCitations(citations))
	if err != nil {
		_ = writeFrame(w, flusher, errorFrame{Type: frameError, Error: "failed to store message"})
		return
	}

	_ = writeFrame(w, flusher, doneFrame{
		Type:      frameDone,
		MessageID: msg.ID,
		Timestamp: msg.CreatedAt,
	})
}

// writeFrame sends one JSON payload as an SSE data frame and flushes.
func writeFrame(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	flusher.Flush()
	return nil
}

// toStoredCitations converts pipeline citations into the stored form.
func toStoredCitations(citations []rag.Citation) []conversation.Citation {
	if len(citations) == 0 {
		return nil
	}
	stored := make([]conversation.Citation, len(citations))
	for i, c := range citations {
		stored[i] = conversation.Citation{
			Source:     c.Source,
			Excerpt:    c.Excerpt,
			Confidence: c.Confidence,
			Page:       c.Page,
		}
	}
	return stored
}

// titleFrom derives a conversation title from the first message.
func titleFrom(message string) string {
	runes := []rune(message)
	if len(runes) <= titleLength {
		return message
	}
	return string(runes[:titleLength]) + "..."
}
