package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/drivechat/drivechat/internal/conversation"
)

// conversationHandler holds dependencies for conversation history
// endpoints.
type conversationHandler struct {
	store  conversation.Store
	logger *slog.Logger
}

// messagesResponse is the body of GET /api/conversations/{id}/messages.
type messagesResponse struct {
	Messages []conversation.Message `json:"messages"`
}

// listMessages handles GET /api/conversations/{id}/messages.
func (h *conversationHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "conversation id is required", h.logger)
		return
	}

	msgs, err := h.store.ListMessages(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "conversation_not_found", "conversation not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list messages", h.logger)
		return
	}

	if msgs == nil {
		msgs = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}
