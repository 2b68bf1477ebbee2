// Package conversation stores chat conversations and their messages.
// The Store interface keeps persistence swappable; the in-memory
// implementation is the default backend.
package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Citation points an assistant answer back to a source document.
type Citation struct {
	Source     string  `json:"source"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page,omitempty"`
}

// Conversation is a chat thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single turn within a conversation.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	Citations      []Citation `json:"citations,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Store persists conversations and messages.
type Store interface {
	CreateConversation(ctx context.Context, title string) (Conversation, error)
	GetConversation(ctx context.Context, id string) (Conversation, error)
	UpdateConversation(ctx context.Context, id, title string) (Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, content string, citations []Citation) (Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

// Memory is an in-memory Store guarded by a RWMutex.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
	}
}

// CreateConversation creates a new conversation with the given title.
func (m *Memory) CreateConversation(ctx context.Context, title string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}

	now := time.Now().UTC()
	conv := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.conversations[conv.ID] = conv
	m.mu.Unlock()

	return conv, nil
}

// GetConversation returns a conversation by ID.
func (m *Memory) GetConversation(ctx context.Context, id string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}

	m.mu.RLock()
	conv, ok := m.conversations[id]
	m.mu.RUnlock()

	if !ok {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

// UpdateConversation renames an existing conversation and refreshes its
// UpdatedAt. A missing conversation yields ErrNotFound; it is never
// created implicitly.
func (m *Memory) UpdateConversation(ctx context.Context, id, title string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}

	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()
	m.conversations[id] = conv

	return conv, nil
}

// AppendMessage adds a message to an existing conversation and bumps the
// conversation's UpdatedAt.
func (m *Memory) AppendMessage(ctx context.Context, conversationID, role, content string, citations []Citation) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return Message{}, ErrNotFound
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Citations:      citations,
		CreatedAt:      time.Now().UTC(),
	}

	m.messages[conversationID] = append(m.messages[conversationID], msg)

	conv.UpdatedAt = msg.CreatedAt
	m.conversations[conversationID] = conv

	return msg, nil
}

// ListMessages returns a conversation's messages in chronological order.
// An existing conversation with no messages yields an empty slice; a
// missing conversation yields ErrNotFound.
func (m *Memory) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}

	msgs := make([]Message, len(m.messages[conversationID]))
	copy(msgs, m.messages[conversationID])

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	return msgs, nil
}
