package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Message is a single message in a support session. Metadata carries
// arbitrary JSON attached by the caller, such as the classification from
// the turn that produced an assistant reply.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"` // "user", "assistant", "system"
	Text      string          `json:"text"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Session is a conversation between one user and the help desk. Sessions are
// closed explicitly and never deleted.
type Session struct {
	ID        string            `json:"id"`
	ThreadID  string            `json:"thread_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Messages  []Message         `json:"messages"`
	Closed    bool              `json:"closed"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store persists sessions and their message logs, keyed by opaque session id.
type Store interface {
	// Create creates a new session with the given id.
	Create(ctx context.Context, id, threadID string, metadata map[string]string) (*Session, error)
	// Get returns a session with its messages in chronological order, or
	// ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// AppendMessage appends a message to an existing session.
	AppendMessage(ctx context.Context, sessionID, role, text string, metadata json.RawMessage) error
	// Close marks a session as closed.
	Close(ctx context.Context, id string) error
}
