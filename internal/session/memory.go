package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. Suitable for tests and
// single-process deployments without durability requirements.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Create(_ context.Context, id, threadID string, metadata map[string]string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        id,
		ThreadID:  threadID,
		Metadata:  metadata,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return copySession(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID, role, text string, metadata json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	sess.Messages = append(sess.Messages, Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		Metadata:  append(json.RawMessage(nil), metadata...),
		CreatedAt: now,
	})
	sess.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Close(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Closed = true
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// copySession returns a deep enough copy that callers cannot mutate the
// stored session through the returned value.
func copySession(sess *Session) *Session {
	out := *sess
	out.Messages = append([]Message(nil), sess.Messages...)
	out.Metadata = make(map[string]string, len(sess.Metadata))
	for k, v := range sess.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
