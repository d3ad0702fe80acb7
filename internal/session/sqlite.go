package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agrodesk/agrodesk/internal/db"
)

// SQLiteStore implements Store on top of the agrodesk SQLite database.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a session store backed by the given database.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

func (s *SQLiteStore) Create(ctx context.Context, id, threadID string, metadata map[string]string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshalling session metadata: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, thread_id, metadata, closed, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		id, threadID, string(metaJSON), now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	return &Session{
		ID:        id,
		ThreadID:  threadID,
		Metadata:  metadata,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess     Session
		metaJSON string
		closed   int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, thread_id, metadata, closed, created_at, updated_at
		 FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.ThreadID, &metaJSON, &closed, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	sess.Closed = closed != 0
	if err := json.Unmarshal([]byte(metaJSON), &sess.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling session metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, text, metadata, created_at
		 FROM session_messages WHERE session_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg     Message
			msgMeta string
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Text, &msgMeta, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session message: %w", err)
		}
		msg.SessionID = id
		msg.Metadata = json.RawMessage(msgMeta)
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session messages: %w", err)
	}

	return &sess, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, role, text string, metadata json.RawMessage) error {
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_messages (id, session_id, role, text, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, role, text, string(metadata), now)
	if err != nil {
		return fmt.Errorf("inserting session message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID)
	if err != nil {
		return fmt.Errorf("updating session timestamp: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET closed = 1, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
