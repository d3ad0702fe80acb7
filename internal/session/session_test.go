package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/agrodesk/agrodesk/internal/db"
)

// stores returns one instance of every Store implementation so the shared
// behavior is exercised against each backend.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(database),
	}
}

func TestCreateAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := store.Create(ctx, "sess-1", "thread-9", map[string]string{"channel": "slack"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if created.ID != "sess-1" {
				t.Errorf("created.ID = %q, want %q", created.ID, "sess-1")
			}

			got, err := store.Get(ctx, "sess-1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.ThreadID != "thread-9" {
				t.Errorf("got.ThreadID = %q, want %q", got.ThreadID, "thread-9")
			}
			if got.Metadata["channel"] != "slack" {
				t.Errorf("got.Metadata[channel] = %q, want %q", got.Metadata["channel"], "slack")
			}
			if got.Closed {
				t.Error("new session should not be closed")
			}
			if len(got.Messages) != 0 {
				t.Errorf("len(got.Messages) = %d, want 0", len(got.Messages))
			}
		})
	}
}

func TestCreateGeneratesID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(context.Background(), "", "", nil)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if created.ID == "" {
				t.Error("Create() with empty id should generate one")
			}
			if created.Metadata == nil {
				t.Error("Create() should initialize metadata")
			}
		})
	}
}

func TestGetMissingSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestAppendMessage(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Create(ctx, "sess-2", "", nil); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			meta := json.RawMessage(`{"flow_state":"completed"}`)
			if err := store.AppendMessage(ctx, "sess-2", "user", "the planter stopped", nil); err != nil {
				t.Fatalf("AppendMessage(user) error = %v", err)
			}
			if err := store.AppendMessage(ctx, "sess-2", "assistant", "work order created", meta); err != nil {
				t.Fatalf("AppendMessage(assistant) error = %v", err)
			}

			got, err := store.Get(ctx, "sess-2")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if len(got.Messages) != 2 {
				t.Fatalf("len(got.Messages) = %d, want 2", len(got.Messages))
			}
			if got.Messages[0].Role != "user" || got.Messages[1].Role != "assistant" {
				t.Errorf("message roles = %q, %q, want user, assistant", got.Messages[0].Role, got.Messages[1].Role)
			}

			var decoded struct {
				FlowState string `json:"flow_state"`
			}
			if err := json.Unmarshal(got.Messages[1].Metadata, &decoded); err != nil {
				t.Fatalf("unmarshalling message metadata: %v", err)
			}
			if decoded.FlowState != "completed" {
				t.Errorf("decoded.FlowState = %q, want %q", decoded.FlowState, "completed")
			}
		})
	}
}

func TestAppendMessageMissingSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.AppendMessage(context.Background(), "nope", "user", "hi", nil)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("AppendMessage() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestCloseSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Create(ctx, "sess-3", "", nil); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if err := store.Close(ctx, "sess-3"); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			got, err := store.Get(ctx, "sess-3")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.Closed {
				t.Error("session should be closed")
			}

			if err := store.Close(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Close(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryStoreCopiesSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, "sess-4", "", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := store.Get(ctx, "sess-4")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	first.Metadata["k"] = "mutated"
	first.Messages = append(first.Messages, Message{Role: "user", Text: "oops"})

	second, err := store.Get(ctx, "sess-4")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.Metadata["k"] != "v" {
		t.Errorf("second.Metadata[k] = %q, want %q", second.Metadata["k"], "v")
	}
	if len(second.Messages) != 0 {
		t.Errorf("len(second.Messages) = %d, want 0", len(second.Messages))
	}
}
