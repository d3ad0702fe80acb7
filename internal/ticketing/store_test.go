package ticketing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agrodesk/agrodesk/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewStore(database)
}

func sampleRequest() CreateRequest {
	return CreateRequest{
		Title:          "CH670 harvester not starting",
		Description:    "Harvester emits blue smoke and shuts down.",
		Category:       "machinery",
		Priority:       "high",
		Specialist:     "Agricultural Machinery Mechanic",
		MachineID:      "CH670",
		FieldID:        "plot-15",
		Symptoms:       "blue smoke, engine shutdown",
		EstimatedHours: 2.0,
	}
}

func TestNewOrderID(t *testing.T) {
	id := NewOrderID()
	if !strings.HasPrefix(id, "OS-") {
		t.Errorf("NewOrderID() = %q, want OS- prefix", id)
	}
	if len(id) != 11 {
		t.Errorf("len(NewOrderID()) = %d, want 11", len(id))
	}
	if id != strings.ToUpper(id) {
		t.Errorf("NewOrderID() = %q, want uppercase", id)
	}
	if id == NewOrderID() {
		t.Error("NewOrderID() should not repeat")
	}
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	orderID, err := store.Create(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "CH670 harvester not starting" {
		t.Errorf("got.Title = %q, want %q", got.Title, "CH670 harvester not starting")
	}
	if got.Status != StatusPending {
		t.Errorf("got.Status = %q, want %q", got.Status, StatusPending)
	}
	if got.Category != "machinery" {
		t.Errorf("got.Category = %q, want %q", got.Category, "machinery")
	}
	if got.MachineID != "CH670" {
		t.Errorf("got.MachineID = %q, want %q", got.MachineID, "CH670")
	}
	if got.EstimatedHours != 2.0 {
		t.Errorf("got.EstimatedHours = %v, want 2.0", got.EstimatedHours)
	}
}

func TestGetMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get(context.Background(), "OS-MISSING1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	req := sampleRequest()
	req.Title = "Herbicide stock below reorder point"
	req.Category = "inputs"
	req.Priority = "medium"
	if _, err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.UpdateStatus(ctx, first, StatusAssigned); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	pending, err := store.List(ctx, StatusPending, 0)
	if err != nil {
		t.Fatalf("List(pending) error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].Category != "inputs" {
		t.Errorf("pending[0].Category = %q, want %q", pending[0].Category, "inputs")
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	orderID, err := store.Create(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// pending -> completed skips the lifecycle and must be rejected.
	if err := store.UpdateStatus(ctx, orderID, StatusCompleted); err == nil {
		t.Error("UpdateStatus(pending->completed) should fail")
	}

	for _, status := range []string{StatusAssigned, StatusInProgress, StatusCompleted} {
		if err := store.UpdateStatus(ctx, orderID, status); err != nil {
			t.Fatalf("UpdateStatus(%s) error = %v", status, err)
		}
	}

	// Completed is terminal.
	if err := store.UpdateStatus(ctx, orderID, StatusAssigned); err == nil {
		t.Error("UpdateStatus(completed->assigned) should fail")
	}

	if err := store.UpdateStatus(ctx, "OS-MISSING1", StatusAssigned); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAddNote(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	orderID, err := store.Create(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.AddNote(ctx, orderID, "Mechanic dispatched to plot 15.", "supervisor"); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}
	if err := store.AddNote(ctx, orderID, "Parts ordered.", ""); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}

	got, err := store.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Notes) != 2 {
		t.Fatalf("len(got.Notes) = %d, want 2", len(got.Notes))
	}
	if got.Notes[0].Author != "supervisor" {
		t.Errorf("got.Notes[0].Author = %q, want %q", got.Notes[0].Author, "supervisor")
	}
	if got.Notes[1].Author != "system" {
		t.Errorf("got.Notes[1].Author = %q, want %q", got.Notes[1].Author, "system")
	}

	if err := store.AddNote(ctx, "OS-MISSING1", "note", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddNote(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusAssigned, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusOnHold, StatusInProgress, true},
		{StatusCompleted, StatusAssigned, false},
		{StatusCancelled, StatusPending, false},
		{"bogus", StatusAssigned, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
