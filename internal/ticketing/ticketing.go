package ticketing

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a work order does not exist.
var ErrNotFound = errors.New("work order not found")

// Valid status values for a work order lifecycle.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusOnHold     = "on_hold"
)

// CreateRequest carries the fields needed to open a work order.
type CreateRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Priority       string  `json:"priority"`
	Specialist     string  `json:"assigned_specialist"`
	MachineID      string  `json:"machine_id,omitempty"`
	FieldID        string  `json:"field_id,omitempty"`
	Symptoms       string  `json:"symptoms,omitempty"`
	EstimatedHours float64 `json:"estimated_time_hours"`
}

// Creator opens work orders in an external or local ticketing system and
// returns the business id. Implementations must be safe to retry at the
// caller's discretion.
type Creator interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
}

// Record is a persisted work order.
type Record struct {
	OrderID        string    `json:"order_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	Specialist     string    `json:"assigned_specialist"`
	MachineID      string    `json:"machine_id,omitempty"`
	FieldID        string    `json:"field_id,omitempty"`
	Symptoms       string    `json:"symptoms,omitempty"`
	EstimatedHours float64   `json:"estimated_time_hours"`
	Notes          []Note    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Note is one entry in a work order's notes log.
type Note struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Note      string    `json:"note"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// validTransitions describes the allowed status moves. Completed and
// cancelled are terminal.
var validTransitions = map[string][]string{
	StatusPending:    {StatusAssigned, StatusCancelled, StatusOnHold},
	StatusAssigned:   {StatusInProgress, StatusCancelled, StatusOnHold},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusOnHold},
	StatusOnHold:     {StatusAssigned, StatusInProgress, StatusCancelled},
}

// CanTransition reports whether a work order may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
