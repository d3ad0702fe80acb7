package ticketing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrodesk/agrodesk/internal/db"
)

// Store is a SQLite-backed ticketing backend. It implements Creator for the
// decision engine and exposes lifecycle operations for the work-order API.
type Store struct {
	db *db.DB
}

// NewStore creates a work-order store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// NewOrderID generates a local business id in the OS-XXXXXXXX format.
func NewOrderID() string {
	return "OS-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *Store) Create(ctx context.Context, req CreateRequest) (string, error) {
	orderID := NewOrderID()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work_orders
		 (order_id, title, description, category, priority, status, assigned_specialist,
		  machine_id, field_id, symptoms, estimated_hours, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orderID, req.Title, req.Description, req.Category, req.Priority, StatusPending,
		req.Specialist, nullable(req.MachineID), nullable(req.FieldID), nullable(req.Symptoms),
		req.EstimatedHours, now, now)
	if err != nil {
		return "", fmt.Errorf("inserting work order: %w", err)
	}

	return orderID, nil
}

// Get returns a work order with its notes, or ErrNotFound.
func (s *Store) Get(ctx context.Context, orderID string) (*Record, error) {
	var (
		rec                         Record
		machineID, fieldID, symptoms sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, title, description, category, priority, status, assigned_specialist,
		        machine_id, field_id, symptoms, estimated_hours, created_at, updated_at
		 FROM work_orders WHERE order_id = ?`, orderID).
		Scan(&rec.OrderID, &rec.Title, &rec.Description, &rec.Category, &rec.Priority,
			&rec.Status, &rec.Specialist, &machineID, &fieldID, &symptoms,
			&rec.EstimatedHours, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying work order: %w", err)
	}

	rec.MachineID = machineID.String
	rec.FieldID = fieldID.String
	rec.Symptoms = symptoms.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, note, author, created_at FROM work_order_notes
		 WHERE order_id = ? ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying work order notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Note, &n.Author, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		n.OrderID = orderID
		rec.Notes = append(rec.Notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}

	return &rec, nil
}

// List returns work orders, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT order_id, title, description, category, priority, status, assigned_specialist,
	                 machine_id, field_id, symptoms, estimated_hours, created_at, updated_at
	          FROM work_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing work orders: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                          Record
			machineID, fieldID, symptoms sql.NullString
		)
		if err := rows.Scan(&rec.OrderID, &rec.Title, &rec.Description, &rec.Category,
			&rec.Priority, &rec.Status, &rec.Specialist, &machineID, &fieldID, &symptoms,
			&rec.EstimatedHours, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning work order: %w", err)
		}
		rec.MachineID = machineID.String
		rec.FieldID = fieldID.String
		rec.Symptoms = symptoms.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateStatus moves a work order to a new status, enforcing the lifecycle
// transition rules.
func (s *Store) UpdateStatus(ctx context.Context, orderID, status string) error {
	var current string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM work_orders WHERE order_id = ?`, orderID).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying work order status: %w", err)
	}

	if !CanTransition(current, status) {
		return fmt.Errorf("invalid status transition %s -> %s", current, status)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE work_orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		status, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("updating work order status: %w", err)
	}
	return nil
}

// AddNote appends a note to a work order's log.
func (s *Store) AddNote(ctx context.Context, orderID, note, author string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM work_orders WHERE order_id = ?`, orderID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking work order: %w", err)
	}

	if author == "" {
		author = "system"
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO work_order_notes (id, order_id, note, author, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), orderID, note, author, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
