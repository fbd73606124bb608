package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EventRepository defines the data access contract for audit events.
type EventRepository interface {
	Insert(ctx context.Context, event *Event) error

	// List returns paginated events, newest first, optionally filtered by
	// event type. Also returns the total count for pagination.
	List(ctx context.Context, eventType string, limit, offset int) ([]Event, int, error)
}

// eventRepository implements EventRepository against the auth_events table.
type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates an audit event repository backed by the given DB pool.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// Insert appends an audit event row. Details are serialized to JSON; an
// empty map is stored as NULL.
func (r *eventRepository) Insert(ctx context.Context, e *Event) error {
	var details any
	if len(e.Details) > 0 {
		encoded, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encoding event details: %w", err)
		}
		details = string(encoded)
	}

	query := `INSERT INTO auth_events
	              (event_id, event_type, user_id, ip_address, user_agent, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.EventID,
		e.EventType,
		e.UserID,
		e.IPAddress,
		e.UserAgent,
		details,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// List returns paginated events, optionally filtered by type.
func (r *eventRepository) List(ctx context.Context, eventType string, limit, offset int) ([]Event, int, error) {
	countQuery := `SELECT COUNT(*) FROM auth_events`
	listQuery := `SELECT event_id, event_type, user_id, ip_address, user_agent, details, created_at
	              FROM auth_events`
	var args []any

	if eventType != "" {
		countQuery += ` WHERE event_type = ?`
		listQuery += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	listQuery += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit events: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var details sql.NullString
		if err := rows.Scan(
			&e.EventID, &e.EventType, &e.UserID,
			&e.IPAddress, &e.UserAgent, &details, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning audit event row: %w", err)
		}
		if details.Valid && details.String != "" {
			// A row with undecodable details is still worth returning.
			_ = json.Unmarshal([]byte(details.String), &e.Details)
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
