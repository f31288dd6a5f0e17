package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/live-request-queue/internal/model"
)

// EventRepo reads the events table.  Event CRUD belongs to an external
// system; the engine only needs existence checks and basic lookups to
// scope its writes.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Get loads an event by id, returning a not_found domain error when it
// does not exist.
func (r *EventRepo) Get(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, name, starts_at, ends_at, created_at, updated_at FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(&ev.ID, &ev.Name, &ev.StartsAt, &ev.EndsAt, &ev.CreatedAt, &ev.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, NotFound("event")
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Exists reports whether the event id is known.
func (r *EventRepo) Exists(ctx context.Context, id uint64) error {
	const q = `SELECT 1 FROM events WHERE id = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return NotFound("event")
	}
	return err
}
