package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/live-request-queue/internal/model"
)

// RequesterRepo resolves attendee-supplied contact identifiers to stable
// requester ids, creating the identity on first sight.
type RequesterRepo struct {
	db *sql.DB
}

// NewRequesterRepo returns a RequesterRepo bound to the given database.
func NewRequesterRepo(db *sql.DB) *RequesterRepo { return &RequesterRepo{db: db} }

// Identify returns the requester for the given contact identifier.  An
// unknown contact is inserted first; a racing insert loses on the unique
// contact key and falls through to the re-read, so both callers resolve to
// the same row.
func (r *RequesterRepo) Identify(ctx context.Context, contact string, displayName *string) (*model.Requester, error) {
	if contact == "" {
		return nil, Validation("contact identifier is required")
	}

	const selQ = `SELECT id, contact, display_name, created_at FROM requesters WHERE contact = ?`
	var req model.Requester
	err := r.db.QueryRowContext(ctx, selQ, contact).Scan(&req.ID, &req.Contact, &req.DisplayName, &req.CreatedAt)
	if err == nil {
		return &req, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	const insQ = `INSERT IGNORE INTO requesters (contact, display_name) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, insQ, contact, displayName); err != nil {
		return nil, err
	}
	err = r.db.QueryRowContext(ctx, selQ, contact).Scan(&req.ID, &req.Contact, &req.DisplayName, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
