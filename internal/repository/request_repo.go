package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/live-request-queue/internal/model"
)

// RequestRepo provides CRUD operations for live requests of one module.
// It is constructed once per module with that module's terminal status
// set, which it uses to build the active-set filters.  All multi-row
// mutations (create, transition, delete, reorder) run inside a
// transaction; the engine additionally serializes them per event+module,
// so the dense queue_position invariant never sees interleaved writers.
type RequestRepo struct {
	db       *sql.DB
	module   string
	terminal []string
}

// NewRequestRepo returns a RequestRepo bound to the given database for the
// named module.  terminal lists every status that ends a request's life.
func NewRequestRepo(db *sql.DB, module string, terminal []string) *RequestRepo {
	return &RequestRepo{db: db, module: module, terminal: terminal}
}

// activeCond renders "status NOT IN (...)" for the module's terminal set
// and appends the matching args.  With an empty terminal set every row is
// active.
func (r *RequestRepo) activeCond(args *[]any) string {
	if len(r.terminal) == 0 {
		return "1=1"
	}
	ph := make([]string, len(r.terminal))
	for i, s := range r.terminal {
		ph[i] = "?"
		*args = append(*args, s)
	}
	return "status NOT IN (" + strings.Join(ph, ",") + ")"
}

const requestCols = "id, event_id, module, requester_id, title, artist, status, queue_position, turn_number, catalog_item_id, created_at, called_at"

func scanRequest(row interface{ Scan(...any) error }) (*model.Request, error) {
	var req model.Request
	err := row.Scan(
		&req.ID,
		&req.EventID,
		&req.Module,
		&req.RequesterID,
		&req.Title,
		&req.Artist,
		&req.Status,
		&req.QueuePosition,
		&req.TurnNumber,
		&req.CatalogItemID,
		&req.CreatedAt,
		&req.CalledAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Insert creates a new request at the tail of the active queue.  Inside
// one transaction it computes turn_number = max+1 for the event+module and
// queue_position = count(active), then persists the row.  The passed
// request's ID, TurnNumber, QueuePosition, Status and CreatedAt fields are
// populated on success.
func (r *RequestRepo) Insert(ctx context.Context, req *model.Request, initialStatus string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var maxTurn int
	const turnQ = `SELECT COALESCE(MAX(turn_number), 0) FROM requests WHERE event_id = ? AND module = ?`
	if err := tx.QueryRowContext(ctx, turnQ, req.EventID, r.module).Scan(&maxTurn); err != nil {
		return err
	}

	args := []any{req.EventID, r.module}
	cond := r.activeCond(&args)
	var active int
	countQ := `SELECT COUNT(*) FROM requests WHERE event_id = ? AND module = ? AND ` + cond
	if err := tx.QueryRowContext(ctx, countQ, args...).Scan(&active); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	const insQ = `INSERT INTO requests
		(event_id, module, requester_id, title, artist, status, queue_position, turn_number, catalog_item_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insQ,
		req.EventID, r.module, req.RequesterID, req.Title, req.Artist,
		initialStatus, active, maxTurn+1, req.CatalogItemID, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	pos := active
	req.ID = uint64(id)
	req.Module = r.module
	req.Status = initialStatus
	req.QueuePosition = &pos
	req.TurnNumber = maxTurn + 1
	req.CreatedAt = now
	return nil
}

// Get loads a single request of this module by event and id.  Returns a
// not_found domain error when no row matches.
func (r *RequestRepo) Get(ctx context.Context, eventID, id uint64) (*model.Request, error) {
	const q = `SELECT ` + requestCols + ` FROM requests WHERE id = ? AND event_id = ? AND module = ?`
	req, err := scanRequest(r.db.QueryRowContext(ctx, q, id, eventID, r.module))
	if err == sql.ErrNoRows {
		return nil, NotFound("request")
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List returns the event's requests, optionally filtered to one status.
// Active requests come first in queue order; terminal ones follow in
// creation order.
func (r *RequestRepo) List(ctx context.Context, eventID uint64, status string) ([]model.Request, error) {
	q := `SELECT ` + requestCols + ` FROM requests WHERE event_id = ? AND module = ?`
	args := []any{eventID, r.module}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY (queue_position IS NULL), queue_position ASC, turn_number ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// ActiveIDs returns the ids of the event's active requests ordered by
// queue position.  The result is what a reorder payload must be a
// permutation of.
func (r *RequestRepo) ActiveIDs(ctx context.Context, eventID uint64) ([]uint64, error) {
	args := []any{eventID, r.module}
	cond := r.activeCond(&args)
	q := `SELECT id FROM requests WHERE event_id = ? AND module = ? AND ` + cond + ` ORDER BY queue_position ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TransitionOptions tells ApplyTransition which side effects accompany the
// status change.  The engine derives them from the module descriptor.
type TransitionOptions struct {
	StampCalledAt  bool // set called_at if not already set
	Terminal       bool // drop out of the active ordering and compact
	CountCompleted bool // bump the linked catalog item's times_completed
}

// ApplyTransition updates a request's status together with its side
// effects in one transaction.  When the new status is terminal the
// request's queue_position becomes NULL and every active request behind it
// moves up one slot, keeping positions dense.  The passed request is
// updated in place to reflect the committed row.
func (r *RequestRepo) ApplyTransition(ctx context.Context, req *model.Request, to string, opts TransitionOptions) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Truncate(time.Second)

	if opts.StampCalledAt {
		const q = `UPDATE requests SET status = ?, called_at = COALESCE(called_at, ?) WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q, to, now, req.ID); err != nil {
			return err
		}
	} else {
		const q = `UPDATE requests SET status = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q, to, req.ID); err != nil {
			return err
		}
	}

	if opts.Terminal && req.QueuePosition != nil {
		const clearQ = `UPDATE requests SET queue_position = NULL WHERE id = ?`
		if _, err := tx.ExecContext(ctx, clearQ, req.ID); err != nil {
			return err
		}
		const compactQ = `UPDATE requests SET queue_position = queue_position - 1
			WHERE event_id = ? AND module = ? AND queue_position > ?`
		if _, err := tx.ExecContext(ctx, compactQ, req.EventID, r.module, *req.QueuePosition); err != nil {
			return err
		}
	}

	if opts.CountCompleted && req.CatalogItemID != nil {
		const q = `UPDATE catalog_items SET times_completed = times_completed + 1 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q, *req.CatalogItemID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	req.Status = to
	if opts.StampCalledAt && req.CalledAt == nil {
		req.CalledAt = &now
	}
	if opts.Terminal {
		req.QueuePosition = nil
	}
	return nil
}

// Delete removes a request row entirely (explicit operator delete, as
// opposed to a terminal transition).  When the request was active the
// remaining active requests are compacted in the same transaction.
func (r *RequestRepo) Delete(ctx context.Context, req *model.Request) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const delQ = `DELETE FROM requests WHERE id = ?`
	res, err := tx.ExecContext(ctx, delQ, req.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NotFound("request")
	}

	if req.QueuePosition != nil {
		const compactQ = `UPDATE requests SET queue_position = queue_position - 1
			WHERE event_id = ? AND module = ? AND queue_position > ?`
		if _, err := tx.ExecContext(ctx, compactQ, req.EventID, r.module, *req.QueuePosition); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Reorder assigns queue_position = index for each id in the given order.
// The caller must have validated that ids is a permutation of the current
// active set; this method only applies the new positions atomically.
func (r *RequestRepo) Reorder(ctx context.Context, eventID uint64, ids []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE requests SET queue_position = ? WHERE id = ? AND event_id = ? AND module = ?`
	for i, id := range ids {
		res, err := tx.ExecContext(ctx, q, i, id, eventID, r.module)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 && !rowExists(ctx, tx, id) {
			return QueueMismatch(fmt.Sprintf("request %d disappeared during reorder", id))
		}
	}
	return tx.Commit()
}

// rowExists distinguishes "no change needed" from "row is gone" after an
// UPDATE that reported zero affected rows.
func rowExists(ctx context.Context, tx *sql.Tx, id uint64) bool {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM requests WHERE id = ?`, id).Scan(&one)
	return err == nil
}

// CountByStatus returns the number of requests per status for the event.
func (r *RequestRepo) CountByStatus(ctx context.Context, eventID uint64) (map[string]int, error) {
	const q = `SELECT status, COUNT(*) FROM requests WHERE event_id = ? AND module = ? GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q, eventID, r.module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// LastCreatedAt returns when the requester last created a request in this
// event+module, or nil if they never did.  Feeds the cooldown policy.
func (r *RequestRepo) LastCreatedAt(ctx context.Context, eventID, requesterID uint64) (*time.Time, error) {
	const q = `SELECT MAX(created_at) FROM requests WHERE event_id = ? AND module = ? AND requester_id = ?`
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, eventID, r.module, requesterID).Scan(&last); err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time
	return &t, nil
}

// ActiveCountFor returns how many non-terminal requests the requester has
// in this event+module.  Feeds the per-person cap policy.
func (r *RequestRepo) ActiveCountFor(ctx context.Context, eventID, requesterID uint64) (int, error) {
	args := []any{eventID, r.module, requesterID}
	cond := r.activeCond(&args)
	q := `SELECT COUNT(*) FROM requests WHERE event_id = ? AND module = ? AND requester_id = ? AND ` + cond
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
