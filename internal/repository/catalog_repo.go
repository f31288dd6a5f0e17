package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/live-request-queue/internal/model"
)

// CatalogRepo manages the deduplicated library of playable items and the
// likes attached to them.  Rows are keyed by the external provider's
// content id; the request path only ever upserts and bumps counters, while
// editorial fields belong to operators.  The likes_count column and the
// catalog_likes rows are always mutated together inside one transaction so
// the counter can never drift from the row count.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const catalogCols = `id, external_id, title, artist, thumbnail_url, duration_seconds,
	times_requested, times_completed, likes_count, difficulty, ranking, opinion,
	moods, tags, is_active, created_at, updated_at`

func scanCatalogItem(row interface{ Scan(...any) error }) (*model.CatalogItem, error) {
	var it model.CatalogItem
	err := row.Scan(
		&it.ID,
		&it.ExternalID,
		&it.Title,
		&it.Artist,
		&it.ThumbnailURL,
		&it.DurationSeconds,
		&it.TimesRequested,
		&it.TimesCompleted,
		&it.LikesCount,
		&it.Difficulty,
		&it.Ranking,
		&it.Opinion,
		&it.Moods,
		&it.Tags,
		&it.IsActive,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// UpsertByExternalID records a sighting of an external content id.  The
// first sighting creates the row with times_requested = 1; every later one
// increments the counter and refreshes the display metadata (thumbnail,
// duration) while leaving title, artist and all editorial fields alone.
// The resulting row is returned.
func (r *CatalogRepo) UpsertByExternalID(ctx context.Context, externalID, title, artist, thumbnailURL string, durationSeconds int) (*model.CatalogItem, error) {
	const q = `INSERT INTO catalog_items
		(external_id, title, artist, thumbnail_url, duration_seconds, times_requested)
		VALUES (?, ?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			times_requested = times_requested + 1,
			thumbnail_url = IF(VALUES(thumbnail_url) <> '', VALUES(thumbnail_url), thumbnail_url),
			duration_seconds = IF(VALUES(duration_seconds) > 0, VALUES(duration_seconds), duration_seconds)`
	if _, err := r.db.ExecContext(ctx, q, externalID, title, artist, thumbnailURL, durationSeconds); err != nil {
		return nil, err
	}
	return r.GetByExternalID(ctx, externalID)
}

// Get loads a catalog item by primary key.
func (r *CatalogRepo) Get(ctx context.Context, id uint64) (*model.CatalogItem, error) {
	q := `SELECT ` + catalogCols + ` FROM catalog_items WHERE id = ?`
	it, err := scanCatalogItem(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, NotFound("catalog item")
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// GetByExternalID loads a catalog item by its external content id.
func (r *CatalogRepo) GetByExternalID(ctx context.Context, externalID string) (*model.CatalogItem, error) {
	q := `SELECT ` + catalogCols + ` FROM catalog_items WHERE external_id = ?`
	it, err := scanCatalogItem(r.db.QueryRowContext(ctx, q, externalID))
	if err == sql.ErrNoRows {
		return nil, NotFound("catalog item")
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// TopMatches returns up to limit active items matching every token of the
// query against title+artist, ranked by popularity (times_requested), then
// editorial ranking, then alphabetically.  Feeds the hybrid search.
func (r *CatalogRepo) TopMatches(ctx context.Context, query string, limit int) ([]model.CatalogItem, error) {
	where := []string{"is_active = 1"}
	args := []any{}
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		where = append(where, "LOWER(CONCAT(title, ' ', artist)) LIKE ?")
		args = append(args, "%"+tok+"%")
	}
	q := `SELECT ` + catalogCols + ` FROM catalog_items WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY times_requested DESC, ranking DESC, title ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CatalogItem{}
	for rows.Next() {
		it, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// CatalogListQuery defines filters & pagination for browsing the catalog.
type CatalogListQuery struct {
	Text     string
	Mood     string
	Tag      string
	All      bool // include soft-deactivated items
	Page     int
	PageSize int
}

// List returns a page of catalog items plus the total match count,
// popularity first.  Mood/Tag filter against the JSON label arrays.
func (r *CatalogRepo) List(ctx context.Context, q CatalogListQuery) ([]model.CatalogItem, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if !q.All {
		where = append(where, "is_active = 1")
	}
	if q.Text != "" {
		where = append(where, "LOWER(CONCAT(title, ' ', artist)) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Text)+"%")
	}
	if q.Mood != "" {
		where = append(where, "JSON_CONTAINS(COALESCE(moods, JSON_ARRAY()), JSON_QUOTE(?))")
		args = append(args, q.Mood)
	}
	if q.Tag != "" {
		where = append(where, "JSON_CONTAINS(COALESCE(tags, JSON_ARRAY()), JSON_QUOTE(?))")
		args = append(args, q.Tag)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM catalog_items WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + catalogCols + ` FROM catalog_items WHERE ` + cond + `
		ORDER BY times_requested DESC, likes_count DESC, title ASC LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.CatalogItem, 0, q.PageSize)
	for rows.Next() {
		it, err := scanCatalogItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *it)
	}
	return out, total, rows.Err()
}

// ToggleLike flips the (item, requester) like inside one transaction: if a
// like row exists it is removed and the counter decremented, otherwise it
// is created and the counter incremented.  The row is locked first so two
// concurrent taps cannot both insert or both delete.  Returns the new
// liked state and likes count.
func (r *CatalogRepo) ToggleLike(ctx context.Context, itemID, requesterID uint64) (liked bool, likes int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	const checkQ = `SELECT COUNT(*) FROM catalog_likes WHERE catalog_item_id = ? AND requester_id = ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, checkQ, itemID, requesterID).Scan(&exists); err != nil {
		return false, 0, err
	}

	if exists > 0 {
		const delQ = `DELETE FROM catalog_likes WHERE catalog_item_id = ? AND requester_id = ?`
		if _, err := tx.ExecContext(ctx, delQ, itemID, requesterID); err != nil {
			return false, 0, err
		}
		const decQ = `UPDATE catalog_items SET likes_count = likes_count - 1 WHERE id = ? AND likes_count > 0`
		if _, err := tx.ExecContext(ctx, decQ, itemID); err != nil {
			return false, 0, err
		}
		liked = false
	} else {
		const insQ = `INSERT INTO catalog_likes (catalog_item_id, requester_id) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, insQ, itemID, requesterID); err != nil {
			return false, 0, err
		}
		const incQ = `UPDATE catalog_items SET likes_count = likes_count + 1 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, incQ, itemID); err != nil {
			return false, 0, err
		}
		liked = true
	}

	const countQ = `SELECT likes_count FROM catalog_items WHERE id = ?`
	if err := tx.QueryRowContext(ctx, countQ, itemID).Scan(&likes); err != nil {
		if err == sql.ErrNoRows {
			return false, 0, NotFound("catalog item")
		}
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return liked, likes, nil
}

// SetActive soft-(de)activates an item.  Deactivated items stay in the
// database with their counters but stop appearing in search and browse.
func (r *CatalogRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE catalog_items SET is_active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}
