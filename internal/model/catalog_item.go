package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a list of free-text labels (moods, tags) stored as a JSON
// array column.  Like LocaleMessages it is a first-class slice in the
// domain and only flattens to JSON at the SQL edge.
type StringList []string

// Value implements driver.Valuer.  A nil slice is stored as SQL NULL.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.  NULL scans to a nil slice.
func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var bs []byte
	switch v := src.(type) {
	case []byte:
		bs = v
	case string:
		bs = []byte(v)
	default:
		return fmt.Errorf("string list: unsupported scan type %T", src)
	}
	if len(bs) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(bs, l)
}

// CatalogItem is a deduplicated, reusable record of a playable piece of
// content (karaoke module only), distinct from any individual request for
// it.  A row is created the first time a never-seen external content id is
// requested; later requests only bump the counters.  Items are never
// hard-deleted: is_active=false soft-deactivates them so history and
// counters survive.
//
// Editorial fields (difficulty, ranking, opinion, moods, tags) are
// maintained by operators and are never touched by the request path.
type CatalogItem struct {
	ID              uint64     `json:"id"`               // catalog_items.id
	ExternalID      string     `json:"external_id"`      // catalog_items.external_id (unique)
	Title           string     `json:"title"`            // catalog_items.title
	Artist          string     `json:"artist"`           // catalog_items.artist
	ThumbnailURL    string     `json:"thumbnail_url"`    // catalog_items.thumbnail_url
	DurationSeconds int        `json:"duration_seconds"` // catalog_items.duration_seconds
	TimesRequested  int        `json:"times_requested"`  // catalog_items.times_requested
	TimesCompleted  int        `json:"times_completed"`  // catalog_items.times_completed
	LikesCount      int        `json:"likes_count"`      // catalog_items.likes_count
	Difficulty      *int       `json:"difficulty"`       // catalog_items.difficulty (1..5, optional)
	Ranking         int        `json:"ranking"`          // catalog_items.ranking (editorial sort weight)
	Opinion         *string    `json:"opinion"`          // catalog_items.opinion (free text)
	Moods           StringList `json:"moods"`            // catalog_items.moods
	Tags            StringList `json:"tags"`             // catalog_items.tags
	IsActive        bool       `json:"is_active"`        // catalog_items.is_active
	CreatedAt       time.Time  `json:"created_at"`       // catalog_items.created_at
	UpdatedAt       time.Time  `json:"updated_at"`       // catalog_items.updated_at
}

// Like marks that a requester liked a catalog item.  The composite primary
// key (catalog_item_id, requester_id) guarantees at most one row per pair;
// existence of the row is the "liked" state.
type Like struct {
	CatalogItemID uint64    // catalog_likes.catalog_item_id
	RequesterID   uint64    // catalog_likes.requester_id
	CreatedAt     time.Time // catalog_likes.created_at
}
