package model

import "time"

// Request is a single live request submitted by an attendee for one
// event+module.  Requests move through a module-specific status state
// machine; only requests in a non-terminal status participate in the dense
// 0-based queue_position ordering.  Rows are never physically removed
// except by an explicit operator delete.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event the request belongs to.
//  Module        – module name ("music" or "karaoke").
//  RequesterID   – resolved attendee identity.
//  Title         – requested title.
//  Artist        – requested artist; nullable for the music module where
//                  attendees may submit free-text titles only.
//  Status        – current state machine status.
//  QueuePosition – dense 0-based position among active requests, nil once
//                  the request reaches a terminal status.
//  TurnNumber    – monotonic creation sequence per event+module, never
//                  reused; doubles as the human-facing ticket number.
//  CatalogItemID – linked catalog item (karaoke only).
//  CreatedAt     – creation timestamp.
//  CalledAt      – stamped when a karaoke request enters CALLED.
type Request struct {
	ID            uint64     `json:"id"`              // requests.id
	EventID       uint64     `json:"event_id"`        // requests.event_id
	Module        string     `json:"module"`          // requests.module
	RequesterID   uint64     `json:"requester_id"`    // requests.requester_id
	Title         string     `json:"title"`           // requests.title
	Artist        *string    `json:"artist"`          // requests.artist
	Status        string     `json:"status"`          // requests.status
	QueuePosition *int       `json:"queue_position"`  // requests.queue_position
	TurnNumber    int        `json:"turn_number"`     // requests.turn_number
	CatalogItemID *uint64    `json:"catalog_item_id"` // requests.catalog_item_id
	CreatedAt     time.Time  `json:"created_at"`      // requests.created_at
	CalledAt      *time.Time `json:"called_at"`       // requests.called_at
}
