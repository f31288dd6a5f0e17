package model

import "time"

// Event represents a live event (party, wedding, conference) that attendees
// submit requests for.  Event CRUD is owned by an external system; the
// engine only reads this table to verify that an event exists before
// accepting writes scoped to it.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human readable event name.
//  StartsAt  – when the event begins.
//  EndsAt    – when the event ends.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Event struct {
	ID        uint64    // events.id
	Name      string    // events.name
	StartsAt  time.Time // events.starts_at
	EndsAt    time.Time // events.ends_at
	CreatedAt time.Time // events.created_at
	UpdatedAt time.Time // events.updated_at
}
