package model

import "time"

// Requester is a resolved attendee identity.  Attendees are not registered
// users: the first time a contact identifier (phone, e-mail, nickname) is
// seen it is mapped to a stable requester id, and every later submission
// with the same contact resolves to the same row.
type Requester struct {
	ID          uint64    // requesters.id
	Contact     string    // requesters.contact (unique)
	DisplayName *string   // requesters.display_name, optional
	CreatedAt   time.Time // requesters.created_at
}
