// Package queue defines message payloads exchanged over the message broker.
package queue

// RequestFinishedEvent is published whenever a request reaches a terminal
// status (played, completed, discarded, no-show, cancelled).  It carries
// enough context for downstream consumers to log or feed analytics without
// querying the primary database.
type RequestFinishedEvent struct {
	RequestID   uint64 `json:"request_id"`
	EventID     uint64 `json:"event_id"`
	Module      string `json:"module"`
	RequesterID uint64 `json:"requester_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Status      string `json:"status"`
	TurnNumber  int    `json:"turn_number"`
	FinishedAt  string `json:"finished_at"`
}
