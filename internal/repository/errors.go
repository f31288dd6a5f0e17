// Package repository defines the domain error type shared by all layers of
// the engine. Each failure carries a stable machine-readable kind and an
// HTTP-style status so handlers can map it to a response without string
// matching. For example, ErrQueueMismatch signals that a reorder payload
// does not describe the current active set, while RateLimited carries the
// admission policy's message for the attendee.
package repository

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds exposed to clients.  These values are part of the API
// contract and must stay stable.
const (
	KindValidation          = "validation_error"
	KindModuleDisabled      = "module_disabled"
	KindRateLimited         = "rate_limited"
	KindNotFound            = "not_found"
	KindInvalidTransition   = "invalid_transition"
	KindQueueMismatch       = "queue_mismatch"
	KindQueueHidden         = "queue_hidden"
	KindProviderUnavailable = "provider_unavailable"
)

// DomainError is the single error type crossing the engine boundary.  The
// Status field is advisory for HTTP mapping; the Kind field is what
// clients should branch on.
type DomainError struct {
	Kind    string
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsDomain unwraps err into a *DomainError if possible.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Validation reports malformed input.  It is always raised before any
// write happens.
func Validation(msg string) *DomainError {
	return &DomainError{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

// ModuleDisabled reports that the module is switched off for the event.
func ModuleDisabled(module string) *DomainError {
	return &DomainError{Kind: KindModuleDisabled, Status: http.StatusForbidden, Message: module + " requests are disabled for this event"}
}

// RateLimited reports an admission policy rejection (cooldown window or
// per-person cap).
func RateLimited(msg string) *DomainError {
	return &DomainError{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: msg}
}

// NotFound reports a missing event, request or catalog item.
func NotFound(what string) *DomainError {
	return &DomainError{Kind: KindNotFound, Status: http.StatusNotFound, Message: what + " not found"}
}

// InvalidTransition reports a status change not present in the module's
// adjacency table.  The request is left untouched.
func InvalidTransition(from, to string) *DomainError {
	return &DomainError{Kind: KindInvalidTransition, Status: http.StatusConflict, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// QueueMismatch reports a reorder payload whose membership or cardinality
// differs from the current active set.
func QueueMismatch(msg string) *DomainError {
	return &DomainError{Kind: KindQueueMismatch, Status: http.StatusConflict, Message: msg}
}

// QueueHidden reports that the operator turned off the public queue view.
func QueueHidden() *DomainError {
	return &DomainError{Kind: KindQueueHidden, Status: http.StatusForbidden, Message: "the queue is not visible to attendees for this event"}
}
