// Package module describes the two engine variants (music and karaoke) as
// data: status sets, the transition adjacency table, admission policies and
// config defaults. The queue engine is written once against a Descriptor
// and instantiated twice, so the variants cannot drift apart.
package module

import "github.com/iliyamo/live-request-queue/internal/model"

// Module names used in room identifiers, routes and the requests.module
// column.
const (
	Music   = "music"
	Karaoke = "karaoke"
)

// Music module statuses.
const (
	StatusPending     = "PENDING"
	StatusHighlighted = "HIGHLIGHTED"
	StatusUrgent      = "URGENT"
	StatusPlayed      = "PLAYED"
	StatusDiscarded   = "DISCARDED"
)

// Karaoke module statuses.
const (
	StatusQueued    = "QUEUED"
	StatusCalled    = "CALLED"
	StatusOnStage   = "ON_STAGE"
	StatusCompleted = "COMPLETED"
	StatusNoShow    = "NO_SHOW"
	StatusCancelled = "CANCELLED"
)

// Descriptor parameterizes the generic queue engine for one module.
//
// Transitions is the full adjacency table: Transitions[from] lists every
// status reachable from "from" in a single step.  Statuses absent from the
// map are terminal.  CalledStatus, when non-empty, names the status whose
// entry stamps Request.CalledAt; CompletedStatus names the status whose
// entry increments the linked catalog item's times_completed counter.
type Descriptor struct {
	Name            string
	InitialStatus   string
	Transitions     map[string][]string
	CalledStatus    string
	CompletedStatus string
	CatalogEnabled  bool
	Admission       []AdmissionPolicy
	Defaults        model.ConfigDefaults
}

// CanTransition reports whether from -> to is present in the adjacency
// table.
func (d Descriptor) CanTransition(from, to string) bool {
	for _, next := range d.Transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.  Terminal
// requests do not participate in the queue_position ordering.
func (d Descriptor) IsTerminal(s string) bool {
	next, ok := d.Transitions[s]
	return !ok || len(next) == 0
}

// KnownStatus reports whether s is any status of this module, terminal or
// not.
func (d Descriptor) KnownStatus(s string) bool {
	if _, ok := d.Transitions[s]; ok {
		return true
	}
	for _, nexts := range d.Transitions {
		for _, next := range nexts {
			if next == s {
				return true
			}
		}
	}
	return false
}

// TerminalStatuses returns every status that ends a request's life.  The
// request repository uses the list to build its active-set filters.
func (d Descriptor) TerminalStatuses() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, nexts := range d.Transitions {
		for _, next := range nexts {
			if d.IsTerminal(next) && !seen[next] {
				seen[next] = true
				out = append(out, next)
			}
		}
	}
	return out
}

// Statuses returns every status of the module.  Used by the stats
// endpoint so that zero-count statuses still show up.
func (d Descriptor) Statuses() []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(d.InitialStatus)
	for from, nexts := range d.Transitions {
		add(from)
		for _, next := range nexts {
			add(next)
		}
	}
	return out
}

// NewMusicDescriptor builds the music module: free-text song requests with
// a per-requester cooldown window.  PENDING requests can be highlighted or
// marked urgent by the operator before ending up played or discarded.
func NewMusicDescriptor() Descriptor {
	return Descriptor{
		Name:          Music,
		InitialStatus: StatusPending,
		Transitions: map[string][]string{
			StatusPending:     {StatusHighlighted, StatusUrgent, StatusPlayed, StatusDiscarded},
			StatusHighlighted: {StatusUrgent, StatusPlayed, StatusDiscarded},
			StatusUrgent:      {StatusHighlighted, StatusPlayed, StatusDiscarded},
		},
		Admission: []AdmissionPolicy{CooldownPolicy{}},
		Defaults: model.ConfigDefaults{
			Enabled:           true,
			CooldownSeconds:   60,
			ShowQueueToClient: true,
		},
	}
}

// NewKaraokeDescriptor builds the karaoke module: catalog-backed requests
// with a per-requester concurrent cap.  CANCELLED is reachable from every
// non-terminal status.
func NewKaraokeDescriptor() Descriptor {
	return Descriptor{
		Name:          Karaoke,
		InitialStatus: StatusQueued,
		Transitions: map[string][]string{
			StatusQueued:  {StatusCalled, StatusCancelled},
			StatusCalled:  {StatusOnStage, StatusNoShow, StatusCancelled},
			StatusOnStage: {StatusCompleted, StatusNoShow, StatusCancelled},
		},
		CalledStatus:    StatusCalled,
		CompletedStatus: StatusCompleted,
		CatalogEnabled:  true,
		Admission:       []AdmissionPolicy{ConcurrentCapPolicy{}},
		Defaults: model.ConfigDefaults{
			Enabled:           true,
			MaxPerPerson:      2,
			ShowQueueToClient: true,
		},
	}
}
