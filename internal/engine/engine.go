// Package engine implements the live request queue for one module
// instance.  It is written once against a module.Descriptor and
// instantiated twice (music, karaoke) from main, binding together the
// stores, the admission policies, the hybrid search, the realtime hub and
// the broker publisher.  Every mutating operation is serialized per
// event+module with a keyed mutex and ends with exactly one room
// broadcast after the commit.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/live-request-queue/internal/model"
	"github.com/iliyamo/live-request-queue/internal/module"
	"github.com/iliyamo/live-request-queue/internal/queue"
	"github.com/iliyamo/live-request-queue/internal/realtime"
	"github.com/iliyamo/live-request-queue/internal/repository"
	"github.com/iliyamo/live-request-queue/internal/search"
)

// RequestStore is the request persistence surface the engine drives.  It
// is satisfied by *repository.RequestRepo.
type RequestStore interface {
	Insert(ctx context.Context, req *model.Request, initialStatus string) error
	Get(ctx context.Context, eventID, id uint64) (*model.Request, error)
	List(ctx context.Context, eventID uint64, status string) ([]model.Request, error)
	ActiveIDs(ctx context.Context, eventID uint64) ([]uint64, error)
	ApplyTransition(ctx context.Context, req *model.Request, to string, opts repository.TransitionOptions) error
	Delete(ctx context.Context, req *model.Request) error
	Reorder(ctx context.Context, eventID uint64, ids []uint64) error
	CountByStatus(ctx context.Context, eventID uint64) (map[string]int, error)
	LastCreatedAt(ctx context.Context, eventID, requesterID uint64) (*time.Time, error)
	ActiveCountFor(ctx context.Context, eventID, requesterID uint64) (int, error)
}

// ConfigStore is satisfied by *repository.ConfigRepo.
type ConfigStore interface {
	GetOrCreate(ctx context.Context, mod string, eventID uint64, def model.ConfigDefaults) (*model.ModuleConfig, error)
	Update(ctx context.Context, mod string, eventID uint64, def model.ConfigDefaults, patch model.ConfigPatch) (*model.ModuleConfig, error)
}

// CatalogStore is satisfied by *repository.CatalogRepo.  Only the karaoke
// engine carries one.
type CatalogStore interface {
	UpsertByExternalID(ctx context.Context, externalID, title, artist, thumbnailURL string, durationSeconds int) (*model.CatalogItem, error)
	Get(ctx context.Context, id uint64) (*model.CatalogItem, error)
	List(ctx context.Context, q repository.CatalogListQuery) ([]model.CatalogItem, int64, error)
	ToggleLike(ctx context.Context, itemID, requesterID uint64) (bool, int, error)
	TopMatches(ctx context.Context, query string, limit int) ([]model.CatalogItem, error)
	SetActive(ctx context.Context, id uint64, active bool) error
}

// IdentityStore resolves contact identifiers; satisfied by
// *repository.RequesterRepo.
type IdentityStore interface {
	Identify(ctx context.Context, contact string, displayName *string) (*model.Requester, error)
}

// EventStore is satisfied by *repository.EventRepo.
type EventStore interface {
	Exists(ctx context.Context, id uint64) error
}

// Broadcaster is the realtime fan-out; satisfied by *realtime.Hub.
type Broadcaster interface {
	Publish(room, event string, data any)
}

// FinishedPublisher pushes terminal request events to the broker;
// satisfied by *queue_publisher.Publisher.  Optional.
type FinishedPublisher interface {
	PublishRequestFinished(ctx context.Context, ev queue.RequestFinishedEvent) error
}

// Engine is one module instance of the live request queue.
type Engine struct {
	desc       module.Descriptor
	requests   RequestStore
	configs    ConfigStore
	catalog    CatalogStore
	identities IdentityStore
	events     EventStore
	hub        Broadcaster
	finished   FinishedPublisher
	hybrid     *search.Hybrid
	locks      keyedMutex
	now        func() time.Time
}

// New wires an engine for the described module.  catalog may be nil when
// the descriptor has no catalog; finished may be nil when no broker is
// configured.
func New(desc module.Descriptor, requests RequestStore, configs ConfigStore, catalog CatalogStore,
	identities IdentityStore, events EventStore, hub Broadcaster, finished FinishedPublisher, provider search.Provider) *Engine {
	e := &Engine{
		desc:       desc,
		requests:   requests,
		configs:    configs,
		identities: identities,
		events:     events,
		hub:        hub,
		finished:   finished,
		now:        time.Now,
	}
	if desc.CatalogEnabled {
		e.catalog = catalog
	}
	e.hybrid = &search.Hybrid{Provider: provider}
	if e.catalog != nil {
		e.hybrid.Catalog = e.catalog
	}
	return e
}

// Module returns the descriptor's module name.
func (e *Engine) Module() string { return e.desc.Name }

func (e *Engine) lockEvent(eventID uint64) func() {
	return e.locks.Lock(fmt.Sprintf("%s:%d", e.desc.Name, eventID))
}

// CreateInput carries an attendee's new request.  For the music module
// Title (and optionally Artist) is free text; for karaoke ExternalID plus
// the provider metadata of the picked search result are required.
type CreateInput struct {
	Contact         string
	DisplayName     *string
	Title           string
	Artist          *string
	ExternalID      string
	ThumbnailURL    string
	DurationSeconds int
}

// CreateRequest validates the event and config, runs the module's
// admission policies, links or creates the catalog item (karaoke), and
// appends the request to the tail of the active queue.  On success a
// request:new broadcast goes to the event room.
func (e *Engine) CreateRequest(ctx context.Context, eventID uint64, in CreateInput) (*model.Request, error) {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	requester, err := e.identities.Identify(ctx, in.Contact, in.DisplayName)
	if err != nil {
		return nil, err
	}

	unlock := e.lockEvent(eventID)
	defer unlock()

	cfg, err := e.configs.GetOrCreate(ctx, e.desc.Name, eventID, e.desc.Defaults)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, repository.ModuleDisabled(e.desc.Name)
	}

	probe := module.AdmissionProbe{Config: cfg, Now: e.now()}
	if probe.LastCreatedAt, err = e.requests.LastCreatedAt(ctx, eventID, requester.ID); err != nil {
		return nil, err
	}
	if probe.ActiveCount, err = e.requests.ActiveCountFor(ctx, eventID, requester.ID); err != nil {
		return nil, err
	}
	for _, policy := range e.desc.Admission {
		if err := policy.Admit(probe); err != nil {
			return nil, err
		}
	}

	req := &model.Request{
		EventID:     eventID,
		RequesterID: requester.ID,
		Title:       in.Title,
		Artist:      in.Artist,
	}

	if e.catalog != nil {
		title := in.Title
		artist := ""
		if in.Artist != nil {
			artist = *in.Artist
		}
		if artist == "" {
			title, artist = search.SplitTitle(title)
		}
		item, err := e.catalog.UpsertByExternalID(ctx, in.ExternalID, title, artist, in.ThumbnailURL, in.DurationSeconds)
		if err != nil {
			return nil, err
		}
		// The catalog row is canonical once the item has been seen before.
		req.Title = item.Title
		req.Artist = &item.Artist
		req.CatalogItemID = &item.ID
	}

	if err := e.requests.Insert(ctx, req, e.desc.InitialStatus); err != nil {
		return nil, err
	}
	e.hub.Publish(realtime.Room(e.desc.Name, eventID), realtime.EventRequestNew, req)
	return req, nil
}

// Transition moves a request to a new status.  Transitions outside the
// module's adjacency table fail with invalid_transition and change
// nothing.  Terminal transitions compact the active ordering, broadcast
// like every other update, and additionally publish a request.finished
// broker event.
func (e *Engine) Transition(ctx context.Context, eventID, id uint64, to string) (*model.Request, error) {
	if !e.desc.KnownStatus(to) {
		return nil, repository.Validation(fmt.Sprintf("unknown status %q", to))
	}

	unlock := e.lockEvent(eventID)
	defer unlock()

	req, err := e.requests.Get(ctx, eventID, id)
	if err != nil {
		return nil, err
	}
	if !e.desc.CanTransition(req.Status, to) {
		return nil, repository.InvalidTransition(req.Status, to)
	}

	opts := repository.TransitionOptions{
		StampCalledAt:  e.desc.CalledStatus != "" && to == e.desc.CalledStatus,
		Terminal:       e.desc.IsTerminal(to),
		CountCompleted: e.desc.CompletedStatus != "" && to == e.desc.CompletedStatus,
	}
	if err := e.requests.ApplyTransition(ctx, req, to, opts); err != nil {
		return nil, err
	}

	e.hub.Publish(realtime.Room(e.desc.Name, eventID), realtime.EventRequestUpdated, req)

	if opts.Terminal && e.finished != nil {
		ev := queue.RequestFinishedEvent{
			RequestID:   req.ID,
			EventID:     req.EventID,
			Module:      req.Module,
			RequesterID: req.RequesterID,
			Title:       req.Title,
			Status:      req.Status,
			TurnNumber:  req.TurnNumber,
			FinishedAt:  e.now().UTC().Format(time.RFC3339),
		}
		if req.Artist != nil {
			ev.Artist = *req.Artist
		}
		// Broker delivery is best-effort and must not hold up the response.
		go func() {
			if err := e.finished.PublishRequestFinished(context.Background(), ev); err != nil {
				log.Printf("engine: publish request.finished for %d failed: %v", ev.RequestID, err)
			}
		}()
	}
	return req, nil
}

// Delete removes a request entirely (operator action, distinct from any
// status transition) and compacts the active ordering.
func (e *Engine) Delete(ctx context.Context, eventID, id uint64) error {
	unlock := e.lockEvent(eventID)
	defer unlock()

	req, err := e.requests.Get(ctx, eventID, id)
	if err != nil {
		return err
	}
	if err := e.requests.Delete(ctx, req); err != nil {
		return err
	}
	e.hub.Publish(realtime.Room(e.desc.Name, eventID), realtime.EventRequestDeleted, map[string]any{"id": req.ID})
	return nil
}

// Reorder replaces the total order of the active queue.  The payload must
// be exactly a permutation of the current active id set; any mismatch is
// rejected without touching state.
func (e *Engine) Reorder(ctx context.Context, eventID uint64, ids []uint64) error {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return err
	}

	unlock := e.lockEvent(eventID)
	defer unlock()

	active, err := e.requests.ActiveIDs(ctx, eventID)
	if err != nil {
		return err
	}
	if err := module.ValidateReorder(active, ids); err != nil {
		return err
	}
	if err := e.requests.Reorder(ctx, eventID, ids); err != nil {
		return err
	}
	e.hub.Publish(realtime.Room(e.desc.Name, eventID), realtime.EventQueueReordered, map[string]any{"order": ids})
	return nil
}

// List returns the event's requests, optionally filtered by status.  When
// the operator has hidden the queue from attendees, non-operator callers
// get a queue_hidden error instead of data.
func (e *Engine) List(ctx context.Context, eventID uint64, status string, operator bool) ([]model.Request, error) {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	cfg, err := e.configs.GetOrCreate(ctx, e.desc.Name, eventID, e.desc.Defaults)
	if err != nil {
		return nil, err
	}
	if !operator && !cfg.ShowQueueToClient {
		return nil, repository.QueueHidden()
	}
	if status != "" && !e.desc.KnownStatus(status) {
		return nil, repository.Validation(fmt.Sprintf("unknown status %q", status))
	}
	return e.requests.List(ctx, eventID, status)
}

// Stats returns the request count per status (zero-filled for statuses
// with no requests) plus the total.
func (e *Engine) Stats(ctx context.Context, eventID uint64) (map[string]int, int, error) {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return nil, 0, err
	}
	counts, err := e.requests.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	out := map[string]int{}
	total := 0
	for _, s := range e.desc.Statuses() {
		out[s] = counts[s]
		total += counts[s]
	}
	return out, total, nil
}

// Search runs the hybrid catalog+provider lookup.  Modules without a
// catalog still proxy the external provider so attendees can pick a song.
func (e *Engine) Search(ctx context.Context, eventID uint64, query string) (*search.Result, error) {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, repository.Validation("query must not be empty")
	}
	return e.hybrid.Search(ctx, query)
}

// GetConfig returns the event's module config, creating it with defaults
// on first access.
func (e *Engine) GetConfig(ctx context.Context, eventID uint64) (*model.ModuleConfig, error) {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	return e.configs.GetOrCreate(ctx, e.desc.Name, eventID, e.desc.Defaults)
}

// UpdateConfig applies an operator's partial config change and broadcasts
// the full resulting config to the event room.
func (e *Engine) UpdateConfig(ctx context.Context, eventID uint64, patch model.ConfigPatch) (*model.ModuleConfig, error) {
	if err := e.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}

	unlock := e.lockEvent(eventID)
	defer unlock()

	cfg, err := e.configs.Update(ctx, e.desc.Name, eventID, e.desc.Defaults, patch)
	if err != nil {
		return nil, err
	}
	e.hub.Publish(realtime.Room(e.desc.Name, eventID), realtime.EventConfigUpdated, cfg)
	return cfg, nil
}

// ToggleLike flips the requester's like on a catalog item and returns the
// new state.  Serialized per (item, requester) pair so a double tap cannot
// lose an update.
func (e *Engine) ToggleLike(ctx context.Context, itemID uint64, contact string, displayName *string) (bool, int, error) {
	if e.catalog == nil {
		return false, 0, repository.NotFound("catalog")
	}
	requester, err := e.identities.Identify(ctx, contact, displayName)
	if err != nil {
		return false, 0, err
	}
	if _, err := e.catalog.Get(ctx, itemID); err != nil {
		return false, 0, err
	}

	unlock := e.locks.Lock(fmt.Sprintf("like:%d:%d", itemID, requester.ID))
	defer unlock()

	return e.catalog.ToggleLike(ctx, itemID, requester.ID)
}

// CatalogList returns a browseable page of the catalog.
func (e *Engine) CatalogList(ctx context.Context, q repository.CatalogListQuery) ([]model.CatalogItem, int64, error) {
	if e.catalog == nil {
		return nil, 0, repository.NotFound("catalog")
	}
	return e.catalog.List(ctx, q)
}

// SetCatalogItemActive soft-(de)activates a catalog item (operator
// action).  Deactivated items keep their counters but drop out of search
// and browse.
func (e *Engine) SetCatalogItemActive(ctx context.Context, itemID uint64, active bool) error {
	if e.catalog == nil {
		return repository.NotFound("catalog")
	}
	return e.catalog.SetActive(ctx, itemID, active)
}
