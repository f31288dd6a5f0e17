package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-request-queue/internal/engine"
	"github.com/iliyamo/live-request-queue/internal/model"
	"github.com/iliyamo/live-request-queue/internal/module"
	"github.com/iliyamo/live-request-queue/internal/repository"
)

// ModuleHandler exposes one engine instance over HTTP.  The same handler
// type serves both modules; main constructs it twice, once per
// descriptor.  Operator-only methods (UpdateStatus, Delete, Reorder,
// UpdateConfig) assume JWT authentication and role validation have
// already been performed by middleware.
type ModuleHandler struct {
	Engine *engine.Engine
}

// NewModuleHandler constructs a ModuleHandler.  The engine must be
// non-nil.
func NewModuleHandler(eng *engine.Engine) *ModuleHandler {
	if eng == nil {
		panic("nil engine passed to NewModuleHandler")
	}
	return &ModuleHandler{Engine: eng}
}

// eventIDParam parses the :eventID path parameter.
func eventIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("eventID"), 10, 64)
	if err != nil {
		return 0, repository.Validation("invalid event id")
	}
	return id, nil
}

// idParam parses the :id path parameter.
func idParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, repository.Validation("invalid request id")
	}
	return id, nil
}

// isOperator reports whether the JWT middleware put an accepted role into
// the context.  Public routes never set it.
func isOperator(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "OPERATOR" || role == "ADMIN"
}

// createRequestBody is the attendee submission payload.  Title is always
// required; ExternalID identifies the picked provider result and is
// required for the karaoke module only (enforced below, not by tag).
type createRequestBody struct {
	Contact         string  `json:"contact" validate:"required,max=190"`
	DisplayName     *string `json:"display_name" validate:"omitempty,max=120"`
	Title           string  `json:"title" validate:"required,max=255"`
	Artist          *string `json:"artist" validate:"omitempty,max=255"`
	ExternalID      string  `json:"external_id" validate:"omitempty,max=64"`
	ThumbnailURL    string  `json:"thumbnail_url" validate:"omitempty,max=512"`
	DurationSeconds int     `json:"duration_seconds" validate:"omitempty,min=0"`
}

// CreateRequest handles POST /events/:eventID/requests.  Admission
// failures map to 403 (disabled) or 429 (cooldown / per-person cap);
// malformed payloads never reach the engine.
func (h *ModuleHandler) CreateRequest(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var body createRequestBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, repository.Validation("malformed request body"))
	}
	if err := c.Validate(&body); err != nil {
		return writeError(c, err)
	}
	if h.Engine.Module() == module.Karaoke && body.ExternalID == "" {
		return writeError(c, repository.Validation("external_id is required for karaoke requests"))
	}

	req, err := h.Engine.CreateRequest(c.Request().Context(), eventID, engine.CreateInput{
		Contact:         body.Contact,
		DisplayName:     body.DisplayName,
		Title:           body.Title,
		Artist:          body.Artist,
		ExternalID:      body.ExternalID,
		ThumbnailURL:    body.ThumbnailURL,
		DurationSeconds: body.DurationSeconds,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, req)
}

// ListRequests handles GET /events/:eventID/requests?status=.
func (h *ModuleHandler) ListRequests(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	reqs, err := h.Engine.List(c.Request().Context(), eventID, c.QueryParam("status"), isOperator(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": reqs, "total": len(reqs)})
}

type updateStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PATCH /events/:eventID/requests/:id.  Illegal
// transitions come back as 409 invalid_transition with no state change.
func (h *ModuleHandler) UpdateStatus(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := idParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var body updateStatusBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, repository.Validation("malformed request body"))
	}
	if err := c.Validate(&body); err != nil {
		return writeError(c, err)
	}

	req, err := h.Engine.Transition(c.Request().Context(), eventID, id, body.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// DeleteRequest handles DELETE /events/:eventID/requests/:id, the
// explicit operator delete (distinct from any status transition).
func (h *ModuleHandler) DeleteRequest(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := idParam(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Engine.Delete(c.Request().Context(), eventID, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type reorderBody struct {
	Order []uint64 `json:"order" validate:"required"`
}

// Reorder handles POST /events/:eventID/queue/reorder.  The body must
// list every active request id exactly once in the desired order; any
// mismatch is a 409 queue_mismatch and nothing moves.
func (h *ModuleHandler) Reorder(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var body reorderBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, repository.Validation("malformed request body"))
	}
	if err := c.Validate(&body); err != nil {
		return writeError(c, err)
	}
	if err := h.Engine.Reorder(c.Request().Context(), eventID, body.Order); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": body.Order})
}

// Stats handles GET /events/:eventID/stats.
func (h *ModuleHandler) Stats(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	counts, total, err := h.Engine.Stats(c.Request().Context(), eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"counts": counts, "total": total})
}

// Search handles GET /events/:eventID/search?q=.  A degraded external
// provider is not an error: the response carries provider_available=false
// and whatever the catalog had.
func (h *ModuleHandler) Search(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Engine.Search(c.Request().Context(), eventID, c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// publicConfigView is what an anonymous attendee sees of a module
// config: the flags and messages a client app needs to render, without
// the row bookkeeping the operator console gets.
type publicConfigView struct {
	Enabled           bool                 `json:"enabled"`
	CooldownSeconds   int                  `json:"cooldown_seconds"`
	MaxPerPerson      int                  `json:"max_per_person"`
	ShowQueueToClient bool                 `json:"show_queue_to_client"`
	CustomMessages    model.LocaleMessages `json:"custom_messages"`
}

// GetConfig handles GET /events/:eventID/config.  The first read persists
// the module defaults so later reads are idempotent.  Operators get the
// full row; everyone else the attendee view.
func (h *ModuleHandler) GetConfig(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	cfg, err := h.Engine.GetConfig(c.Request().Context(), eventID)
	if err != nil {
		return writeError(c, err)
	}
	if isOperator(c) {
		return c.JSON(http.StatusOK, cfg)
	}
	return c.JSON(http.StatusOK, publicConfigView{
		Enabled:           cfg.Enabled,
		CooldownSeconds:   cfg.CooldownSeconds,
		MaxPerPerson:      cfg.MaxPerPerson,
		ShowQueueToClient: cfg.ShowQueueToClient,
		CustomMessages:    cfg.CustomMessages,
	})
}

// UpdateConfig handles PATCH /events/:eventID/config (operator only).
func (h *ModuleHandler) UpdateConfig(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var patch model.ConfigPatch
	if err := c.Bind(&patch); err != nil {
		return writeError(c, repository.Validation("malformed request body"))
	}
	cfg, err := h.Engine.UpdateConfig(c.Request().Context(), eventID, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}
