package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-request-queue/internal/engine"
	"github.com/iliyamo/live-request-queue/internal/repository"
)

// CatalogHandler exposes the karaoke catalog: public browsing and the
// like toggle.  It wraps the karaoke engine so the like path goes through
// the same per-pair serialization as everything else.
type CatalogHandler struct {
	Engine *engine.Engine
}

// NewCatalogHandler constructs a CatalogHandler around the karaoke engine.
func NewCatalogHandler(eng *engine.Engine) *CatalogHandler {
	if eng == nil {
		panic("nil engine passed to NewCatalogHandler")
	}
	return &CatalogHandler{Engine: eng}
}

// List handles GET /catalog.  Supports ?q= text filter, ?mood= and ?tag=
// label filters, ?all=true to include deactivated items, and page /
// page_size pagination.
func (h *CatalogHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	q := repository.CatalogListQuery{
		Text:     strings.TrimSpace(c.QueryParam("q")),
		Mood:     strings.TrimSpace(c.QueryParam("mood")),
		Tag:      strings.TrimSpace(c.QueryParam("tag")),
		All:      c.QueryParam("all") == "true",
		Page:     page,
		PageSize: ps,
	}

	items, total, err := h.Engine.CatalogList(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

type toggleLikeBody struct {
	Contact     string  `json:"contact" validate:"required,max=190"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=120"`
}

// ToggleLike handles POST /catalog/items/:id/like.  Toggling is the only
// mutation path for likes: calling it twice returns to the original
// state, and the counter always matches the like rows.
func (h *CatalogHandler) ToggleLike(c echo.Context) error {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return writeError(c, repository.Validation("invalid catalog item id"))
	}
	var body toggleLikeBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, repository.Validation("malformed request body"))
	}
	if err := c.Validate(&body); err != nil {
		return writeError(c, err)
	}

	liked, likes, err := h.Engine.ToggleLike(c.Request().Context(), itemID, body.Contact, body.DisplayName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked, "likes_count": likes})
}

type setActiveBody struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SetActive handles PATCH /catalog/items/:id (operator only), toggling an
// item's soft-deactivation flag.
func (h *CatalogHandler) SetActive(c echo.Context) error {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return writeError(c, repository.Validation("invalid catalog item id"))
	}
	var body setActiveBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, repository.Validation("malformed request body"))
	}
	if err := c.Validate(&body); err != nil {
		return writeError(c, err)
	}
	if err := h.Engine.SetCatalogItemActive(c.Request().Context(), itemID, *body.IsActive); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": itemID, "is_active": *body.IsActive})
}
