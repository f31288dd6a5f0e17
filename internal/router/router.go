package router // wires HTTP routes to handlers for both request modules

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-request-queue/internal/handler"
	"github.com/iliyamo/live-request-queue/internal/middleware"
	"github.com/iliyamo/live-request-queue/internal/realtime"
)

// RegisterRoutes registers routes that do not belong to any module.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterModule mounts one module's full surface under /v1/<module>.
//
// Attendee endpoints (submit, list, stats, search, config read, the
// websocket join) are open: attendee identity is the contact string in
// the request body, not a session.  Staff endpoints (status changes,
// deletes, reorders, config edits) sit behind JWT auth plus a role
// check, since a projected queue URL leaks easily at a venue.
//
// cacheMW is applied to the search endpoint only; queue reads are never
// cached because the websocket hub is their freshness channel.
func RegisterModule(e *echo.Echo, moduleName string, h *handler.ModuleHandler,
	hub *realtime.Hub, jwtSecret string, cacheMW echo.MiddlewareFunc) {

	g := e.Group("/v1/" + moduleName)
	// Optional auth: a staff token on a public read yields the operator
	// view (e.g. a hidden queue), anonymous attendees pass through.
	g.Use(middleware.OptionalJWT(jwtSecret))

	g.POST("/events/:eventID/requests", h.CreateRequest)
	g.GET("/events/:eventID/requests", h.ListRequests)
	g.GET("/events/:eventID/stats", h.Stats)
	g.GET("/events/:eventID/search", h.Search, cacheMW)
	g.GET("/events/:eventID/config", h.GetConfig)
	g.GET("/events/:eventID/ws", realtime.JoinHandler(hub, moduleName))

	staff := e.Group("/v1/" + moduleName)
	staff.Use(middleware.JWTAuth(jwtSecret))
	staff.Use(middleware.RequireRole("OPERATOR", "ADMIN"))
	staff.PATCH("/events/:eventID/requests/:id", h.UpdateStatus)
	staff.DELETE("/events/:eventID/requests/:id", h.DeleteRequest)
	staff.POST("/events/:eventID/queue/reorder", h.Reorder)
	staff.PATCH("/events/:eventID/config", h.UpdateConfig)
}

// RegisterCatalog mounts the curated karaoke catalog: public browsing
// with response caching, the like toggle (which writes and therefore
// bypasses the cache), and the staff-only soft-deactivation switch.
func RegisterCatalog(e *echo.Echo, ch *handler.CatalogHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	e.GET("/v1/karaoke/catalog", ch.List, cacheMW)
	e.POST("/v1/karaoke/catalog/items/:id/like", ch.ToggleLike)
	e.PATCH("/v1/karaoke/catalog/items/:id", ch.SetActive,
		middleware.JWTAuth(jwtSecret), middleware.RequireRole("OPERATOR", "ADMIN"))
}
