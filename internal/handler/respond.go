package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-request-queue/internal/repository"
)

// writeError maps engine failures to HTTP responses.  Domain errors carry
// their own status and stable kind; anything else is an unexpected
// persistence failure and surfaces as a 500.  The engine never retries
// those automatically — intake and reorder are safe for the caller to
// retry whole.
func writeError(c echo.Context, err error) error {
	if de, ok := repository.AsDomain(err); ok {
		return c.JSON(de.Status, echo.Map{"error": de.Kind, "message": de.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error", "message": err.Error()})
}
