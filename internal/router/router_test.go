package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-request-queue/internal/engine"
	"github.com/iliyamo/live-request-queue/internal/handler"
	"github.com/iliyamo/live-request-queue/internal/model"
	"github.com/iliyamo/live-request-queue/internal/module"
	"github.com/iliyamo/live-request-queue/internal/realtime"
	"github.com/iliyamo/live-request-queue/internal/repository"
)

const testSecret = "router-test-secret"

// emptyRequests is a request store with no rows; the routing tests only
// care about which engine branch a request reaches, not queue contents.
type emptyRequests struct{}

func (emptyRequests) Insert(ctx context.Context, req *model.Request, initialStatus string) error {
	return nil
}
func (emptyRequests) Get(ctx context.Context, eventID, id uint64) (*model.Request, error) {
	return nil, repository.NotFound("request")
}
func (emptyRequests) List(ctx context.Context, eventID uint64, status string) ([]model.Request, error) {
	return []model.Request{}, nil
}
func (emptyRequests) ActiveIDs(ctx context.Context, eventID uint64) ([]uint64, error) {
	return nil, nil
}
func (emptyRequests) ApplyTransition(ctx context.Context, req *model.Request, to string, opts repository.TransitionOptions) error {
	return nil
}
func (emptyRequests) Delete(ctx context.Context, req *model.Request) error { return nil }
func (emptyRequests) Reorder(ctx context.Context, eventID uint64, ids []uint64) error {
	return nil
}
func (emptyRequests) CountByStatus(ctx context.Context, eventID uint64) (map[string]int, error) {
	return map[string]int{}, nil
}
func (emptyRequests) LastCreatedAt(ctx context.Context, eventID, requesterID uint64) (*time.Time, error) {
	return nil, nil
}
func (emptyRequests) ActiveCountFor(ctx context.Context, eventID, requesterID uint64) (int, error) {
	return 0, nil
}

// hiddenConfigs always answers with a queue hidden from the public.
type hiddenConfigs struct{}

func (hiddenConfigs) config(eventID uint64, mod string) *model.ModuleConfig {
	return &model.ModuleConfig{
		ID:                1,
		EventID:           eventID,
		Module:            mod,
		Enabled:           true,
		CooldownSeconds:   60,
		ShowQueueToClient: false,
	}
}

func (s hiddenConfigs) GetOrCreate(ctx context.Context, mod string, eventID uint64, def model.ConfigDefaults) (*model.ModuleConfig, error) {
	return s.config(eventID, mod), nil
}

func (s hiddenConfigs) Update(ctx context.Context, mod string, eventID uint64, def model.ConfigDefaults, patch model.ConfigPatch) (*model.ModuleConfig, error) {
	return s.config(eventID, mod), nil
}

type stubIdentity struct{}

func (stubIdentity) Identify(ctx context.Context, contact string, displayName *string) (*model.Requester, error) {
	return &model.Requester{ID: 1, Contact: contact}, nil
}

type stubEvents struct{}

func (stubEvents) Exists(ctx context.Context, id uint64) error { return nil }

// newHiddenQueueServer builds the real route table around an engine whose
// event queue is hidden from attendees.
func newHiddenQueueServer() *echo.Echo {
	hub := realtime.NewHub()
	eng := engine.New(module.NewMusicDescriptor(), emptyRequests{}, hiddenConfigs{}, nil,
		stubIdentity{}, stubEvents{}, hub, nil, nil)

	e := echo.New()
	e.Validator = handler.NewValidator()
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterModule(e, module.Music, handler.NewModuleHandler(eng), hub, testSecret, pass)
	return e
}

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "staff-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// A staff token presented on the public queue read must unlock the
// operator view of a hidden queue; anonymous and non-staff callers keep
// getting queue_hidden.
func TestStaffTokenSeesHiddenQueue(t *testing.T) {
	e := newHiddenQueueServer()
	const path = "/v1/music/events/1/requests"

	t.Run("anonymous is refused", func(t *testing.T) {
		rec := do(e, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "queue_hidden")
	})

	t.Run("operator token passes", func(t *testing.T) {
		rec := do(e, http.MethodGet, path, signToken(t, testSecret, "OPERATOR"), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total":0`)
	})

	t.Run("admin token passes", func(t *testing.T) {
		rec := do(e, http.MethodGet, path, signToken(t, testSecret, "ADMIN"), "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-staff role stays public", func(t *testing.T) {
		rec := do(e, http.MethodGet, path, signToken(t, testSecret, "CUSTOMER"), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "queue_hidden")
	})

	t.Run("garbage token stays public", func(t *testing.T) {
		rec := do(e, http.MethodGet, path, "not-a-jwt", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "queue_hidden")
	})

	t.Run("token signed with another secret stays public", func(t *testing.T) {
		rec := do(e, http.MethodGet, path, signToken(t, "other-secret", "OPERATOR"), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// The optional auth on public reads must not loosen the staff group.
func TestStaffRoutesStillRequireAuth(t *testing.T) {
	e := newHiddenQueueServer()
	const path = "/v1/music/events/1/config"

	rec := do(e, http.MethodPatch, path, "", `{"enabled":true}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPatch, path, signToken(t, testSecret, "CUSTOMER"), `{"enabled":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPatch, path, signToken(t, testSecret, "OPERATOR"), `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// The config read is public but the row bookkeeping is reserved for
// staff tokens.
func TestConfigReadFiltersByRole(t *testing.T) {
	e := newHiddenQueueServer()
	const path = "/v1/music/events/1/config"

	rec := do(e, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cooldown_seconds":60`)
	assert.NotContains(t, rec.Body.String(), `"event_id"`)

	rec = do(e, http.MethodGet, path, signToken(t, testSecret, "OPERATOR"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event_id":1`)
}
