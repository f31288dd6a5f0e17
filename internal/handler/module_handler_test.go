package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-request-queue/internal/engine"
	"github.com/iliyamo/live-request-queue/internal/middleware"
	"github.com/iliyamo/live-request-queue/internal/model"
	"github.com/iliyamo/live-request-queue/internal/module"
	"github.com/iliyamo/live-request-queue/internal/repository"
)

const testJWTSecret = "handler-test-secret"

// operatorToken signs the kind of staff token the auth middleware
// accepts in production.
func operatorToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "op-1",
		"role": "OPERATOR",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// The handler tests run against a real engine backed by in-memory stores,
// so they cover the full HTTP -> engine -> store path minus SQL.

type memRequests struct {
	terminal map[string]bool
	nextID   uint64
	rows     map[uint64]*model.Request
}

func newMemRequests(terminal []string) *memRequests {
	m := map[string]bool{}
	for _, s := range terminal {
		m[s] = true
	}
	return &memRequests{terminal: m, rows: map[uint64]*model.Request{}}
}

func (f *memRequests) active(eventID uint64) []*model.Request {
	out := []*model.Request{}
	for _, r := range f.rows {
		if r.EventID == eventID && !f.terminal[r.Status] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].QueuePosition < *out[j].QueuePosition })
	return out
}

func (f *memRequests) Insert(_ context.Context, req *model.Request, initialStatus string) error {
	f.nextID++
	maxTurn := 0
	for _, r := range f.rows {
		if r.EventID == req.EventID && r.TurnNumber > maxTurn {
			maxTurn = r.TurnNumber
		}
	}
	pos := len(f.active(req.EventID))
	req.ID = f.nextID
	req.Status = initialStatus
	req.QueuePosition = &pos
	req.TurnNumber = maxTurn + 1
	req.CreatedAt = time.Now().UTC()
	cp := *req
	p := pos
	cp.QueuePosition = &p
	f.rows[req.ID] = &cp
	return nil
}

func (f *memRequests) Get(_ context.Context, eventID, id uint64) (*model.Request, error) {
	r, ok := f.rows[id]
	if !ok || r.EventID != eventID {
		return nil, repository.NotFound("request")
	}
	cp := *r
	if r.QueuePosition != nil {
		p := *r.QueuePosition
		cp.QueuePosition = &p
	}
	return &cp, nil
}

func (f *memRequests) List(_ context.Context, eventID uint64, status string) ([]model.Request, error) {
	out := []model.Request{}
	for _, r := range f.rows {
		if r.EventID == eventID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *memRequests) ActiveIDs(_ context.Context, eventID uint64) ([]uint64, error) {
	out := []uint64{}
	for _, r := range f.active(eventID) {
		out = append(out, r.ID)
	}
	return out, nil
}

func (f *memRequests) ApplyTransition(_ context.Context, req *model.Request, to string, opts repository.TransitionOptions) error {
	stored := f.rows[req.ID]
	if opts.Terminal && stored.QueuePosition != nil {
		removed := *stored.QueuePosition
		stored.QueuePosition = nil
		for _, other := range f.rows {
			if other.EventID == stored.EventID && other.QueuePosition != nil && *other.QueuePosition > removed {
				*other.QueuePosition--
			}
		}
	}
	stored.Status = to
	*req = *stored
	return nil
}

func (f *memRequests) Delete(_ context.Context, req *model.Request) error {
	delete(f.rows, req.ID)
	return nil
}

func (f *memRequests) Reorder(_ context.Context, _ uint64, ids []uint64) error {
	for i, id := range ids {
		pos := i
		f.rows[id].QueuePosition = &pos
	}
	return nil
}

func (f *memRequests) CountByStatus(_ context.Context, eventID uint64) (map[string]int, error) {
	out := map[string]int{}
	for _, r := range f.rows {
		if r.EventID == eventID {
			out[r.Status]++
		}
	}
	return out, nil
}

func (f *memRequests) LastCreatedAt(_ context.Context, eventID, requesterID uint64) (*time.Time, error) {
	var last *time.Time
	for _, r := range f.rows {
		if r.EventID == eventID && r.RequesterID == requesterID {
			if last == nil || r.CreatedAt.After(*last) {
				t := r.CreatedAt
				last = &t
			}
		}
	}
	return last, nil
}

func (f *memRequests) ActiveCountFor(_ context.Context, eventID, requesterID uint64) (int, error) {
	n := 0
	for _, r := range f.active(eventID) {
		if r.RequesterID == requesterID {
			n++
		}
	}
	return n, nil
}

type memConfigs struct {
	byEvent map[uint64]*model.ModuleConfig
}

func (f *memConfigs) GetOrCreate(_ context.Context, mod string, eventID uint64, def model.ConfigDefaults) (*model.ModuleConfig, error) {
	if cfg, ok := f.byEvent[eventID]; ok {
		return cfg, nil
	}
	cfg := &model.ModuleConfig{
		EventID:           eventID,
		Module:            mod,
		Enabled:           def.Enabled,
		CooldownSeconds:   def.CooldownSeconds,
		MaxPerPerson:      def.MaxPerPerson,
		ShowQueueToClient: def.ShowQueueToClient,
	}
	f.byEvent[eventID] = cfg
	return cfg, nil
}

func (f *memConfigs) Update(ctx context.Context, mod string, eventID uint64, def model.ConfigDefaults, patch model.ConfigPatch) (*model.ModuleConfig, error) {
	cfg, _ := f.GetOrCreate(ctx, mod, eventID, def)
	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.CooldownSeconds != nil {
		cfg.CooldownSeconds = *patch.CooldownSeconds
	}
	if patch.MaxPerPerson != nil {
		cfg.MaxPerPerson = *patch.MaxPerPerson
	}
	if patch.ShowQueueToClient != nil {
		cfg.ShowQueueToClient = *patch.ShowQueueToClient
	}
	return cfg, nil
}

type memIdentity struct {
	nextID uint64
	byKey  map[string]uint64
}

func (f *memIdentity) Identify(_ context.Context, contact string, displayName *string) (*model.Requester, error) {
	if contact == "" {
		return nil, repository.Validation("contact must not be empty")
	}
	id, ok := f.byKey[contact]
	if !ok {
		f.nextID++
		id = f.nextID
		f.byKey[contact] = id
	}
	return &model.Requester{ID: id, Contact: contact, DisplayName: displayName}, nil
}

type memEvents struct{ ids map[uint64]bool }

func (f *memEvents) Exists(_ context.Context, id uint64) error {
	if !f.ids[id] {
		return repository.NotFound("event")
	}
	return nil
}

type nopHub struct{}

func (nopHub) Publish(string, string, any) {}

func newTestServer(desc module.Descriptor) (*echo.Echo, *ModuleHandler, *memConfigs) {
	cfgs := &memConfigs{byEvent: map[uint64]*model.ModuleConfig{}}
	eng := engine.New(desc,
		newMemRequests(desc.TerminalStatuses()),
		cfgs, nil,
		&memIdentity{byKey: map[string]uint64{}},
		&memEvents{ids: map[uint64]bool{1: true}},
		nopHub{}, nil, nil)

	h := NewModuleHandler(eng)
	e := echo.New()
	e.Validator = NewValidator()

	// Staff routes run behind JWTAuth+RequireRole in production; here the
	// principal is injected directly so only the handlers are under test.
	asOperator := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("role", "OPERATOR")
			return next(c)
		}
	}
	optJWT := middleware.OptionalJWT(testJWTSecret)

	e.POST("/v1/:mod/events/:eventID/requests", h.CreateRequest)
	e.GET("/v1/:mod/events/:eventID/requests", h.ListRequests, optJWT)
	e.GET("/v1/:mod/events/:eventID/config", h.GetConfig, optJWT)
	e.PATCH("/v1/:mod/events/:eventID/requests/:id", h.UpdateStatus, asOperator)
	e.POST("/v1/:mod/events/:eventID/queue/reorder", h.Reorder, asOperator)
	e.GET("/v1/:mod/events/:eventID/stats", h.Stats)
	return e, h, cfgs
}

// doAuthed is doJSON plus a bearer token.
func doAuthed(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	kind, _ := body["error"].(string)
	return kind
}

func TestCreateRequestEndpoint(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests",
		`{"contact":"+34600111222","title":"Paranoid Android"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var req model.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	assert.Equal(t, "Paranoid Android", req.Title)
	assert.Equal(t, module.StatusPending, req.Status)
	require.NotNil(t, req.QueuePosition)
	assert.Equal(t, 0, *req.QueuePosition)
	assert.Equal(t, 1, req.TurnNumber)
}

func TestCreateRequestEndpointValidation(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests", `{"contact":"+34600111222"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, repository.KindValidation, errorKind(t, rec))

	rec = doJSON(e, http.MethodPost, "/v1/music/events/abc/requests", `{"contact":"x","title":"y"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRequestEndpointCooldown(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	body := `{"contact":"+34600111222","title":"Song"}`
	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/music/events/1/requests", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, repository.KindRateLimited, errorKind(t, rec))
}

func TestKaraokeCreateRequiresExternalID(t *testing.T) {
	e, _, _ := newTestServer(module.NewKaraokeDescriptor())

	rec := doJSON(e, http.MethodPost, "/v1/karaoke/events/1/requests",
		`{"contact":"maria","title":"Song"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, repository.KindValidation, errorKind(t, rec))
}

func TestUpdateStatusEndpointRejectsIllegalTransition(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests",
		`{"contact":"+34600111222","title":"Song"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPatch, "/v1/music/events/1/requests/1", `{"status":"PLAYED"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPatch, "/v1/music/events/1/requests/1", `{"status":"URGENT"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, repository.KindInvalidTransition, errorKind(t, rec))
}

func TestReorderEndpointRejectsMismatch(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	for _, body := range []string{
		`{"contact":"+1","title":"A"}`,
		`{"contact":"+2","title":"B"}`,
	} {
		rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/queue/reorder", `{"order":[2,1]}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/music/events/1/queue/reorder", `{"order":[1]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, repository.KindQueueMismatch, errorKind(t, rec))
}

func TestListEndpointQueueVisibility(t *testing.T) {
	e, _, cfgs := newTestServer(module.NewMusicDescriptor())

	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests",
		`{"contact":"+34600111222","title":"Song"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cfgs.byEvent[1].ShowQueueToClient = false

	rec = doJSON(e, http.MethodGet, "/v1/music/events/1/requests", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, repository.KindQueueHidden, errorKind(t, rec))

	rec = doAuthed(e, http.MethodGet, "/v1/music/events/1/requests", operatorToken(t), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetConfigFiltersPublicView(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	rec := doJSON(e, http.MethodGet, "/v1/music/events/1/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var public map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	assert.Contains(t, public, "enabled")
	assert.Contains(t, public, "cooldown_seconds")
	assert.NotContains(t, public, "event_id")
	assert.NotContains(t, public, "updated_at")

	rec = doAuthed(e, http.MethodGet, "/v1/music/events/1/config", operatorToken(t), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var full map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	assert.Contains(t, full, "event_id")
	assert.Contains(t, full, "module")
}

func TestStatsEndpoint(t *testing.T) {
	e, _, _ := newTestServer(module.NewMusicDescriptor())

	rec := doJSON(e, http.MethodPost, "/v1/music/events/1/requests",
		`{"contact":"+34600111222","title":"Song"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/music/events/1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Counts map[string]int `json:"counts"`
		Total  int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 1, body.Counts[module.StatusPending])
	assert.Len(t, body.Counts, 5)
}
