package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/auth"
	"github.com/gestaozabele/eventos/internal/call"
	"github.com/gestaozabele/eventos/internal/config"
	"github.com/gestaozabele/eventos/internal/dashboard"
	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/session"
)

type stubDirectory struct {
	company      session.Company
	event        session.Event
	staff        session.Staff
	collaborator session.Collaborator
}

func (d *stubDirectory) CompanyByBoothCode(_ context.Context, code string) (session.Company, error) {
	if code != d.company.BoothCode {
		return session.Company{}, session.ErrRecordNotFound
	}
	return d.company, nil
}

func (d *stubDirectory) EventByID(_ context.Context, id uuid.UUID) (session.Event, error) {
	if id != d.event.ID {
		return session.Event{}, session.ErrRecordNotFound
	}
	return d.event, nil
}

func (d *stubDirectory) StaffByPersonalCode(_ context.Context, code string) (session.Staff, error) {
	if code != d.staff.PersonalCode {
		return session.Staff{}, session.ErrRecordNotFound
	}
	return d.staff, nil
}

func (d *stubDirectory) StaffAssignment(_ context.Context, staffID, eventID uuid.UUID) (session.Assignment, error) {
	if staffID != d.staff.ID || eventID != d.event.ID {
		return session.Assignment{}, session.ErrRecordNotFound
	}
	return session.Assignment{StaffID: staffID, EventID: eventID}, nil
}

func (d *stubDirectory) CollaboratorByCode(_ context.Context, companyID uuid.UUID, code string) (session.Collaborator, error) {
	if companyID != d.collaborator.CompanyID || code != d.collaborator.Code {
		return session.Collaborator{}, session.ErrRecordNotFound
	}
	return d.collaborator, nil
}

type memCalls struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*call.Call
}

func (m *memCalls) Create(_ context.Context, in call.OpenInput) (*call.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &call.Call{
		ID: uuid.New(), Kind: in.Kind, EventID: in.EventID, CompanyID: in.CompanyID,
		BoothCode: in.BoothCode, RequestedBy: in.RequestedBy, Message: in.Message,
		Status: call.StatusPending, CreatedAt: time.Now(),
	}
	m.calls[c.ID] = c
	return c, nil
}

func (m *memCalls) Get(_ context.Context, _ call.Kind, id uuid.UUID) (*call.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, call.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCalls) List(_ context.Context, f call.Filter) ([]call.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []call.Call
	for _, c := range m.calls {
		if c.Kind == f.Kind && c.EventID == f.EventID && (f.Status == "" || c.Status == f.Status) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCalls) Resolve(_ context.Context, in call.ResolveInput) (*call.Call, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[in.ID]
	if !ok || c.EventID != in.EventID || c.Status != call.StatusPending {
		return nil, false, nil
	}
	now := time.Now()
	c.Status = call.StatusResolved
	c.ResolvedByStaffID = &in.StaffID
	c.ResolverFeedback = &in.Feedback
	c.ResolvedAt = &now
	cp := *c
	return &cp, true, nil
}

func (m *memCalls) Recipients(context.Context, uuid.UUID) ([]call.Recipient, error) {
	return nil, nil
}

type memEvents struct {
	events map[uuid.UUID]admin.Event
}

func (m *memEvents) ListEvents(_ context.Context, org *uuid.UUID) ([]admin.Event, error) {
	var out []admin.Event
	for _, e := range m.events {
		if org == nil || (e.OrganizerCompanyID != nil && *e.OrganizerCompanyID == *org) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvents) EventByID(_ context.Context, id uuid.UUID) (admin.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return admin.Event{}, admin.ErrEventNotFound
	}
	return e, nil
}

func (m *memEvents) DeleteEvent(_ context.Context, id uuid.UUID) (admin.DeleteSummary, error) {
	delete(m.events, id)
	return admin.DeleteSummary{"events": 1}, nil
}

type testEnv struct {
	handler   http.Handler
	jwt       *auth.JWTManager
	dir       *stubDirectory
	calls     *memCalls
	events    *memEvents
	organizer uuid.UUID
	redis     *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	org := uuid.New()
	eventID := uuid.New()
	companyID := uuid.New()
	dir := &stubDirectory{
		company:      session.Company{ID: companyID, Name: "Auto Center", BoothCode: "B12", EventID: &eventID},
		event:        session.Event{ID: eventID, Name: "Feira", IsActive: true, OrganizerCompanyID: org},
		staff:        session.Staff{ID: uuid.New(), Name: "Ana", PersonalCode: "ST01", OrganizerCompanyID: org},
		collaborator: session.Collaborator{ID: uuid.New(), CompanyID: companyID, Name: "Beto", Code: "C7"},
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	jwt := auth.NewJWTManager("segredo-de-teste", time.Hour)
	calls := &memCalls{calls: map[uuid.UUID]*call.Call{}}
	events := &memEvents{events: map[uuid.UUID]admin.Event{
		eventID: {ID: eventID, Name: "Feira", IsActive: true, OrganizerCompanyID: &org},
	}}

	cfg := &config.Config{
		RateLimitCheckin: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		RateLimitAuth:    config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}

	handler := NewRouter(Deps{
		Config:    cfg,
		JWT:       jwt,
		Sessions:  session.NewService(session.NewResolver(dir), session.NewStore(rdb, time.Hour), jwt),
		Calls:     call.NewService(calls, &notify.Recorder{}),
		Dashboard: dashboard.NewService(nil, rdb, config.DashboardConfig{Interval: time.Minute}, zerolog.Nop()),
		Events:    admin.NewEventService(events),
		Tables:    admin.NewCrudService(nil),
	})

	return &testEnv{handler: handler, jwt: jwt, dir: dir, calls: calls, events: events, organizer: org, redis: mr}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) checkIn(t *testing.T, code string) string {
	t.Helper()
	return e.checkInResult(t, code).Token
}

func (e *testEnv) checkInResult(t *testing.T, code string) session.CheckinResult {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/checkin", "", map[string]string{"boothCode": "b12", "code": code})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data session.CheckinResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func (e *testEnv) adminToken(t *testing.T, roles []string, org *uuid.UUID) string {
	t.Helper()
	in := auth.TokenInput{Subject: uuid.NewString(), Audience: auth.AudienceAdmin, Roles: roles}
	if org != nil {
		in.OrganizerID = org.String()
	}
	token, _, err := e.jwt.Generate(in)
	require.NoError(t, err)
	return token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"ok"},"error":null}`, rec.Body.String())
}

func TestCheckInSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.checkIn(t, "st01")

	rec := env.do(t, http.MethodGet, "/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data session.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.KindStaff, resp.Data.Kind)
	require.NotNil(t, resp.Data.Staff)
	assert.Equal(t, "Ana", resp.Data.Staff.StaffName)

	rec = env.do(t, http.MethodDelete, "/session", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION", errorCode(t, rec))
}

func TestExpiredSessionIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	token := env.checkIn(t, "ST01")

	env.redis.FastForward(time.Hour + time.Second)

	rec := env.do(t, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION", errorCode(t, rec))
}

func TestSessionStoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	token := env.checkIn(t, "ST01")

	env.redis.SetError("falha simulada")
	rec := env.do(t, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", errorCode(t, rec))

	env.redis.SetError("")
	rec = env.do(t, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRestoreSession(t *testing.T) {
	env := newTestEnv(t)
	first := env.checkInResult(t, "C7")
	assert.Equal(t, session.CollaboratorStorageKey, first.StorageKey)

	rec := env.do(t, http.MethodDelete, "/session", first.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/checkin/restore", "", map[string]any{
		"storageKey": first.StorageKey,
		"stored":     first.Stored,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data session.CheckinResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.KindCollaborator, resp.Data.Session.Kind)

	rec = env.do(t, http.MethodGet, "/session", resp.Data.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/checkin/restore", "", map[string]any{
		"storageKey": session.StaffStorageKey,
		"stored":     json.RawMessage(`{"boothCode":"B12"}`),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION", errorCode(t, rec))
}

func TestCheckInErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/checkin", "", map[string]string{"boothCode": "B12", "code": "NOPE"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/checkin", "", map[string]string{"boothCode": "B12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, rec))

	env.dir.event.IsActive = false
	rec = env.do(t, http.MethodPost, "/checkin", "", map[string]string{"boothCode": "B12", "code": "ST01"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestSessionRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/calls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION", errorCode(t, rec))

	adminToken := env.adminToken(t, []string{admin.RoleAdmin}, nil)
	rec = env.do(t, http.MethodGet, "/calls", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCollaboratorCannotUseStaffRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.checkIn(t, "c7")

	rec := env.do(t, http.MethodGet, "/tasks", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/calls", token, map[string]string{"message": "Precisamos de cadeiras"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data call.Call `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, "/calls/"+created.Data.ID.String()+"/resolve", token, map[string]string{"feedback": "ok"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResolveCallOnce(t *testing.T) {
	env := newTestEnv(t)
	staffToken := env.checkIn(t, "ST01")

	rec := env.do(t, http.MethodPost, "/calls", staffToken, map[string]string{"message": "Falta energia"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data call.Call `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/calls/" + created.Data.ID.String() + "/resolve"

	rec = env.do(t, http.MethodPost, path, staffToken, map[string]string{"feedback": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, path, staffToken, map[string]string{"feedback": "Eletricista enviado"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, path, staffToken, map[string]string{"feedback": "de novo"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))

	rec = env.do(t, http.MethodGet, "/calls?status=resolved", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []call.Call `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "Eletricista enviado", *listed.Data[0].ResolverFeedback)

	rec = env.do(t, http.MethodPost, "/calls/nao-e-uuid/resolve", staffToken, map[string]string{"feedback": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionBadge(t *testing.T) {
	env := newTestEnv(t)
	token := env.checkIn(t, "ST01")

	rec := env.do(t, http.MethodGet, "/dashboard/badge", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestAdminEventScope(t *testing.T) {
	env := newTestEnv(t)
	otherOrg := uuid.New()
	foreign := admin.Event{ID: uuid.New(), Name: "Outra feira", OrganizerCompanyID: &otherOrg}
	env.events.events[foreign.ID] = foreign

	orgToken := env.adminToken(t, []string{admin.RoleOrganizer}, &env.organizer)

	rec := env.do(t, http.MethodGet, "/admin/events", orgToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []admin.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Data, 1)

	rec = env.do(t, http.MethodGet, "/admin/events/"+foreign.ID.String(), orgToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/admin/events/"+foreign.ID.String(), orgToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, env.events.events, foreign.ID)

	adminToken := env.adminToken(t, []string{admin.RoleAdmin}, nil)
	rec = env.do(t, http.MethodDelete, "/admin/events/"+foreign.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, env.events.events, foreign.ID)
}

func TestAdminTablesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/admin/tables", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	orgToken := env.adminToken(t, []string{admin.RoleOrganizer}, &env.organizer)
	rec = env.do(t, http.MethodGet, "/admin/tables", orgToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	staffToken := env.checkIn(t, "ST01")
	rec = env.do(t, http.MethodGet, "/admin/tables", staffToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := env.adminToken(t, []string{admin.RoleAdmin}, nil)
	rec = env.do(t, http.MethodGet, "/admin/tables", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "company_calls")

	rec = env.do(t, http.MethodGet, "/admin/tables/pg_authid", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
