package admin

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/eventos/internal/apperr"
	"github.com/gestaozabele/eventos/internal/auth"
)

type stubUsers struct {
	byEmail map[string]User
}

func (s *stubUsers) UserByEmail(_ context.Context, email string) (User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *stubUsers) UserByID(_ context.Context, id uuid.UUID) (User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func newAuthFixture(t *testing.T) (*AuthService, *stubUsers, *miniredis.Miniredis, *auth.JWTManager) {
	t.Helper()
	hash, err := auth.Hash("senha-forte")
	require.NoError(t, err)

	org := uuid.New()
	users := &stubUsers{byEmail: map[string]User{
		"admin@eventos.com": {ID: uuid.New(), Name: "Admin", Email: "admin@eventos.com", PasswordHash: hash, Role: "admin", Active: true},
		"org@eventos.com":   {ID: uuid.New(), Name: "Org", Email: "org@eventos.com", PasswordHash: hash, Role: RoleOrganizer, OrganizerCompanyID: &org, Active: true},
		"off@eventos.com":   {ID: uuid.New(), Name: "Off", Email: "off@eventos.com", PasswordHash: hash, Role: RoleAdmin, Active: false},
	}}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	jwt := auth.NewJWTManager("segredo-de-teste", time.Hour)
	return NewAuthService(users, client, jwt, 24*time.Hour), users, mr, jwt
}

func TestLoginIssuesAdminToken(t *testing.T) {
	svc, _, rdb, jwt := newAuthFixture(t)

	res, err := svc.Login(context.Background(), "  Admin@Eventos.com ", "senha-forte")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, res.Profile.Role)
	assert.True(t, rdb.Exists(auth.RefreshKey(res.RefreshToken)))
	assert.Equal(t, 24*time.Hour, rdb.TTL(auth.RefreshKey(res.RefreshToken)))

	claims, err := jwt.ParseAndValidate(res.AccessToken)
	require.NoError(t, err)
	p, err := PrincipalFromClaims(claims)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
	assert.Nil(t, p.OrganizerID)
}

func TestLoginOrganizerCarriesCompany(t *testing.T) {
	svc, users, _, jwt := newAuthFixture(t)

	res, err := svc.Login(context.Background(), "org@eventos.com", "senha-forte")
	require.NoError(t, err)

	claims, err := jwt.ParseAndValidate(res.AccessToken)
	require.NoError(t, err)
	p, err := PrincipalFromClaims(claims)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin())
	require.NotNil(t, p.OrganizerID)
	assert.Equal(t, *users.byEmail["org@eventos.com"].OrganizerCompanyID, *p.OrganizerID)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "ninguem@eventos.com", "senha-forte")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "admin@eventos.com", "errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "off@eventos.com", "senha-forte")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, rdb, _ := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "admin@eventos.com", "senha-forte")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.False(t, rdb.Exists(auth.RefreshKey(first.RefreshToken)))

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	require.NoError(t, svc.Logout(ctx, second.RefreshToken))
	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestRefreshIsSingleUseUnderConcurrency(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "admin@eventos.com", "senha-forte")
	require.NoError(t, err)

	const racers = 8
	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, first.RefreshToken); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestRefreshExpiresWithTTL(t *testing.T) {
	svc, _, rdb, _ := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "admin@eventos.com", "senha-forte")
	require.NoError(t, err)

	rdb.FastForward(25 * time.Hour)
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestRefreshDiscardsCorruptRecord(t *testing.T) {
	svc, _, rdb, _ := newAuthFixture(t)
	key := auth.RefreshKey("qualquer")
	require.NoError(t, rdb.Set(key, "{quebrado"))

	_, err := svc.Refresh(context.Background(), "qualquer")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.False(t, rdb.Exists(key))
}

func TestPrincipalRejectsSessionTokens(t *testing.T) {
	jwt := auth.NewJWTManager("segredo-de-teste", time.Hour)
	token, _, err := jwt.Generate(auth.TokenInput{Subject: uuid.NewString(), Audience: auth.AudienceStaff, SessionID: "s"})
	require.NoError(t, err)
	claims, err := jwt.ParseAndValidate(token)
	require.NoError(t, err)

	_, err = PrincipalFromClaims(claims)
	assert.ErrorIs(t, err, ErrForbidden)

	token, _, err = jwt.Generate(auth.TokenInput{Subject: uuid.NewString(), Audience: auth.AudienceAdmin, Roles: []string{RoleOrganizer}})
	require.NoError(t, err)
	claims, err = jwt.ParseAndValidate(token)
	require.NoError(t, err)
	_, err = PrincipalFromClaims(claims)
	assert.ErrorIs(t, err, ErrForbidden, "organizador sem empresa")
}

type stubEvents struct {
	events  []Event
	deleted []uuid.UUID
}

func (s *stubEvents) ListEvents(_ context.Context, organizerID *uuid.UUID) ([]Event, error) {
	var out []Event
	for _, e := range s.events {
		if organizerID == nil || (e.OrganizerCompanyID != nil && *e.OrganizerCompanyID == *organizerID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubEvents) EventByID(_ context.Context, id uuid.UUID) (Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, ErrEventNotFound
}

func (s *stubEvents) DeleteEvent(_ context.Context, id uuid.UUID) (DeleteSummary, error) {
	s.deleted = append(s.deleted, id)
	return DeleteSummary{"events": 1}, nil
}

func TestEventScoping(t *testing.T) {
	orgA, orgB := uuid.New(), uuid.New()
	evA := Event{ID: uuid.New(), Name: "Feira A", OrganizerCompanyID: &orgA}
	evB := Event{ID: uuid.New(), Name: "Feira B", OrganizerCompanyID: &orgB}
	repo := &stubEvents{events: []Event{evA, evB}}
	svc := NewEventService(repo)
	ctx := context.Background()

	admin := Principal{UserID: uuid.New(), Roles: []string{RoleAdmin}}
	organizer := Principal{UserID: uuid.New(), Roles: []string{RoleOrganizer}, OrganizerID: &orgA}

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(ctx, organizer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, evA.ID, mine[0].ID)

	_, err = svc.Authorize(ctx, organizer, evB.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.Delete(ctx, organizer, evB.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Empty(t, repo.deleted)

	summary, err := svc.Delete(ctx, admin, evB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary["events"])
	assert.Equal(t, []uuid.UUID{evB.ID}, repo.deleted)
}

func TestEventCleanupCoversDependentTables(t *testing.T) {
	covered := map[string]bool{}
	for _, step := range eventCleanup {
		covered[step.table] = true
	}
	for table := range crudTables {
		switch table {
		case "users", "events", "organizer_companies", "departments", "staff", "collaborators":
			continue
		}
		assert.True(t, covered[table], table)
	}
}

type stubTables struct {
	inserted Row
	updated  Row
	rows     []Row
}

func (s *stubTables) ListRows(context.Context, string, int, int) ([]Row, error) {
	return s.rows, nil
}

func (s *stubTables) GetRow(_ context.Context, _ string, id uuid.UUID) (Row, error) {
	for _, r := range s.rows {
		if r["id"] == [16]byte(id) {
			return r, nil
		}
	}
	return nil, ErrRowNotFound
}

func (s *stubTables) InsertRow(_ context.Context, _ string, values Row) (Row, error) {
	s.inserted = values
	return values, nil
}

func (s *stubTables) UpdateRow(_ context.Context, _ string, _ uuid.UUID, values Row) (Row, error) {
	s.updated = values
	return values, nil
}

func (s *stubTables) DeleteRow(context.Context, string, uuid.UUID) error {
	return nil
}

func TestCrudConvertsKeysAndHidesColumns(t *testing.T) {
	id := uuid.New()
	store := &stubTables{rows: []Row{{
		"id":                   [16]byte(id),
		"email":                "a@b.com",
		"password_hash":        "$argon2id$...",
		"organizer_company_id": nil,
	}}}
	svc := NewCrudService(store)
	admin := Principal{Roles: []string{RoleAdmin}}
	ctx := context.Background()

	got, err := svc.Get(ctx, admin, "users", id)
	require.NoError(t, err)
	row := got.(map[string]any)
	assert.Equal(t, id.String(), row["id"])
	assert.Contains(t, row, "organizerCompanyId")
	assert.NotContains(t, row, "passwordHash")

	_, err = svc.Create(ctx, admin, "staff_activities", map[string]any{
		"staffId":     id.String(),
		"description": "Tarefa atribuída: x",
		"quantity":    float64(3),
		"tags":        []any{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, id.String(), store.inserted["staff_id"])
	assert.Equal(t, int64(3), store.inserted["quantity"])
	assert.Equal(t, []string{"a", "b"}, store.inserted["tags"])

	_, err = svc.Update(ctx, admin, "users", id, map[string]any{"passwordHash": "x"})
	assert.ErrorIs(t, err, ErrInvalidColumn)

	_, err = svc.Update(ctx, admin, "events", id, map[string]any{"id": id.String()})
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = svc.Create(ctx, admin, "events", map[string]any{"name; DROP": "x"})
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCrudRequiresAdminAndKnownTable(t *testing.T) {
	svc := NewCrudService(&stubTables{})
	ctx := context.Background()
	org := uuid.New()

	_, err := svc.List(ctx, Principal{Roles: []string{RoleOrganizer}, OrganizerID: &org}, "events", 0, 0)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.List(ctx, Principal{Roles: []string{RoleAdmin}}, "pg_shadow", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownTable)

	assert.Contains(t, Tables(), "company_calls")
}
