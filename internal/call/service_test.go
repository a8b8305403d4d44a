package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/session"
)

type memRepo struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*Call
}

func newMemRepo() *memRepo {
	return &memRepo{calls: map[uuid.UUID]*Call{}}
}

func (m *memRepo) Create(_ context.Context, in OpenInput) (*Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &Call{ID: uuid.New(), Kind: in.Kind, EventID: in.EventID, CompanyID: in.CompanyID, BoothCode: in.BoothCode,
		RequestedBy: in.RequestedBy, Message: in.Message, Status: StatusPending, CreatedAt: time.Now()}
	m.calls[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memRepo) Get(_ context.Context, kind Kind, id uuid.UUID) (*Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok || c.Kind != kind {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Kind != f.Kind || c.EventID != f.EventID || (f.Status != "" && c.Status != f.Status) {
			continue
		}
		if f.CompanyID != nil && c.CompanyID != *f.CompanyID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

// mesma semântica do UPDATE ... WHERE status = ANY(origens)
func (m *memRepo) Resolve(_ context.Context, in ResolveInput) (*Call, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[in.ID]
	if !ok || c.Kind != in.Kind || c.EventID != in.EventID || !ValidTransition(ActionResolve, c.Status) {
		return nil, false, nil
	}
	now := time.Now()
	staffID := in.StaffID
	feedback := in.Feedback
	c.Status = StatusResolved
	c.ResolvedByStaffID = &staffID
	c.ResolverFeedback = &feedback
	c.ResolvedAt = &now
	cp := *c
	return &cp, true, nil
}

func (m *memRepo) Recipients(context.Context, uuid.UUID) ([]Recipient, error) {
	return []Recipient{{Name: "Operador do telão"}}, nil
}

func newStaff(eventID uuid.UUID) session.Session {
	s := session.NewStaff(session.StaffSession{BoothCode: "B1", CompanyID: uuid.New(), StaffName: "Ana", EventID: eventID, StaffID: uuid.New()})
	s.ID = uuid.NewString()
	return s
}

func newCollaborator(eventID uuid.UUID) session.Session {
	s := session.NewCollaborator(session.CollaboratorSession{
		BoothCode:    "B2",
		Company:      session.CompanyRef{ID: uuid.New(), Name: "Acme"},
		Collaborator: session.CollaboratorRef{ID: uuid.New(), Name: "Caio", Code: "C7"},
		EventID:      eventID,
	})
	s.ID = uuid.NewString()
	return s
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		action Action
		from   Status
		want   bool
	}{
		{ActionResolve, StatusPending, true},
		{ActionResolve, StatusResolved, false},
		{"reopen", StatusResolved, false},
		{"reopen", StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTransition(tt.action, tt.from), "%s from %s", tt.action, tt.from)
	}
}

func TestResolveOnlyOnce(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	repo := newMemRepo()
	svc := NewService(repo, nil)

	c, err := svc.Open(ctx, newCollaborator(eventID), CompanyCall, "  falta energia ")
	require.NoError(t, err)
	assert.Equal(t, "falta energia", c.Message)
	assert.Equal(t, "Caio", c.RequestedBy)

	first := newStaff(eventID)
	resolved, err := svc.Resolve(ctx, first, CompanyCall, c.ID, "religado")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)
	firstAt := *resolved.ResolvedAt

	_, err = svc.Resolve(ctx, newStaff(eventID), CompanyCall, c.ID, "outra coisa")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	stored, err := repo.Get(ctx, CompanyCall, c.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Staff.StaffID, *stored.ResolvedByStaffID)
	assert.Equal(t, "religado", *stored.ResolverFeedback)
	assert.Equal(t, firstAt, *stored.ResolvedAt)
}

func TestConcurrentResolveHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	svc := NewService(newMemRepo(), nil)
	c, err := svc.Open(ctx, newStaff(eventID), TelaoRequest, "mostrar vídeo")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(ctx, newStaff(eventID), TelaoRequest, c.ID, "ok")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, ErrAlreadyResolved) {
				conflict++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 7, conflict)
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	svc := NewService(newMemRepo(), nil)
	c, err := svc.Open(ctx, newStaff(eventID), CompanyCall, "ajuda")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, newStaff(eventID), CompanyCall, c.ID, "  ")
	assert.ErrorIs(t, err, ErrFeedbackRequired)

	_, err = svc.Resolve(ctx, newCollaborator(eventID), CompanyCall, c.ID, "ok")
	assert.ErrorIs(t, err, ErrStaffOnly)

	_, err = svc.Resolve(ctx, newStaff(uuid.New()), CompanyCall, c.ID, "ok")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Resolve(ctx, newStaff(eventID), CompanyCall, uuid.New(), "ok")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Open(ctx, newStaff(eventID), CompanyCall, "")
	assert.ErrorIs(t, err, ErrMessageRequired)

	_, err = svc.Open(ctx, newStaff(eventID), Kind("outro"), "x")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestListsSplitByStatusAndCompany(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	svc := NewService(newMemRepo(), nil)
	collab := newCollaborator(eventID)
	staff := newStaff(eventID)

	mine, err := svc.Open(ctx, collab, CompanyCall, "meu")
	require.NoError(t, err)
	_, err = svc.Open(ctx, staff, CompanyCall, "do staff")
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, collab, CompanyCall)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	pending, err = svc.ListPending(ctx, staff, CompanyCall)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.Resolve(ctx, staff, CompanyCall, mine.ID, "feito")
	require.NoError(t, err)

	pending, err = svc.ListPending(ctx, staff, CompanyCall)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	resolved, err := svc.ListResolved(ctx, collab, CompanyCall)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, mine.ID, resolved[0].ID)
}

func TestOpenTelaoNotifiesWithRecipients(t *testing.T) {
	rec := &notify.Recorder{}
	svc := NewService(newMemRepo(), rec)

	_, err := svc.Open(context.Background(), newStaff(uuid.New()), TelaoRequest, "exibir banner")
	require.NoError(t, err)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.EventTelao, msgs[0].Event)
	assert.Equal(t, []Recipient{{Name: "Operador do telão"}}, msgs[0].Payload["recipients"])
}
