package task

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/report"
	"github.com/gestaozabele/eventos/internal/session"
)

// Completion reúne as duas escritas da conclusão de uma tarefa.
type Completion struct {
	Activity Activity
	Report   report.NewReport
}

// TaskRepository é o acesso a staff_activities usado pelo serviço.
type TaskRepository interface {
	ActivitiesForStaff(ctx context.Context, staffID, eventID uuid.UUID) ([]Activity, error)
	ActivitiesForEvent(ctx context.Context, eventID uuid.UUID) ([]Activity, error)
	// StaffInEvent devolve o nome do staff, ou ErrStaffNotInEvent.
	StaffInEvent(ctx context.Context, staffID, eventID uuid.UUID) (string, error)
	InsertActivity(ctx context.Context, a Activity) (Activity, error)
	// Complete grava atividade e relatório juntos; ErrTaskAlreadyCompleted se já houver conclusão.
	Complete(ctx context.Context, c Completion) (Activity, error)
}

// AssignInput descreve uma nova atribuição.
type AssignInput struct {
	EventID     uuid.UUID `json:"eventId"`
	StaffID     uuid.UUID `json:"staffId"`
	ActionLabel string    `json:"actionLabel"`
	CompanyName string    `json:"companyName"`
	BoothCode   string    `json:"boothCode"`
	Detail      string    `json:"detail"`
}

type Service struct {
	repo     TaskRepository
	notifier notify.Notifier
}

func NewService(repo TaskRepository, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, notifier: notifier}
}

// Assign grava a atividade de atribuição. Repetir o mesmo texto para o mesmo
// staff devolve a tarefa existente sem gravar de novo.
func (s *Service) Assign(ctx context.Context, in AssignInput) (*Task, error) {
	if strings.TrimSpace(in.ActionLabel) == "" {
		return nil, ErrActionRequired
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, ErrCompanyRequired
	}
	desc, _, err := BuildAssignment(in.ActionLabel, in.CompanyName, in.BoothCode, in.Detail)
	if err != nil {
		return nil, err
	}
	name, err := s.repo.StaffInEvent(ctx, in.StaffID, in.EventID)
	if err != nil {
		return nil, err
	}

	existing, err := s.ListForStaff(ctx, in.StaffID, in.EventID)
	if err != nil {
		return nil, err
	}
	core := CoreDescription(desc)
	for i := range existing {
		if existing[i].Description == core {
			return &existing[i], nil
		}
	}

	act, err := s.repo.InsertActivity(ctx, Activity{
		StaffID:     in.StaffID,
		EventID:     in.EventID,
		Description: desc,
	})
	if err != nil {
		return nil, err
	}
	act.StaffName = name

	t := Reconcile([]Activity{act})[0]
	log.Info().Str("staff_id", in.StaffID.String()).Str("event_id", in.EventID.String()).Str("action", t.ActionLabel).Msg("tarefa atribuída")

	payload := map[string]any{
		"taskId":      t.ID,
		"staffId":     t.StaffID,
		"staffName":   name,
		"actionLabel": t.ActionLabel,
		"companyName": t.CompanyName,
	}
	if t.BoothCode != nil {
		payload["boothCode"] = *t.BoothCode
	}
	s.notifier.Notify(ctx, notify.Message{Event: notify.EventTaskAssigned, EventID: in.EventID, Payload: payload})
	return &t, nil
}

// ListForStaff devolve todas as tarefas do staff no evento.
func (s *Service) ListForStaff(ctx context.Context, staffID, eventID uuid.UUID) ([]Task, error) {
	acts, err := s.repo.ActivitiesForStaff(ctx, staffID, eventID)
	if err != nil {
		return nil, err
	}
	return Reconcile(acts), nil
}

// PendingForStaff devolve só as tarefas pendentes.
func (s *Service) PendingForStaff(ctx context.Context, staffID, eventID uuid.UUID) ([]Task, error) {
	tasks, err := s.ListForStaff(ctx, staffID, eventID)
	if err != nil {
		return nil, err
	}
	return Pending(tasks), nil
}

// ListForEvent devolve as tarefas de todos os staff do evento.
func (s *Service) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]Task, error) {
	acts, err := s.repo.ActivitiesForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return Reconcile(acts), nil
}

// Complete conclui uma tarefa pendente do staff da sessão.
func (s *Service) Complete(ctx context.Context, sess session.Session, taskID uuid.UUID) (*Task, error) {
	if sess.Staff == nil {
		return nil, ErrStaffOnly
	}

	tasks, err := s.ListForStaff(ctx, sess.Staff.StaffID, sess.EventID())
	if err != nil {
		return nil, err
	}
	var found *Task
	for i := range tasks {
		if tasks[i].ID == taskID {
			found = &tasks[i]
			break
		}
	}
	if found == nil {
		return nil, ErrTaskNotFound
	}
	if found.Status == StatusCompleted {
		return nil, ErrTaskAlreadyCompleted
	}

	booth := sess.BoothCode()
	if found.BoothCode != nil {
		booth = *found.BoothCode
	}
	staffID := sess.Staff.StaffID

	done, err := s.repo.Complete(ctx, Completion{
		Activity: Activity{
			StaffID:     staffID,
			EventID:     sess.EventID(),
			Description: CompletedPrefix + found.Description,
		},
		Report: report.NewReport{
			EventID:     sess.EventID(),
			CompanyID:   sess.CompanyID(),
			BoothCode:   booth,
			StaffID:     &staffID,
			ActionLabel: ReportLabelPrefix + found.ActionLabel,
			Response:    CompletionResponse(found.Description),
		},
	})
	if err != nil {
		return nil, err
	}

	completedAt := done.Timestamp
	found.Status = StatusCompleted
	found.CompletedAt = &completedAt

	s.notifier.Notify(ctx, notify.Message{
		Event:   notify.EventTaskCompleted,
		EventID: sess.EventID(),
		Payload: map[string]any{
			"taskId":      found.ID,
			"staffId":     staffID,
			"staffName":   sess.Staff.StaffName,
			"actionLabel": found.ActionLabel,
			"companyName": found.CompanyName,
			"boothCode":   booth,
		},
	})

	return found, nil
}
