package call

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/session"
)

// CallRepository é a persistência usada pelo serviço.
type CallRepository interface {
	Create(ctx context.Context, in OpenInput) (*Call, error)
	Get(ctx context.Context, kind Kind, id uuid.UUID) (*Call, error)
	List(ctx context.Context, filter Filter) ([]Call, error)
	Resolve(ctx context.Context, in ResolveInput) (*Call, bool, error)
	Recipients(ctx context.Context, eventID uuid.UUID) ([]Recipient, error)
}

// Service reúne as regras de abertura e conclusão de chamados.
type Service struct {
	repo     CallRepository
	notifier notify.Notifier
}

func NewService(repo CallRepository, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, notifier: notifier}
}

// Open cria um chamado pendente a partir da sessão e dispara o webhook do tipo.
func (s *Service) Open(ctx context.Context, sess session.Session, kind Kind, message string) (*Call, error) {
	if _, err := kind.table(); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrMessageRequired
	}

	c, err := s.repo.Create(ctx, OpenInput{
		Kind:        kind,
		EventID:     sess.EventID(),
		CompanyID:   sess.CompanyID(),
		BoothCode:   sess.BoothCode(),
		RequestedBy: sess.DisplayName(),
		Message:     message,
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"id":          c.ID,
		"boothCode":   c.BoothCode,
		"companyId":   c.CompanyID,
		"requestedBy": c.RequestedBy,
		"message":     c.Message,
		"createdAt":   c.CreatedAt,
	}
	event := notify.EventCall
	if kind == TelaoRequest {
		event = notify.EventTelao
		recipients, err := s.repo.Recipients(ctx, c.EventID)
		if err != nil {
			log.Warn().Err(err).Str("event_id", c.EventID.String()).Msg("telão: falha ao carregar destinatários")
		}
		payload["recipients"] = recipients
	}
	s.notifier.Notify(ctx, notify.Message{Event: event, EventID: c.EventID, Payload: payload})

	return c, nil
}

// Resolve conclui o chamado uma única vez; a segunda tentativa recebe ErrAlreadyResolved
// e não altera quem resolveu, o retorno ou a data.
func (s *Service) Resolve(ctx context.Context, sess session.Session, kind Kind, id uuid.UUID, feedback string) (*Call, error) {
	if sess.Staff == nil {
		return nil, ErrStaffOnly
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, ErrFeedbackRequired
	}

	c, changed, err := s.repo.Resolve(ctx, ResolveInput{
		Kind:     kind,
		ID:       id,
		EventID:  sess.EventID(),
		StaffID:  sess.Staff.StaffID,
		Feedback: feedback,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		log.Info().Str("kind", string(kind)).Str("call_id", id.String()).Str("staff_id", sess.Staff.StaffID.String()).Msg("chamado concluído")
		return c, nil
	}

	current, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if current.EventID != sess.EventID() {
		return nil, ErrNotFound
	}
	if !ValidTransition(ActionResolve, current.Status) {
		return nil, ErrAlreadyResolved
	}
	return nil, ErrNotFound
}

// ListPending lista pendências do evento; colaboradores veem só as da própria empresa.
func (s *Service) ListPending(ctx context.Context, sess session.Session, kind Kind) ([]Call, error) {
	return s.repo.List(ctx, sessionFilter(sess, kind, StatusPending))
}

// ListResolved lista o histórico de concluídos.
func (s *Service) ListResolved(ctx context.Context, sess session.Session, kind Kind) ([]Call, error) {
	return s.repo.List(ctx, sessionFilter(sess, kind, StatusResolved))
}

// ListForEvent é a visão administrativa, sem filtro de empresa.
func (s *Service) ListForEvent(ctx context.Context, kind Kind, eventID uuid.UUID, status Status) ([]Call, error) {
	return s.repo.List(ctx, Filter{Kind: kind, EventID: eventID, Status: status})
}

func sessionFilter(sess session.Session, kind Kind, status Status) Filter {
	f := Filter{Kind: kind, EventID: sess.EventID(), Status: status}
	if sess.Kind == session.KindCollaborator {
		companyID := sess.CompanyID()
		f.CompanyID = &companyID
	}
	return f
}
