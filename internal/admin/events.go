package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/apperr"
)

var ErrEventNotFound = apperr.New(apperr.NotFound, "evento não encontrado")

// Event é a visão do back office sobre um evento.
type Event struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	IsActive           bool       `json:"isActive"`
	OrganizerCompanyID *uuid.UUID `json:"organizerCompanyId,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// DeleteSummary conta as linhas afetadas por tabela na exclusão de um evento.
type DeleteSummary map[string]int64

// EventRepository persiste eventos.
type EventRepository interface {
	ListEvents(ctx context.Context, organizerID *uuid.UUID) ([]Event, error)
	EventByID(ctx context.Context, id uuid.UUID) (Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) (DeleteSummary, error)
}

// EventService aplica o escopo do organizador sobre os eventos.
type EventService struct {
	repo EventRepository
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{repo: repo}
}

// List devolve todos os eventos para ADMIN e só os da própria organizadora para ORGANIZER.
func (s *EventService) List(ctx context.Context, p Principal) ([]Event, error) {
	if p.IsAdmin() {
		return s.repo.ListEvents(ctx, nil)
	}
	if p.OrganizerID == nil {
		return nil, ErrForbidden
	}
	return s.repo.ListEvents(ctx, p.OrganizerID)
}

// Authorize carrega o evento e confere se o usuário pode operá-lo.
// Evento de outra organizadora responde como inexistente.
func (s *EventService) Authorize(ctx context.Context, p Principal, eventID uuid.UUID) (Event, error) {
	event, err := s.repo.EventByID(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if p.IsAdmin() {
		return event, nil
	}
	if p.OrganizerID == nil || event.OrganizerCompanyID == nil || *p.OrganizerID != *event.OrganizerCompanyID {
		log.Warn().
			Str("user_id", p.UserID.String()).
			Str("event_id", eventID.String()).
			Msg("admin: evento fora do escopo do organizador")
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

// Delete remove o evento e todas as linhas dependentes numa única transação.
func (s *EventService) Delete(ctx context.Context, p Principal, eventID uuid.UUID) (DeleteSummary, error) {
	if _, err := s.Authorize(ctx, p, eventID); err != nil {
		return nil, err
	}
	summary, err := s.repo.DeleteEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", p.UserID.String()).
		Str("event_id", eventID.String()).
		Interface("rows", summary).
		Msg("evento excluído")
	return summary, nil
}
