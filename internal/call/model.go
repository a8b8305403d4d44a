// Package call cuida dos chamados de empresas e das solicitações de telão.
package call

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/apperr"
)

var (
	ErrNotFound         = apperr.New(apperr.NotFound, "chamado não encontrado")
	ErrAlreadyResolved  = apperr.New(apperr.Conflict, "chamado já concluído")
	ErrFeedbackRequired = apperr.New(apperr.Validation, "retorno do atendimento obrigatório")
	ErrMessageRequired  = apperr.New(apperr.Validation, "mensagem obrigatória")
	ErrStaffOnly        = apperr.New(apperr.Authorization, "somente staff pode concluir chamados")
	ErrInvalidKind      = apperr.New(apperr.Validation, "tipo de chamado inválido")
)

// Kind separa as duas tabelas com o mesmo ciclo de vida.
type Kind string

const (
	CompanyCall  Kind = "company_call"
	TelaoRequest Kind = "telao_request"
)

func (k Kind) table() (string, error) {
	switch k {
	case CompanyCall:
		return "company_calls", nil
	case TelaoRequest:
		return "telao_requests", nil
	}
	return "", ErrInvalidKind
}

// Status do chamado. Não há caminho de volta para Pendente.
type Status string

const (
	StatusPending  Status = "Pendente"
	StatusResolved Status = "Concluído"
)

// Action é uma operação que muda o status.
type Action string

const ActionResolve Action = "resolve"

var transitionMap = map[Action][]Status{
	ActionResolve: {StatusPending},
}

// ValidTransition informa se a ação é permitida a partir do status atual.
func ValidTransition(action Action, from Status) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

// fromStatuses devolve os status de origem aceitos pela ação.
func fromStatuses(action Action) []string {
	out := make([]string, 0, len(transitionMap[action]))
	for _, st := range transitionMap[action] {
		out = append(out, string(st))
	}
	return out
}

// Call é um chamado ou solicitação de telão.
type Call struct {
	ID                uuid.UUID  `json:"id"`
	Kind              Kind       `json:"kind"`
	EventID           uuid.UUID  `json:"eventId"`
	CompanyID         uuid.UUID  `json:"companyId"`
	BoothCode         string     `json:"boothCode"`
	RequestedBy       string     `json:"requestedBy"`
	Message           string     `json:"message"`
	Status            Status     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	ResolvedByStaffID *uuid.UUID `json:"resolvedByStaffId,omitempty"`
	ResolverFeedback  *string    `json:"resolverFeedback,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
}

// OpenInput traz os campos de abertura.
type OpenInput struct {
	Kind        Kind
	EventID     uuid.UUID
	CompanyID   uuid.UUID
	BoothCode   string
	RequestedBy string
	Message     string
}

// ResolveInput traz os campos da conclusão.
type ResolveInput struct {
	Kind     Kind
	ID       uuid.UUID
	EventID  uuid.UUID
	StaffID  uuid.UUID
	Feedback string
}

// Filter restringe listagens.
type Filter struct {
	Kind      Kind
	EventID   uuid.UUID
	CompanyID *uuid.UUID
	Status    Status
	Limit     int
}

// Recipient recebe as notificações de telão do evento.
type Recipient struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}
