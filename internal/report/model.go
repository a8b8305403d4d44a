package report

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/apperr"
)

var (
	ErrButtonNotFound   = apperr.New(apperr.NotFound, "botão de ação não encontrado")
	ErrButtonNotOffered = apperr.New(apperr.Authorization, "botão de ação não disponível para este staff")
	ErrAlreadyAnswered  = apperr.New(apperr.Conflict, "botão já respondido nesta sessão")
	ErrEmptyResponse    = apperr.New(apperr.Validation, "resposta obrigatória")
	ErrInvalidOption    = apperr.New(apperr.Validation, "opção inválida para este botão")
	ErrUnknownType      = apperr.New(apperr.Validation, "tipo de botão desconhecido")
	ErrStaffOnly        = apperr.New(apperr.Authorization, "somente staff pode responder relatórios")
)

// ButtonType define como a resposta é coletada e composta.
type ButtonType string

const (
	OpenText       ButtonType = "OPEN_TEXT"
	MultipleChoice ButtonType = "MULTIPLE_CHOICE"
	YesNo          ButtonType = "YES_NO"
	Checklist      ButtonType = "CHECKLIST"
	NotifyCall     ButtonType = "NOTIFY_CALL"
)

const (
	// EmptyChecklist é gravado quando um checklist é enviado sem itens.
	EmptyChecklist = "Nenhum item selecionado."
	// DefaultCallResponse é gravado quando o chamado vem sem texto.
	DefaultCallResponse = "Chamado solicitado."
)

// FollowUp é a pergunta extra de um YES_NO, exibida quando a resposta é TriggerValue.
type FollowUp struct {
	TriggerValue string `json:"triggerValue"`
	Question     string `json:"question"`
}

// ButtonConfig é um botão de ação configurado para o evento.
type ButtonConfig struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"eventId"`
	Label        string     `json:"label"`
	Question     string     `json:"question"`
	Type         ButtonType `json:"type"`
	Options      []string   `json:"options,omitempty"`
	FollowUp     *FollowUp  `json:"followUp,omitempty"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
	StaffID      *uuid.UUID `json:"staffId,omitempty"`
}

// IsReserved indica rótulos internos no formato __NOME__, que não são botões reais.
func IsReserved(label string) bool {
	label = strings.TrimSpace(label)
	return len(label) > 4 && strings.HasPrefix(label, "__") && strings.HasSuffix(label, "__")
}

// Report é uma resposta enviada no estande.
type Report struct {
	ID               uuid.UUID  `json:"id"`
	EventID          uuid.UUID  `json:"eventId"`
	CompanyID        uuid.UUID  `json:"companyId"`
	BoothCode        string     `json:"boothCode"`
	StaffID          *uuid.UUID `json:"staffId,omitempty"`
	CollaboratorName *string    `json:"collaboratorName,omitempty"`
	ActionLabel      string     `json:"actionLabel"`
	Response         string     `json:"response"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// NewReport reúne os campos de inserção.
type NewReport struct {
	EventID          uuid.UUID
	CompanyID        uuid.UUID
	BoothCode        string
	StaffID          *uuid.UUID
	CollaboratorName *string
	ActionLabel      string
	Response         string
}
