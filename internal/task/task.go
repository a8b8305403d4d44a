// Package task deriva tarefas atribuídas e concluídas do log de atividades do staff.
package task

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/apperr"
)

const (
	AssignedPrefix  = "Tarefa atribuída: "
	CompletedPrefix = "Tarefa concluída: "

	// ReportLabelPrefix marca, em reports, as respostas geradas pela conclusão de tarefas.
	ReportLabelPrefix = "[TAREFA] "
	// DefaultCompletionResponse é usado quando a tarefa não tem "Descrição:".
	DefaultCompletionResponse = "Tarefa concluída."

	detailMarker = "Descrição:"
)

var (
	ErrTaskNotFound         = apperr.New(apperr.NotFound, "tarefa não encontrada")
	ErrTaskAlreadyCompleted = apperr.New(apperr.Conflict, "tarefa já concluída")
	ErrStaffOnly            = apperr.New(apperr.Authorization, "somente staff pode concluir tarefas")
	ErrActionRequired       = apperr.New(apperr.Validation, "ação obrigatória")
	ErrCompanyRequired      = apperr.New(apperr.Validation, "empresa obrigatória")
	ErrStaffNotInEvent      = apperr.New(apperr.Validation, "staff não vinculado ao evento")
	ErrCompanyQuote         = apperr.New(apperr.Validation, "nome da empresa não pode conter apóstrofo")
	ErrBoothBrackets        = apperr.New(apperr.Validation, "código do estande não pode conter colchetes")
	ErrUnreadableTask       = apperr.New(apperr.Validation, "texto da tarefa ficaria ilegível; revise ação, empresa, estande e descrição")
)

// Status é o estado derivado de uma tarefa.
type Status string

const (
	StatusPending   Status = "Pendente"
	StatusCompleted Status = "Concluída"
)

var (
	withBoothPattern = regexp.MustCompile(`Realizar '(.+?)' na empresa '([^']+)' \[([^\]]+)\]`)
	legacyPattern    = regexp.MustCompile(`Realizar '(.+?)' na empresa '([^']+)'`)
)

// Activity é uma linha de staff_activities.
type Activity struct {
	ID          uuid.UUID `json:"id"`
	StaffID     uuid.UUID `json:"staffId"`
	StaffName   string    `json:"staffName,omitempty"`
	EventID     uuid.UUID `json:"eventId"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Task é uma tarefa atribuída, com o estado calculado a partir do log.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	StaffID     uuid.UUID  `json:"staffId"`
	StaffName   string     `json:"staffName"`
	EventID     uuid.UUID  `json:"eventId"`
	CompanyName string     `json:"companyName"`
	BoothCode   *string    `json:"boothCode,omitempty"`
	ActionLabel string     `json:"actionLabel"`
	Description string     `json:"description"`
	Detail      string     `json:"detail,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CoreDescription remove o prefixo de atribuição ou conclusão.
func CoreDescription(description string) string {
	switch {
	case strings.HasPrefix(description, AssignedPrefix):
		return strings.TrimPrefix(description, AssignedPrefix)
	case strings.HasPrefix(description, CompletedPrefix):
		return strings.TrimPrefix(description, CompletedPrefix)
	}
	return description
}

// CorrelationKey liga atribuição e conclusão da mesma tarefa.
func CorrelationKey(staffID uuid.UUID, description string) string {
	return staffID.String() + "::" + CoreDescription(description)
}

// Parsed é o resultado da leitura do texto de uma tarefa.
type Parsed struct {
	ActionLabel string
	CompanyName string
	BoothCode   *string
}

// Parse lê ação, empresa e estande; o formato com estande tem precedência.
func Parse(core string) (Parsed, bool) {
	if m := withBoothPattern.FindStringSubmatch(core); m != nil {
		booth := m[3]
		return Parsed{ActionLabel: m[1], CompanyName: m[2], BoothCode: &booth}, true
	}
	if m := legacyPattern.FindStringSubmatch(core); m != nil {
		return Parsed{ActionLabel: m[1], CompanyName: m[2]}, true
	}
	return Parsed{}, false
}

// Detail devolve o texto livre depois de "Descrição:".
func Detail(core string) (string, bool) {
	idx := strings.Index(core, detailMarker)
	if idx < 0 {
		return "", false
	}
	detail := strings.TrimSpace(core[idx+len(detailMarker):])
	return detail, detail != ""
}

// CompletionResponse é o texto gravado em reports quando a tarefa é concluída.
func CompletionResponse(core string) string {
	if detail, ok := Detail(core); ok {
		return detail
	}
	return DefaultCompletionResponse
}

// AssignmentDescription monta o texto completo de uma atribuição.
func AssignmentDescription(action, company, boothCode, detail string) string {
	var b strings.Builder
	b.WriteString(AssignedPrefix)
	fmt.Fprintf(&b, "Realizar '%s' na empresa '%s'", strings.TrimSpace(action), strings.TrimSpace(company))
	if booth := strings.TrimSpace(boothCode); booth != "" {
		fmt.Fprintf(&b, " [%s]", booth)
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		b.WriteString(". " + detailMarker + " " + detail)
	}
	return b.String()
}

// BuildAssignment monta a descrição e confere que ela é lida de volta com os
// mesmos campos; o log de atividades só guarda o texto.
func BuildAssignment(action, company, boothCode, detail string) (string, Parsed, error) {
	action, company = strings.TrimSpace(action), strings.TrimSpace(company)
	boothCode, detail = strings.TrimSpace(boothCode), strings.TrimSpace(detail)

	if strings.Contains(company, "'") {
		return "", Parsed{}, ErrCompanyQuote
	}
	if strings.ContainsAny(boothCode, "[]") {
		return "", Parsed{}, ErrBoothBrackets
	}

	desc := AssignmentDescription(action, company, boothCode, detail)
	core := CoreDescription(desc)
	parsed, ok := Parse(core)
	if !ok || parsed.ActionLabel != action || parsed.CompanyName != company {
		return "", Parsed{}, ErrUnreadableTask
	}
	switch {
	case boothCode == "" && parsed.BoothCode != nil,
		boothCode != "" && (parsed.BoothCode == nil || *parsed.BoothCode != boothCode):
		return "", Parsed{}, ErrUnreadableTask
	}
	if got, _ := Detail(core); got != detail {
		return "", Parsed{}, ErrUnreadableTask
	}
	return desc, parsed, nil
}

// CompletedDescription troca o prefixo de atribuição pelo de conclusão.
func CompletedDescription(assigned string) string {
	return CompletedPrefix + CoreDescription(assigned)
}
