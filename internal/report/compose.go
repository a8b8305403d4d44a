package report

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Answer traz os campos que o cliente pode preencher; cada tipo usa os seus.
type Answer struct {
	Text           string   `json:"text"`
	Choice         string   `json:"choice"`
	Selected       []string `json:"selected"`
	FollowUpAnswer string   `json:"followUpAnswer"`
}

// Compose monta o texto persistido da resposta conforme o tipo do botão.
func Compose(btn ButtonConfig, ans Answer) (string, error) {
	switch btn.Type {
	case OpenText:
		text := strings.TrimSpace(ans.Text)
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil

	case MultipleChoice:
		choice := strings.TrimSpace(ans.Choice)
		if choice == "" {
			return "", ErrEmptyResponse
		}
		if !hasOption(btn.Options, choice) {
			return "", ErrInvalidOption
		}
		return choice, nil

	case Checklist:
		selected := make([]string, 0, len(ans.Selected))
		for _, item := range ans.Selected {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if !hasOption(btn.Options, item) {
				return "", ErrInvalidOption
			}
			selected = append(selected, item)
		}
		if len(selected) == 0 {
			return EmptyChecklist, nil
		}
		return strings.Join(selected, ", "), nil

	case YesNo:
		choice := strings.TrimSpace(ans.Choice)
		if choice == "" {
			return "", ErrEmptyResponse
		}
		if !hasOption(yesNoOptions(btn), choice) {
			return "", ErrInvalidOption
		}
		follow := strings.TrimSpace(ans.FollowUpAnswer)
		if btn.FollowUp != nil && btn.FollowUp.TriggerValue == choice && follow != "" {
			return fmt.Sprintf("%s - %s: %s", choice, btn.FollowUp.Question, follow), nil
		}
		return choice, nil

	case NotifyCall:
		if text := strings.TrimSpace(ans.Text); text != "" {
			return text, nil
		}
		return DefaultCallResponse, nil
	}
	return "", ErrUnknownType
}

func yesNoOptions(btn ButtonConfig) []string {
	if len(btn.Options) > 0 {
		return btn.Options
	}
	return []string{"Sim", "Não"}
}

// hasOption aceita qualquer valor quando o botão não lista opções.
func hasOption(options []string, value string) bool {
	if len(options) == 0 {
		return true
	}
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

// Visible filtra os botões oferecidos a um staff: reservados e já respondidos
// ficam de fora; botão de staff específico vale só para ele, botão de
// departamento só para o departamento do staff no evento, e o resto é geral.
func Visible(buttons []ButtonConfig, staffID uuid.UUID, departmentID *uuid.UUID, answered map[string]struct{}) []ButtonConfig {
	out := make([]ButtonConfig, 0, len(buttons))
	for _, btn := range buttons {
		if IsReserved(btn.Label) {
			continue
		}
		if _, done := answered[btn.ID.String()]; done {
			continue
		}
		if !offeredTo(btn, staffID, departmentID) {
			continue
		}
		out = append(out, btn)
	}
	return out
}

func offeredTo(btn ButtonConfig, staffID uuid.UUID, departmentID *uuid.UUID) bool {
	if btn.StaffID != nil {
		return *btn.StaffID == staffID
	}
	if btn.DepartmentID == nil {
		return true
	}
	return departmentID != nil && *btn.DepartmentID == *departmentID
}
