// Package ranking classifica o staff de um evento pela produção de relatórios.
package ranking

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry é uma linha do ranking.
type Entry struct {
	Position       int        `json:"position"`
	StaffID        uuid.UUID  `json:"staffId"`
	StaffName      string     `json:"staffName"`
	DepartmentName *string    `json:"departmentName,omitempty"`
	Reports        int        `json:"reports"`
	TasksCompleted int        `json:"tasksCompleted"`
	Sales          int        `json:"sales"`
	LastReportAt   *time.Time `json:"lastReportAt,omitempty"`
}

// Source agrega os números brutos por staff.
type Source interface {
	Aggregate(ctx context.Context, eventID uuid.UUID) ([]Entry, error)
}

// Rank ordena por relatórios, depois tarefas concluídas, depois nome. Empates
// em relatórios e tarefas dividem a posição (1, 1, 3).
func Rank(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Reports != out[j].Reports {
			return out[i].Reports > out[j].Reports
		}
		if out[i].TasksCompleted != out[j].TasksCompleted {
			return out[i].TasksCompleted > out[j].TasksCompleted
		}
		return strings.ToLower(out[i].StaffName) < strings.ToLower(out[j].StaffName)
	})
	for i := range out {
		if i > 0 && out[i].Reports == out[i-1].Reports && out[i].TasksCompleted == out[i-1].TasksCompleted {
			out[i].Position = out[i-1].Position
			continue
		}
		out[i].Position = i + 1
	}
	return out
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

func (s *Service) Ranking(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	entries, err := s.source.Aggregate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return Rank(entries), nil
}

// Export gera a planilha do ranking.
func (s *Service) Export(ctx context.Context, eventID uuid.UUID, eventName string) ([]byte, error) {
	entries, err := s.Ranking(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return WriteXLSX(eventName, entries)
}
