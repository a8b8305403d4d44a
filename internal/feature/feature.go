// Package feature controla as permissões extras de staff por evento.
package feature

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/apperr"
)

var (
	ErrInvalidFeature = apperr.New(apperr.Validation, "permissão desconhecida")
	ErrNotGranted     = apperr.New(apperr.Authorization, "staff sem permissão para esta operação")
)

// Feature é uma capacidade concedida a um staff em um evento.
type Feature string

const (
	SalesCheckin Feature = "sales_checkin"
	NotifyCall   Feature = "notify_call"
	StockControl Feature = "stock_control"
)

// Rótulos reservados com que as permissões eram gravadas em report_button_configs.
const (
	LegacySalesCheckinLabel = "__SALES_CHECKIN_CONFIG__"
	LegacyNotifyCallLabel   = "__NOTIFY_CALL_CONFIG__"
	LegacyStockControlLabel = "__STOCK_CONTROL_CONFIG__"
)

var legacyLabels = map[string]Feature{
	LegacySalesCheckinLabel: SalesCheckin,
	LegacyNotifyCallLabel:   NotifyCall,
	LegacyStockControlLabel: StockControl,
}

// All lista as permissões conhecidas.
func All() []Feature {
	return []Feature{SalesCheckin, NotifyCall, StockControl}
}

// Parse valida o nome de uma permissão.
func Parse(raw string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range All() {
		if f == known {
			return f, nil
		}
	}
	return "", ErrInvalidFeature
}

// LegacyFeature traduz um rótulo reservado para a permissão equivalente.
func LegacyFeature(label string) (Feature, bool) {
	f, ok := legacyLabels[strings.TrimSpace(label)]
	return f, ok
}

// LegacyLabel é o inverso de LegacyFeature.
func LegacyLabel(f Feature) string {
	for label, feat := range legacyLabels {
		if feat == f {
			return label
		}
	}
	return ""
}

// Grant concede uma permissão.
type Grant struct {
	StaffID   uuid.UUID `json:"staffId"`
	EventID   uuid.UUID `json:"eventId"`
	Feature   Feature   `json:"feature"`
	CreatedAt time.Time `json:"createdAt"`
}

// GrantRepository é a persistência das permissões.
type GrantRepository interface {
	Has(ctx context.Context, staffID, eventID uuid.UUID, f Feature) (bool, error)
	ListForStaff(ctx context.Context, staffID, eventID uuid.UUID) ([]Feature, error)
	Grant(ctx context.Context, g Grant) error
	Revoke(ctx context.Context, staffID, eventID uuid.UUID, f Feature) error
}

// Service aplica as regras de concessão.
type Service struct {
	repo GrantRepository
}

func NewService(repo GrantRepository) *Service {
	return &Service{repo: repo}
}

// Require falha com ErrNotGranted quando o staff não tem a permissão no evento.
func (s *Service) Require(ctx context.Context, staffID, eventID uuid.UUID, f Feature) error {
	ok, err := s.repo.Has(ctx, staffID, eventID, f)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotGranted
	}
	return nil
}

func (s *Service) List(ctx context.Context, staffID, eventID uuid.UUID) ([]Feature, error) {
	return s.repo.ListForStaff(ctx, staffID, eventID)
}

func (s *Service) Grant(ctx context.Context, staffID, eventID uuid.UUID, raw string) (Feature, error) {
	f, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return f, s.repo.Grant(ctx, Grant{StaffID: staffID, EventID: eventID, Feature: f})
}

func (s *Service) Revoke(ctx context.Context, staffID, eventID uuid.UUID, raw string) error {
	f, err := Parse(raw)
	if err != nil {
		return err
	}
	return s.repo.Revoke(ctx, staffID, eventID, f)
}
