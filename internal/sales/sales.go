// Package sales registra vendas no estande e movimentações de estoque de veículos.
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/apperr"
	"github.com/gestaozabele/eventos/internal/feature"
	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/report"
	"github.com/gestaozabele/eventos/internal/session"
)

// SaleLabelPrefix marca, em reports, as vendas registradas.
const SaleLabelPrefix = "[VENDA] "

var (
	ErrStaffOnly         = apperr.New(apperr.Authorization, "somente staff pode registrar vendas e estoque")
	ErrVehicleNotFound   = apperr.New(apperr.NotFound, "veículo não encontrado")
	ErrVehicleRequired   = apperr.New(apperr.Validation, "veículo obrigatório")
	ErrInvalidQuantity   = apperr.New(apperr.Validation, "quantidade deve ser maior que zero")
	ErrInvalidMovement   = apperr.New(apperr.Validation, "tipo de movimentação inválido")
	ErrInsufficientStock = apperr.New(apperr.Validation, "estoque insuficiente")
)

// MovementType indica entrada ou saída.
type MovementType string

const (
	MovementIn  MovementType = "entrada"
	MovementOut MovementType = "saida"
)

// Vehicle é uma linha de vehicle_stock.
type Vehicle struct {
	ID       uuid.UUID `json:"id"`
	EventID  uuid.UUID `json:"eventId"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
}

// Movement é uma linha de stock_movements.
type Movement struct {
	ID        uuid.UUID    `json:"id"`
	VehicleID uuid.UUID    `json:"vehicleId"`
	EventID   uuid.UUID    `json:"eventId"`
	StaffID   uuid.UUID    `json:"staffId"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SaleInput é o formulário de check-in de venda.
type SaleInput struct {
	VehicleID    uuid.UUID `json:"vehicleId"`
	CustomerName string    `json:"customerName"`
	Notes        string    `json:"notes"`
}

// MovementInput é o formulário de movimentação.
type MovementInput struct {
	VehicleID uuid.UUID    `json:"vehicleId"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Note      string       `json:"note"`
}

// SalesRepository é a persistência de vendas e estoque.
type SalesRepository interface {
	Vehicle(ctx context.Context, eventID, id uuid.UUID) (Vehicle, error)
	ListStock(ctx context.Context, eventID uuid.UUID) ([]Vehicle, error)
	CreateReport(ctx context.Context, in report.NewReport) (report.Report, error)
	// ApplyMovement grava a movimentação e ajusta o saldo juntos; ErrInsufficientStock se ficaria negativo.
	ApplyMovement(ctx context.Context, m Movement) (Movement, Vehicle, error)
}

type grantChecker interface {
	Require(ctx context.Context, staffID, eventID uuid.UUID, f feature.Feature) error
}

type Service struct {
	repo     SalesRepository
	grants   grantChecker
	notifier notify.Notifier
}

func NewService(repo SalesRepository, grants grantChecker, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, grants: grants, notifier: notifier}
}

func (s *Service) require(ctx context.Context, sess session.Session, f feature.Feature) error {
	if sess.Staff == nil {
		return ErrStaffOnly
	}
	return s.grants.Require(ctx, sess.Staff.StaffID, sess.EventID(), f)
}

// SalesCheckin registra uma venda como relatório e avisa o webhook de vendas.
func (s *Service) SalesCheckin(ctx context.Context, sess session.Session, in SaleInput) (*report.Report, error) {
	if err := s.require(ctx, sess, feature.SalesCheckin); err != nil {
		return nil, err
	}
	if in.VehicleID == uuid.Nil {
		return nil, ErrVehicleRequired
	}
	vehicle, err := s.repo.Vehicle(ctx, sess.EventID(), in.VehicleID)
	if err != nil {
		return nil, err
	}

	staffID := sess.Staff.StaffID
	rep, err := s.repo.CreateReport(ctx, report.NewReport{
		EventID:     sess.EventID(),
		CompanyID:   sess.CompanyID(),
		BoothCode:   sess.BoothCode(),
		StaffID:     &staffID,
		ActionLabel: SaleLabelPrefix + vehicle.Name,
		Response:    saleResponse(in),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Message{
		Event:   notify.EventSale,
		EventID: sess.EventID(),
		Payload: map[string]any{
			"reportId":     rep.ID,
			"vehicle":      vehicle.Name,
			"customerName": strings.TrimSpace(in.CustomerName),
			"boothCode":    sess.BoothCode(),
			"companyName":  sess.Staff.CompanyName,
			"staffName":    sess.Staff.StaffName,
		},
	})
	return &rep, nil
}

func saleResponse(in SaleInput) string {
	parts := []string{"Venda registrada"}
	if name := strings.TrimSpace(in.CustomerName); name != "" {
		parts = append(parts, "Cliente: "+name)
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		parts = append(parts, "Observações: "+notes)
	}
	return strings.Join(parts, ". ")
}

// RecordStockMovement ajusta o saldo do veículo; o saldo nunca fica negativo.
func (s *Service) RecordStockMovement(ctx context.Context, sess session.Session, in MovementInput) (*Movement, *Vehicle, error) {
	if err := s.require(ctx, sess, feature.StockControl); err != nil {
		return nil, nil, err
	}
	if in.VehicleID == uuid.Nil {
		return nil, nil, ErrVehicleRequired
	}
	if in.Type != MovementIn && in.Type != MovementOut {
		return nil, nil, ErrInvalidMovement
	}
	if in.Quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}

	m, v, err := s.repo.ApplyMovement(ctx, Movement{
		VehicleID: in.VehicleID,
		EventID:   sess.EventID(),
		StaffID:   sess.Staff.StaffID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Note:      strings.TrimSpace(in.Note),
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("vehicle_id", v.ID.String()).Str("type", string(m.Type)).Int("quantity", m.Quantity).Int("balance", v.Quantity).Msg("estoque movimentado")
	return &m, &v, nil
}

// Stock lista o saldo do evento para quem controla estoque.
func (s *Service) Stock(ctx context.Context, sess session.Session) ([]Vehicle, error) {
	if err := s.require(ctx, sess, feature.StockControl); err != nil {
		return nil, err
	}
	return s.repo.ListStock(ctx, sess.EventID())
}

// Delta é a variação de saldo de uma movimentação.
func (m Movement) Delta() int {
	if m.Type == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}
