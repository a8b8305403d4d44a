package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/eventos/internal/db"
	"github.com/gestaozabele/eventos/internal/report"
)

const dbTimeout = 3 * time.Second

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Vehicle(ctx context.Context, eventID, id uuid.UUID) (Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var v Vehicle
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, name, quantity FROM vehicle_stock WHERE id = $1 AND event_id = $2
	`, id, eventID).Scan(&v.ID, &v.EventID, &v.Name, &v.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, ErrVehicleNotFound
	}
	return v, err
}

func (r *Repository) ListStock(ctx context.Context, eventID uuid.UUID) ([]Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, name, quantity FROM vehicle_stock WHERE event_id = $1 ORDER BY name
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.EventID, &v.Name, &v.Quantity); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repository) CreateReport(ctx context.Context, in report.NewReport) (report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return report.InsertReport(ctx, r.pool, in)
}

// ApplyMovement trava a linha do veículo para que movimentações simultâneas não furem o saldo.
func (r *Repository) ApplyMovement(ctx context.Context, m Movement) (Movement, Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		out Movement
		v   Vehicle
	)
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, event_id, name, quantity FROM vehicle_stock
			WHERE id = $1 AND event_id = $2
			FOR UPDATE
		`, m.VehicleID, m.EventID).Scan(&v.ID, &v.EventID, &v.Name, &v.Quantity)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVehicleNotFound
		}
		if err != nil {
			return err
		}

		balance := v.Quantity + m.Delta()
		if balance < 0 {
			return ErrInsufficientStock
		}
		if _, err := tx.Exec(ctx, `UPDATE vehicle_stock SET quantity = $1 WHERE id = $2`, balance, v.ID); err != nil {
			return err
		}
		v.Quantity = balance

		out = m
		return tx.QueryRow(ctx, `
			INSERT INTO stock_movements (vehicle_id, event_id, staff_id, movement_type, quantity, note)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, m.VehicleID, m.EventID, m.StaffID, string(m.Type), m.Quantity, m.Note).Scan(&out.ID, &out.CreatedAt)
	})
	if err != nil {
		return Movement{}, Vehicle{}, err
	}
	return out, v, nil
}
