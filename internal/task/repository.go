package task

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

// Repository lê e grava staff_activities.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const activitySelect = `
	SELECT a.id, a.staff_id, s.name, a.event_id, a.description, a.timestamp
	FROM staff_activities a
	JOIN staff s ON s.id = a.staff_id`

func (r *Repository) ActivitiesForStaff(ctx context.Context, staffID, eventID uuid.UUID) ([]Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, activitySelect+`
		WHERE a.staff_id = $1 AND a.event_id = $2
		ORDER BY a.timestamp DESC
	`, staffID, eventID)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (r *Repository) ActivitiesForEvent(ctx context.Context, eventID uuid.UUID) ([]Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, activitySelect+`
		WHERE a.event_id = $1
		ORDER BY a.timestamp DESC
	`, eventID)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func (r *Repository) StaffInEvent(ctx context.Context, staffID, eventID uuid.UUID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var name string
	err := r.db.QueryRow(ctx, `
		SELECT s.name
		FROM staff s
		JOIN staff_event_assignments sea ON sea.staff_id = s.id
		WHERE s.id = $1 AND sea.event_id = $2
		LIMIT 1
	`, staffID, eventID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrStaffNotInEvent
	}
	return name, err
}

func (r *Repository) InsertActivity(ctx context.Context, a Activity) (Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return insertActivity(ctx, r.db, a)
}

// Complete serializa conclusões da mesma tarefa com um advisory lock da transação.
func (r *Repository) Complete(ctx context.Context, c Completion) (Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out Activity
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		key := CorrelationKey(c.Activity.StaffID, c.Activity.Description)
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM staff_activities
				WHERE staff_id = $1 AND event_id = $2 AND description = $3
			)
		`, c.Activity.StaffID, c.Activity.EventID, c.Activity.Description).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrTaskAlreadyCompleted
		}

		act, err := insertActivity(ctx, tx, c.Activity)
		if err != nil {
			return err
		}
		if _, err := report.InsertReport(ctx, tx, c.Report); err != nil {
			return err
		}
		out = act
		return nil
	})
	return out, err
}

func insertActivity(ctx context.Context, q report.Querier, a Activity) (Activity, error) {
	out := a
	err := q.QueryRow(ctx, `
		INSERT INTO staff_activities (staff_id, event_id, description)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp
	`, a.StaffID, a.EventID, a.Description).Scan(&out.ID, &out.Timestamp)
	return out, err
}

func collectActivities(rows pgx.Rows) ([]Activity, error) {
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.StaffID, &a.StaffName, &a.EventID, &a.Description, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
