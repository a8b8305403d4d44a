package ranking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Aggregate conta relatórios por staff vinculado ao evento, inclusive quem não enviou nada.
func (r *Repository) Aggregate(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.name, d.name,
		       count(rp.id),
		       count(rp.id) FILTER (WHERE rp.action_label LIKE '[TAREFA] %'),
		       count(rp.id) FILTER (WHERE rp.action_label LIKE '[VENDA] %'),
		       max(rp.created_at)
		FROM staff_event_assignments sea
		JOIN staff s ON s.id = sea.staff_id
		LEFT JOIN departments d ON d.id = sea.department_id
		LEFT JOIN reports rp ON rp.staff_id = s.id AND rp.event_id = sea.event_id
		WHERE sea.event_id = $1
		GROUP BY s.id, s.name, d.name
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StaffID, &e.StaffName, &e.DepartmentName, &e.Reports, &e.TasksCompleted, &e.Sales, &e.LastReportAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
