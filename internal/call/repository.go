package call

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

const callColumns = `id, event_id, company_id, booth_code, requested_by, message, status, created_at, resolved_by_staff_id, resolver_feedback, resolved_at`

// Repository provê acesso a company_calls e telao_requests.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, in OpenInput) (*Call, error) {
	table, err := in.Kind.table()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO `+table+` (event_id, company_id, booth_code, requested_by, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+callColumns,
		in.EventID, in.CompanyID, in.BoothCode, in.RequestedBy, in.Message, string(StatusPending))
	return scanCall(row, in.Kind)
}

func (r *Repository) Get(ctx context.Context, kind Kind, id uuid.UUID) (*Call, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM `+table+` WHERE id = $1`, id)
	c, err := scanCall(row, kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Call, error) {
	table, err := filter.Kind.table()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	clauses := []string{"event_id = $1"}
	args := []any{filter.EventID}
	idx := 2

	if filter.CompanyID != nil {
		clauses = append(clauses, fmt.Sprintf("company_id = $%d", idx))
		args = append(args, *filter.CompanyID)
		idx++
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(filter.Status))
		idx++
	}

	order := "created_at DESC"
	if filter.Status == StatusResolved {
		order = "resolved_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	query := `SELECT ` + callColumns + ` FROM ` + table +
		` WHERE ` + strings.Join(clauses, " AND ") +
		fmt.Sprintf(" ORDER BY %s LIMIT $%d", order, idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows, filter.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Resolve só altera linhas cujo status atual aceita a ação; devolve false quando nada mudou.
func (r *Repository) Resolve(ctx context.Context, in ResolveInput) (*Call, bool, error) {
	table, err := in.Kind.table()
	if err != nil {
		return nil, false, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		UPDATE `+table+`
		SET status = $1, resolved_by_staff_id = $2, resolver_feedback = $3, resolved_at = now()
		WHERE id = $4 AND event_id = $5 AND status = ANY($6)
		RETURNING `+callColumns,
		string(StatusResolved), in.StaffID, in.Feedback, in.ID, in.EventID, fromStatuses(ActionResolve))
	c, err := scanCall(row, in.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (r *Repository) Recipients(ctx context.Context, eventID uuid.UUID) ([]Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT name, phone, email
		FROM telao_notification_recipients
		WHERE event_id = $1
		ORDER BY name
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recipient
	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.Name, &rc.Phone, &rc.Email); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// PendingCounts conta pendências por evento nas duas tabelas.
func (r *Repository) PendingCounts(ctx context.Context) (map[uuid.UUID][2]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT event_id, 0 AS kind, count(*) FROM company_calls WHERE status = $1 GROUP BY event_id
		UNION ALL
		SELECT event_id, 1 AS kind, count(*) FROM telao_requests WHERE status = $1 GROUP BY event_id
	`, string(StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][2]int)
	for rows.Next() {
		var (
			eventID uuid.UUID
			kind    int
			count   int
		)
		if err := rows.Scan(&eventID, &kind, &count); err != nil {
			return nil, err
		}
		counts := out[eventID]
		counts[kind] = count
		out[eventID] = counts
	}
	return out, rows.Err()
}

func scanCall(row pgx.Row, kind Kind) (*Call, error) {
	var (
		c      Call
		status string
	)
	if err := row.Scan(&c.ID, &c.EventID, &c.CompanyID, &c.BoothCode, &c.RequestedBy, &c.Message,
		&status, &c.CreatedAt, &c.ResolvedByStaffID, &c.ResolverFeedback, &c.ResolvedAt); err != nil {
		return nil, err
	}
	c.Kind = kind
	c.Status = Status(status)
	return &c, nil
}
