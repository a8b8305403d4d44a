package admin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/eventos/internal/db"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso a users, events e ao CRUD genérico.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, organizer_company_id, active`

// UserByEmail recupera usuário pelo e-mail já normalizado.
func (r *Repository) UserByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, email))
}

func (r *Repository) UserByID(ctx context.Context, id uuid.UUID) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.OrganizerCompanyID, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

const eventColumns = `id, name, is_active, organizer_company_id, created_at`

func (r *Repository) ListEvents(ctx context.Context, organizerID *uuid.UUID) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if organizerID != nil {
		query += ` WHERE organizer_company_id = $1`
		args = append(args, *organizerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) EventByID(ctx context.Context, id uuid.UUID) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	return e, err
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.IsActive, &e.OrganizerCompanyID, &e.CreatedAt)
	return e, err
}

// Ordem de limpeza das dependências de um evento. Empresas participantes são
// desvinculadas e não apagadas; seus colaboradores continuam cadastrados.
var eventCleanup = []struct {
	table string
	sql   string
}{
	{"reports", `DELETE FROM reports WHERE event_id = $1`},
	{"staff_activities", `DELETE FROM staff_activities WHERE event_id = $1`},
	{"stock_movements", `DELETE FROM stock_movements WHERE event_id = $1`},
	{"vehicle_stock", `DELETE FROM vehicle_stock WHERE event_id = $1`},
	{"company_calls", `DELETE FROM company_calls WHERE event_id = $1`},
	{"telao_requests", `DELETE FROM telao_requests WHERE event_id = $1`},
	{"telao_notification_recipients", `DELETE FROM telao_notification_recipients WHERE event_id = $1`},
	{"report_button_configs", `DELETE FROM report_button_configs WHERE event_id = $1`},
	{"staff_feature_grants", `DELETE FROM staff_feature_grants WHERE event_id = $1`},
	{"staff_event_assignments", `DELETE FROM staff_event_assignments WHERE event_id = $1`},
	{"participant_companies", `UPDATE participant_companies SET event_id = NULL WHERE event_id = $1`},
}

// DeleteEvent apaga o evento e suas dependências; qualquer falha desfaz tudo.
func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) (DeleteSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 4*dbTimeout)
	defer cancel()

	summary := DeleteSummary{}
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		for _, step := range eventCleanup {
			tag, err := tx.Exec(ctx, step.sql, id)
			if err != nil {
				return fmt.Errorf("%s: %w", step.table, err)
			}
			summary[step.table] = tag.RowsAffected()
		}
		tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrEventNotFound
		}
		summary["events"] = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *Repository) ListRows(ctx context.Context, table string, limit, offset int) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT * FROM `+ident(table)+` ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = m
	}
	return out, nil
}

func (r *Repository) GetRow(ctx context.Context, table string, id uuid.UUID) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT * FROM `+ident(table)+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return collectOne(rows)
}

func (r *Repository) InsertRow(ctx context.Context, table string, values Row) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cols, args := columnsAndArgs(values)
	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = ident(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := `INSERT INTO ` + ident(table) + ` (` + strings.Join(quoted, ", ") + `) VALUES (` +
		strings.Join(placeholders, ", ") + `) RETURNING *`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectOne(rows)
}

func (r *Repository) UpdateRow(ctx context.Context, table string, id uuid.UUID, values Row) (Row, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cols, args := columnsAndArgs(values)
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(col), i+1)
	}
	args = append(args, id)
	query := `UPDATE ` + ident(table) + ` SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE id = $%d RETURNING *`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectOne(rows)
}

func (r *Repository) DeleteRow(ctx context.Context, table string, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM `+ident(table)+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRowNotFound
	}
	return nil
}

func collectOne(rows pgx.Rows) (Row, error) {
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRowNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// columnsAndArgs ordena as colunas para gerar SQL estável.
func columnsAndArgs(values Row) ([]string, []any) {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = values[col]
	}
	return cols, args
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
