package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/eventos/internal/casing"
)

const dbTimeout = 3 * time.Second

// Querier é atendido tanto pelo pool quanto por uma pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository acessa report_button_configs e reports.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const buttonColumns = `id, event_id, label, question, type, options, follow_up, department_id, staff_id`

func (r *Repository) ButtonsForEvent(ctx context.Context, eventID uuid.UUID) ([]ButtonConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+buttonColumns+`
		FROM report_button_configs
		WHERE event_id = $1
		ORDER BY label
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ButtonConfig
	for rows.Next() {
		btn, err := scanButton(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, btn)
	}
	return out, rows.Err()
}

func (r *Repository) ButtonByID(ctx context.Context, id uuid.UUID) (ButtonConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+buttonColumns+` FROM report_button_configs WHERE id = $1`, id)
	btn, err := scanButton(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ButtonConfig{}, ErrButtonNotFound
	}
	return btn, err
}

func (r *Repository) CreateReport(ctx context.Context, in NewReport) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return InsertReport(ctx, r.db, in)
}

// InsertReport grava uma resposta; usado também dentro de transações de outros domínios.
func InsertReport(ctx context.Context, q Querier, in NewReport) (Report, error) {
	var rep Report
	err := q.QueryRow(ctx, `
		INSERT INTO reports (event_id, company_id, booth_code, staff_id, collaborator_name, action_label, response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, event_id, company_id, booth_code, staff_id, collaborator_name, action_label, response, created_at
	`, in.EventID, in.CompanyID, in.BoothCode, in.StaffID, in.CollaboratorName, in.ActionLabel, in.Response).Scan(
		&rep.ID, &rep.EventID, &rep.CompanyID, &rep.BoothCode, &rep.StaffID,
		&rep.CollaboratorName, &rep.ActionLabel, &rep.Response, &rep.CreatedAt,
	)
	return rep, err
}

func scanButton(row pgx.Row) (ButtonConfig, error) {
	var (
		btn      ButtonConfig
		btnType  string
		followUp []byte
	)
	if err := row.Scan(&btn.ID, &btn.EventID, &btn.Label, &btn.Question, &btnType,
		&btn.Options, &followUp, &btn.DepartmentID, &btn.StaffID); err != nil {
		return ButtonConfig{}, err
	}
	btn.Type = ButtonType(btnType)
	if len(followUp) > 0 && string(followUp) != "null" {
		var stored map[string]any
		if err := json.Unmarshal(followUp, &stored); err != nil {
			return ButtonConfig{}, err
		}
		// O CRUD do back office grava as chaves em snake_case.
		camel, _ := casing.KeysToCamel(stored).(map[string]any)
		fu := FollowUp{}
		fu.TriggerValue, _ = camel["triggerValue"].(string)
		fu.Question, _ = camel["question"].(string)
		btn.FollowUp = &fu
	}
	return btn, nil
}
