package feature

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Repository lê staff_feature_grants e, por compatibilidade, as linhas
// reservadas de report_button_configs.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Has(ctx context.Context, staffID, eventID uuid.UUID, f Feature) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff_feature_grants
			WHERE staff_id = $1 AND event_id = $2 AND feature = $3
		) OR EXISTS (
			SELECT 1 FROM report_button_configs
			WHERE staff_id = $1 AND label = $4 AND (event_id = $2 OR event_id IS NULL)
		)
	`, staffID, eventID, string(f), LegacyLabel(f)).Scan(&ok)
	return ok, err
}

func (r *Repository) ListForStaff(ctx context.Context, staffID, eventID uuid.UUID) ([]Feature, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT feature FROM staff_feature_grants
		WHERE staff_id = $1 AND event_id = $2
		UNION
		SELECT label FROM report_button_configs
		WHERE staff_id = $1 AND label LIKE '\_\_%' AND (event_id = $2 OR event_id IS NULL)
	`, staffID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[Feature]struct{}{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		f, ok := LegacyFeature(raw)
		if !ok {
			if f, err = Parse(raw); err != nil {
				continue
			}
		}
		seen[f] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Feature, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *Repository) Grant(ctx context.Context, g Grant) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO staff_feature_grants (staff_id, event_id, feature)
		VALUES ($1, $2, $3)
		ON CONFLICT (staff_id, event_id, feature) DO NOTHING
	`, g.StaffID, g.EventID, string(g.Feature))
	return err
}

// Revoke remove a concessão e também a linha reservada equivalente, se houver.
func (r *Repository) Revoke(ctx context.Context, staffID, eventID uuid.UUID, f Feature) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := []struct {
		sql  string
		args []any
	}{
		{`DELETE FROM staff_feature_grants WHERE staff_id = $1 AND event_id = $2 AND feature = $3`, []any{staffID, eventID, string(f)}},
		{`DELETE FROM report_button_configs WHERE staff_id = $1 AND label = $2 AND (event_id = $3 OR event_id IS NULL)`, []any{staffID, LegacyLabel(f), eventID}},
	}
	for _, stmt := range batch {
		if _, err := r.db.Exec(ctx, stmt.sql, stmt.args...); err != nil {
			return err
		}
	}
	return nil
}
