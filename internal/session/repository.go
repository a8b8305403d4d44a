package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Repository implementa Directory sobre o Postgres.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CompanyByBoothCode(ctx context.Context, boothCode string) (Company, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Company
	err := r.db.QueryRow(ctx, `
		SELECT id, name, booth_code, event_id
		FROM participant_companies
		WHERE upper(booth_code) = $1
		LIMIT 1
	`, boothCode).Scan(&c.ID, &c.Name, &c.BoothCode, &c.EventID)
	return c, notFound(err)
}

func (r *Repository) EventByID(ctx context.Context, id uuid.UUID) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var e Event
	err := r.db.QueryRow(ctx, `
		SELECT id, name, is_active, organizer_company_id
		FROM events
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &e.IsActive, &e.OrganizerCompanyID)
	return e, notFound(err)
}

func (r *Repository) StaffByPersonalCode(ctx context.Context, personalCode string) (Staff, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var s Staff
	err := r.db.QueryRow(ctx, `
		SELECT id, name, personal_code, photo_url, organizer_company_id
		FROM staff
		WHERE upper(personal_code) = $1
	`, personalCode).Scan(&s.ID, &s.Name, &s.PersonalCode, &s.PhotoURL, &s.OrganizerCompanyID)
	return s, notFound(err)
}

func (r *Repository) StaffAssignment(ctx context.Context, staffID, eventID uuid.UUID) (Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Assignment
	err := r.db.QueryRow(ctx, `
		SELECT staff_id, event_id, department_id
		FROM staff_event_assignments
		WHERE staff_id = $1 AND event_id = $2
		LIMIT 1
	`, staffID, eventID).Scan(&a.StaffID, &a.EventID, &a.DepartmentID)
	return a, notFound(err)
}

func (r *Repository) CollaboratorByCode(ctx context.Context, companyID uuid.UUID, code string) (Collaborator, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Collaborator
	err := r.db.QueryRow(ctx, `
		SELECT id, company_id, name, collaborator_code
		FROM collaborators
		WHERE company_id = $1 AND upper(collaborator_code) = $2
		LIMIT 1
	`, companyID, code).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Code)
	return c, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	return err
}
