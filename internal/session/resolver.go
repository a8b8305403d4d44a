package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Directory é a leitura mínima que o check-in precisa. Ausência de registro
// deve ser sinalizada com ErrRecordNotFound.
type Directory interface {
	CompanyByBoothCode(ctx context.Context, boothCode string) (Company, error)
	EventByID(ctx context.Context, id uuid.UUID) (Event, error)
	StaffByPersonalCode(ctx context.Context, personalCode string) (Staff, error)
	StaffAssignment(ctx context.Context, staffID, eventID uuid.UUID) (Assignment, error)
	CollaboratorByCode(ctx context.Context, companyID uuid.UUID, code string) (Collaborator, error)
}

// ErrRecordNotFound é devolvido pelo Directory quando a linha não existe.
var ErrRecordNotFound = errors.New("registro não encontrado")

// StaffResult é o resultado de um check-in de staff.
type StaffResult struct {
	Staff   Staff
	Event   Event
	Company Company
}

// CollaboratorResult é o resultado de um check-in de colaborador.
type CollaboratorResult struct {
	Collaborator Collaborator
	Event        Event
	Company      Company
}

// Resolver transforma o par de códigos do check-in em uma sessão.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve tenta primeiro o staff e depois o colaborador. O erro específico do
// caminho de staff é descartado; só o erro combinado chega ao chamador.
func (r *Resolver) Resolve(ctx context.Context, boothCode, code string) (Session, error) {
	staffRes, staffErr := r.ResolveStaff(ctx, boothCode, code)
	if staffErr == nil {
		return staffSession(staffRes), nil
	}
	if !isDomainFailure(staffErr) {
		return Session{}, staffErr
	}

	collabRes, collabErr := r.ResolveCollaborator(ctx, boothCode, code)
	if collabErr == nil {
		return collaboratorSession(collabRes), nil
	}
	if !isDomainFailure(collabErr) {
		return Session{}, collabErr
	}

	log.Debug().AnErr("staff", staffErr).AnErr("collaborator", collabErr).Msg("check-in recusado")

	// o estande é o mesmo nos dois caminhos, então "evento inativo" não revela o código pessoal
	if errors.Is(staffErr, ErrEventInactive) && errors.Is(collabErr, ErrEventInactive) {
		return Session{}, ErrEventInactive
	}
	return Session{}, ErrInvalidCredentials
}

// ResolveStaff exige empresa com evento, evento ativo, staff existente,
// vínculo staff-evento e mesmo organizador.
func (r *Resolver) ResolveStaff(ctx context.Context, boothCode, personalCode string) (*StaffResult, error) {
	company, event, err := r.boothEvent(ctx, boothCode)
	if err != nil {
		return nil, err
	}

	staff, err := r.dir.StaffByPersonalCode(ctx, normalizeCode(personalCode))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	assignment, err := r.dir.StaffAssignment(ctx, staff.ID, event.ID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNotAssigned
		}
		return nil, err
	}

	if staff.OrganizerCompanyID != event.OrganizerCompanyID {
		return nil, ErrTenantMismatch
	}

	staff.DepartmentID = assignment.DepartmentID

	return &StaffResult{Staff: staff, Event: event, Company: company}, nil
}

// ResolveCollaborator busca o colaborador apenas dentro da empresa do estande;
// códigos de colaborador só são únicos por empresa.
func (r *Resolver) ResolveCollaborator(ctx context.Context, boothCode, collaboratorCode string) (*CollaboratorResult, error) {
	company, event, err := r.boothEvent(ctx, boothCode)
	if err != nil {
		return nil, err
	}

	collab, err := r.dir.CollaboratorByCode(ctx, company.ID, normalizeCode(collaboratorCode))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrCollaboratorNotFound
		}
		return nil, err
	}
	if collab.CompanyID != company.ID {
		return nil, ErrCollaboratorNotFound
	}

	return &CollaboratorResult{Collaborator: collab, Event: event, Company: company}, nil
}

func (r *Resolver) boothEvent(ctx context.Context, boothCode string) (Company, Event, error) {
	company, err := r.dir.CompanyByBoothCode(ctx, normalizeCode(boothCode))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Company{}, Event{}, ErrCompanyNotFound
		}
		return Company{}, Event{}, err
	}
	if company.EventID == nil {
		return Company{}, Event{}, ErrCompanyWithoutEvent
	}

	event, err := r.dir.EventByID(ctx, *company.EventID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Company{}, Event{}, ErrCompanyWithoutEvent
		}
		return Company{}, Event{}, err
	}
	if !event.IsActive {
		return Company{}, Event{}, ErrEventInactive
	}
	return company, event, nil
}

func staffSession(res *StaffResult) Session {
	return NewStaff(StaffSession{
		BoothCode:     res.Company.BoothCode,
		CompanyName:   res.Company.Name,
		CompanyID:     res.Company.ID,
		PersonalCode:  res.Staff.PersonalCode,
		StaffName:     res.Staff.Name,
		StaffPhotoURL: res.Staff.PhotoURL,
		EventID:       res.Event.ID,
		DepartmentID:  res.Staff.DepartmentID,
		StaffID:       res.Staff.ID,
	})
}

func collaboratorSession(res *CollaboratorResult) Session {
	return NewCollaborator(CollaboratorSession{
		BoothCode:    res.Company.BoothCode,
		Company:      CompanyRef{ID: res.Company.ID, Name: res.Company.Name},
		Collaborator: CollaboratorRef{ID: res.Collaborator.ID, Name: res.Collaborator.Name, Code: res.Collaborator.Code},
		EventID:      res.Event.ID,
	})
}

// isDomainFailure separa recusas de check-in de falhas de infraestrutura,
// que devem propagar em vez de virar "credenciais inválidas".
func isDomainFailure(err error) bool {
	for _, target := range []error{
		ErrEventInactive, ErrNotAssigned, ErrTenantMismatch, ErrCompanyNotFound,
		ErrCompanyWithoutEvent, ErrStaffNotFound, ErrCollaboratorNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
