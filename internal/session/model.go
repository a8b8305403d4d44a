package session

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/apperr"
)

var (
	// ErrInvalidCredentials não revela qual dos códigos falhou.
	ErrInvalidCredentials   = apperr.New(apperr.Authorization, "código do estande ou código pessoal inválido")
	ErrEventInactive        = apperr.New(apperr.Authorization, "evento inativo")
	ErrNotAssigned          = apperr.New(apperr.Authorization, "staff não vinculado a este evento")
	ErrTenantMismatch       = apperr.New(apperr.Authorization, "staff não pertence ao organizador deste evento")
	ErrCompanyNotFound      = apperr.New(apperr.NotFound, "empresa não encontrada para o código do estande")
	ErrCompanyWithoutEvent  = apperr.New(apperr.NotFound, "empresa sem evento vinculado")
	ErrStaffNotFound        = apperr.New(apperr.NotFound, "staff não encontrado")
	ErrCollaboratorNotFound = apperr.New(apperr.NotFound, "colaborador não encontrado")
	// ErrNoSession cobre sessão ausente, expirada ou corrompida.
	ErrNoSession = apperr.New(apperr.Authorization, "sessão ausente ou inválida; refaça o check-in")
)

// Kind distingue as duas formas de sessão.
type Kind string

const (
	KindStaff        Kind = "staff"
	KindCollaborator Kind = "collaborator"
)

// Chaves históricas do armazenamento do navegador, uma por forma de sessão.
const (
	StaffStorageKey        = "checkinInfo"
	CollaboratorStorageKey = "collaboratorCheckinInfo"
)

// Company é a empresa participante dona do estande.
type Company struct {
	ID        uuid.UUID
	Name      string
	BoothCode string
	EventID   *uuid.UUID
}

// Event é o evento ao qual o estande pertence.
type Event struct {
	ID                 uuid.UUID
	Name               string
	IsActive           bool
	OrganizerCompanyID uuid.UUID
}

// Staff é o membro da equipe do organizador.
type Staff struct {
	ID                 uuid.UUID
	Name               string
	PersonalCode       string
	PhotoURL           *string
	OrganizerCompanyID uuid.UUID
	// DepartmentID vem do vínculo com o evento, nunca do cadastro global.
	DepartmentID *uuid.UUID
}

// Assignment autoriza o staff em um evento, com o departamento daquele evento.
type Assignment struct {
	StaffID      uuid.UUID
	EventID      uuid.UUID
	DepartmentID *uuid.UUID
}

// Collaborator é funcionário da própria empresa participante.
type Collaborator struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Code      string
}

// StaffSession é a sessão de um staff no estande.
type StaffSession struct {
	BoothCode     string     `json:"boothCode"`
	CompanyName   string     `json:"companyName"`
	CompanyID     uuid.UUID  `json:"companyId"`
	PersonalCode  string     `json:"personalCode"`
	StaffName     string     `json:"staffName"`
	StaffPhotoURL *string    `json:"staffPhotoUrl"`
	EventID       uuid.UUID  `json:"eventId"`
	DepartmentID  *uuid.UUID `json:"departmentId"`
	StaffID       uuid.UUID  `json:"staffId"`
}

// CompanyRef resume a empresa dentro da sessão de colaborador.
type CompanyRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CollaboratorRef resume o colaborador dentro da sessão.
type CollaboratorRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// CollaboratorSession é a sessão de um colaborador da empresa.
type CollaboratorSession struct {
	BoothCode    string          `json:"boothCode"`
	Company      CompanyRef      `json:"company"`
	Collaborator CollaboratorRef `json:"collaborator"`
	EventID      uuid.UUID       `json:"eventId"`
}

// Session é a união das duas formas; exatamente um dos ponteiros é preenchido.
type Session struct {
	ID           string               `json:"id"`
	Kind         Kind                 `json:"kind"`
	Staff        *StaffSession        `json:"staff,omitempty"`
	Collaborator *CollaboratorSession `json:"collaborator,omitempty"`
}

// NewStaff embrulha uma sessão de staff.
func NewStaff(s StaffSession) Session {
	return Session{Kind: KindStaff, Staff: &s}
}

// NewCollaborator embrulha uma sessão de colaborador.
func NewCollaborator(c CollaboratorSession) Session {
	return Session{Kind: KindCollaborator, Collaborator: &c}
}

// Validate garante a forma da união.
func (s Session) Validate() error {
	switch s.Kind {
	case KindStaff:
		if s.Staff == nil || s.Collaborator != nil || s.Staff.StaffID == uuid.Nil {
			return ErrNoSession
		}
	case KindCollaborator:
		if s.Collaborator == nil || s.Staff != nil || s.Collaborator.Collaborator.ID == uuid.Nil {
			return ErrNoSession
		}
	default:
		return ErrNoSession
	}
	return nil
}

// EventID devolve o evento de qualquer forma de sessão.
func (s Session) EventID() uuid.UUID {
	switch {
	case s.Staff != nil:
		return s.Staff.EventID
	case s.Collaborator != nil:
		return s.Collaborator.EventID
	}
	return uuid.Nil
}

// CompanyID devolve a empresa do estande.
func (s Session) CompanyID() uuid.UUID {
	switch {
	case s.Staff != nil:
		return s.Staff.CompanyID
	case s.Collaborator != nil:
		return s.Collaborator.Company.ID
	}
	return uuid.Nil
}

// BoothCode devolve o código do estande.
func (s Session) BoothCode() string {
	switch {
	case s.Staff != nil:
		return s.Staff.BoothCode
	case s.Collaborator != nil:
		return s.Collaborator.BoothCode
	}
	return ""
}

// Subject identifica quem está na sessão (staff ou colaborador).
func (s Session) Subject() uuid.UUID {
	switch {
	case s.Staff != nil:
		return s.Staff.StaffID
	case s.Collaborator != nil:
		return s.Collaborator.Collaborator.ID
	}
	return uuid.Nil
}

// DisplayName devolve o nome de quem está na sessão.
func (s Session) DisplayName() string {
	switch {
	case s.Staff != nil:
		return s.Staff.StaffName
	case s.Collaborator != nil:
		return s.Collaborator.Collaborator.Name
	}
	return ""
}

// StorageKey devolve a chave histórica correspondente à forma da sessão.
func (s Session) StorageKey() string {
	if s.Kind == KindCollaborator {
		return CollaboratorStorageKey
	}
	return StaffStorageKey
}

// StoredBlob serializa apenas a variante, no formato das chaves históricas.
func (s Session) StoredBlob() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Kind == KindCollaborator {
		return json.Marshal(s.Collaborator)
	}
	return json.Marshal(s.Staff)
}

// DecodeStored lê um blob de uma das chaves históricas; ausência ou corrupção viram ErrNoSession.
func DecodeStored(key string, raw []byte) (Session, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Session{}, ErrNoSession
	}
	var sess Session
	switch key {
	case StaffStorageKey:
		var st StaffSession
		if err := json.Unmarshal(raw, &st); err != nil {
			return Session{}, ErrNoSession
		}
		sess = NewStaff(st)
	case CollaboratorStorageKey:
		var co CollaboratorSession
		if err := json.Unmarshal(raw, &co); err != nil {
			return Session{}, ErrNoSession
		}
		sess = NewCollaborator(co)
	default:
		return Session{}, ErrNoSession
	}
	if err := sess.Validate(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Decode lê a sessão completa gravada no servidor.
func Decode(raw []byte) (Session, error) {
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, ErrNoSession
	}
	if err := sess.Validate(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
