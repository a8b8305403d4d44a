// Package admin reúne o back office dos organizadores: login, escopo e manutenção de eventos.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/apperr"
	"github.com/gestaozabele/eventos/internal/auth"
)

var (
	// ErrInvalidCredentials não diferencia e-mail de senha.
	ErrInvalidCredentials = apperr.New(apperr.Authorization, "e-mail ou senha inválidos")
	ErrAccountDisabled    = apperr.New(apperr.Authorization, "conta desativada")
	ErrRefreshInvalid     = apperr.New(apperr.Authorization, "refresh token inválido")
	ErrForbidden          = apperr.New(apperr.Authorization, "acesso negado")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "usuário não encontrado")
)

// Papéis do back office.
const (
	RoleAdmin     = "ADMIN"
	RoleOrganizer = "ORGANIZER"
)

// User é uma linha de users.
type User struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	PasswordHash       string
	Role               string
	OrganizerCompanyID *uuid.UUID
	Active             bool
}

// Profile é o que o cliente recebe sobre o usuário logado.
type Profile struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	OrganizerCompanyID *uuid.UUID `json:"organizerCompanyId,omitempty"`
}

// LoginResult é devolvido por login e refresh.
type LoginResult struct {
	AccessToken   string    `json:"accessToken"`
	RefreshToken  string    `json:"refreshToken"`
	RefreshExpiry time.Time `json:"refreshExpiresAt"`
	Profile       Profile   `json:"profile"`
}

// UserRepository é a leitura de usuários do back office.
type UserRepository interface {
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id uuid.UUID) (User, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type refreshRecord struct {
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService autentica usuários do back office.
type AuthService struct {
	users      UserRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

func NewAuthService(users UserRepository, redis redisCommander, jwt *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{users: users, redis: redis, jwt: jwt, refreshTTL: refreshTTL}
}

// Login valida e-mail e senha e emite o par de tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			auth.VerifyMissing(password)
			log.Warn().Msg("login admin: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.PasswordHash)
	if err != nil {
		log.Warn().Err(err).Msg("login admin: falha ao verificar senha")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Str("user_id", user.ID.String()).Msg("login admin: senha inválida")
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// Refresh troca o refresh token por um novo par; o token antigo deixa de valer.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}
	// GETDEL consome o token: de duas trocas concorrentes, só uma o encontra.
	raw, err := s.redis.GetDel(ctx, auth.RefreshKey(rawToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}

	var record refreshRecord
	if err := json.Unmarshal(raw, &record); err != nil || time.Now().UTC().After(record.ExpiresAt) {
		return nil, ErrRefreshInvalid
	}

	user, err := s.users.UserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	return s.issue(ctx, user)
}

// Logout revoga o refresh token; token desconhecido não é erro.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	return s.redis.Del(ctx, auth.RefreshKey(rawToken)).Err()
}

func (s *AuthService) issue(ctx context.Context, user User) (*LoginResult, error) {
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	role := strings.ToUpper(user.Role)
	if role != RoleAdmin && role != RoleOrganizer {
		return nil, ErrForbidden
	}
	if role == RoleOrganizer && user.OrganizerCompanyID == nil {
		return nil, ErrForbidden
	}

	var org string
	if user.OrganizerCompanyID != nil {
		org = user.OrganizerCompanyID.String()
	}
	token, _, err := s.jwt.Generate(auth.TokenInput{
		Subject:     user.ID.String(),
		Audience:    auth.AudienceAdmin,
		Roles:       []string{role},
		OrganizerID: org,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	expires := time.Now().UTC().Add(s.refreshTTL)
	payload, err := json.Marshal(refreshRecord{UserID: user.ID, ExpiresAt: expires})
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, refresh.Key(), payload, s.refreshTTL).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   token,
		RefreshToken:  refresh.Raw,
		RefreshExpiry: expires,
		Profile: Profile{
			ID:                 user.ID,
			Name:               user.Name,
			Email:              user.Email,
			Role:               role,
			OrganizerCompanyID: user.OrganizerCompanyID,
		},
	}, nil
}

// Principal é o usuário do back office extraído do token de acesso.
type Principal struct {
	UserID      uuid.UUID
	Roles       []string
	OrganizerID *uuid.UUID
}

// PrincipalFromClaims valida audiência e papéis do token.
func PrincipalFromClaims(claims *auth.Claims) (Principal, error) {
	if claims == nil || len(claims.Audience) == 0 || claims.Audience[0] != auth.AudienceAdmin {
		return Principal{}, ErrForbidden
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrForbidden
	}
	p := Principal{UserID: userID, Roles: claims.Roles}
	if claims.OrganizerID != "" {
		org, err := uuid.Parse(claims.OrganizerID)
		if err != nil {
			return Principal{}, ErrForbidden
		}
		p.OrganizerID = &org
	}
	if !p.IsAdmin() && (!p.HasRole(RoleOrganizer) || p.OrganizerID == nil) {
		return Principal{}, ErrForbidden
	}
	return p, nil
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}
