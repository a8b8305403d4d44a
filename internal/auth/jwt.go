package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audiences emitidas pela API.
const (
	AudienceStaff        = "staff"
	AudienceCollaborator = "collaborator"
	AudienceAdmin        = "admin"
)

// Claims representa as informações presentes em um JWT de acesso.
type Claims struct {
	Roles       []string `json:"roles,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
	OrganizerID string   `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// TokenInput descreve o token a emitir. TTL zero usa o padrão do gerenciador.
type TokenInput struct {
	Subject     string
	Audience    string
	Roles       []string
	SessionID   string
	OrganizerID string
	TTL         time.Duration
}

// JWTManager encapsula geração e validação de tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL}
}

// Generate cria um JWT HS256 e devolve também o jti.
func (m *JWTManager) Generate(in TokenInput) (string, string, error) {
	ttl := in.TTL
	if ttl <= 0 {
		ttl = m.accessTTL
	}
	now := time.Now().UTC()
	jti := uuid.NewString()

	claims := Claims{
		Roles:       in.Roles,
		SessionID:   in.SessionID,
		OrganizerID: in.OrganizerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.Subject,
			Audience:  jwt.ClaimStrings{in.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// ParseAndValidate verifica assinatura e expiração.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || len(claims.Audience) == 0 {
		return nil, errors.New("token inválido")
	}

	return claims, nil
}
