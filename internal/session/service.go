package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gestaozabele/eventos/internal/auth"
)

// CheckinResult é devolvido ao cliente após um check-in aceito.
// StorageKey e Stored são a chave e o blob que clientes antigos gravam no navegador.
type CheckinResult struct {
	Token      string          `json:"token"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	Session    Session         `json:"session"`
	StorageKey string          `json:"storageKey"`
	Stored     json.RawMessage `json:"stored"`
}

// Service emite, carrega e encerra sessões de check-in.
type Service struct {
	resolver *Resolver
	store    *Store
	jwt      *auth.JWTManager
}

func NewService(resolver *Resolver, store *Store, jwt *auth.JWTManager) *Service {
	return &Service{resolver: resolver, store: store, jwt: jwt}
}

// CheckIn resolve os códigos, grava a sessão e emite o token que a referencia.
func (s *Service) CheckIn(ctx context.Context, boothCode, code string) (*CheckinResult, error) {
	ctx, span := otel.Tracer("eventos/session").Start(ctx, "session.CheckIn")
	defer span.End()

	sess, err := s.resolver.Resolve(ctx, boothCode, code)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("session.kind", string(sess.Kind)))
	sess.ID = uuid.NewString()

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	audience := auth.AudienceStaff
	if sess.Kind == KindCollaborator {
		audience = auth.AudienceCollaborator
	}
	ttl := s.store.TTL()
	token, _, err := s.jwt.Generate(auth.TokenInput{
		Subject:   sess.Subject().String(),
		Audience:  audience,
		SessionID: sess.ID,
		TTL:       ttl,
	})
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return nil, err
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("kind", string(sess.Kind)).
		Str("booth", sess.BoothCode()).
		Str("event_id", sess.EventID().String()).
		Msg("check-in realizado")

	blob, err := sess.StoredBlob()
	if err != nil {
		return nil, err
	}
	return &CheckinResult{
		Token:      token,
		ExpiresAt:  time.Now().UTC().Add(ttl),
		Session:    sess,
		StorageKey: sess.StorageKey(),
		Stored:     blob,
	}, nil
}

// Restore troca um blob das chaves históricas por uma sessão nova. O blob não
// é confiável: os códigos nele são resolvidos de novo e o resultado precisa
// ser a mesma pessoa.
func (s *Service) Restore(ctx context.Context, storageKey string, raw []byte) (*CheckinResult, error) {
	stored, err := DecodeStored(storageKey, raw)
	if err != nil {
		return nil, ErrNoSession
	}

	var code string
	switch stored.Kind {
	case KindStaff:
		code = stored.Staff.PersonalCode
	case KindCollaborator:
		code = stored.Collaborator.Collaborator.Code
	}
	if normalizeCode(code) == "" || normalizeCode(stored.BoothCode()) == "" {
		return nil, ErrNoSession
	}

	res, err := s.CheckIn(ctx, stored.BoothCode(), code)
	if err != nil {
		return nil, err
	}
	if res.Session.Kind != stored.Kind || res.Session.Subject() != stored.Subject() {
		_ = s.store.Delete(ctx, res.Session.ID)
		return nil, ErrNoSession
	}
	return res, nil
}

// Authenticate valida o token e carrega a sessão que ele referencia.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	claims, err := s.jwt.ParseAndValidate(token)
	if err != nil || claims.SessionID == "" {
		return Session{}, ErrNoSession
	}

	var expected Kind
	switch claims.Audience[0] {
	case auth.AudienceStaff:
		expected = KindStaff
	case auth.AudienceCollaborator:
		expected = KindCollaborator
	default:
		return Session{}, ErrNoSession
	}

	sess, err := s.store.Load(ctx, claims.SessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Kind != expected || sess.Subject().String() != claims.Subject {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Load devolve a sessão gravada pelo id.
func (s *Service) Load(ctx context.Context, id string) (Session, error) {
	return s.store.Load(ctx, id)
}

// Exit encerra a sessão; sair de uma sessão inexistente não é erro.
func (s *Service) Exit(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("session_id", id).Msg("check-out realizado")
	return nil
}
