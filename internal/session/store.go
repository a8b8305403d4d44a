package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionKey guarda o JSON da sessão.
func SessionKey(id string) string { return "checkin:session:" + id }

// AnsweredKey guarda o set de botões já respondidos na sessão.
func AnsweredKey(id string) string { return "checkin:answered:" + id }

// InformesKey marca que a notificação de informes concluídos já foi enviada.
func InformesKey(id string) string { return "checkin:informes:" + id }

// Store persiste sessões de check-in no Redis.
type Store struct {
	redis redisCommander
	ttl   time.Duration
}

func NewStore(client redisCommander, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 16 * time.Hour
	}
	return &Store{redis: client, ttl: ttl}
}

// TTL devolve a validade das sessões gravadas.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("sessão sem id")
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, SessionKey(sess.ID), payload, s.ttl).Err()
}

// Load devolve ErrNoSession para sessão ausente ou corrompida; corrupção apaga a chave.
func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNoSession
	}
	raw, err := s.redis.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}

	sess, err := Decode(raw)
	if err != nil {
		log.Warn().Str("session_id", id).Msg("sessão corrompida descartada")
		_ = s.Delete(ctx, id)
		return Session{}, ErrNoSession
	}
	sess.ID = id
	return sess, nil
}

// Delete encerra a sessão e descarta o estado ligado a ela.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.redis.Del(ctx, SessionKey(id), AnsweredKey(id), InformesKey(id)).Err()
}
