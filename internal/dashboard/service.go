// Package dashboard mantém, por polling, a contagem de pendências que alimenta o badge dos painéis.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/eventos/internal/config"
)

// Badge resume as pendências de um evento.
type Badge struct {
	EventID      uuid.UUID `json:"eventId"`
	PendingCalls int       `json:"pendingCalls"`
	PendingTelao int       `json:"pendingTelao"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Total soma as pendências.
func (b Badge) Total() int {
	return b.PendingCalls + b.PendingTelao
}

// CountSource devolve, por evento, [chamados, telão] pendentes.
type CountSource interface {
	PendingCounts(ctx context.Context) (map[uuid.UUID][2]int, error)
}

type snapshotCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

func badgeKey(eventID uuid.UUID) string {
	return "dashboard:badge:" + eventID.String()
}

// Service executa o polling e guarda o último snapshot.
type Service struct {
	source CountSource
	cache  snapshotCache
	cfg    config.DashboardConfig
	logger zerolog.Logger

	mu       sync.RWMutex
	snapshot map[uuid.UUID]Badge

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(source CountSource, cache snapshotCache, cfg config.DashboardConfig, logger zerolog.Logger) *Service {
	return &Service{
		source:   source,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		snapshot: make(map[uuid.UUID]Badge),
	}
}

func (s *Service) interval() time.Duration {
	if s.cfg.Interval <= 0 {
		return 15 * time.Second
	}
	return s.cfg.Interval
}

// Start inicia o laço. Chamadas repetidas não criam um segundo laço.
func (s *Service) Start(parent context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.runLoop(ctx)
	})
}

// Stop encerra o laço e espera a última execução terminar.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Service) runLoop(ctx context.Context) {
	defer close(s.done)

	interval := s.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("dashboard: polling iniciado")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("dashboard: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("dashboard: polling encerrado")
			return
		case <-ticker.C:
			// falha só é registrada; a próxima batida tenta de novo
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("dashboard: execução periódica falhou")
			}
		}
	}
}

// RunOnce recalcula o snapshot e o espelha no Redis.
func (s *Service) RunOnce(ctx context.Context) error {
	counts, err := s.source.PendingCounts(ctx)
	if err != nil {
		return fmt.Errorf("contar pendências: %w", err)
	}

	now := time.Now().UTC()
	next := make(map[uuid.UUID]Badge, len(counts))
	for eventID, c := range counts {
		next[eventID] = Badge{EventID: eventID, PendingCalls: c[0], PendingTelao: c[1], UpdatedAt: now}
	}

	s.mu.Lock()
	// eventos que zeraram continuam publicados, agora com zero
	for eventID := range s.snapshot {
		if _, ok := next[eventID]; !ok {
			next[eventID] = Badge{EventID: eventID, UpdatedAt: now}
		}
	}
	s.snapshot = next
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	ttl := 3 * s.interval()
	for eventID, b := range next {
		payload, err := json.Marshal(b)
		if err != nil {
			return err
		}
		if err := s.cache.Set(ctx, badgeKey(eventID), payload, ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("dashboard: falha ao espelhar snapshot")
		}
	}
	return nil
}

// Badge devolve o snapshot do evento: memória, depois Redis, depois zero.
func (s *Service) Badge(ctx context.Context, eventID uuid.UUID) Badge {
	s.mu.RLock()
	b, ok := s.snapshot[eventID]
	s.mu.RUnlock()
	if ok {
		return b
	}

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, badgeKey(eventID)).Bytes()
		if err == nil {
			var cached Badge
			if json.Unmarshal(raw, &cached) == nil {
				return cached
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("event_id", eventID.String()).Msg("dashboard: falha ao ler snapshot")
		}
	}
	return Badge{EventID: eventID}
}
