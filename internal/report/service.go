package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/feature"
	"github.com/gestaozabele/eventos/internal/notify"
	"github.com/gestaozabele/eventos/internal/session"
)

// ReportRepository é o acesso a dados usado pelo serviço.
type ReportRepository interface {
	ButtonsForEvent(ctx context.Context, eventID uuid.UUID) ([]ButtonConfig, error)
	ButtonByID(ctx context.Context, id uuid.UUID) (ButtonConfig, error)
	CreateReport(ctx context.Context, in NewReport) (Report, error)
}

type answeredStore interface {
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type grantChecker interface {
	Require(ctx context.Context, staffID, eventID uuid.UUID, f feature.Feature) error
}

// Service oferece e recebe respostas dos botões de ação.
type Service struct {
	repo     ReportRepository
	redis    answeredStore
	grants   grantChecker
	notifier notify.Notifier
	ttl      time.Duration
}

func NewService(repo ReportRepository, redis answeredStore, grants grantChecker, notifier notify.Notifier, sessionTTL time.Duration) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, redis: redis, grants: grants, notifier: notifier, ttl: sessionTTL}
}

// ListVisible devolve os botões ainda pendentes para o staff da sessão.
func (s *Service) ListVisible(ctx context.Context, sess session.Session) ([]ButtonConfig, error) {
	if sess.Staff == nil {
		return nil, ErrStaffOnly
	}
	return s.visible(ctx, sess)
}

func (s *Service) visible(ctx context.Context, sess session.Session) ([]ButtonConfig, error) {
	buttons, err := s.repo.ButtonsForEvent(ctx, sess.EventID())
	if err != nil {
		return nil, err
	}
	answered, err := s.answered(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	visible := Visible(buttons, sess.Staff.StaffID, sess.Staff.DepartmentID, answered)

	// botões de chamado só aparecem para quem tem notify_call no evento
	for _, b := range visible {
		if b.Type != NotifyCall {
			continue
		}
		canCall, err := s.canNotifyCall(ctx, sess)
		if err != nil {
			return nil, err
		}
		if !canCall {
			visible = withoutType(visible, NotifyCall)
		}
		break
	}
	return visible, nil
}

func (s *Service) canNotifyCall(ctx context.Context, sess session.Session) (bool, error) {
	err := s.grants.Require(ctx, sess.Staff.StaffID, sess.EventID(), feature.NotifyCall)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, feature.ErrNotGranted):
		return false, nil
	default:
		return false, err
	}
}

func withoutType(buttons []ButtonConfig, t ButtonType) []ButtonConfig {
	out := make([]ButtonConfig, 0, len(buttons))
	for _, b := range buttons {
		if b.Type != t {
			out = append(out, b)
		}
	}
	return out
}

func (s *Service) answered(ctx context.Context, sessionID string) (map[string]struct{}, error) {
	members, err := s.redis.SMembers(ctx, session.AnsweredKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[m] = struct{}{}
	}
	return out, nil
}

// Submit grava a resposta de um botão e o retira da sessão. Quando o último
// botão pendente é respondido, a notificação de informes concluídos sai uma vez.
func (s *Service) Submit(ctx context.Context, sess session.Session, buttonID uuid.UUID, ans Answer) (*Report, error) {
	if sess.Staff == nil {
		return nil, ErrStaffOnly
	}

	btn, err := s.repo.ButtonByID(ctx, buttonID)
	if err != nil {
		return nil, err
	}
	if btn.EventID != sess.EventID() || IsReserved(btn.Label) {
		return nil, ErrButtonNotFound
	}

	answered, err := s.answered(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if _, done := answered[btn.ID.String()]; done {
		return nil, ErrAlreadyAnswered
	}
	if !offeredTo(btn, sess.Staff.StaffID, sess.Staff.DepartmentID) {
		return nil, ErrButtonNotOffered
	}
	if btn.Type == NotifyCall {
		if err := s.grants.Require(ctx, sess.Staff.StaffID, sess.EventID(), feature.NotifyCall); err != nil {
			return nil, err
		}
	}

	response, err := Compose(btn, ans)
	if err != nil {
		return nil, err
	}

	staffID := sess.Staff.StaffID
	rep, err := s.repo.CreateReport(ctx, NewReport{
		EventID:     sess.EventID(),
		CompanyID:   sess.CompanyID(),
		BoothCode:   sess.BoothCode(),
		StaffID:     &staffID,
		ActionLabel: btn.Label,
		Response:    response,
	})
	if err != nil {
		return nil, err
	}

	key := session.AnsweredKey(sess.ID)
	if err := s.redis.SAdd(ctx, key, btn.ID.String()).Err(); err != nil {
		return nil, err
	}
	if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("relatório: falha ao renovar expiração")
	}

	if btn.Type == NotifyCall {
		s.notifier.Notify(ctx, notify.Message{
			Event:   notify.EventCall,
			EventID: sess.EventID(),
			Payload: map[string]any{
				"boothCode":   sess.BoothCode(),
				"companyName": sess.Staff.CompanyName,
				"staffName":   sess.Staff.StaffName,
				"label":       btn.Label,
				"message":     response,
			},
		})
	}

	s.maybeNotifyInformes(ctx, sess)

	return &rep, nil
}

func (s *Service) maybeNotifyInformes(ctx context.Context, sess session.Session) {
	remaining, err := s.visible(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("relatório: falha ao recalcular pendências")
		return
	}
	if len(remaining) > 0 {
		return
	}
	first, err := s.redis.SetNX(ctx, session.InformesKey(sess.ID), "1", s.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("relatório: falha ao marcar informes")
		return
	}
	if !first {
		return
	}
	s.notifier.Notify(ctx, notify.Message{
		Event:   notify.EventInformesCompleted,
		EventID: sess.EventID(),
		Payload: map[string]any{
			"boothCode":   sess.BoothCode(),
			"companyName": sess.Staff.CompanyName,
			"staffId":     sess.Staff.StaffID,
			"staffName":   sess.Staff.StaffName,
		},
	})
}
