package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/eventos/internal/config"
)

// Event identifica o canal de notificação.
type Event string

const (
	EventTaskAssigned      Event = "task_assigned"
	EventTaskCompleted     Event = "task_completed"
	EventInformesCompleted Event = "informes_completed"
	EventSale              Event = "sales_checkin"
	EventCall              Event = "company_call"
	EventTelao             Event = "telao_request"
)

// Message é o corpo enviado aos webhooks.
type Message struct {
	Event   Event          `json:"event"`
	EventID uuid.UUID      `json:"eventId"`
	SentAt  time.Time      `json:"sentAt"`
	Payload map[string]any `json:"payload"`
	Channel string         `json:"channel,omitempty"`
}

// Notifier dispara notificações sem bloquear nem propagar falhas.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Nop descarta notificações.
type Nop struct{}

func (Nop) Notify(context.Context, Message) {}

type route struct {
	url     string
	channel string
}

// WebhookNotifier envia mensagens via HTTP POST para os destinos configurados.
type WebhookNotifier struct {
	client  *resty.Client
	routes  map[Event][]route
	timeout time.Duration
	logger  zerolog.Logger
}

// NewWebhookNotifier monta as rotas a partir da configuração; canais sem URL ficam mudos.
func NewWebhookNotifier(cfg config.WebhookConfig, logger zerolog.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	n := &WebhookNotifier{
		client:  client,
		routes:  make(map[Event][]route),
		timeout: timeout,
		logger:  logger,
	}
	n.add(EventTaskAssigned, cfg.TaskURL, "")
	n.add(EventTaskCompleted, cfg.TaskURL, "")
	n.add(EventInformesCompleted, cfg.InformesURL, "")
	n.add(EventSale, cfg.SalesURL, "")
	n.add(EventCall, cfg.CallURL, "")
	n.add(EventTelao, cfg.TelaoLegacyURL, "legacy")
	n.add(EventTelao, cfg.TelaoURL, "integration")
	return n
}

func (n *WebhookNotifier) add(event Event, url, channel string) {
	if url == "" {
		return
	}
	n.routes[event] = append(n.routes[event], route{url: url, channel: channel})
}

// Notify envia em segundo plano; falhas são apenas registradas.
func (n *WebhookNotifier) Notify(ctx context.Context, msg Message) {
	if len(n.routes[msg.Event]) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(bg, n.timeout)
		defer cancel()
		if err := n.Send(sendCtx, msg); err != nil {
			n.logger.Warn().Err(err).Str("event", string(msg.Event)).Msg("webhook: envio falhou")
		}
	}()
}

// Send entrega a mensagem a todos os destinos do evento, sem retry.
func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	var errs []error
	for _, rt := range n.routes[msg.Event] {
		body := msg
		body.Channel = rt.channel

		resp, err := n.client.R().
			SetContext(ctx).
			SetBody(body).
			Post(rt.url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.url, err))
			continue
		}
		if resp.StatusCode() >= 300 {
			errs = append(errs, fmt.Errorf("%s: status %d", rt.url, resp.StatusCode()))
		}
	}
	return errors.Join(errs...)
}
