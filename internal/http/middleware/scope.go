package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/admin"
)

// EventAuthorizer confere se o usuário do back office pode operar o evento.
type EventAuthorizer interface {
	Authorize(ctx context.Context, p admin.Principal, eventID uuid.UUID) (admin.Event, error)
}

// EventScope lê {eventID} da rota, aplica o escopo do organizador e injeta o evento.
func EventScope(events EventAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION", "evento inválido")
				return
			}

			event, err := events.Authorize(r.Context(), principal, eventID)
			if err != nil {
				if errors.Is(err, admin.ErrEventNotFound) {
					writeError(w, http.StatusNotFound, "NOT_FOUND", admin.ErrEventNotFound.Message)
					return
				}
				log.Error().Err(err).Str("event_id", eventID.String()).Msg("escopo: falha ao carregar evento")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyEvent, event)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetEvent recupera o evento autorizado pelo EventScope.
func GetEvent(ctx context.Context) (admin.Event, bool) {
	val, ok := ctx.Value(ContextKeyEvent).(admin.Event)
	return val, ok
}
