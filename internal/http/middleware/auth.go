package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/auth"
	"github.com/gestaozabele/eventos/internal/session"
)

type contextKey string

const (
	ContextKeySubject   contextKey = "subject"
	ContextKeySession   contextKey = "session"
	ContextKeyPrincipal contextKey = "principal"
	ContextKeyEvent     contextKey = "event"
)

// SessionAuthenticator carrega a sessão de check-in referenciada pelo token.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

// Session exige token de check-in válido com sessão viva no Redis.
func Session(authenticator SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "SESSION", "sessão ausente; faça o check-in")
				return
			}

			sess, err := authenticator.Authenticate(r.Context(), token)
			if errors.Is(err, session.ErrNoSession) {
				writeError(w, http.StatusUnauthorized, "SESSION", session.ErrNoSession.Message)
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("sessão: falha ao carregar")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			ctx = context.WithValue(ctx, ContextKeySubject, sess.Subject().String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff restringe a rota a sessões de staff.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r.Context())
		if !ok || sess.Kind != session.KindStaff {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito ao staff")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admin valida o JWT do back office e injeta o usuário no contexto.
func Admin(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			principal, err := admin.PrincipalFromClaims(claims)
			if err != nil {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito ao back office")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
			ctx = context.WithValue(ctx, ContextKeySubject, principal.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin restringe a rota ao papel ADMIN.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		if !ok || !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a administradores")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSubject recupera o id de quem fez a requisição.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetSession recupera a sessão de check-in do contexto.
func GetSession(ctx context.Context) (session.Session, bool) {
	val, ok := ctx.Value(ContextKeySession).(session.Session)
	return val, ok
}

// GetPrincipal recupera o usuário do back office do contexto.
func GetPrincipal(ctx context.Context) (admin.Principal, bool) {
	val, ok := ctx.Value(ContextKeyPrincipal).(admin.Principal)
	return val, ok
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
