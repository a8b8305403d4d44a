package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/apperr"
	"github.com/gestaozabele/eventos/internal/session"
)

const maxBodyBytes = 1 << 20

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// WriteAppError traduz erros de domínio para o envelope. Falhas de credencial
// viram 401 AUTH e sessão ausente vira 401 SESSION; o resto segue o tipo.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, admin.ErrInvalidCredentials),
		errors.Is(err, admin.ErrRefreshInvalid):
		WriteError(w, http.StatusUnauthorized, "AUTH", apperr.MessageOf(err, "credenciais inválidas"), nil)
		return
	case errors.Is(err, session.ErrNoSession):
		WriteError(w, http.StatusUnauthorized, "SESSION", session.ErrNoSession.Message, nil)
		return
	}

	kind := apperr.KindOf(err)
	if kind == apperr.Upstream {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("falha ao processar requisição")
		WriteError(w, http.StatusInternalServerError, string(apperr.Upstream), "erro interno", nil)
		return
	}
	WriteError(w, apperr.Status(kind), string(kind), apperr.MessageOf(err, "erro interno"), nil)
}

// decodeJSON lê o corpo; em caso de falha já responde 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return false
	}
	return true
}

// uuidParam lê um parâmetro de rota como UUID; em caso de falha já responde 400.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identificador inválido", map[string]string{"param": name})
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
