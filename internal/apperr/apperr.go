package apperr

import (
	"errors"
	"net/http"
)

// Kind classifica falhas de domínio de forma fechada.
type Kind string

const (
	Validation    Kind = "VALIDATION"
	Authorization Kind = "FORBIDDEN"
	NotFound      Kind = "NOT_FOUND"
	Conflict      Kind = "CONFLICT"
	Upstream      Kind = "INTERNAL"
)

// Error carrega o tipo e a mensagem exibida ao usuário.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New cria um erro sentinela de um tipo.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf devolve o tipo do primeiro *Error na cadeia; Upstream quando não há.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Upstream
}

// MessageOf devolve a mensagem pública do erro, ou fallback para erros internos.
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}

// Status traduz o tipo para código HTTP.
func Status(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
