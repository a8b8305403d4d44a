package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gestaozabele/eventos/internal/session"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSOrigins(t *testing.T) {
	h := CORS([]string{"https://painel.eventos.com", "*.zabele.com.br"})(okHandler())

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"https://painel.eventos.com", true},
		{"https://feira.zabele.com.br", true},
		{"https://zabele.com.br", false},
		{"https://evil.com", false},
		{"", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tc.allowed {
			assert.Equal(t, tc.origin, got, tc.origin)
		} else {
			assert.Empty(t, got, tc.origin)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://painel.eventos.com"})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/calls", nil)
	req.Header.Set("Origin", "https://painel.eventos.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestIPRateLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	h := IPRateLimit(limiter)(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("1.1.1.1"))
	assert.Equal(t, http.StatusOK, send("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.1.1.1"))
	assert.Equal(t, http.StatusOK, send("2.2.2.2"))
}

func TestRecoverHidesPanic(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("segredo interno")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "segredo")
	assert.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestRequireStaffWithoutSession(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireStaff(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type authenticatorFunc func(ctx context.Context, token string) (session.Session, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (session.Session, error) {
	return f(ctx, token)
}

func TestSessionErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "sem token", wantCode: http.StatusUnauthorized, wantBody: "SESSION"},
		{name: "sessão expirada", token: "t", err: session.ErrNoSession, wantCode: http.StatusUnauthorized, wantBody: "SESSION"},
		{name: "sessão expirada embrulhada", token: "t", err: fmt.Errorf("carregar: %w", session.ErrNoSession), wantCode: http.StatusUnauthorized, wantBody: "SESSION"},
		{name: "redis fora do ar", token: "t", err: errors.New("dial tcp: connection refused"), wantCode: http.StatusInternalServerError, wantBody: "INTERNAL"},
		{name: "ok", token: "t", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := authenticatorFunc(func(context.Context, string) (session.Session, error) {
				if tt.err != nil {
					return session.Session{}, tt.err
				}
				return session.Session{ID: "s1", Kind: session.KindStaff, Staff: &session.StaffSession{}}, nil
			})
			req := httptest.NewRequest(http.MethodGet, "/session", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			Session(auth)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
