package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/justinas/alice"
	"github.com/stretchr/testify/assert"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/internal/usecases/authenticating"
	"github.com/vfg2006/trusted-etl/pkg/log"
)

type stubAuthenticator struct {
	claims *domain.Claims
	err    error
}

func (s stubAuthenticator) GenerateToken(string, domain.Role) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (s stubAuthenticator) ValidateToken(string) (*domain.Claims, error) {
	return s.claims, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	viewer := &domain.Claims{Role: domain.RoleViewer}

	tests := []struct {
		name   string
		path   string
		header string
		auth   stubAuthenticator
		status int
	}{
		{"Healthcheck é público", "/healthcheck", "", stubAuthenticator{}, http.StatusNoContent},
		{"Sem header", "/v1/reconciliation/status", "", stubAuthenticator{}, http.StatusUnauthorized},
		{"Sem Bearer", "/v1/reconciliation/status", "Basic abc", stubAuthenticator{}, http.StatusUnauthorized},
		{"Token expirado", "/v1/reconciliation/status", "Bearer abc", stubAuthenticator{err: authenticating.ErrExpiredToken}, http.StatusUnauthorized},
		{"Token inválido", "/v1/reconciliation/status", "Bearer abc", stubAuthenticator{err: errors.New("bad")}, http.StatusUnauthorized},
		{"Token válido", "/v1/reconciliation/status", "Bearer abc", stubAuthenticator{claims: viewer}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tt.auth)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	chain := func(claims *domain.Claims) http.Handler {
		return alice.New(AuthMiddleware(stubAuthenticator{claims: claims}), AdminOnly()).Then(okHandler())
	}

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/v1/reconciliation/run/all", nil)
		r.Header.Set("Authorization", "Bearer abc")
		return r
	}

	rec := httptest.NewRecorder()
	chain(&domain.Claims{Role: domain.RoleAdmin}).ServeHTTP(rec, req())
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	chain(&domain.Claims{Role: domain.RoleViewer}).ServeHTTP(rec, req())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	AllRoles()(okHandler()).ServeHTTP(rec, req())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoggingAndPanicMiddleware(t *testing.T) {
	logger := log.Discard()
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	h := alice.New(LoggingMiddleware(logger), LogPanicMiddleware(logger)).Then(panicking)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reconciliation/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500 µs", formatDuration(500*time.Microsecond))
	assert.Equal(t, "20 ms", formatDuration(20*time.Millisecond))
	assert.Equal(t, "1.50 s", formatDuration(1500*time.Millisecond))
}
