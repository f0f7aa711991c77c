package authenticating

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/trusted-etl/internal/config"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/apiErrors"
)

func newTestService(now time.Time) *Service {
	s := NewService(config.Auth{Secret: "segredo-de-teste", TokenTTL: time.Hour}).(*Service)
	s.now = func() time.Time { return now }
	return s
}

func TestService_GenerateAndValidate(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	s := newTestService(now)

	token, expiresAt, err := s.GenerateToken("ana", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestService_GenerateToken_InvalidInput(t *testing.T) {
	s := newTestService(time.Now())

	_, _, err := s.GenerateToken("  ", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrMissingRequiredData)

	_, _, err = s.GenerateToken("ana", domain.Role(7))
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, apiErrors.ErrInvalidRequest, authErr.Code)
}

func TestService_ValidateToken(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	expired, _, err := newTestService(issuedAt).GenerateToken("ana", domain.RoleViewer)
	require.NoError(t, err)

	other := NewService(config.Auth{Secret: "outro-segredo", TokenTTL: time.Hour})
	foreign, _, err := other.GenerateToken("ana", domain.RoleAdmin)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, domain.Claims{Role: domain.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	s := newTestService(time.Now())

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"Token expirado", expired, ErrExpiredToken},
		{"Assinado com outro segredo", foreign, ErrInvalidToken},
		{"Sem assinatura", unsigned, ErrInvalidToken},
		{"Texto qualquer", "abc.def", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsAuthorizationError(err))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := domain.ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)
	assert.Equal(t, "viewer", domain.RoleViewer.String())

	_, err = domain.ParseRole("root")
	assert.Error(t, err)
}
