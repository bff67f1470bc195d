package services

import (
	"testing"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t testing.TB) TokenService {
	service, err := NewTokenService(15*time.Minute, 7*24*time.Hour, "test-issuer", "test-audience", false, "", "", testSecret)
	require.NoError(t, err)
	return service
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "rsa without keys", useRSAKeys: true, expectError: true},
		{name: "rsa with garbage keys", useRSAKeys: true, privateKey: "nope", publicKey: "nope", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", tt.useRSAKeys, tt.privateKey, tt.publicKey, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, service)
		})
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	service := createTestTokenService(t)

	tests := []struct {
		name        string
		actorID     uint
		role        models.Role
		expectError bool
	}{
		{name: "admin", actorID: 1, role: models.RoleAdmin},
		{name: "sales agent", actorID: 42, role: models.RoleSalesAgent},
		{name: "customer", actorID: 999999, role: models.RoleCustomer},
		{name: "unknown role", actorID: 5, role: models.Role("janitor"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access, refresh, err := service.GenerateTokens(tt.actorID, tt.role)
			if tt.expectError {
				assert.Error(t, err)
				assert.Empty(t, access)
				assert.Empty(t, refresh)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, access, refresh)

			claims, err := service.ValidateToken(access)
			require.NoError(t, err)
			assert.Equal(t, tt.actorID, claims.ActorID)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, TokenTypeAccess, claims.TokenType)
			assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

			refreshClaims, err := service.ValidateToken(refresh)
			require.NoError(t, err)
			assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
			assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
		})
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := createTestTokenService(t)

	for _, token := range []string{
		"",
		"a",
		"this is not a jwt token",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJhY3Rvcl9pZCI6MTIzfQ",
	} {
		claims, err := service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, token)
		assert.Nil(t, claims)
	}
}

func TestTokenExpiration(t *testing.T) {
	service, err := NewTokenService(-time.Minute, -time.Minute, "test-issuer", "test-audience", false, "", "", testSecret)
	require.NoError(t, err)

	access, refresh, err := service.GenerateTokens(7, models.RoleManager)
	require.NoError(t, err)

	_, err = service.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, _, err = service.RefreshToken(refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenRotates(t *testing.T) {
	service := createTestTokenService(t)

	access, refresh, err := service.GenerateTokens(3, models.RoleContentEditor)
	require.NoError(t, err)

	_, _, err = service.RefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid, "access token cannot refresh")

	newAccess, newRefresh, err := service.RefreshToken(refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, newRefresh)

	claims, err := service.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, models.RoleContentEditor, claims.Role)

	_, _, err = service.RefreshToken(refresh)
	assert.ErrorIs(t, err, ErrTokenRevoked, "a refresh token is single use")
}

func TestRevokeToken(t *testing.T) {
	service := createTestTokenService(t)

	access, _, err := service.GenerateTokens(9, models.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, service.RevokeToken(access))

	_, err = service.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.Error(t, service.RevokeToken("invalid.token"))
}

func TestTokenSecurity(t *testing.T) {
	service1, err := NewTokenService(15*time.Minute, time.Hour, "issuer1", "audience1", false, "", "", "test-secret-key-1-for-jwt-signing-32-chars")
	require.NoError(t, err)
	service2, err := NewTokenService(15*time.Minute, time.Hour, "issuer2", "audience2", false, "", "", "test-secret-key-2-for-jwt-signing-32-chars")
	require.NoError(t, err)

	token1, _, err := service1.GenerateTokens(123, models.RoleAdmin)
	require.NoError(t, err)
	token2, _, err := service2.GenerateTokens(123, models.RoleAdmin)
	require.NoError(t, err)

	_, err = service1.ValidateToken(token2)
	assert.Error(t, err)
	_, err = service2.ValidateToken(token1)
	assert.Error(t, err)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := createTestTokenService(t)

	const numGoroutines = 10
	tokens := make(chan string, numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := range numGoroutines {
		go func(actorID uint) {
			accessToken, _, err := service.GenerateTokens(actorID, models.RoleSalesAgent)
			if err != nil {
				errs <- err
				return
			}
			tokens <- accessToken
		}(uint(i + 1))
	}

	generated := make(map[string]bool)
	for range numGoroutines {
		select {
		case token := <-tokens:
			assert.False(t, generated[token], "Duplicate token generated")
			generated[token] = true
		case err := <-errs:
			t.Errorf("Error generating token: %v", err)
		}
	}
	assert.Len(t, generated, numGoroutines)
}

func BenchmarkValidateToken(b *testing.B) {
	service := createTestTokenService(b)

	token, _, err := service.GenerateTokens(123, models.RoleAdmin)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := service.ValidateToken(token)
		require.NoError(b, err)
	}
}
