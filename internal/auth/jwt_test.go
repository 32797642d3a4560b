package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(
		"test-secret-key-for-testing-purposes",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateAccessToken("user-123", "ops@example.com", "Aida", RoleStaff)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService()

	token, _, err := service.GenerateAccessToken("user-456", "ops@example.com", "Aida", RoleManager)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, "Aida", claims.Name)
	assert.Equal(t, RoleManager, claims.Role)
	assert.Equal(t, "user-456", claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", 1*time.Millisecond, 7*24*time.Hour)

	token, _, err := service.GenerateAccessToken("user-123", "ops@example.com", "Aida", RoleStaff)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	service1 := NewJWTService("secret-key-1", 15*time.Minute, 7*24*time.Hour)
	service2 := NewJWTService("secret-key-2", 15*time.Minute, 7*24*time.Hour)

	token, _, err := service1.GenerateAccessToken("user-123", "ops@example.com", "Aida", RoleStaff)
	require.NoError(t, err)

	claims, err := service2.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_RefreshToken_RoundTrip(t *testing.T) {
	service := newTestJWTService()

	token, _, err := service.GenerateRefreshToken("user-789")
	require.NoError(t, err)

	userID, err := service.ValidateRefreshToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-789", userID)
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestCheckPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("a-long-enough-password")
	require.NoError(t, err)

	assert.True(t, CheckPassword("a-long-enough-password", hash))
	assert.False(t, CheckPassword("a-different-password", hash))
}
