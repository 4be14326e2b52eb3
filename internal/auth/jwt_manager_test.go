package auth

import (
	"strings"
	"testing"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewJWTManager_SecretLength(t *testing.T) {
	_, err := NewJWTManager("short")
	assert.ErrorIs(t, err, ErrSecretTooShort)

	m, err := NewJWTManager(testSecret)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecret)
	require.NoError(t, err)

	token, err := m.GenerateToken("ops-1", true)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.UserID)
	assert.True(t, claims.Admin)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTManager_GenerateRequiresUserID(t *testing.T) {
	m, err := NewJWTManager(testSecret)
	require.NoError(t, err)

	_, err = m.GenerateToken("", false)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestJWTManager_Expired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	m, err := NewJWTManager(testSecret, WithClock(past))
	require.NoError(t, err)

	token, err := m.GenerateToken("ops-1", false)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_InvalidTokens(t *testing.T) {
	m, err := NewJWTManager(testSecret)
	require.NoError(t, err)

	other, err := NewJWTManager(strings.Repeat("x", MinSecretLength))
	require.NoError(t, err)
	foreign, err := other.GenerateToken("ops-1", false)
	require.NoError(t, err)

	none := jwtgo.NewWithClaims(jwtgo.SigningMethodNone, &Claims{UserID: "ops-1"})
	unsigned, err := none.SignedString(jwtgo.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noID := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, &Claims{
		RegisteredClaims: jwtgo.RegisteredClaims{ExpiresAt: jwtgo.NewNumericDate(time.Now().Add(time.Hour))},
	})
	anonymous, err := noID.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not.a.token", ErrInvalidToken},
		{"empty", "", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
		{"missing id", anonymous, ErrMissingUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithTTL(t *testing.T) {
	m, err := NewJWTManager(testSecret, WithTTL(5*time.Minute), WithTTL(0))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, m.ttl)
}
