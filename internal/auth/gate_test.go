package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID string) *Claims {
	return &Claims{
		UserID:   userID,
		Username: "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestGate_AcceptsValidBearer(t *testing.T) {
	gate := NewGate(testSecret)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("user-1")))

	id, err := gate.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "operator", id.Username)
}

func TestGate_RejectsMissingHeader(t *testing.T) {
	gate := NewGate(testSecret)

	r := httptest.NewRequest("GET", "/ws", nil)
	id, err := gate.Authenticate(r)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Nil(t, id)
}

func TestGate_RejectsMalformedHeader(t *testing.T) {
	gate := NewGate(testSecret)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Token abc")

	_, err := gate.Authenticate(r)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGate_RejectsExpiredToken(t *testing.T) {
	gate := NewGate(testSecret)

	claims := validClaims("user-1")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := gate.ValidateToken(signToken(t, testSecret, claims))
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGate_RejectsWrongSignature(t *testing.T) {
	gate := NewGate(testSecret)

	_, err := gate.ValidateToken(signToken(t, "other-secret", validClaims("user-1")))
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGate_RejectsTokenWithoutUserID(t *testing.T) {
	gate := NewGate(testSecret)

	_, err := gate.ValidateToken(signToken(t, testSecret, validClaims("")))
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	ctx := WithIdentity(r.Context(), &Identity{UserID: "user-9"})

	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-9", id.UserID)

	_, ok = IdentityFrom(r.Context())
	assert.False(t, ok)
}
