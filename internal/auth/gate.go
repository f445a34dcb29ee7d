package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidCredential = errors.New("invalid bearer credential")
)

// Identity is the resolved principal bound to a session or request.
type Identity struct {
	UserID   string
	Username string
}

// Claims is the JWT payload issued by the (external) auth service.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Gate authenticates connection attempts before they may receive fanout
// traffic. It checks signature and expiry on the handshake only; no
// per-message authorization happens afterwards.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authenticate validates the Authorization header of a connection attempt
// and resolves the identity it carries.
func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingCredential
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrInvalidCredential
	}

	return g.ValidateToken(parts[1])
}

// ValidateToken parses and verifies a raw bearer token.
func (g *Gate) ValidateToken(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil || !token.Valid {
		return nil, ErrInvalidCredential
	}

	if claims.UserID == "" {
		return nil, ErrInvalidCredential
	}

	return &Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

type contextKey struct{}

// WithIdentity stores the resolved identity on a request context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom retrieves the identity an auth middleware stored earlier.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}
