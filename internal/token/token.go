// Package token issues and verifies the signed session tokens returned by
// register and login. Tokens are self-contained: the server keeps no session
// state, so validity is purely a matter of signature and expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// malformed, expired, or carrying a bad signature. The cause is deliberately
// not distinguished to callers.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity bundle carried by a session token.
type Claims struct {
	UserID   int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens with a single process-wide
// secret. Rotating the secret invalidates all previously issued tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token carrying the user's id, username, and role.
func (m *Manager) Issue(userID int, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// Verify parses and validates a token string, returning its claims.
func (m *Manager) Verify(tokenString string) (Claims, error) {
	claims := Claims{}
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID < 1 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
