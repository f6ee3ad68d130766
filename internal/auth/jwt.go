// Package auth guards routes and signs the session cookie.
//
// SESSION COOKIE FLOW:
//  1. The visitor signs in; the backend returns an opaque bearer token.
//  2. The session store persists {token, email} under a new session ID.
//  3. The server signs the session ID into a JWT and sets it as the
//     HttpOnly "sid" cookie. The bearer token itself never reaches the browser.
//  4. On every request LoadSession validates the cookie, loads the session,
//     and puts it in the request context for the guards and handlers.
//
// WHY SIGN THE SESSION ID?
// A bare ID in a cookie is only as good as its entropy. Signing it means a
// forged or truncated cookie is rejected before the session store is touched,
// and the expiry claim bounds how long a leaked cookie is useful.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "sonarhub"

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// TokenService signs and verifies session cookies with HS256.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A zero ttl means DefaultSessionTTL.
// The secret should be at least 32 bytes of random data in production:
// SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of cookies issued by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. "sub" carries the session ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs sessionID into a cookie value valid for the service TTL.
func (s *TokenService) Generate(sessionID string) (string, error) {
	return s.GenerateWithDuration(sessionID, s.ttl)
}

// GenerateWithDuration signs sessionID with a custom lifetime.
// Negative durations produce already-expired tokens, which tests rely on.
func (s *TokenService) GenerateWithDuration(sessionID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session cookie: %w", err)
	}

	return signed, nil
}

// Validate verifies a cookie value and returns the session ID in it.
//
// Checks: HMAC signature, HS256 only (no "none" algorithm confusion),
// issuer, and a required, unexpired "exp".
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: session cookie expired")
		}
		return "", fmt.Errorf("auth: invalid session cookie: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid session cookie claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: session cookie has no subject")
	}

	return c.Subject, nil
}
