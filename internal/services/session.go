package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the cookie carrying the signed session token
const SessionCookie = "app_token"

// ErrInvalidSession is returned for any token that fails verification
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims are the claims of a session token. Degraded marks a transient
// identity issued while the datastore was unavailable.
type SessionClaims struct {
	Degraded bool `json:"deg,omitempty"`
	jwt.RegisteredClaims
}

// SessionSigner issues and verifies HS256 session tokens
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionSigner creates a signer with the given secret and token lifetime
func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens
func (s *SessionSigner) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the user id
func (s *SessionSigner) Issue(userID string, degraded bool) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := SessionClaims{
		Degraded: degraded,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("cannot sign session token: %w", err)
	}
	return token, expires, nil
}

// Verify checks signature and expiry and returns the claims
func (s *SessionSigner) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
