package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenWindow is the token validity window used when none is configured.
const DefaultTokenWindow = 2 * time.Hour

// TokenService issues and validates stateless HS256 access tokens.
//
// Every method is a pure function of its input, the signing key, and the
// clock — no locks, no shared mutable state. A single instance serves any
// number of concurrent requests.
type TokenService struct {
	key    []byte
	window time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service with the given signing key and
// validity window. A zero window falls back to DefaultTokenWindow.
func NewTokenService(key []byte, window time.Duration) *TokenService {
	if window <= 0 {
		window = DefaultTokenWindow
	}
	return &TokenService{
		key:    key,
		window: window,
		now:    time.Now,
	}
}

// NewTokenServiceWithClock creates a token service with an injected clock.
// Expiry tests use this to cross the validity boundary without sleeping.
func NewTokenServiceWithClock(key []byte, window time.Duration, now func() time.Time) *TokenService {
	ts := NewTokenService(key, window)
	ts.now = now
	return ts
}

// Window returns the configured validity window.
func (ts *TokenService) Window() time.Duration {
	return ts.window
}

// Issue creates a signed token for the given subject. The token expires
// exactly one window after issuance.
func (ts *TokenService) Issue(subject string) (string, error) {
	now := ts.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.window)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate checks a token's signature, structure, and expiry, returning the
// subject it was issued for. Every failure mode — tampered payload, garbage
// input, wrong algorithm, expired window — comes back as ErrTokenInvalid;
// callers treat them all as 401.
//
// A token whose expiry instant equals the current instant is expired.
func (ts *TokenService) Validate(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return ts.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return "", ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims.Subject, nil
}

// Refresh exchanges a still-valid token for a fresh one with a full window.
// An invalid or expired input yields ErrTokenInvalid — there is no grace
// period past expiry.
func (ts *TokenService) Refresh(raw string) (string, error) {
	subject, err := ts.Validate(raw)
	if err != nil {
		return "", err
	}
	return ts.Issue(subject)
}
