package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// lookupTimeout bounds credential store lookups so a stalled database
// cannot hold request goroutines indefinitely.
const lookupTimeout = 5 * time.Second

// Verifier checks submitted credentials against the store and registers
// new accounts. It is stateless and safe for concurrent use.
type Verifier struct {
	store CredentialStore
	cost  int
}

// NewVerifier creates a verifier over the given credential store.
// cost is the bcrypt cost for newly registered passwords.
func NewVerifier(store CredentialStore, cost int) *Verifier {
	return &Verifier{store: store, cost: cost}
}

// Authenticate checks a username/password pair.
//
// Unknown usernames and wrong passwords both return ErrInvalidCredentials —
// the caller cannot tell which field was wrong. Store failures return
// ErrStoreUnavailable so the API can answer 503 instead of 401; the lookup
// is not retried.
func (v *Verifier) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	cred, err := v.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ok, err := VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return NewPrincipal(cred.Username), nil
}

// Register creates a new credential for a person.
//
// Empty or malformed input returns ErrValidation; a duplicate username
// returns ErrUsernameExists. The plaintext password is hashed before it
// reaches the store and is never persisted.
func (v *Verifier) Register(ctx context.Context, username, password, personRef string) (*Credential, error) {
	if username == "" || password == "" || personRef == "" {
		return nil, fmt.Errorf("%w: username, password and person_ref are required", ErrValidation)
	}
	if !IsValidUsername(username) {
		return nil, fmt.Errorf("%w: username must be 1-64 characters (letters, digits, dot, hyphen, underscore)", ErrValidation)
	}

	hash, err := HashPassword(password, v.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	cred := &Credential{
		Username:     username,
		PasswordHash: hash,
		PersonRef:    personRef,
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	if err := v.store.Create(ctx, cred); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return cred, nil
}
