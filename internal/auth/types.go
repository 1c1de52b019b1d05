package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// AuthorityUser is the single authority tag every authenticated account
// carries. All accounts are administrative equals; the tag exists for
// forward compatibility, not for role checks.
const AuthorityUser = "USER"

// Credential represents a stored login credential.
type Credential struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	PersonRef    string    `json:"person_ref"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated identity attached to a request.
// It carries no password material and is safe to serialise.
type Principal struct {
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
}

// NewPrincipal builds a Principal for an authenticated username.
func NewPrincipal(username string) *Principal {
	return &Principal{
		Username:    username,
		Authorities: []string{AuthorityUser},
	}
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrValidation         = errors.New("invalid registration input")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)
