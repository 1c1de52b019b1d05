package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredentialStore defines the interface for credential persistence.
// The verifier depends on this interface, not on SQLite, so tests can
// substitute in-memory or failing stores.
type CredentialStore interface {
	Create(ctx context.Context, cred *Credential) error
	GetByUsername(ctx context.Context, username string) (*Credential, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteCredentialStore implements CredentialStore using SQLite.
type SQLiteCredentialStore struct {
	db *sql.DB
}

// NewCredentialStore creates a new SQLite-backed credential store.
func NewCredentialStore(db *sql.DB) *SQLiteCredentialStore {
	return &SQLiteCredentialStore{db: db}
}

// Create inserts a new credential. The ID is generated if empty.
// A duplicate username returns ErrUsernameExists.
func (s *SQLiteCredentialStore) Create(ctx context.Context, cred *Credential) error {
	if cred.ID == "" {
		cred.ID = "usr-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	cred.CreatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, username, password_hash, person_ref, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cred.ID, cred.Username, cred.PasswordHash, cred.PersonRef,
		now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating credential: %w", err)
	}

	return nil
}

// GetByUsername retrieves a credential by username.
// A missing row returns ErrCredentialNotFound.
func (s *SQLiteCredentialStore) GetByUsername(ctx context.Context, username string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, person_ref, created_at FROM credentials WHERE username = ?",
		username,
	)

	var c Credential
	var createdAt string
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.PersonRef, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &c, nil
}

// Count returns the total number of credentials.
func (s *SQLiteCredentialStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM credentials").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting credentials: %w", err)
	}
	return count, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
