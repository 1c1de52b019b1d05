package people

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for person persistence.
// Authors and evaluators use the same operations over separate tables.
type Repository interface {
	Create(ctx context.Context, p *Person) error
	GetByID(ctx context.Context, id string) (*Person, error)
	List(ctx context.Context) ([]Person, error)
	Update(ctx context.Context, p *Person) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository over a single table.
type SQLiteRepository struct {
	db       *sql.DB
	table    string
	idPrefix string
}

// NewAuthorRepository creates a repository over the authors table.
func NewAuthorRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, table: "authors", idPrefix: "aut-"}
}

// NewEvaluatorRepository creates a repository over the evaluators table.
func NewEvaluatorRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, table: "evaluators", idPrefix: "avl-"}
}

// Create inserts a new person. The ID is generated if empty.
// A duplicate CPF returns ErrCPFExists.
func (r *SQLiteRepository) Create(ctx context.Context, p *Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = r.idPrefix + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt = now
	p.UpdatedAt = now

	// Table names are fixed at construction, never user input.
	query := fmt.Sprintf( //nolint:gosec // table name is a compile-time constant
		`INSERT INTO %s (id, name, cpf, phone, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.CPF, nullString(p.Phone), nullString(p.Email),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCPFExists
		}
		return fmt.Errorf("creating person: %w", err)
	}

	return nil
}

// GetByID retrieves a person by ID. A missing row returns ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Person, error) {
	query := fmt.Sprintf( //nolint:gosec // table name is a compile-time constant
		"SELECT id, name, cpf, phone, email, created_at, updated_at FROM %s WHERE id = ?", r.table)

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all people in the table ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Person, error) {
	query := fmt.Sprintf( //nolint:gosec // table name is a compile-time constant
		"SELECT id, name, cpf, phone, email, created_at, updated_at FROM %s ORDER BY name ASC", r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating people: %w", err)
	}

	if people == nil {
		people = []Person{}
	}
	return people, nil
}

// Update modifies a person's mutable fields.
func (r *SQLiteRepository) Update(ctx context.Context, p *Person) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.UpdatedAt = now

	query := fmt.Sprintf( //nolint:gosec // table name is a compile-time constant
		"UPDATE %s SET name = ?, cpf = ?, phone = ?, email = ?, updated_at = ? WHERE id = ?", r.table)

	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.CPF, nullString(p.Phone), nullString(p.Email),
		now.Format(time.RFC3339), p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCPFExists
		}
		return fmt.Errorf("updating person: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a person by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.table) //nolint:gosec // table name is a compile-time constant

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(s scanner) (*Person, error) {
	var p Person
	var phone, email sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.Name, &p.CPF, &phone, &email, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning person: %w", err)
	}

	if phone.Valid {
		p.Phone = phone.String
	}
	if email.Valid {
		p.Email = email.String
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
