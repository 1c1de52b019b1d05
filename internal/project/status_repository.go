package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// StatusRepository defines the interface for evaluation status persistence.
type StatusRepository interface {
	Create(ctx context.Context, s *Status) error
	GetByID(ctx context.Context, id string) (*Status, error)
	List(ctx context.Context) ([]Status, error)
}

// SQLiteStatusRepository implements StatusRepository using SQLite.
type SQLiteStatusRepository struct {
	db *sql.DB
}

// NewStatusRepository creates a new SQLite-backed status repository.
func NewStatusRepository(db *sql.DB) *SQLiteStatusRepository {
	return &SQLiteStatusRepository{db: db}
}

// Create inserts a new status. The ID is generated if empty.
// A duplicate description returns ErrStatusExists.
func (r *SQLiteStatusRepository) Create(ctx context.Context, s *Status) error {
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.ID == "" {
		s.ID = "sts-" + uuid.NewString()[:8]
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO statuses (id, description) VALUES (?, ?)",
		s.ID, s.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrStatusExists
		}
		return fmt.Errorf("creating status: %w", err)
	}
	return nil
}

// GetByID retrieves a status by ID. A missing row returns ErrStatusNotFound.
func (r *SQLiteStatusRepository) GetByID(ctx context.Context, id string) (*Status, error) {
	var s Status
	err := r.db.QueryRowContext(ctx,
		"SELECT id, description FROM statuses WHERE id = ?", id,
	).Scan(&s.ID, &s.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("scanning status: %w", err)
	}
	return &s, nil
}

// List returns all statuses ordered by description.
func (r *SQLiteStatusRepository) List(ctx context.Context) ([]Status, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, description FROM statuses ORDER BY description ASC")
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Description); err != nil {
			return nil, fmt.Errorf("scanning status: %w", err)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statuses: %w", err)
	}

	if statuses == nil {
		statuses = []Status{}
	}
	return statuses, nil
}
