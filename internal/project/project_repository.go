package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectRepository defines the interface for project persistence,
// including the author membership of each project.
type ProjectRepository interface { //nolint:revive // project.ProjectRepository is clearer than project.Repository alongside the other repos
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error

	SetAuthors(ctx context.Context, projectID string, authorIDs []string) error
	AddAuthor(ctx context.Context, projectID, authorID string) error
	RemoveAuthor(ctx context.Context, projectID, authorID string) error
	ListAuthorIDs(ctx context.Context, projectID string) ([]string, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Project, error)
}

// SQLiteProjectRepository implements ProjectRepository using SQLite.
type SQLiteProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new SQLite-backed project repository.
func NewProjectRepository(db *sql.DB) *SQLiteProjectRepository {
	return &SQLiteProjectRepository{db: db}
}

const projectColumns = "id, title, summary, thematic_area, submitted_on, created_at, updated_at"

// Create inserts a new project. The ID is generated if empty.
func (r *SQLiteProjectRepository) Create(ctx context.Context, p *Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = "prj-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, title, summary, thematic_area, submitted_on, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Summary, p.ThematicArea, nullString(p.SubmittedOn),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID. A missing row returns ErrProjectNotFound.
func (r *SQLiteProjectRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

// List returns all projects ordered by creation date.
func (r *SQLiteProjectRepository) List(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

// Update modifies a project's mutable fields.
func (r *SQLiteProjectRepository) Update(ctx context.Context, p *Project) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET title = ?, summary = ?, thematic_area = ?, submitted_on = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Summary, p.ThematicArea, nullString(p.SubmittedOn),
		now.Format(time.RFC3339), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Delete removes a project. Author links and evaluations cascade.
func (r *SQLiteProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// SetAuthors replaces the full author membership of a project in one
// transaction. Unknown project or author IDs return ErrInvalidReference.
func (r *SQLiteProjectRepository) SetAuthors(ctx context.Context, projectID string, authorIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM project_authors WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("clearing project authors: %w", err)
	}

	for _, authorID := range authorIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO project_authors (project_id, author_id) VALUES (?, ?)",
			projectID, authorID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return ErrInvalidReference
			}
			return fmt.Errorf("linking author %s: %w", authorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing author links: %w", err)
	}
	return nil
}

// AddAuthor links a single author to a project. Duplicate links are a no-op.
func (r *SQLiteProjectRepository) AddAuthor(ctx context.Context, projectID, authorID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO project_authors (project_id, author_id) VALUES (?, ?)",
		projectID, authorID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("linking author: %w", err)
	}
	return nil
}

// RemoveAuthor unlinks an author from a project.
func (r *SQLiteProjectRepository) RemoveAuthor(ctx context.Context, projectID, authorID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM project_authors WHERE project_id = ? AND author_id = ?",
		projectID, authorID,
	)
	if err != nil {
		return fmt.Errorf("unlinking author: %w", err)
	}
	return nil
}

// ListAuthorIDs returns the author IDs linked to a project.
func (r *SQLiteProjectRepository) ListAuthorIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT author_id FROM project_authors WHERE project_id = ? ORDER BY author_id", projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project authors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning author id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating author ids: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ListByAuthor returns all projects an author is linked to.
func (r *SQLiteProjectRepository) ListByAuthor(ctx context.Context, authorID string) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.summary, p.thematic_area, p.submitted_on, p.created_at, p.updated_at
		 FROM projects p
		 JOIN project_authors pa ON pa.project_id = p.id
		 WHERE pa.author_id = ?
		 ORDER BY p.created_at ASC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("listing projects by author: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var submittedOn sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.Title, &p.Summary, &p.ThematicArea, &submittedOn, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	if submittedOn.Valid {
		p.SubmittedOn = submittedOn.String
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &p, nil
}

func collectProjects(rows *sql.Rows) ([]Project, error) {
	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	if projects == nil {
		projects = []Project{}
	}
	return projects, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isForeignKeyViolation checks if a SQLite error is a FOREIGN KEY violation.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
