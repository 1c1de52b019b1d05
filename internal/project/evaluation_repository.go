package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EvaluationRepository defines the interface for evaluation persistence.
type EvaluationRepository interface {
	Create(ctx context.Context, e *Evaluation) error
	GetByID(ctx context.Context, id string) (*Evaluation, error)
	List(ctx context.Context) ([]Evaluation, error)
	ListByProject(ctx context.Context, projectID string) ([]Evaluation, error)
	ListByEvaluator(ctx context.Context, evaluatorID string) ([]Evaluation, error)
	Update(ctx context.Context, e *Evaluation) error
	Delete(ctx context.Context, id string) error
}

// SQLiteEvaluationRepository implements EvaluationRepository using SQLite.
type SQLiteEvaluationRepository struct {
	db *sql.DB
}

// NewEvaluationRepository creates a new SQLite-backed evaluation repository.
func NewEvaluationRepository(db *sql.DB) *SQLiteEvaluationRepository {
	return &SQLiteEvaluationRepository{db: db}
}

const evaluationColumns = "id, project_id, evaluator_id, status_id, verdict, score, evaluated_on, created_at, updated_at"

// Create inserts a new evaluation. The ID is generated if empty.
// Unknown project, evaluator, or status IDs return ErrInvalidReference.
func (r *SQLiteEvaluationRepository) Create(ctx context.Context, e *Evaluation) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = "eva-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, project_id, evaluator_id, status_id, verdict, score, evaluated_on, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.EvaluatorID, e.StatusID, e.Verdict,
		nullFloat(e.Score), nullString(e.EvaluatedOn),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("creating evaluation: %w", err)
	}
	return nil
}

// GetByID retrieves an evaluation by ID.
func (r *SQLiteEvaluationRepository) GetByID(ctx context.Context, id string) (*Evaluation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+evaluationColumns+" FROM evaluations WHERE id = ?", id)
	return scanEvaluation(row)
}

// List returns all evaluations ordered by creation date.
func (r *SQLiteEvaluationRepository) List(ctx context.Context) ([]Evaluation, error) {
	return r.listWhere(ctx, "", nil)
}

// ListByProject returns all evaluations of a project.
func (r *SQLiteEvaluationRepository) ListByProject(ctx context.Context, projectID string) ([]Evaluation, error) {
	return r.listWhere(ctx, "WHERE project_id = ?", []any{projectID})
}

// ListByEvaluator returns all evaluations written by an evaluator.
func (r *SQLiteEvaluationRepository) ListByEvaluator(ctx context.Context, evaluatorID string) ([]Evaluation, error) {
	return r.listWhere(ctx, "WHERE evaluator_id = ?", []any{evaluatorID})
}

func (r *SQLiteEvaluationRepository) listWhere(ctx context.Context, where string, args []any) ([]Evaluation, error) {
	query := "SELECT " + evaluationColumns + " FROM evaluations " + where + " ORDER BY created_at ASC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	defer rows.Close()

	var evaluations []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating evaluations: %w", err)
	}

	if evaluations == nil {
		evaluations = []Evaluation{}
	}
	return evaluations, nil
}

// Update modifies an evaluation's mutable fields.
func (r *SQLiteEvaluationRepository) Update(ctx context.Context, e *Evaluation) error {
	if err := e.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	e.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE evaluations SET status_id = ?, verdict = ?, score = ?, evaluated_on = ?, updated_at = ?
		 WHERE id = ?`,
		e.StatusID, e.Verdict, nullFloat(e.Score), nullString(e.EvaluatedOn),
		now.Format(time.RFC3339), e.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("updating evaluation: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrEvaluationNotFound
	}
	return nil
}

// Delete removes an evaluation by ID.
func (r *SQLiteEvaluationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM evaluations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting evaluation: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrEvaluationNotFound
	}
	return nil
}

func scanEvaluation(s scanner) (*Evaluation, error) {
	var e Evaluation
	var score sql.NullFloat64
	var evaluatedOn sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&e.ID, &e.ProjectID, &e.EvaluatorID, &e.StatusID,
		&e.Verdict, &score, &evaluatedOn, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("scanning evaluation: %w", err)
	}

	if score.Valid {
		v := score.Float64
		e.Score = &v
	}
	if evaluatedOn.Valid {
		e.EvaluatedOn = evaluatedOn.String
	}

	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &e, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
