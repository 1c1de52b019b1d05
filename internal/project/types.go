// Package project manages submitted projects, their author links,
// evaluation statuses, and evaluations.
package project

import (
	"errors"
	"time"
)

// Project is a submitted project under evaluation.
type Project struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	ThematicArea string    `json:"thematic_area,omitempty"`
	SubmittedOn  string    `json:"submitted_on,omitempty"` // YYYY-MM-DD
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks required fields before persistence.
func (p *Project) Validate() error {
	if p.Title == "" {
		return errors.New("title is required")
	}
	if p.SubmittedOn != "" {
		if _, err := time.Parse(time.DateOnly, p.SubmittedOn); err != nil {
			return errors.New("submitted_on must be YYYY-MM-DD")
		}
	}
	return nil
}

// Status is an evaluation outcome category (pending, approved, rejected, ...).
type Status struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Evaluation is an evaluator's review of a project.
type Evaluation struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	EvaluatorID string    `json:"evaluator_id"`
	StatusID    string    `json:"status_id"`
	Verdict     string    `json:"verdict,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	EvaluatedOn string    `json:"evaluated_on,omitempty"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// maxVerdictLength bounds the free-text verdict field.
const maxVerdictLength = 1000

// Validate checks required fields and value ranges before persistence.
func (e *Evaluation) Validate() error {
	if e.ProjectID == "" {
		return errors.New("project_id is required")
	}
	if e.EvaluatorID == "" {
		return errors.New("evaluator_id is required")
	}
	if e.StatusID == "" {
		return errors.New("status_id is required")
	}
	if len(e.Verdict) > maxVerdictLength {
		return errors.New("verdict exceeds 1000 characters")
	}
	if e.Score != nil && (*e.Score < 0 || *e.Score > 10) {
		return errors.New("score must be between 0 and 10")
	}
	if e.EvaluatedOn != "" {
		if _, err := time.Parse(time.DateOnly, e.EvaluatedOn); err != nil {
			return errors.New("evaluated_on must be YYYY-MM-DD")
		}
	}
	return nil
}

// Sentinel errors for project operations.
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrStatusNotFound     = errors.New("status not found")
	ErrStatusExists       = errors.New("status description already exists")
	ErrInvalidReference   = errors.New("referenced entity does not exist")
)
