package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raunerlucas/app-gestao-projetos/internal/project"
)

// evaluationRequest is the request body for evaluation writes.
type evaluationRequest struct {
	ProjectID   string   `json:"project_id"`
	EvaluatorID string   `json:"evaluator_id"`
	StatusID    string   `json:"status_id"`
	Verdict     string   `json:"verdict,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	EvaluatedOn string   `json:"evaluated_on,omitempty"`
}

// handleListEvaluations returns all evaluations.
func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	evaluations, err := s.evaluations.List(r.Context())
	if err != nil {
		s.logger.Error("list evaluations failed", "error", err)
		writeInternalError(w, "failed to list evaluations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": evaluations,
		"count":       len(evaluations),
	})
}

// handleCreateEvaluation records an evaluator's review of a project.
func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	e := &project.Evaluation{
		ProjectID:   req.ProjectID,
		EvaluatorID: req.EvaluatorID,
		StatusID:    req.StatusID,
		Verdict:     req.Verdict,
		Score:       req.Score,
		EvaluatedOn: req.EvaluatedOn,
	}
	if err := e.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.evaluations.Create(r.Context(), e); err != nil {
		if errors.Is(err, project.ErrInvalidReference) {
			writeValidationError(w, "project, evaluator, or status does not exist")
			return
		}
		s.logger.Error("create evaluation failed", "error", err)
		writeInternalError(w, "failed to create evaluation")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("evaluation created",
		"evaluation_id", e.ID,
		"project_id", e.ProjectID,
		"evaluator_id", e.EvaluatorID,
		"by", username,
	)
	s.auditLog("create", "evaluation", e.ID, username, map[string]any{
		"project_id":   e.ProjectID,
		"evaluator_id": e.EvaluatorID,
		"status_id":    e.StatusID,
	})
	s.broadcast("evaluation.created", e)

	writeJSON(w, http.StatusCreated, e)
}

// handleGetEvaluation returns a single evaluation by ID.
func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := s.evaluations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrEvaluationNotFound) {
			writeNotFound(w, "evaluation not found")
			return
		}
		s.logger.Error("get evaluation failed", "error", err)
		writeInternalError(w, "failed to get evaluation")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// handleUpdateEvaluation replaces an evaluation's mutable fields.
func (s *Server) handleUpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	e, err := s.evaluations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrEvaluationNotFound) {
			writeNotFound(w, "evaluation not found")
			return
		}
		s.logger.Error("get evaluation for update failed", "error", err)
		writeInternalError(w, "failed to update evaluation")
		return
	}

	e.ProjectID = req.ProjectID
	e.EvaluatorID = req.EvaluatorID
	e.StatusID = req.StatusID
	e.Verdict = req.Verdict
	e.Score = req.Score
	e.EvaluatedOn = req.EvaluatedOn
	if err := e.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.evaluations.Update(r.Context(), e); err != nil {
		if errors.Is(err, project.ErrInvalidReference) {
			writeValidationError(w, "project, evaluator, or status does not exist")
			return
		}
		s.logger.Error("update evaluation failed", "error", err)
		writeInternalError(w, "failed to update evaluation")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("evaluation updated", "evaluation_id", id, "by", username)
	s.auditLog("update", "evaluation", id, username, nil)
	s.broadcast("evaluation.updated", e)

	writeJSON(w, http.StatusOK, e)
}

// handleDeleteEvaluation removes an evaluation.
func (s *Server) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.evaluations.Delete(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrEvaluationNotFound) {
			writeNotFound(w, "evaluation not found")
			return
		}
		s.logger.Error("delete evaluation failed", "error", err)
		writeInternalError(w, "failed to delete evaluation")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("evaluation deleted", "evaluation_id", id, "by", username)
	s.auditLog("delete", "evaluation", id, username, nil)
	s.broadcast("evaluation.deleted", map[string]string{"id": id})

	w.WriteHeader(http.StatusNoContent)
}

// handleListStatuses returns all evaluation statuses.
func (s *Server) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.statuses.List(r.Context())
	if err != nil {
		s.logger.Error("list statuses failed", "error", err)
		writeInternalError(w, "failed to list statuses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": statuses,
		"count":    len(statuses),
	})
}

// handleCreateStatus adds a new evaluation status category.
func (s *Server) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Description == "" {
		writeValidationError(w, "description is required")
		return
	}

	st := &project.Status{Description: req.Description}
	if err := s.statuses.Create(r.Context(), st); err != nil {
		if errors.Is(err, project.ErrStatusExists) {
			writeConflict(w, "a status with this description already exists")
			return
		}
		s.logger.Error("create status failed", "error", err)
		writeInternalError(w, "failed to create status")
		return
	}

	username := usernameFrom(r.Context())
	s.auditLog("create", "status", st.ID, username, map[string]any{"description": st.Description})

	writeJSON(w, http.StatusCreated, st)
}

// handleGetStatus returns a single status by ID.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := s.statuses.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrStatusNotFound) {
			writeNotFound(w, "status not found")
			return
		}
		s.logger.Error("get status failed", "error", err)
		writeInternalError(w, "failed to get status")
		return
	}

	writeJSON(w, http.StatusOK, st)
}
