package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raunerlucas/app-gestao-projetos/internal/project"
)

// projectRequest is the request body for project writes.
type projectRequest struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary,omitempty"`
	ThematicArea string   `json:"thematic_area,omitempty"`
	SubmittedOn  string   `json:"submitted_on,omitempty"`
	AuthorIDs    []string `json:"author_ids,omitempty"`
}

// setProjectAuthorsRequest is the request body for PUT /projects/{id}/authors.
type setProjectAuthorsRequest struct {
	AuthorIDs []string `json:"author_ids"`
}

// handleListProjects returns all projects.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.List(r.Context())
	if err != nil {
		s.logger.Error("list projects failed", "error", err)
		writeInternalError(w, "failed to list projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleCreateProject creates a project, optionally linking authors in the
// same request.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := &project.Project{
		Title:        req.Title,
		Summary:      req.Summary,
		ThematicArea: req.ThematicArea,
		SubmittedOn:  req.SubmittedOn,
	}
	if err := p.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.projects.Create(r.Context(), p); err != nil {
		s.logger.Error("create project failed", "error", err)
		writeInternalError(w, "failed to create project")
		return
	}

	if len(req.AuthorIDs) > 0 {
		if err := s.projects.SetAuthors(r.Context(), p.ID, req.AuthorIDs); err != nil {
			if errors.Is(err, project.ErrInvalidReference) {
				// The project row exists but the links failed; surface the bad
				// reference rather than a half-linked success.
				writeValidationError(w, "one or more author IDs do not exist")
				return
			}
			s.logger.Error("set project authors failed", "project_id", p.ID, "error", err)
			writeInternalError(w, "failed to link authors")
			return
		}
	}

	username := usernameFrom(r.Context())
	s.logger.Info("project created", "project_id", p.ID, "title", p.Title, "by", username)
	s.auditLog("create", "project", p.ID, username, map[string]any{"title": p.Title})
	s.broadcast("project.created", p)

	writeJSON(w, http.StatusCreated, p)
}

// handleGetProject returns a single project with its author IDs.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.projects.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("get project failed", "error", err)
		writeInternalError(w, "failed to get project")
		return
	}

	authorIDs, err := s.projects.ListAuthorIDs(r.Context(), id)
	if err != nil {
		s.logger.Error("list project author ids failed", "project_id", id, "error", err)
		writeInternalError(w, "failed to get project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project":    p,
		"author_ids": authorIDs,
	})
}

// handleUpdateProject replaces a project's mutable fields.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := s.projects.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("get project for update failed", "error", err)
		writeInternalError(w, "failed to update project")
		return
	}

	p.Title = req.Title
	p.Summary = req.Summary
	p.ThematicArea = req.ThematicArea
	p.SubmittedOn = req.SubmittedOn
	if err := p.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.projects.Update(r.Context(), p); err != nil {
		s.logger.Error("update project failed", "error", err)
		writeInternalError(w, "failed to update project")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("project updated", "project_id", id, "by", username)
	s.auditLog("update", "project", id, username, nil)
	s.broadcast("project.updated", p)

	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProject removes a project. Join rows and evaluations cascade.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.projects.Delete(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("delete project failed", "error", err)
		writeInternalError(w, "failed to delete project")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("project deleted", "project_id", id, "by", username)
	s.auditLog("delete", "project", id, username, nil)
	s.broadcast("project.deleted", map[string]string{"id": id})

	w.WriteHeader(http.StatusNoContent)
}

// handleListProjectAuthors returns the authors linked to a project.
func (s *Server) handleListProjectAuthors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.projects.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("get project failed", "error", err)
		writeInternalError(w, "failed to list project authors")
		return
	}

	authorIDs, err := s.projects.ListAuthorIDs(r.Context(), id)
	if err != nil {
		s.logger.Error("list project author ids failed", "project_id", id, "error", err)
		writeInternalError(w, "failed to list project authors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"author_ids": authorIDs,
		"count":      len(authorIDs),
	})
}

// handleSetProjectAuthors replaces the full author membership of a project.
// An empty list unlinks all authors.
func (s *Server) handleSetProjectAuthors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setProjectAuthorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.projects.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("get project failed", "error", err)
		writeInternalError(w, "failed to set project authors")
		return
	}

	if err := s.projects.SetAuthors(r.Context(), id, req.AuthorIDs); err != nil {
		if errors.Is(err, project.ErrInvalidReference) {
			writeValidationError(w, "one or more author IDs do not exist")
			return
		}
		s.logger.Error("set project authors failed", "project_id", id, "error", err)
		writeInternalError(w, "failed to set project authors")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("project authors set", "project_id", id, "author_count", len(req.AuthorIDs), "by", username)
	s.auditLog("set_authors", "project", id, username, map[string]any{
		"author_count": len(req.AuthorIDs),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"author_ids": req.AuthorIDs,
		"count":      len(req.AuthorIDs),
	})
}

// handleAddProjectAuthor links a single author to a project. Linking an
// already-linked author is a no-op.
func (s *Server) handleAddProjectAuthor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authorID := chi.URLParam(r, "authorID")

	if err := s.projects.AddAuthor(r.Context(), id, authorID); err != nil {
		if errors.Is(err, project.ErrInvalidReference) {
			writeValidationError(w, "project or author does not exist")
			return
		}
		s.logger.Error("add project author failed", "project_id", id, "author_id", authorID, "error", err)
		writeInternalError(w, "failed to link author")
		return
	}

	username := usernameFrom(r.Context())
	s.auditLog("add_author", "project", id, username, map[string]any{"author_id": authorID})

	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveProjectAuthor unlinks a single author from a project.
func (s *Server) handleRemoveProjectAuthor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authorID := chi.URLParam(r, "authorID")

	if err := s.projects.RemoveAuthor(r.Context(), id, authorID); err != nil {
		s.logger.Error("remove project author failed", "project_id", id, "author_id", authorID, "error", err)
		writeInternalError(w, "failed to unlink author")
		return
	}

	username := usernameFrom(r.Context())
	s.auditLog("remove_author", "project", id, username, map[string]any{"author_id": authorID})

	w.WriteHeader(http.StatusNoContent)
}

// handleListProjectEvaluations returns the evaluations recorded for a project.
func (s *Server) handleListProjectEvaluations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.projects.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("get project failed", "error", err)
		writeInternalError(w, "failed to list project evaluations")
		return
	}

	evaluations, err := s.evaluations.ListByProject(r.Context(), id)
	if err != nil {
		s.logger.Error("list evaluations by project failed", "project_id", id, "error", err)
		writeInternalError(w, "failed to list project evaluations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": evaluations,
		"count":       len(evaluations),
	})
}
