package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raunerlucas/app-gestao-projetos/internal/people"
)

// personRequest is the request body for author and evaluator writes.
type personRequest struct {
	Name  string `json:"name"`
	CPF   string `json:"cpf"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Authors and evaluators share the Person shape and repository; the handlers
// below delegate to a common set parameterized by repo and entity type.

// ─── Authors ───────────────────────────────────────────────────────

func (s *Server) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	s.listPeople(w, r, s.authors, "authors")
}

func (s *Server) handleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	s.createPerson(w, r, s.authors, "author")
}

func (s *Server) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	s.getPerson(w, r, s.authors, "author")
}

func (s *Server) handleUpdateAuthor(w http.ResponseWriter, r *http.Request) {
	s.updatePerson(w, r, s.authors, "author")
}

func (s *Server) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	s.deletePerson(w, r, s.authors, "author")
}

// handleListAuthorProjects returns the projects an author is linked to.
func (s *Server) handleListAuthorProjects(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.authors.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, people.ErrNotFound) {
			writeNotFound(w, "author not found")
			return
		}
		s.logger.Error("get author failed", "error", err)
		writeInternalError(w, "failed to list author projects")
		return
	}

	projects, err := s.projects.ListByAuthor(r.Context(), id)
	if err != nil {
		s.logger.Error("list projects by author failed", "author_id", id, "error", err)
		writeInternalError(w, "failed to list author projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// ─── Evaluators ────────────────────────────────────────────────────

func (s *Server) handleListEvaluators(w http.ResponseWriter, r *http.Request) {
	s.listPeople(w, r, s.evaluators, "evaluators")
}

func (s *Server) handleCreateEvaluator(w http.ResponseWriter, r *http.Request) {
	s.createPerson(w, r, s.evaluators, "evaluator")
}

func (s *Server) handleGetEvaluator(w http.ResponseWriter, r *http.Request) {
	s.getPerson(w, r, s.evaluators, "evaluator")
}

func (s *Server) handleUpdateEvaluator(w http.ResponseWriter, r *http.Request) {
	s.updatePerson(w, r, s.evaluators, "evaluator")
}

func (s *Server) handleDeleteEvaluator(w http.ResponseWriter, r *http.Request) {
	s.deletePerson(w, r, s.evaluators, "evaluator")
}

// handleListEvaluatorEvaluations returns the evaluations authored by an evaluator.
func (s *Server) handleListEvaluatorEvaluations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.evaluators.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, people.ErrNotFound) {
			writeNotFound(w, "evaluator not found")
			return
		}
		s.logger.Error("get evaluator failed", "error", err)
		writeInternalError(w, "failed to list evaluator evaluations")
		return
	}

	evaluations, err := s.evaluations.ListByEvaluator(r.Context(), id)
	if err != nil {
		s.logger.Error("list evaluations by evaluator failed", "evaluator_id", id, "error", err)
		writeInternalError(w, "failed to list evaluator evaluations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": evaluations,
		"count":       len(evaluations),
	})
}

// ─── Shared handlers ───────────────────────────────────────────────

func (s *Server) listPeople(w http.ResponseWriter, r *http.Request, repo people.Repository, plural string) {
	list, err := repo.List(r.Context())
	if err != nil {
		s.logger.Error("list "+plural+" failed", "error", err)
		writeInternalError(w, "failed to list "+plural)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		plural:  list,
		"count": len(list),
	})
}

func (s *Server) createPerson(w http.ResponseWriter, r *http.Request, repo people.Repository, entityType string) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := &people.Person{
		Name:  req.Name,
		CPF:   req.CPF,
		Phone: req.Phone,
		Email: req.Email,
	}
	if err := p.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := repo.Create(r.Context(), p); err != nil {
		if errors.Is(err, people.ErrCPFExists) {
			writeConflict(w, "a "+entityType+" with this CPF already exists")
			return
		}
		s.logger.Error("create "+entityType+" failed", "error", err)
		writeInternalError(w, "failed to create "+entityType)
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info(entityType+" created", "id", p.ID, "by", username)
	s.auditLog("create", entityType, p.ID, username, map[string]any{"name": p.Name})
	s.broadcast(entityType+".created", p)

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getPerson(w http.ResponseWriter, r *http.Request, repo people.Repository, entityType string) {
	id := chi.URLParam(r, "id")

	p, err := repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, people.ErrNotFound) {
			writeNotFound(w, entityType+" not found")
			return
		}
		s.logger.Error("get "+entityType+" failed", "error", err)
		writeInternalError(w, "failed to get "+entityType)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updatePerson(w http.ResponseWriter, r *http.Request, repo people.Repository, entityType string) {
	id := chi.URLParam(r, "id")

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, people.ErrNotFound) {
			writeNotFound(w, entityType+" not found")
			return
		}
		s.logger.Error("get "+entityType+" for update failed", "error", err)
		writeInternalError(w, "failed to update "+entityType)
		return
	}

	p.Name = req.Name
	p.CPF = req.CPF
	p.Phone = req.Phone
	p.Email = req.Email
	if err := p.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := repo.Update(r.Context(), p); err != nil {
		if errors.Is(err, people.ErrCPFExists) {
			writeConflict(w, "a "+entityType+" with this CPF already exists")
			return
		}
		s.logger.Error("update "+entityType+" failed", "error", err)
		writeInternalError(w, "failed to update "+entityType)
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info(entityType+" updated", "id", id, "by", username)
	s.auditLog("update", entityType, id, username, nil)
	s.broadcast(entityType+".updated", p)

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePerson(w http.ResponseWriter, r *http.Request, repo people.Repository, entityType string) {
	id := chi.URLParam(r, "id")

	if err := repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, people.ErrNotFound) {
			writeNotFound(w, entityType+" not found")
			return
		}
		s.logger.Error("delete "+entityType+" failed", "error", err)
		writeInternalError(w, "failed to delete "+entityType)
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info(entityType+" deleted", "id", id, "by", username)
	s.auditLog("delete", entityType, id, username, nil)
	s.broadcast(entityType+".deleted", map[string]string{"id": id})

	w.WriteHeader(http.StatusNoContent)
}
