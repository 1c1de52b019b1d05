package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raunerlucas/app-gestao-projetos/internal/schedule"
)

// scheduleRequest is the request body for schedule writes.
type scheduleRequest struct {
	Description string         `json:"description"`
	StartsOn    string         `json:"starts_on"`
	EndsOn      string         `json:"ends_on"`
	State       schedule.State `json:"state,omitempty"`
}

// prizeRequest is the request body for prize writes.
type prizeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	EditionYear int    `json:"edition_year"`
	ScheduleID  string `json:"schedule_id,omitempty"`
}

// handleListSchedules returns all schedules.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.schedules.ListSchedules(r.Context())
	if err != nil {
		s.logger.Error("list schedules failed", "error", err)
		writeInternalError(w, "failed to list schedules")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

// handleCreateSchedule creates an evaluation schedule. New schedules start
// in the not_started state unless told otherwise.
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sc := &schedule.Schedule{
		Description: req.Description,
		StartsOn:    req.StartsOn,
		EndsOn:      req.EndsOn,
		State:       req.State,
	}
	if err := sc.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.schedules.CreateSchedule(r.Context(), sc); err != nil {
		s.logger.Error("create schedule failed", "error", err)
		writeInternalError(w, "failed to create schedule")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("schedule created", "schedule_id", sc.ID, "by", username)
	s.auditLog("create", "schedule", sc.ID, username, map[string]any{"description": sc.Description})
	s.broadcast("schedule.created", sc)

	writeJSON(w, http.StatusCreated, sc)
}

// handleGetSchedule returns a single schedule by ID.
func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sc, err := s.schedules.GetScheduleByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("get schedule failed", "error", err)
		writeInternalError(w, "failed to get schedule")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleUpdateSchedule replaces a schedule's mutable fields, including its
// lifecycle state.
func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sc, err := s.schedules.GetScheduleByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("get schedule for update failed", "error", err)
		writeInternalError(w, "failed to update schedule")
		return
	}

	sc.Description = req.Description
	sc.StartsOn = req.StartsOn
	sc.EndsOn = req.EndsOn
	if req.State != "" {
		sc.State = req.State
	}
	if err := sc.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.schedules.UpdateSchedule(r.Context(), sc); err != nil {
		s.logger.Error("update schedule failed", "error", err)
		writeInternalError(w, "failed to update schedule")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("schedule updated", "schedule_id", id, "state", sc.State, "by", username)
	s.auditLog("update", "schedule", id, username, map[string]any{"state": string(sc.State)})
	s.broadcast("schedule.updated", sc)

	writeJSON(w, http.StatusOK, sc)
}

// handleDeleteSchedule removes a schedule. Prizes bound to it are unbound,
// not deleted.
func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.schedules.DeleteSchedule(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("delete schedule failed", "error", err)
		writeInternalError(w, "failed to delete schedule")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("schedule deleted", "schedule_id", id, "by", username)
	s.auditLog("delete", "schedule", id, username, nil)
	s.broadcast("schedule.deleted", map[string]string{"id": id})

	w.WriteHeader(http.StatusNoContent)
}

// handleListSchedulePrizes returns the prizes awarded within a schedule.
func (s *Server) handleListSchedulePrizes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.schedules.GetScheduleByID(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("get schedule failed", "error", err)
		writeInternalError(w, "failed to list schedule prizes")
		return
	}

	prizes, err := s.schedules.ListPrizesBySchedule(r.Context(), id)
	if err != nil {
		s.logger.Error("list prizes by schedule failed", "schedule_id", id, "error", err)
		writeInternalError(w, "failed to list schedule prizes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prizes": prizes,
		"count":  len(prizes),
	})
}

// handleListPrizes returns all prizes.
func (s *Server) handleListPrizes(w http.ResponseWriter, r *http.Request) {
	prizes, err := s.schedules.ListPrizes(r.Context())
	if err != nil {
		s.logger.Error("list prizes failed", "error", err)
		writeInternalError(w, "failed to list prizes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prizes": prizes,
		"count":  len(prizes),
	})
}

// handleCreatePrize creates a prize, optionally bound to a schedule.
func (s *Server) handleCreatePrize(w http.ResponseWriter, r *http.Request) {
	var req prizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := &schedule.Prize{
		Name:        req.Name,
		Description: req.Description,
		EditionYear: req.EditionYear,
		ScheduleID:  req.ScheduleID,
	}
	if err := p.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.schedules.CreatePrize(r.Context(), p); err != nil {
		if errors.Is(err, schedule.ErrInvalidReference) {
			writeValidationError(w, "schedule does not exist")
			return
		}
		s.logger.Error("create prize failed", "error", err)
		writeInternalError(w, "failed to create prize")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("prize created", "prize_id", p.ID, "by", username)
	s.auditLog("create", "prize", p.ID, username, map[string]any{"name": p.Name})
	s.broadcast("prize.created", p)

	writeJSON(w, http.StatusCreated, p)
}

// handleGetPrize returns a single prize by ID.
func (s *Server) handleGetPrize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.schedules.GetPrizeByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrPrizeNotFound) {
			writeNotFound(w, "prize not found")
			return
		}
		s.logger.Error("get prize failed", "error", err)
		writeInternalError(w, "failed to get prize")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleUpdatePrize replaces a prize's mutable fields.
func (s *Server) handleUpdatePrize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req prizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := s.schedules.GetPrizeByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrPrizeNotFound) {
			writeNotFound(w, "prize not found")
			return
		}
		s.logger.Error("get prize for update failed", "error", err)
		writeInternalError(w, "failed to update prize")
		return
	}

	p.Name = req.Name
	p.Description = req.Description
	p.EditionYear = req.EditionYear
	p.ScheduleID = req.ScheduleID
	if err := p.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.schedules.UpdatePrize(r.Context(), p); err != nil {
		if errors.Is(err, schedule.ErrInvalidReference) {
			writeValidationError(w, "schedule does not exist")
			return
		}
		s.logger.Error("update prize failed", "error", err)
		writeInternalError(w, "failed to update prize")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("prize updated", "prize_id", id, "by", username)
	s.auditLog("update", "prize", id, username, nil)
	s.broadcast("prize.updated", p)

	writeJSON(w, http.StatusOK, p)
}

// handleDeletePrize removes a prize.
func (s *Server) handleDeletePrize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.schedules.DeletePrize(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrPrizeNotFound) {
			writeNotFound(w, "prize not found")
			return
		}
		s.logger.Error("delete prize failed", "error", err)
		writeInternalError(w, "failed to delete prize")
		return
	}

	username := usernameFrom(r.Context())
	s.logger.Info("prize deleted", "prize_id", id, "by", username)
	s.auditLog("delete", "prize", id, username, nil)
	s.broadcast("prize.deleted", map[string]string{"id": id})

	w.WriteHeader(http.StatusNoContent)
}
