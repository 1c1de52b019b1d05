// Package schedule manages evaluation schedules and the prizes awarded
// within them.
package schedule

import (
	"errors"
	"time"
)

// State is a schedule's lifecycle state.
type State string

const (
	// StateNotStarted is the initial state of every schedule.
	StateNotStarted State = "not_started"

	// StateInProgress means the schedule window is open.
	StateInProgress State = "in_progress"

	// StateFinished means the schedule window has closed.
	StateFinished State = "finished"
)

// ValidStates is the set of valid schedule states.
var ValidStates = []State{StateNotStarted, StateInProgress, StateFinished}

// IsValidState returns true if the state is one of the known lifecycle states.
func IsValidState(s State) bool {
	for _, v := range ValidStates {
		if s == v {
			return true
		}
	}
	return false
}

// Schedule is an evaluation period with a start and end date.
type Schedule struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	StartsOn    string    `json:"starts_on"` // YYYY-MM-DD
	EndsOn      string    `json:"ends_on"`   // YYYY-MM-DD
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks required fields and date ordering before persistence.
func (s *Schedule) Validate() error {
	if s.Description == "" {
		return errors.New("description is required")
	}
	start, err := time.Parse(time.DateOnly, s.StartsOn)
	if err != nil {
		return errors.New("starts_on must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, s.EndsOn)
	if err != nil {
		return errors.New("ends_on must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return errors.New("ends_on must not precede starts_on")
	}
	if s.State != "" && !IsValidState(s.State) {
		return errors.New("state must be not_started, in_progress or finished")
	}
	return nil
}

// Prize is an award tied to an edition year, optionally bound to a schedule.
type Prize struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EditionYear int       `json:"edition_year"`
	ScheduleID  string    `json:"schedule_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks required fields before persistence.
func (p *Prize) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.EditionYear < 1900 || p.EditionYear > 2200 {
		return errors.New("edition_year out of range")
	}
	return nil
}

// Sentinel errors for schedule operations.
var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrPrizeNotFound    = errors.New("prize not found")
	ErrInvalidReference = errors.New("referenced schedule does not exist")
)
