package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for schedule and prize persistence.
type Repository interface {
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetScheduleByID(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context) ([]Schedule, error)
	UpdateSchedule(ctx context.Context, s *Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	CreatePrize(ctx context.Context, p *Prize) error
	GetPrizeByID(ctx context.Context, id string) (*Prize, error)
	ListPrizes(ctx context.Context) ([]Prize, error)
	ListPrizesBySchedule(ctx context.Context, scheduleID string) ([]Prize, error)
	UpdatePrize(ctx context.Context, p *Prize) error
	DeletePrize(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed schedule repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const scheduleColumns = "id, description, starts_on, ends_on, state, created_at, updated_at"

// CreateSchedule inserts a new schedule. The ID is generated if empty and
// the state defaults to not_started.
func (r *SQLiteRepository) CreateSchedule(ctx context.Context, s *Schedule) error {
	if s.State == "" {
		s.State = StateNotStarted
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = "sch-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schedules (id, description, starts_on, ends_on, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Description, s.StartsOn, s.EndsOn, string(s.State),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating schedule: %w", err)
	}
	return nil
}

// GetScheduleByID retrieves a schedule by ID.
func (r *SQLiteRepository) GetScheduleByID(ctx context.Context, id string) (*Schedule, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", id)
	return scanSchedule(row)
}

// ListSchedules returns all schedules ordered by start date.
func (r *SQLiteRepository) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+scheduleColumns+" FROM schedules ORDER BY starts_on ASC")
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}

	if schedules == nil {
		schedules = []Schedule{}
	}
	return schedules, nil
}

// UpdateSchedule modifies a schedule's mutable fields.
func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, s *Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	s.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET description = ?, starts_on = ?, ends_on = ?, state = ?, updated_at = ?
		 WHERE id = ?`,
		s.Description, s.StartsOn, s.EndsOn, string(s.State),
		now.Format(time.RFC3339), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule. Prizes bound to it lose the binding
// (schedule_id set NULL) rather than being deleted.
func (r *SQLiteRepository) DeleteSchedule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

const prizeColumns = "id, name, description, edition_year, schedule_id, created_at, updated_at"

// CreatePrize inserts a new prize. The ID is generated if empty.
// An unknown schedule reference returns ErrInvalidReference.
func (r *SQLiteRepository) CreatePrize(ctx context.Context, p *Prize) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = "prz-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prizes (id, name, description, edition_year, schedule_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.EditionYear, nullString(p.ScheduleID),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("creating prize: %w", err)
	}
	return nil
}

// GetPrizeByID retrieves a prize by ID.
func (r *SQLiteRepository) GetPrizeByID(ctx context.Context, id string) (*Prize, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+prizeColumns+" FROM prizes WHERE id = ?", id)
	return scanPrize(row)
}

// ListPrizes returns all prizes ordered by edition year, newest first.
func (r *SQLiteRepository) ListPrizes(ctx context.Context) ([]Prize, error) {
	return r.listPrizesWhere(ctx, "", nil)
}

// ListPrizesBySchedule returns the prizes bound to a schedule.
func (r *SQLiteRepository) ListPrizesBySchedule(ctx context.Context, scheduleID string) ([]Prize, error) {
	return r.listPrizesWhere(ctx, "WHERE schedule_id = ?", []any{scheduleID})
}

func (r *SQLiteRepository) listPrizesWhere(ctx context.Context, where string, args []any) ([]Prize, error) {
	query := "SELECT " + prizeColumns + " FROM prizes " + where + " ORDER BY edition_year DESC, name ASC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing prizes: %w", err)
	}
	defer rows.Close()

	var prizes []Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, err
		}
		prizes = append(prizes, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prizes: %w", err)
	}

	if prizes == nil {
		prizes = []Prize{}
	}
	return prizes, nil
}

// UpdatePrize modifies a prize's mutable fields.
func (r *SQLiteRepository) UpdatePrize(ctx context.Context, p *Prize) error {
	if err := p.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	p.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE prizes SET name = ?, description = ?, edition_year = ?, schedule_id = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.EditionYear, nullString(p.ScheduleID),
		now.Format(time.RFC3339), p.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("updating prize: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrPrizeNotFound
	}
	return nil
}

// DeletePrize removes a prize by ID.
func (r *SQLiteRepository) DeletePrize(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM prizes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting prize: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrPrizeNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(s scanner) (*Schedule, error) {
	var sc Schedule
	var state string
	var createdAt, updatedAt string

	err := s.Scan(&sc.ID, &sc.Description, &sc.StartsOn, &sc.EndsOn, &state, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scanning schedule: %w", err)
	}

	sc.State = State(state)
	sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	sc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &sc, nil
}

func scanPrize(s scanner) (*Prize, error) {
	var p Prize
	var scheduleID sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.EditionYear, &scheduleID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrizeNotFound
		}
		return nil, fmt.Errorf("scanning prize: %w", err)
	}

	if scheduleID.Valid {
		p.ScheduleID = scheduleID.String
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

// isForeignKeyViolation checks if a SQLite error is a FOREIGN KEY violation.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
