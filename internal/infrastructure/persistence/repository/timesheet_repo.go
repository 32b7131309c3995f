package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
	"github.com/campusworks/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// TimesheetRepository implements port.TimesheetRepository
type TimesheetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimesheetRepository creates a new timesheet repository
func NewTimesheetRepository(db *sql.DB, logger *zap.Logger) port.TimesheetRepository {
	return &TimesheetRepository{
		db:     db,
		logger: logger,
	}
}

const timesheetColumns = `
	id, tutor_id, course_id, week_start, hours, hourly_rate,
	description, status, created_by, created_at, updated_at
`

// Create inserts a new timesheet. A UNIQUE violation on the
// (tutor, course, week) key is reported as ErrDuplicateWeek.
func (r *TimesheetRepository) Create(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		INSERT INTO timesheets (
			tutor_id, course_id, week_start, hours, hourly_rate,
			description, status, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		ts.TutorID,
		ts.CourseID,
		ts.WeekStart,
		ts.Hours.String(),
		ts.HourlyRate.String(),
		ts.Description,
		string(ts.Status),
		ts.CreatedBy,
		ts.CreatedAt,
		ts.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return port.ErrDuplicateWeek
		}
		r.logger.Error("Failed to create timesheet", zap.Error(err))
		return fmt.Errorf("failed to create timesheet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ts.ID = id
	return nil
}

// GetByID retrieves a timesheet by ID
func (r *TimesheetRepository) GetByID(ctx context.Context, id int64) (*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets WHERE id = ?`

	row := r.getExecutor(ctx).QueryRowContext(ctx, query, id)
	ts, err := scanTimesheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get timesheet by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get timesheet: %w", err)
	}
	return ts, nil
}

// GetByTutorCourseWeek retrieves the timesheet on the unique
// (tutor, course, week) key
func (r *TimesheetRepository) GetByTutorCourseWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + `
		FROM timesheets
		WHERE tutor_id = ? AND course_id = ? AND week_start = ?`

	row := r.getExecutor(ctx).QueryRowContext(ctx, query, tutorID, courseID, weekStart)
	ts, err := scanTimesheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timesheet by week: %w", err)
	}
	return ts, nil
}

// Update replaces the mutable content fields of a timesheet. The status
// column is deliberately not touched here; status changes go through
// TransitionStatus.
func (r *TimesheetRepository) Update(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		UPDATE timesheets
		SET hours = ?, hourly_rate = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		ts.Hours.String(),
		ts.HourlyRate.String(),
		ts.Description,
		ts.UpdatedAt,
		ts.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update timesheet", zap.Int64("id", ts.ID), zap.Error(err))
		return fmt.Errorf("failed to update timesheet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

// TransitionStatus performs the guarded status update. The WHERE clause
// matches the expected current status, so a concurrent transition that
// got there first leaves zero rows affected.
func (r *TimesheetRepository) TransitionStatus(ctx context.Context, id int64, fromStatus, newStatus workflow.Status, at time.Time) error {
	query := `
		UPDATE timesheets
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(newStatus), at, id, string(fromStatus),
	)
	if err != nil {
		r.logger.Error("Failed to transition timesheet status",
			zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to transition status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrStatusConflict
	}
	return nil
}

// Delete removes a timesheet
func (r *TimesheetRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, "DELETE FROM timesheets WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete timesheet", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete timesheet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

// ListByTutor returns a tutor's timesheets, newest week first
func (r *TimesheetRepository) ListByTutor(ctx context.Context, tutorID int64) ([]*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + `
		FROM timesheets
		WHERE tutor_id = ?
		ORDER BY week_start DESC`

	return r.list(ctx, query, tutorID)
}

// ListByCourse returns a course's timesheets, newest week first
func (r *TimesheetRepository) ListByCourse(ctx context.Context, courseID int64) ([]*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + `
		FROM timesheets
		WHERE course_id = ?
		ORDER BY week_start DESC`

	return r.list(ctx, query, courseID)
}

// ListByStatusAndWeek returns timesheets in the given status for the week
func (r *TimesheetRepository) ListByStatusAndWeek(ctx context.Context, status workflow.Status, weekStart time.Time) ([]*entity.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + `
		FROM timesheets
		WHERE status = ? AND week_start = ?
		ORDER BY tutor_id`

	return r.list(ctx, query, string(status), weekStart)
}

// SummaryByTutor aggregates the dashboard counts for one tutor's
// timesheets
func (r *TimesheetRepository) SummaryByTutor(ctx context.Context, tutorID int64) (*port.DashboardSummary, error) {
	query := `
		SELECT status, hours, hourly_rate
		FROM timesheets
		WHERE tutor_id = ?
	`
	return r.summarize(ctx, query, tutorID)
}

// SummaryByLecturer aggregates the dashboard counts over every course the
// lecturer supervises. A lecturerID of zero aggregates over all courses.
func (r *TimesheetRepository) SummaryByLecturer(ctx context.Context, lecturerID int64) (*port.DashboardSummary, error) {
	query := `
		SELECT t.status, t.hours, t.hourly_rate
		FROM timesheets t
		JOIN courses c ON c.id = t.course_id
		WHERE ? = 0 OR c.lecturer_id = ?
	`
	return r.summarize(ctx, query, lecturerID, lecturerID)
}

func (r *TimesheetRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Timesheet, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list timesheets", zap.Error(err))
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	var timesheets []*entity.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		timesheets = append(timesheets, ts)
	}
	return timesheets, rows.Err()
}

// summarize folds status counts and final pay in Go rather than SQL so the
// decimal arithmetic stays exact.
func (r *TimesheetRepository) summarize(ctx context.Context, query string, args ...interface{}) (*port.DashboardSummary, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to summarize timesheets", zap.Error(err))
		return nil, fmt.Errorf("failed to summarize timesheets: %w", err)
	}
	defer rows.Close()

	summary := &port.DashboardSummary{TotalPay: decimal.Zero}
	for rows.Next() {
		var status, hoursStr, rateStr string
		if err := rows.Scan(&status, &hoursStr, &rateStr); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}

		switch s := workflow.Status(status); {
		case s.IsEditable():
			summary.DraftCount++
		case s.IsPending():
			summary.PendingCount++
		case s == workflow.StatusFinalConfirmed:
			summary.FinalCount++
			hours, err := decimal.NewFromString(hoursStr)
			if err != nil {
				return nil, fmt.Errorf("invalid hours value %q: %w", hoursStr, err)
			}
			rate, err := decimal.NewFromString(rateStr)
			if err != nil {
				return nil, fmt.Errorf("invalid rate value %q: %w", rateStr, err)
			}
			summary.TotalPay = summary.TotalPay.Add(hours.Mul(rate))
		case s == workflow.StatusRejected:
			summary.RejectedCount++
		}
	}
	return summary, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimesheet(row rowScanner) (*entity.Timesheet, error) {
	var ts entity.Timesheet
	var hoursStr, rateStr, status string

	err := row.Scan(
		&ts.ID,
		&ts.TutorID,
		&ts.CourseID,
		&ts.WeekStart,
		&hoursStr,
		&rateStr,
		&ts.Description,
		&status,
		&ts.CreatedBy,
		&ts.CreatedAt,
		&ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ts.Hours, err = decimal.NewFromString(hoursStr); err != nil {
		return nil, fmt.Errorf("invalid hours value %q: %w", hoursStr, err)
	}
	if ts.HourlyRate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, fmt.Errorf("invalid rate value %q: %w", rateStr, err)
	}
	ts.Status = workflow.Status(status)
	return &ts, nil
}

// isUniqueViolation detects a UNIQUE constraint failure from the driver
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// getExecutor returns appropriate executor based on context
func (r *TimesheetRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.TimesheetRepository = (*TimesheetRepository)(nil)
