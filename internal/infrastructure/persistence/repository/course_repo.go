package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
	"github.com/campusworks/timesheet-approval/internal/infrastructure/persistence/sqlite"
)

// CourseRepository implements port.CourseRepository
type CourseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB, logger *zap.Logger) port.CourseRepository {
	return &CourseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new course
func (r *CourseRepository) Create(ctx context.Context, course *entity.Course) error {
	query := `
		INSERT INTO courses (
			code, name, semester, lecturer_id,
			budget_allocated, budget_used, max_tutors, is_active,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		course.Code,
		course.Name,
		course.Semester,
		course.LecturerID,
		course.BudgetAllocated.String(),
		course.BudgetUsed.String(),
		course.MaxTutors,
		course.IsActive,
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create course", zap.Error(err))
		return fmt.Errorf("failed to create course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	course.ID = id
	return nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*entity.Course, error) {
	query := `
		SELECT id, code, name, semester, lecturer_id,
			budget_allocated, budget_used, max_tutors, is_active,
			created_at, updated_at
		FROM courses
		WHERE id = ?
	`

	var course entity.Course
	var allocatedStr, usedStr string

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Code,
		&course.Name,
		&course.Semester,
		&course.LecturerID,
		&allocatedStr,
		&usedStr,
		&course.MaxTutors,
		&course.IsActive,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get course by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if course.BudgetAllocated, err = decimal.NewFromString(allocatedStr); err != nil {
		return nil, fmt.Errorf("invalid budget_allocated value %q: %w", allocatedStr, err)
	}
	if course.BudgetUsed, err = decimal.NewFromString(usedStr); err != nil {
		return nil, fmt.Errorf("invalid budget_used value %q: %w", usedStr, err)
	}
	return &course, nil
}

// AddBudgetUsed increments the course's used budget by amount. The
// read-modify-write stays exact because the budget columns hold decimal
// strings; callers run this inside the transition transaction.
func (r *CourseRepository) AddBudgetUsed(ctx context.Context, id int64, amount decimal.Decimal) error {
	var usedStr string
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT budget_used FROM courses WHERE id = ?", id,
	).Scan(&usedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read course budget: %w", err)
	}

	used, err := decimal.NewFromString(usedStr)
	if err != nil {
		return fmt.Errorf("invalid budget_used value %q: %w", usedStr, err)
	}

	_, err = r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE courses SET budget_used = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		used.Add(amount).String(), id,
	)
	if err != nil {
		r.logger.Error("Failed to update course budget", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update course budget: %w", err)
	}
	return nil
}

// CountActiveTutors returns the number of distinct tutors with
// non-rejected timesheets on the course
func (r *CourseRepository) CountActiveTutors(ctx context.Context, courseID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT tutor_id)
		FROM timesheets
		WHERE course_id = ? AND status != ?
	`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, courseID, string(workflow.StatusRejected)).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count course tutors", zap.Int64("course_id", courseID), zap.Error(err))
		return 0, fmt.Errorf("failed to count course tutors: %w", err)
	}
	return count, nil
}

// getExecutor returns appropriate executor based on context
func (r *CourseRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.CourseRepository = (*CourseRepository)(nil)
