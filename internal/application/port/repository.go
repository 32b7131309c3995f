package port

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrStatusConflict is returned when a guarded status update matched
	// no row, meaning a concurrent transition won the race
	ErrStatusConflict = errors.New("timesheet status changed concurrently")

	// ErrDuplicateWeek is returned when a timesheet already exists for
	// the same tutor, course and week
	ErrDuplicateWeek = errors.New("timesheet already exists for this week")
)

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// CourseRepository defines persistence operations for Course
type CourseRepository interface {
	Create(ctx context.Context, course *entity.Course) error
	GetByID(ctx context.Context, id int64) (*entity.Course, error)

	// AddBudgetUsed increments the course's used budget by amount
	AddBudgetUsed(ctx context.Context, id int64, amount decimal.Decimal) error

	// CountActiveTutors returns the number of distinct tutors with
	// non-rejected timesheets on the course
	CountActiveTutors(ctx context.Context, courseID int64) (int, error)
}

// DashboardSummary aggregates a user's timesheet workload
type DashboardSummary struct {
	DraftCount    int             `json:"draft_count"`
	PendingCount  int             `json:"pending_count"`
	FinalCount    int             `json:"final_count"`
	RejectedCount int             `json:"rejected_count"`
	TotalPay      decimal.Decimal `json:"total_pay"`
}

// TimesheetRepository defines persistence operations for Timesheet
type TimesheetRepository interface {
	Create(ctx context.Context, ts *entity.Timesheet) error
	GetByID(ctx context.Context, id int64) (*entity.Timesheet, error)
	GetByTutorCourseWeek(ctx context.Context, tutorID, courseID int64, weekStart time.Time) (*entity.Timesheet, error)

	// Update replaces the mutable content fields of a timesheet
	Update(ctx context.Context, ts *entity.Timesheet) error

	// TransitionStatus sets the status to newStatus only if the stored
	// status still equals fromStatus, returning ErrStatusConflict when no
	// row matched. This is the per-entity serialization point.
	TransitionStatus(ctx context.Context, id int64, fromStatus, newStatus workflow.Status, at time.Time) error

	Delete(ctx context.Context, id int64) error

	ListByTutor(ctx context.Context, tutorID int64) ([]*entity.Timesheet, error)
	ListByCourse(ctx context.Context, courseID int64) ([]*entity.Timesheet, error)
	ListByStatusAndWeek(ctx context.Context, status workflow.Status, weekStart time.Time) ([]*entity.Timesheet, error)

	SummaryByTutor(ctx context.Context, tutorID int64) (*DashboardSummary, error)
	SummaryByLecturer(ctx context.Context, lecturerID int64) (*DashboardSummary, error)
}

// ApprovalRepository defines persistence operations for the append-only
// audit trail. Records are created once and never mutated.
type ApprovalRepository interface {
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	ListByTimesheet(ctx context.Context, timesheetID int64) ([]*entity.ApprovalRecord, error)
	CountByTimesheet(ctx context.Context, timesheetID int64) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
