package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusworks/timesheet-approval/internal/application/decision"
	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/policy"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// CreateTimesheetInput describes a new timesheet to create on a tutor's
// behalf
type CreateTimesheetInput struct {
	ActorID     int64
	TutorID     int64
	CourseID    int64
	WeekStart   time.Time
	Hours       decimal.Decimal
	HourlyRate  decimal.Decimal
	Description string
}

// UpdateTimesheetInput describes a content edit to an editable timesheet
type UpdateTimesheetInput struct {
	ActorID     int64
	TimesheetID int64
	Hours       decimal.Decimal
	HourlyRate  decimal.Decimal
	Description string
}

// TimesheetResult bundles the decision with the affected timesheet.
// Timesheet is nil when the decision blocked the operation.
type TimesheetResult struct {
	Decision  decision.Decision `json:"decision"`
	Timesheet *entity.Timesheet `json:"timesheet,omitempty"`
}

// TimesheetService manages timesheet content: creation, edits and
// deletion, all gated by the decision service
type TimesheetService interface {
	Create(ctx context.Context, input CreateTimesheetInput) (*TimesheetResult, error)
	Get(ctx context.Context, timesheetID, actorID int64) (*entity.Timesheet, error)
	Update(ctx context.Context, input UpdateTimesheetInput) (*TimesheetResult, error)
	Delete(ctx context.Context, timesheetID, actorID int64) (*TimesheetResult, error)
	ListByTutor(ctx context.Context, actorID, tutorID int64) ([]*entity.Timesheet, error)
	ListByCourse(ctx context.Context, actorID, courseID int64) ([]*entity.Timesheet, error)
	Summary(ctx context.Context, actorID int64) (*port.DashboardSummary, error)
	ListFinalizedByWeek(ctx context.Context, actorID int64, weekStart time.Time) ([]*entity.Timesheet, error)
}

type timesheetServiceImpl struct {
	timesheetRepo port.TimesheetRepository
	courseRepo    port.CourseRepository
	userRepo      port.UserRepository
	decisions     *decision.Service
	policy        *policy.Policy
	logger        Logger
}

// NewTimesheetService creates a new TimesheetService
func NewTimesheetService(
	timesheetRepo port.TimesheetRepository,
	courseRepo port.CourseRepository,
	userRepo port.UserRepository,
	decisions *decision.Service,
	pol *policy.Policy,
	logger Logger,
) TimesheetService {
	return &timesheetServiceImpl{
		timesheetRepo: timesheetRepo,
		courseRepo:    courseRepo,
		userRepo:      userRepo,
		decisions:     decisions,
		policy:        pol,
		logger:        logger,
	}
}

// Create evaluates and creates a new draft timesheet. Advisory violations
// (a CONDITIONAL decision) do not block creation; they are reported
// alongside the created entity.
func (s *timesheetServiceImpl) Create(ctx context.Context, input CreateTimesheetInput) (*TimesheetResult, error) {
	actor, err := s.userRepo.GetByID(ctx, input.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", input.ActorID, err)
	}
	tutor, err := s.userRepo.GetByID(ctx, input.TutorID)
	if err != nil {
		return nil, fmt.Errorf("load tutor %d: %w", input.TutorID, err)
	}
	course, err := s.courseRepo.GetByID(ctx, input.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", input.CourseID, err)
	}

	existing, err := s.timesheetRepo.GetByTutorCourseWeek(ctx, input.TutorID, input.CourseID, input.WeekStart)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("check week uniqueness: %w", err)
	}
	if existing != nil {
		return nil, port.ErrDuplicateWeek
	}

	currentTutors, err := s.courseRepo.CountActiveTutors(ctx, input.CourseID)
	if err != nil {
		return nil, fmt.Errorf("count course tutors: %w", err)
	}

	d := s.decisions.Evaluate(decision.Request{
		Action:      workflow.ActionCreate,
		Actor:       actor,
		TargetTutor: tutor,
		Course:      course,
		Facts: validation.Facts{
			Hours:           input.Hours,
			HourlyRate:      input.HourlyRate,
			WeekStart:       input.WeekStart,
			BudgetRemaining: course.BudgetRemaining(),
			MaxTutors:       course.MaxTutors,
			CurrentTutors:   currentTutors,
		},
	})
	if d.Outcome != decision.OutcomeApproved && d.Outcome != decision.OutcomeConditional {
		return &TimesheetResult{Decision: d}, nil
	}

	now := time.Now().UTC()
	ts := &entity.Timesheet{
		TutorID:     input.TutorID,
		CourseID:    input.CourseID,
		WeekStart:   input.WeekStart,
		Hours:       input.Hours,
		HourlyRate:  input.HourlyRate,
		Description: input.Description,
		Status:      workflow.StatusDraft,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.timesheetRepo.Create(ctx, ts); err != nil {
		return nil, fmt.Errorf("create timesheet: %w", err)
	}

	s.logger.Info("Timesheet created",
		"timesheet_id", ts.ID, "tutor_id", ts.TutorID,
		"course_id", ts.CourseID, "created_by", actor.ID)

	return &TimesheetResult{Decision: d, Timesheet: ts}, nil
}

// Get returns a timesheet if the actor may view it
func (s *timesheetServiceImpl) Get(ctx context.Context, timesheetID, actorID int64) (*entity.Timesheet, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	ts, err := s.timesheetRepo.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("load timesheet %d: %w", timesheetID, err)
	}
	course, err := s.courseRepo.GetByID(ctx, ts.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", ts.CourseID, err)
	}
	if !s.policy.CanView(actor, ts, course) {
		return nil, ErrForbidden
	}
	return ts, nil
}

// Update applies a content edit to an editable timesheet
func (s *timesheetServiceImpl) Update(ctx context.Context, input UpdateTimesheetInput) (*TimesheetResult, error) {
	actor, err := s.userRepo.GetByID(ctx, input.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", input.ActorID, err)
	}
	ts, err := s.timesheetRepo.GetByID(ctx, input.TimesheetID)
	if err != nil {
		return nil, fmt.Errorf("load timesheet %d: %w", input.TimesheetID, err)
	}
	course, err := s.courseRepo.GetByID(ctx, ts.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", ts.CourseID, err)
	}

	d := s.decisions.Evaluate(decision.Request{
		Action:    workflow.ActionUpdate,
		Actor:     actor,
		Timesheet: ts,
		Course:    course,
		Facts: validation.Facts{
			Hours:           input.Hours,
			HourlyRate:      input.HourlyRate,
			WeekStart:       ts.WeekStart,
			BudgetRemaining: course.BudgetRemaining(),
		},
	})
	if d.Outcome != decision.OutcomeApproved && d.Outcome != decision.OutcomeConditional {
		return &TimesheetResult{Decision: d}, nil
	}

	ts.Hours = input.Hours
	ts.HourlyRate = input.HourlyRate
	ts.Description = input.Description
	ts.UpdatedAt = time.Now().UTC()
	if err := s.timesheetRepo.Update(ctx, ts); err != nil {
		return nil, fmt.Errorf("update timesheet: %w", err)
	}

	return &TimesheetResult{Decision: d, Timesheet: ts}, nil
}

// Delete removes an editable timesheet
func (s *timesheetServiceImpl) Delete(ctx context.Context, timesheetID, actorID int64) (*TimesheetResult, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	ts, err := s.timesheetRepo.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, fmt.Errorf("load timesheet %d: %w", timesheetID, err)
	}
	course, err := s.courseRepo.GetByID(ctx, ts.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", ts.CourseID, err)
	}

	d := s.decisions.Evaluate(decision.Request{
		Action:    workflow.ActionDelete,
		Actor:     actor,
		Timesheet: ts,
		Course:    course,
	})
	if !d.Approved() {
		return &TimesheetResult{Decision: d}, nil
	}

	if err := s.timesheetRepo.Delete(ctx, timesheetID); err != nil {
		return nil, fmt.Errorf("delete timesheet: %w", err)
	}
	s.logger.Info("Timesheet deleted", "timesheet_id", timesheetID, "actor_id", actorID)
	return &TimesheetResult{Decision: d}, nil
}

// ListByTutor returns a tutor's timesheets. Tutors may list only their
// own; HR and admin may list anyone's.
func (s *timesheetServiceImpl) ListByTutor(ctx context.Context, actorID, tutorID int64) ([]*entity.Timesheet, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	if actor.ID != tutorID && actor.Role != workflow.RoleHR && actor.Role != workflow.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.timesheetRepo.ListByTutor(ctx, tutorID)
}

// ListByCourse returns a course's timesheets for its lecturer, HR or admin
func (s *timesheetServiceImpl) ListByCourse(ctx context.Context, actorID, courseID int64) ([]*entity.Timesheet, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	if course.LecturerID != actor.ID && actor.Role != workflow.RoleHR && actor.Role != workflow.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.timesheetRepo.ListByCourse(ctx, courseID)
}

// Summary returns the role-appropriate dashboard aggregates for the actor
func (s *timesheetServiceImpl) Summary(ctx context.Context, actorID int64) (*port.DashboardSummary, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}

	switch actor.Role {
	case workflow.RoleTutor:
		return s.timesheetRepo.SummaryByTutor(ctx, actor.ID)
	case workflow.RoleLecturer:
		return s.timesheetRepo.SummaryByLecturer(ctx, actor.ID)
	case workflow.RoleHR, workflow.RoleAdmin:
		// HR and admin dashboards aggregate over every course; modelled
		// as a lecturer summary with no lecturer filter.
		return s.timesheetRepo.SummaryByLecturer(ctx, 0)
	default:
		return nil, ErrForbidden
	}
}

// ListFinalizedByWeek returns FINAL_CONFIRMED timesheets for the given
// week, for payroll processing. Restricted to HR and admin.
func (s *timesheetServiceImpl) ListFinalizedByWeek(ctx context.Context, actorID int64, weekStart time.Time) ([]*entity.Timesheet, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	if actor.Role != workflow.RoleHR && actor.Role != workflow.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.timesheetRepo.ListByStatusAndWeek(ctx, workflow.StatusFinalConfirmed, weekStart)
}
