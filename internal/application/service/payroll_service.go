package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
	"github.com/campusworks/timesheet-approval/internal/export"
)

// PayrollService builds the weekly payroll export for HR
type PayrollService interface {
	Export(ctx context.Context, actorID int64, weekStart time.Time) (filename string, data []byte, err error)
}

type payrollServiceImpl struct {
	timesheetRepo port.TimesheetRepository
	courseRepo    port.CourseRepository
	userRepo      port.UserRepository
	writer        *export.PayrollWriter
	logger        Logger
}

// NewPayrollService creates a new PayrollService
func NewPayrollService(
	timesheetRepo port.TimesheetRepository,
	courseRepo port.CourseRepository,
	userRepo port.UserRepository,
	writer *export.PayrollWriter,
	logger Logger,
) PayrollService {
	return &payrollServiceImpl{
		timesheetRepo: timesheetRepo,
		courseRepo:    courseRepo,
		userRepo:      userRepo,
		writer:        writer,
		logger:        logger,
	}
}

// Export renders the FINAL_CONFIRMED timesheets for one claim week into a
// payroll workbook. Restricted to HR and admin.
func (s *payrollServiceImpl) Export(ctx context.Context, actorID int64, weekStart time.Time) (string, []byte, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return "", nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	if actor.Role != workflow.RoleHR && actor.Role != workflow.RoleAdmin {
		return "", nil, ErrForbidden
	}

	timesheets, err := s.timesheetRepo.ListByStatusAndWeek(ctx, workflow.StatusFinalConfirmed, weekStart)
	if err != nil {
		return "", nil, fmt.Errorf("list finalized timesheets: %w", err)
	}

	tutors := make(map[int64]*entity.User)
	courses := make(map[int64]*entity.Course)

	rows := make([]export.PayrollRow, 0, len(timesheets))
	for _, ts := range timesheets {
		tutor, ok := tutors[ts.TutorID]
		if !ok {
			if tutor, err = s.userRepo.GetByID(ctx, ts.TutorID); err != nil {
				return "", nil, fmt.Errorf("load tutor %d: %w", ts.TutorID, err)
			}
			tutors[ts.TutorID] = tutor
		}
		course, ok := courses[ts.CourseID]
		if !ok {
			if course, err = s.courseRepo.GetByID(ctx, ts.CourseID); err != nil {
				return "", nil, fmt.Errorf("load course %d: %w", ts.CourseID, err)
			}
			courses[ts.CourseID] = course
		}

		rows = append(rows, export.PayrollRow{
			TutorName:  tutor.Name,
			TutorEmail: tutor.Email,
			CourseCode: course.Code,
			CourseName: course.Name,
			Hours:      ts.Hours,
			HourlyRate: ts.HourlyRate,
			Pay:        ts.TotalPay(),
		})
	}

	data, err := s.writer.Write(weekStart, rows)
	if err != nil {
		return "", nil, fmt.Errorf("write payroll workbook: %w", err)
	}

	s.logger.Info("Payroll export generated",
		"actor_id", actorID,
		"week_start", weekStart.Format("2006-01-02"),
		"timesheets", len(rows))

	return export.Filename(weekStart), data, nil
}
