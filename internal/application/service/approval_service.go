package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusworks/timesheet-approval/internal/application/decision"
	"github.com/campusworks/timesheet-approval/internal/application/dispatcher"
	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/event"
	"github.com/campusworks/timesheet-approval/internal/domain/policy"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrForbidden is returned when an actor lacks authority for a read
// operation. Write operations report permission failures inside the
// decision instead.
var ErrForbidden = errors.New("forbidden")

// ActionResult bundles the decision with the committed outcome. Timesheet
// and Record are nil unless the transition was committed.
type ActionResult struct {
	Decision  decision.Decision      `json:"decision"`
	Timesheet *entity.Timesheet      `json:"timesheet,omitempty"`
	Record    *entity.ApprovalRecord `json:"record,omitempty"`
}

// ApprovalService evaluates approval actions and commits approved
// transitions atomically: the status change and the audit record are
// applied in a single transaction or not at all.
type ApprovalService interface {
	PerformAction(ctx context.Context, timesheetID, actorID int64, action workflow.Action, comment string) (*ActionResult, error)
	ValidActions(ctx context.Context, timesheetID, actorID int64) ([]workflow.Action, error)
	History(ctx context.Context, timesheetID, actorID int64) ([]*entity.ApprovalRecord, error)
}

type approvalServiceImpl struct {
	timesheetRepo port.TimesheetRepository
	courseRepo    port.CourseRepository
	userRepo      port.UserRepository
	approvalRepo  port.ApprovalRepository
	txManager     port.TransactionManager
	decisions     *decision.Service
	registry      *workflow.Registry
	policy        *policy.Policy
	events        dispatcher.Dispatcher
	logger        Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	timesheetRepo port.TimesheetRepository,
	courseRepo port.CourseRepository,
	userRepo port.UserRepository,
	approvalRepo port.ApprovalRepository,
	txManager port.TransactionManager,
	decisions *decision.Service,
	registry *workflow.Registry,
	pol *policy.Policy,
	events dispatcher.Dispatcher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		timesheetRepo: timesheetRepo,
		courseRepo:    courseRepo,
		userRepo:      userRepo,
		approvalRepo:  approvalRepo,
		txManager:     txManager,
		decisions:     decisions,
		registry:      registry,
		policy:        pol,
		events:        events,
		logger:        logger,
	}
}

// PerformAction evaluates the requested action and, on approval, commits
// the transition: status update, exactly one audit record, and for final
// confirmation the course budget charge, all in one transaction.
func (s *approvalServiceImpl) PerformAction(ctx context.Context, timesheetID, actorID int64, action workflow.Action, comment string) (*ActionResult, error) {
	actor, ts, course, err := s.loadContext(ctx, timesheetID, actorID)
	if err != nil {
		return nil, err
	}

	d := s.decisions.Evaluate(decision.Request{
		Action:    action,
		Actor:     actor,
		Timesheet: ts,
		Course:    course,
		Comment:   comment,
	})
	if !d.Approved() {
		s.logger.Info("Action not approved",
			"timesheet_id", timesheetID, "actor_id", actorID,
			"action", action.String(), "outcome", string(d.Outcome))
		return &ActionResult{Decision: d}, nil
	}

	now := time.Now().UTC()
	record := &entity.ApprovalRecord{
		TimesheetID:    ts.ID,
		ActorID:        actor.ID,
		Action:         action,
		PreviousStatus: ts.Status,
		NewStatus:      d.TargetStatus,
		Comment:        comment,
		CreatedAt:      now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.timesheetRepo.TransitionStatus(txCtx, ts.ID, ts.Status, d.TargetStatus, now); err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		if err := s.approvalRepo.Create(txCtx, record); err != nil {
			return fmt.Errorf("append approval record: %w", err)
		}
		if d.TargetStatus == workflow.StatusFinalConfirmed {
			if err := s.courseRepo.AddBudgetUsed(txCtx, course.ID, ts.TotalPay()); err != nil {
				return fmt.Errorf("charge course budget: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to commit transition",
			"error", err, "timesheet_id", ts.ID, "action", action.String())
		return nil, err
	}

	ts.Status = d.TargetStatus
	ts.UpdatedAt = now

	s.logger.Info("Transition committed",
		"timesheet_id", ts.ID, "actor_id", actor.ID,
		"action", action.String(), "new_status", d.TargetStatus.String())

	if d.TargetStatus == workflow.StatusFinalConfirmed {
		// Budget headroom is validated at creation time, not here, so
		// claims approved against older snapshots can overdraw the course
		// by the time they are finally confirmed. Surface that rather
		// than silently absorbing it.
		course.BudgetUsed = course.BudgetUsed.Add(ts.TotalPay())
		if course.IsOverBudget() {
			s.logger.Error("Course over budget after final confirmation",
				"course_id", course.ID,
				"budget_remaining", course.BudgetRemaining().String())
		}
	}

	s.publishTransition(ctx, ts, actor.ID, action, record.PreviousStatus)

	return &ActionResult{Decision: d, Timesheet: ts, Record: record}, nil
}

// publishTransition emits the domain event for a committed transition.
// Events fire only after the transaction succeeds and are informational;
// handler failures are logged by the dispatcher and never unwind the commit.
func (s *approvalServiceImpl) publishTransition(ctx context.Context, ts *entity.Timesheet, actorID int64, action workflow.Action, prev workflow.Status) {
	if s.events == nil {
		return
	}
	evt := event.NewEvent(eventTypeForStatus(ts.Status), ts.ID, actorID, map[string]interface{}{
		"action":          action.String(),
		"previous_status": prev.String(),
		"new_status":      ts.Status.String(),
	})
	// The request context may be canceled before async handlers finish.
	s.events.DispatchAsync(context.WithoutCancel(ctx), evt)
}

func eventTypeForStatus(status workflow.Status) event.Type {
	switch status {
	case workflow.StatusPendingTutorConfirmation:
		return event.TypeTimesheetSubmitted
	case workflow.StatusFinalConfirmed:
		return event.TypeTimesheetFinalized
	case workflow.StatusRejected:
		return event.TypeTimesheetRejected
	case workflow.StatusModificationRequested:
		return event.TypeModificationRequested
	default:
		return event.TypeTimesheetConfirmed
	}
}

// ValidActions returns the actions the actor may currently attempt on the
// timesheet: the registry's candidates for (role, status), filtered by the
// permission policy.
func (s *approvalServiceImpl) ValidActions(ctx context.Context, timesheetID, actorID int64) ([]workflow.Action, error) {
	actor, ts, course, err := s.loadContext(ctx, timesheetID, actorID)
	if err != nil {
		return nil, err
	}

	var actions []workflow.Action
	for _, action := range s.registry.ValidActions(actor.Role, ts.Status) {
		allowed := false
		if action == workflow.ActionSubmitForApproval {
			allowed = s.policy.CanSubmit(actor, ts, course)
		} else {
			allowed = s.policy.CanApprove(actor, ts, course)
		}
		if allowed {
			actions = append(actions, action)
		}
	}
	return actions, nil
}

// History returns the timesheet's audit trail in chronological order
func (s *approvalServiceImpl) History(ctx context.Context, timesheetID, actorID int64) ([]*entity.ApprovalRecord, error) {
	actor, ts, course, err := s.loadContext(ctx, timesheetID, actorID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(actor, ts, course) {
		return nil, ErrForbidden
	}
	return s.approvalRepo.ListByTimesheet(ctx, timesheetID)
}

// loadContext fetches the actor, timesheet and course snapshots. Lookup
// failures here are system errors, not business rejections.
func (s *approvalServiceImpl) loadContext(ctx context.Context, timesheetID, actorID int64) (*entity.User, *entity.Timesheet, *entity.Course, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	ts, err := s.timesheetRepo.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load timesheet %d: %w", timesheetID, err)
	}
	course, err := s.courseRepo.GetByID(ctx, ts.CourseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load course %d: %w", ts.CourseID, err)
	}
	return actor, ts, course, nil
}
