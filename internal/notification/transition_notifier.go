// Package notification turns workflow transition events into notifications
// for the parties who need to act next. Delivery is log-based; the notifier
// runs on the async dispatch path and never influences the transition itself.
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/application/dispatcher"
	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/event"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// TransitionNotifier resolves who should hear about a status change and
// records the notification. PENDING goes to the tutor, TUTOR_CONFIRMED to
// the course lecturer, LECTURER_CONFIRMED to HR, and terminal or bounce-back
// statuses go back to the tutor who owns the timesheet.
type TransitionNotifier struct {
	timesheetRepo port.TimesheetRepository
	courseRepo    port.CourseRepository
	userRepo      port.UserRepository
	logger        *zap.Logger
}

// NewTransitionNotifier creates a notifier backed by the given repositories.
func NewTransitionNotifier(
	timesheetRepo port.TimesheetRepository,
	courseRepo port.CourseRepository,
	userRepo port.UserRepository,
	logger *zap.Logger,
) *TransitionNotifier {
	return &TransitionNotifier{
		timesheetRepo: timesheetRepo,
		courseRepo:    courseRepo,
		userRepo:      userRepo,
		logger:        logger,
	}
}

// Register subscribes the notifier to every transition event type.
func (n *TransitionNotifier) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeTimesheetSubmitted,
		event.TypeTimesheetConfirmed,
		event.TypeTimesheetFinalized,
		event.TypeTimesheetRejected,
		event.TypeModificationRequested,
	} {
		d.SubscribeNamed(t, "transition-notifier", n.Handle)
	}
}

// Handle is the dispatcher entry point for a single transition event.
func (n *TransitionNotifier) Handle(ctx context.Context, evt *event.Event) error {
	ts, err := n.timesheetRepo.GetByID(ctx, evt.TimesheetID)
	if err != nil {
		return fmt.Errorf("load timesheet %d: %w", evt.TimesheetID, err)
	}

	recipient, err := n.recipient(ctx, ts)
	if err != nil {
		return err
	}

	newStatus := evt.GetPayloadString("new_status")
	n.logger.Info("Notification sent",
		zap.String("event_type", evt.Type.String()),
		zap.String("event_id", evt.ID),
		zap.Int64("timesheet_id", ts.ID),
		zap.String("new_status", newStatus),
		zap.Int64("recipient_id", recipient.ID),
		zap.String("recipient_email", recipient.Email),
		zap.Int64("actor_id", evt.ActorID),
	)
	return nil
}

// recipient maps the timesheet's current status to the user who acts next.
func (n *TransitionNotifier) recipient(ctx context.Context, ts *entity.Timesheet) (*entity.User, error) {
	switch ts.Status {
	case workflow.StatusTutorConfirmed:
		course, err := n.courseRepo.GetByID(ctx, ts.CourseID)
		if err != nil {
			return nil, fmt.Errorf("load course %d: %w", ts.CourseID, err)
		}
		lecturer, err := n.userRepo.GetByID(ctx, course.LecturerID)
		if err != nil {
			return nil, fmt.Errorf("load lecturer %d: %w", course.LecturerID, err)
		}
		return lecturer, nil
	case workflow.StatusLecturerConfirmed:
		hr, err := n.userRepo.GetByEmail(ctx, hrInboxEmail)
		if err != nil {
			return nil, fmt.Errorf("load HR inbox user: %w", err)
		}
		return hr, nil
	default:
		// PENDING, FINAL_CONFIRMED, REJECTED, MODIFICATION_REQUESTED all
		// concern the tutor who owns the timesheet.
		tutor, err := n.userRepo.GetByID(ctx, ts.TutorID)
		if err != nil {
			return nil, fmt.Errorf("load tutor %d: %w", ts.TutorID, err)
		}
		return tutor, nil
	}
}

// hrInboxEmail is the shared HR account that receives confirmation requests.
const hrInboxEmail = "hr@campusworks.edu"
