package entity

import (
	"time"

	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// ApprovalRecord is one entry in a timesheet's append-only audit trail.
// Exactly one record is written per committed transition and records are
// never updated or deleted.
type ApprovalRecord struct {
	ID             int64           `json:"id"`
	TimesheetID    int64           `json:"timesheet_id"`
	ActorID        int64           `json:"actor_id"`
	Action         workflow.Action `json:"action"`
	PreviousStatus workflow.Status `json:"previous_status"`
	NewStatus      workflow.Status `json:"new_status"`
	Comment        string          `json:"comment,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
