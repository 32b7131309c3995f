package decision

import (
	"time"

	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// Outcome is the aggregated result of one evaluation
type Outcome string

const (
	OutcomeApproved    Outcome = "APPROVED"
	OutcomeRejected    Outcome = "REJECTED"
	OutcomeConditional Outcome = "CONDITIONAL"
	OutcomeError       Outcome = "ERROR"
)

// Request is one action request entering the decision service. Entity and
// course snapshots are supplied by the caller; the service performs no
// lookups of its own, which keeps evaluation deterministic for a given
// snapshot.
type Request struct {
	RequestID string
	Action    workflow.Action
	Actor     *entity.User
	Timesheet *entity.Timesheet
	Course    *entity.Course
	// TargetTutor is the tutor a new timesheet is being created for.
	// Only consulted for ActionCreate.
	TargetTutor *entity.User
	Comment     string
	Facts       validation.Facts
}

// Recommendation suggests a follow-up for a violation
type Recommendation struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	SuggestedAction string            `json:"suggested_action"`
	SuggestedParams map[string]string `json:"suggested_params,omitempty"`
}

// Metadata carries audit and performance data for one evaluation. It is
// produced for every outcome, including REJECTED and ERROR.
type Metadata struct {
	EngineVersion string    `json:"engine_version"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// Decision is the outcome of evaluating one action request
type Decision struct {
	RequestID       string                 `json:"request_id"`
	Outcome         Outcome                `json:"outcome"`
	TargetStatus    workflow.Status        `json:"target_status,omitempty"`
	Violations      []validation.Violation `json:"violations"`
	Recommendations []Recommendation       `json:"recommendations,omitempty"`
	AppliedRules    []string               `json:"applied_rules"`
	Metadata        Metadata               `json:"metadata"`
}

// Approved reports whether the decision permits committing the action
func (d Decision) Approved() bool {
	return d.Outcome == OutcomeApproved
}
