package decision

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/policy"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

var monday = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	registry := workflow.NewRegistry()
	require.Empty(t, registry.ValidateConsistency())
	return NewService(registry, policy.New(), validation.NewEngine(validation.DefaultBounds()), zap.NewNop())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testActors() (tutor, lecturer, hr *entity.User) {
	tutor = &entity.User{ID: 10, Role: workflow.RoleTutor, IsActive: true}
	lecturer = &entity.User{ID: 20, Role: workflow.RoleLecturer, IsActive: true}
	hr = &entity.User{ID: 30, Role: workflow.RoleHR, IsActive: true}
	return
}

func testCourse() *entity.Course {
	return &entity.Course{
		ID:              100,
		LecturerID:      20,
		BudgetAllocated: dec("5000.00"),
		BudgetUsed:      dec("1000.00"),
		MaxTutors:       5,
		IsActive:        true,
	}
}

func testTimesheet(status workflow.Status) *entity.Timesheet {
	return &entity.Timesheet{
		ID:         1,
		TutorID:    10,
		CourseID:   100,
		WeekStart:  monday,
		Hours:      dec("6"),
		HourlyRate: dec("45.00"),
		Status:     status,
	}
}

func createFacts(hours, rate string, course *entity.Course) validation.Facts {
	return validation.Facts{
		Hours:           dec(hours),
		HourlyRate:      dec(rate),
		WeekStart:       monday,
		BudgetRemaining: course.BudgetRemaining(),
		MaxTutors:       course.MaxTutors,
		CurrentTutors:   2,
	}
}

func TestEvaluate_LecturerSubmitsDraft(t *testing.T) {
	svc := newService(t)
	_, lecturer, _ := testActors()

	d := svc.Evaluate(Request{
		Action:    workflow.ActionSubmitForApproval,
		Actor:     lecturer,
		Timesheet: testTimesheet(workflow.StatusDraft),
		Course:    testCourse(),
	})

	assert.Equal(t, OutcomeApproved, d.Outcome)
	assert.Equal(t, workflow.StatusPendingTutorConfirmation, d.TargetStatus)
	assert.Empty(t, d.Violations)
	assert.Equal(t, EngineVersion, d.Metadata.EngineVersion)
	assert.NotEmpty(t, d.AppliedRules)
	assert.NotEmpty(t, d.RequestID)
}

func TestEvaluate_TutorSelfCreateDenied(t *testing.T) {
	svc := newService(t)
	tutor, _, _ := testActors()
	course := testCourse()

	d := svc.Evaluate(Request{
		Action:      workflow.ActionCreate,
		Actor:       tutor,
		TargetTutor: tutor,
		Course:      course,
		Facts:       createFacts("6", "45.00", course),
	})

	assert.Equal(t, OutcomeRejected, d.Outcome)
	require.Len(t, d.Violations, 1)
	assert.Equal(t, CodePermissionDenied, d.Violations[0].Code)
	assert.NotEmpty(t, d.Violations[0].Message)
	assert.Equal(t, EngineVersion, d.Metadata.EngineVersion)
}

func TestEvaluate_CreateWithHoursBelowMinimum(t *testing.T) {
	svc := newService(t)
	tutor, lecturer, _ := testActors()
	course := testCourse()

	d := svc.Evaluate(Request{
		Action:      workflow.ActionCreate,
		Actor:       lecturer,
		TargetTutor: tutor,
		Course:      course,
		Facts:       createFacts("0.05", "45.00", course),
	})

	assert.Equal(t, OutcomeRejected, d.Outcome)
	require.NotEmpty(t, d.Violations)
	assert.Equal(t, validation.CodeHoursOutOfRange, d.Violations[0].Code)
	assert.Equal(t, validation.SeverityHigh, d.Violations[0].Severity)
}

func TestEvaluate_BudgetHeadroomBoundary(t *testing.T) {
	svc := newService(t)
	tutor, lecturer, _ := testActors()

	course := testCourse()
	course.BudgetAllocated = dec("1270.00")
	course.BudgetUsed = dec("1000.00")

	// 6h * 45.00 = 270.00, exactly the remaining headroom
	atBoundary := svc.Evaluate(Request{
		Action:      workflow.ActionCreate,
		Actor:       lecturer,
		TargetTutor: tutor,
		Course:      course,
		Facts:       createFacts("6", "45.00", course),
	})
	assert.Equal(t, OutcomeApproved, atBoundary.Outcome)

	course.BudgetUsed = dec("1000.01")
	overBoundary := svc.Evaluate(Request{
		Action:      workflow.ActionCreate,
		Actor:       lecturer,
		TargetTutor: tutor,
		Course:      course,
		Facts:       createFacts("6", "45.00", course),
	})
	assert.Equal(t, OutcomeRejected, overBoundary.Outcome)
	require.NotEmpty(t, overBoundary.Violations)
	assert.Equal(t, validation.CodeBudgetExceeded, overBoundary.Violations[0].Code)
	assert.NotEmpty(t, overBoundary.Recommendations)
}

func TestEvaluate_CapacityOnlyIsConditional(t *testing.T) {
	svc := newService(t)
	tutor, lecturer, _ := testActors()
	course := testCourse()

	facts := createFacts("6", "45.00", course)
	facts.CurrentTutors = course.MaxTutors

	d := svc.Evaluate(Request{
		Action:      workflow.ActionCreate,
		Actor:       lecturer,
		TargetTutor: tutor,
		Course:      course,
		Facts:       facts,
	})

	assert.Equal(t, OutcomeConditional, d.Outcome)
	require.Len(t, d.Violations, 1)
	assert.Equal(t, validation.CodeCourseAtCapacity, d.Violations[0].Code)
	require.NotEmpty(t, d.Recommendations)
	assert.Equal(t, "review-tutor-allocation", d.Recommendations[0].ID)
}

func TestEvaluate_NoTransitionFromTerminalStatus(t *testing.T) {
	svc := newService(t)
	_, _, hr := testActors()

	d := svc.Evaluate(Request{
		Action:    workflow.ActionReject,
		Actor:     hr,
		Timesheet: testTimesheet(workflow.StatusRejected),
		Course:    testCourse(),
	})

	assert.Equal(t, OutcomeRejected, d.Outcome)
	require.NotEmpty(t, d.Violations)
	// HR passes the identity check in any status; the rejection must come
	// from the registry having no rule out of REJECTED, not from the
	// permission policy.
	assert.Equal(t, CodeNoTransition, d.Violations[0].Code)
	assert.NotEmpty(t, d.Violations[0].Message)
}

func TestEvaluate_NoTransitionForWrongSubState(t *testing.T) {
	svc := newService(t)
	_, _, hr := testActors()

	// HR may act on pending timesheets, but HR_CONFIRM has no rule before
	// the lecturer has confirmed.
	d := svc.Evaluate(Request{
		Action:    workflow.ActionHRConfirm,
		Actor:     hr,
		Timesheet: testTimesheet(workflow.StatusPendingTutorConfirmation),
		Course:    testCourse(),
	})

	assert.Equal(t, OutcomeRejected, d.Outcome)
	require.NotEmpty(t, d.Violations)
	assert.Equal(t, CodeNoTransition, d.Violations[0].Code)
}

func TestEvaluate_MalformedRequest(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing actor", Request{Action: workflow.ActionSubmitForApproval, Timesheet: testTimesheet(workflow.StatusDraft)}},
		{"unknown action", Request{Action: workflow.Action("EXPLODE"), Actor: &entity.User{ID: 1, Role: workflow.RoleAdmin, IsActive: true}}},
		{"missing timesheet", Request{Action: workflow.ActionReject, Actor: &entity.User{ID: 1, Role: workflow.RoleAdmin, IsActive: true}}},
		{"create without course", Request{Action: workflow.ActionCreate, Actor: &entity.User{ID: 1, Role: workflow.RoleAdmin, IsActive: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := svc.Evaluate(tt.req)
			assert.Equal(t, OutcomeError, d.Outcome)
			require.Len(t, d.Violations, 1)
			assert.Equal(t, CodeMalformedRequest, d.Violations[0].Code)
			assert.Equal(t, EngineVersion, d.Metadata.EngineVersion, "metadata must be produced on ERROR")
		})
	}
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	svc := newService(t)
	tutor, lecturer, _ := testActors()
	course := testCourse()

	req := Request{
		RequestID:   "fixed-request-id",
		Action:      workflow.ActionCreate,
		Actor:       lecturer,
		TargetTutor: tutor,
		Course:      course,
		Facts:       createFacts("0.05", "300.00", course),
	}

	first := svc.Evaluate(req)
	second := svc.Evaluate(req)

	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.TargetStatus, second.TargetStatus)
	assert.Equal(t, first.Violations, second.Violations)
	assert.Equal(t, first.AppliedRules, second.AppliedRules)
	assert.Equal(t, first.RequestID, second.RequestID)
}

func TestEvaluate_RejectionsAlwaysCarryAMessage(t *testing.T) {
	svc := newService(t)
	tutor, lecturer, hr := testActors()
	course := testCourse()

	requests := []Request{
		{Action: workflow.ActionCreate, Actor: tutor, TargetTutor: tutor, Course: course, Facts: createFacts("6", "45.00", course)},
		{Action: workflow.ActionCreate, Actor: lecturer, TargetTutor: tutor, Course: course, Facts: createFacts("50", "45.00", course)},
		{Action: workflow.ActionHRConfirm, Actor: hr, Timesheet: testTimesheet(workflow.StatusPendingTutorConfirmation), Course: course},
	}

	for _, req := range requests {
		d := svc.Evaluate(req)
		require.Equal(t, OutcomeRejected, d.Outcome)
		require.NotEmpty(t, d.Violations, "silent rejection for action %s", req.Action)
		for _, v := range d.Violations {
			assert.NotEmpty(t, v.Message)
		}
	}
}
