// Package decision orchestrates the permission policy, the workflow rule
// registry and the validation engine into a single evaluate call. A
// request is checked in a fixed order: shape, permission, transition rule,
// business rules; the first permission or transition failure
// short-circuits with a rejection. Evaluation is free of side effects, so
// identical snapshots always produce identical decisions.
package decision

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusworks/timesheet-approval/internal/domain/policy"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// EngineVersion tags every decision's metadata for audit tracking
const EngineVersion = "v2.1.0"

// Violation codes produced by the service itself, on top of the
// validation engine's codes
const (
	CodeMalformedRequest = "MALFORMED_REQUEST"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNoTransition     = "NO_VALID_TRANSITION"
)

// Service aggregates permission, transition and validation checks
type Service struct {
	registry *workflow.Registry
	policy   *policy.Policy
	engine   *validation.Engine
	logger   *zap.Logger
}

// NewService creates a decision service
func NewService(registry *workflow.Registry, pol *policy.Policy, engine *validation.Engine, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		policy:   pol,
		engine:   engine,
		logger:   logger,
	}
}

// Evaluate runs the full decision pipeline for one request. It never
// returns an error: business failures are REJECTED decisions and
// structural failures are ERROR decisions, always with populated metadata.
func (s *Service) Evaluate(req Request) Decision {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var applied []string
	finish := func(outcome Outcome, violations []validation.Violation, recs []Recommendation, target workflow.Status) Decision {
		d := Decision{
			RequestID:       requestID,
			Outcome:         outcome,
			TargetStatus:    target,
			Violations:      violations,
			Recommendations: recs,
			AppliedRules:    applied,
			Metadata: Metadata{
				EngineVersion: EngineVersion,
				ElapsedMs:     time.Since(start).Milliseconds(),
				EvaluatedAt:   start.UTC(),
			},
		}
		s.logger.Debug("decision evaluated",
			zap.String("request_id", requestID),
			zap.String("action", req.Action.String()),
			zap.String("outcome", string(outcome)),
			zap.Int("violations", len(violations)))
		return d
	}

	// 1. Request shape
	if v := s.checkShape(req); v != nil {
		return finish(OutcomeError, []validation.Violation{*v}, nil, "")
	}

	// 2. Permission
	if v := s.checkPermission(req); v != nil {
		applied = append(applied, "permission-policy")
		return finish(OutcomeRejected, []validation.Violation{*v}, nil, "")
	}
	applied = append(applied, "permission-policy")

	// 3. Transition rule
	var target workflow.Status
	if req.Action.IsTransition() {
		rule, ok := s.registry.Lookup(req.Action, req.Actor.Role, req.Timesheet.Status)
		if !ok {
			return finish(OutcomeRejected, []validation.Violation{{
				Code:     CodeNoTransition,
				Message:  fmt.Sprintf("action %s is not valid for role %s in status %s", req.Action, req.Actor.Role, req.Timesheet.Status),
				Severity: validation.SeverityCritical,
				Field:    "action",
				Actual:   req.Action.String(),
				Expected: fmt.Sprintf("one of %v", s.registry.ValidActions(req.Actor.Role, req.Timesheet.Status)),
			}}, nil, "")
		}
		target = rule.To
		applied = append(applied, "workflow-transition: "+rule.Description)
	}

	// 4. Business rule sets applicable to the action's domain
	var violations []validation.Violation
	for _, ruleSet := range s.ruleSetsFor(req.Action) {
		result := s.engine.Validate(ruleSet, req.Facts)
		applied = append(applied, ruleSet)
		violations = append(violations, result.Violations...)
	}

	// 5. Aggregate
	if len(violations) == 0 {
		return finish(OutcomeApproved, nil, nil, target)
	}

	recs := s.recommend(violations)
	for _, v := range violations {
		if v.Severity.IsBlocking() {
			return finish(OutcomeRejected, violations, recs, target)
		}
	}
	return finish(OutcomeConditional, violations, recs, target)
}

// checkShape validates the structural integrity of the request
func (s *Service) checkShape(req Request) *validation.Violation {
	malformed := func(field, msg string) *validation.Violation {
		return &validation.Violation{
			Code:     CodeMalformedRequest,
			Message:  msg,
			Severity: validation.SeverityCritical,
			Field:    field,
		}
	}

	if !req.Action.IsValid() {
		return malformed("action", fmt.Sprintf("unknown action %q", string(req.Action)))
	}
	if req.Actor == nil || req.Actor.ID <= 0 {
		return malformed("actor", "actor identity is required")
	}
	if !req.Actor.Role.IsValid() {
		return malformed("actor_role", fmt.Sprintf("unknown role %q", string(req.Actor.Role)))
	}
	if req.Action == workflow.ActionCreate {
		if req.TargetTutor == nil || req.Course == nil {
			return malformed("target", "create requires a target tutor and course")
		}
		return nil
	}
	if req.Timesheet == nil || req.Timesheet.ID <= 0 {
		return malformed("timesheet", "timesheet identity is required")
	}
	if !req.Timesheet.Status.IsValid() {
		return malformed("status", fmt.Sprintf("unknown status %q", string(req.Timesheet.Status)))
	}
	return nil
}

// checkPermission applies the policy check appropriate to the action
func (s *Service) checkPermission(req Request) *validation.Violation {
	allowed := false
	switch req.Action {
	case workflow.ActionCreate:
		allowed = s.policy.CanCreateFor(req.Actor, req.TargetTutor, req.Course)
	case workflow.ActionUpdate:
		allowed = s.policy.CanEdit(req.Actor, req.Timesheet, req.Course)
	case workflow.ActionDelete:
		allowed = s.policy.CanDelete(req.Actor, req.Timesheet, req.Course)
	case workflow.ActionSubmitForApproval:
		allowed = s.policy.CanSubmit(req.Actor, req.Timesheet, req.Course)
	default:
		allowed = s.policy.CanApprove(req.Actor, req.Timesheet, req.Course)
	}

	if allowed {
		return nil
	}
	return &validation.Violation{
		Code:     CodePermissionDenied,
		Message:  fmt.Sprintf("role %s is not permitted to perform %s on this timesheet", req.Actor.Role, req.Action),
		Severity: validation.SeverityCritical,
		Field:    "actor",
		Actual:   req.Actor.Role.String(),
	}
}

// ruleSetsFor maps an action to the validation rule sets it triggers.
// Creation and content edits run the numeric and financial checks;
// approval transitions rely on the workflow rule set alone.
func (s *Service) ruleSetsFor(action workflow.Action) []string {
	switch action {
	case workflow.ActionCreate:
		return []string{validation.RuleSetTimesheet, validation.RuleSetFinancial, validation.RuleSetCapacity}
	case workflow.ActionUpdate:
		return []string{validation.RuleSetTimesheet, validation.RuleSetFinancial}
	default:
		return nil
	}
}

// recommend derives follow-up suggestions from violations
func (s *Service) recommend(violations []validation.Violation) []Recommendation {
	var recs []Recommendation
	for _, v := range violations {
		switch v.Code {
		case validation.CodeBudgetExceeded:
			recs = append(recs, Recommendation{
				ID:              "increase-budget-or-reduce-claim",
				Title:           "Claim exceeds course budget",
				Description:     "Reduce the claimed hours or rate, or ask the course coordinator to increase the allocation.",
				SuggestedAction: "ADJUST_CLAIM",
				SuggestedParams: map[string]string{"available": v.Expected},
			})
		case validation.CodeCourseAtCapacity:
			recs = append(recs, Recommendation{
				ID:              "review-tutor-allocation",
				Title:           "Course tutor capacity reached",
				Description:     "The course already has its maximum number of tutors assigned; review the allocation before adding work.",
				SuggestedAction: "REVIEW_ALLOCATION",
			})
		case validation.CodeHoursOutOfRange, validation.CodeRateOutOfRange:
			recs = append(recs, Recommendation{
				ID:              "correct-" + v.Field,
				Title:           "Value outside configured bounds",
				Description:     v.Message,
				SuggestedAction: "CORRECT_FIELD",
				SuggestedParams: map[string]string{"field": v.Field, "expected": v.Expected},
			})
		}
	}
	return recs
}
