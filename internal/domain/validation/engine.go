// Package validation checks business invariants on timesheet facts: hour
// and rate bounds, budget headroom and course capacity. The engine is
// stateless and side-effect free; it never mutates the facts it is given.
package validation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusworks/timesheet-approval/internal/domain/entity"
)

// Rule set identifiers
const (
	RuleSetTimesheet = "timesheet-validation"
	RuleSetFinancial = "financial-validation"
	RuleSetCapacity  = "course-capacity"
)

// Bounds holds the configured numeric limits for timesheet fields
type Bounds struct {
	MinHours decimal.Decimal
	MaxHours decimal.Decimal
	MinRate  decimal.Decimal
	MaxRate  decimal.Decimal
}

// DefaultBounds returns the production limits: 0.1-40.0 hours per week and
// a 10.00-200.00 hourly rate.
func DefaultBounds() Bounds {
	return Bounds{
		MinHours: decimal.RequireFromString("0.1"),
		MaxHours: decimal.RequireFromString("40.0"),
		MinRate:  decimal.RequireFromString("10.00"),
		MaxRate:  decimal.RequireFromString("200.00"),
	}
}

// Facts is the snapshot of values a rule set evaluates. Callers populate
// the fields relevant to the rule sets they run.
type Facts struct {
	Hours      decimal.Decimal
	HourlyRate decimal.Decimal
	WeekStart  time.Time
	// BudgetRemaining is the course's allocated minus used headroom,
	// taken from the course snapshot. Negative when already over budget.
	BudgetRemaining decimal.Decimal
	MaxTutors       int
	CurrentTutors   int
}

// Engine runs business-rule sets against facts
type Engine struct {
	bounds Bounds
}

// NewEngine creates a validation engine with the given bounds
func NewEngine(bounds Bounds) *Engine {
	return &Engine{bounds: bounds}
}

// Bounds returns the configured limits
func (e *Engine) Bounds() Bounds {
	return e.bounds
}

// Validate runs the named rule set against the facts. An unknown rule-set
// id yields an empty valid result.
func (e *Engine) Validate(ruleSetID string, facts Facts) Result {
	switch ruleSetID {
	case RuleSetTimesheet:
		return e.validateTimesheet(facts)
	case RuleSetFinancial:
		return e.validateFinancial(facts)
	case RuleSetCapacity:
		return e.validateCapacity(facts)
	default:
		return resultOf(nil)
	}
}

func (e *Engine) validateTimesheet(facts Facts) Result {
	var violations []Violation

	if facts.Hours.LessThan(e.bounds.MinHours) || facts.Hours.GreaterThan(e.bounds.MaxHours) {
		violations = append(violations, Violation{
			Code:     CodeHoursOutOfRange,
			Message:  fmt.Sprintf("hours must be between %s and %s", e.bounds.MinHours, e.bounds.MaxHours),
			Severity: SeverityHigh,
			Field:    "hours",
			Actual:   facts.Hours.String(),
			Expected: fmt.Sprintf("%s <= hours <= %s", e.bounds.MinHours, e.bounds.MaxHours),
		})
	}

	if facts.HourlyRate.LessThan(e.bounds.MinRate) || facts.HourlyRate.GreaterThan(e.bounds.MaxRate) {
		violations = append(violations, Violation{
			Code:     CodeRateOutOfRange,
			Message:  fmt.Sprintf("hourly rate must be between %s and %s", e.bounds.MinRate, e.bounds.MaxRate),
			Severity: SeverityHigh,
			Field:    "hourly_rate",
			Actual:   facts.HourlyRate.String(),
			Expected: fmt.Sprintf("%s <= hourly_rate <= %s", e.bounds.MinRate, e.bounds.MaxRate),
		})
	}

	if !facts.WeekStart.IsZero() && facts.WeekStart.Weekday() != entity.WeekAnchorDay {
		violations = append(violations, Violation{
			Code:     CodeWeekNotAnchored,
			Message:  fmt.Sprintf("week start date must be a %s", entity.WeekAnchorDay),
			Severity: SeverityHigh,
			Field:    "week_start",
			Actual:   facts.WeekStart.Weekday().String(),
			Expected: entity.WeekAnchorDay.String(),
		})
	}

	return resultOf(violations)
}

// validateFinancial checks budget headroom: the requested claim total must
// not exceed allocated minus used. A claim exactly at the boundary passes.
func (e *Engine) validateFinancial(facts Facts) Result {
	var violations []Violation

	total := facts.Hours.Mul(facts.HourlyRate)
	headroom := facts.BudgetRemaining
	if total.GreaterThan(headroom) {
		violations = append(violations, Violation{
			Code:     CodeBudgetExceeded,
			Message:  fmt.Sprintf("claim total %s exceeds remaining course budget %s", total, headroom),
			Severity: SeverityCritical,
			Field:    "total_amount",
			Actual:   total.String(),
			Expected: fmt.Sprintf("total <= %s", headroom),
		})
	}

	return resultOf(violations)
}

func (e *Engine) validateCapacity(facts Facts) Result {
	var violations []Violation

	if facts.MaxTutors > 0 && facts.CurrentTutors >= facts.MaxTutors {
		violations = append(violations, Violation{
			Code:     CodeCourseAtCapacity,
			Message:  fmt.Sprintf("course already has %d of %d tutors assigned", facts.CurrentTutors, facts.MaxTutors),
			Severity: SeverityMedium,
			Field:    "current_tutors",
			Actual:   fmt.Sprintf("%d", facts.CurrentTutors),
			Expected: fmt.Sprintf("current_tutors < %d", facts.MaxTutors),
		})
	}

	return resultOf(violations)
}
