package validation

// Severity classifies how strongly a violation blocks an action. HIGH and
// CRITICAL block; LOW and MEDIUM are advisory.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// IsBlocking returns true if a violation of this severity must reject the
// requested action
func (s Severity) IsBlocking() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Violation codes
const (
	CodeHoursOutOfRange  = "HOURS_OUT_OF_RANGE"
	CodeRateOutOfRange   = "RATE_OUT_OF_RANGE"
	CodeWeekNotAnchored  = "WEEK_START_NOT_ANCHORED"
	CodeBudgetExceeded   = "BUDGET_EXCEEDED"
	CodeCourseAtCapacity = "COURSE_AT_CAPACITY"
)

// Violation describes one failed business-rule check. It carries enough
// detail for UI and audit rendering without re-deriving the message.
type Violation struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Actual   string   `json:"actual_value"`
	Expected string   `json:"expected_constraint"`
}

// Result aggregates the violations of one rule-set run
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

func resultOf(violations []Violation) Result {
	return Result{Valid: len(violations) == 0, Violations: violations}
}
