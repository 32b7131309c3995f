package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// Timesheet represents one week of claimed work hours for a tutor on a
// course. Content fields may only change while the status is editable; all
// status changes go through the decision service.
type Timesheet struct {
	ID          int64           `json:"id"`
	TutorID     int64           `json:"tutor_id"`
	CourseID    int64           `json:"course_id"`
	WeekStart   time.Time       `json:"week_start"`
	Hours       decimal.Decimal `json:"hours"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	Description string          `json:"description"`
	Status      workflow.Status `json:"status"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TotalPay returns hours multiplied by the hourly rate
func (t *Timesheet) TotalPay() decimal.Decimal {
	return t.Hours.Mul(t.HourlyRate)
}

// WeekAnchorDay is the canonical first day of a claim week
const WeekAnchorDay = time.Monday
