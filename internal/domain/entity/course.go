package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course represents a teaching unit with a budget for casual tutoring work
type Course struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Semester        string          `json:"semester"`
	LecturerID      int64           `json:"lecturer_id"`
	BudgetAllocated decimal.Decimal `json:"budget_allocated"`
	BudgetUsed      decimal.Decimal `json:"budget_used"`
	MaxTutors       int             `json:"max_tutors"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BudgetRemaining returns allocated minus used. The result can be negative
// when a course has been flagged as over budget.
func (c *Course) BudgetRemaining() decimal.Decimal {
	return c.BudgetAllocated.Sub(c.BudgetUsed)
}

// IsOverBudget reports whether used spend exceeds the allocation
func (c *Course) IsOverBudget() bool {
	return c.BudgetUsed.GreaterThan(c.BudgetAllocated)
}
