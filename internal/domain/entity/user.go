package entity

import (
	"time"

	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// User represents an actor in the approval workflow
type User struct {
	ID        int64         `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      workflow.Role `json:"role"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
