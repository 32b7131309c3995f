// Package policy implements the authorization matrix for timesheet
// operations. Checks combine three axes: role hierarchy (admin over
// lecturer over tutor), resource authority (lecturer of the course) and
// ownership (tutor of the timesheet), plus state gating via the workflow
// status predicates.
//
// Every check is a total, fail-closed function: nil or invalid input
// yields false, never a panic or an error.
package policy

import (
	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

// Policy evaluates permission checks over entity snapshots. It holds no
// state and is safe for concurrent use.
type Policy struct{}

// New creates a permission policy
func New() *Policy {
	return &Policy{}
}

// CanCreateFor reports whether creator may create a timesheet for the
// given tutor on the given course. Tutors may never create timesheets,
// not even for themselves; lecturers may create only for tutors on
// courses they supervise.
func (p *Policy) CanCreateFor(creator, tutor *entity.User, course *entity.Course) bool {
	if creator == nil || tutor == nil || course == nil || !creator.IsActive {
		return false
	}

	switch creator.Role {
	case workflow.RoleAdmin:
		return true
	case workflow.RoleLecturer:
		return tutor.Role == workflow.RoleTutor && course.LecturerID == creator.ID
	default:
		return false
	}
}

// CanView reports whether the actor may read the timesheet
func (p *Policy) CanView(actor *entity.User, ts *entity.Timesheet, course *entity.Course) bool {
	if actor == nil || ts == nil || !actor.IsActive {
		return false
	}

	switch actor.Role {
	case workflow.RoleAdmin, workflow.RoleHR:
		return true
	case workflow.RoleLecturer:
		return p.hasCourseAuthority(actor, course)
	case workflow.RoleTutor:
		return p.ownsTimesheet(actor, ts)
	default:
		return false
	}
}

// CanEdit reports whether the actor may modify the timesheet's content.
// Edits require authority over the timesheet and an editable status.
func (p *Policy) CanEdit(actor *entity.User, ts *entity.Timesheet, course *entity.Course) bool {
	if !p.canModify(actor, ts, course) {
		return false
	}
	return ts.Status.IsEditable()
}

// CanDelete reports whether the actor may delete the timesheet. Deletion
// follows the same gating as editing: only editable timesheets can be
// removed, and only by someone with authority over them.
func (p *Policy) CanDelete(actor *entity.User, ts *entity.Timesheet, course *entity.Course) bool {
	if !p.canModify(actor, ts, course) {
		return false
	}
	return ts.Status.IsEditable()
}

// CanSubmit reports whether the actor may submit the timesheet into the
// approval pipeline. Submission requires modify authority and an editable
// status.
func (p *Policy) CanSubmit(actor *entity.User, ts *entity.Timesheet, course *entity.Course) bool {
	if !p.canModify(actor, ts, course) {
		return false
	}
	return ts.Status.IsEditable()
}

// CanApprove reports whether the actor may act on the timesheet at all
// (confirm, reject or request modification). It covers only the identity
// axes: role, ownership and course authority. State gating belongs to the
// rule registry, which has no rules out of non-pending statuses, so a
// denial here always means "wrong actor", never "wrong state".
func (p *Policy) CanApprove(actor *entity.User, ts *entity.Timesheet, course *entity.Course) bool {
	if actor == nil || ts == nil || !actor.IsActive {
		return false
	}

	switch actor.Role {
	case workflow.RoleAdmin, workflow.RoleHR:
		return true
	case workflow.RoleLecturer:
		return p.hasCourseAuthority(actor, course)
	case workflow.RoleTutor:
		return p.ownsTimesheet(actor, ts)
	default:
		return false
	}
}

// canModify covers the identity axes shared by edit, delete and submit
func (p *Policy) canModify(actor *entity.User, ts *entity.Timesheet, course *entity.Course) bool {
	if actor == nil || ts == nil || !actor.IsActive {
		return false
	}

	switch actor.Role {
	case workflow.RoleAdmin:
		return true
	case workflow.RoleLecturer:
		return p.hasCourseAuthority(actor, course)
	case workflow.RoleTutor:
		return p.ownsTimesheet(actor, ts)
	default:
		return false
	}
}

func (p *Policy) hasCourseAuthority(actor *entity.User, course *entity.Course) bool {
	return course != nil && course.LecturerID == actor.ID
}

func (p *Policy) ownsTimesheet(actor *entity.User, ts *entity.Timesheet) bool {
	return ts.TutorID == actor.ID
}
