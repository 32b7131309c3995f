package policy

import (
	"testing"

	"github.com/campusworks/timesheet-approval/internal/domain/entity"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

func tutor() *entity.User {
	return &entity.User{ID: 10, Role: workflow.RoleTutor, IsActive: true}
}

func lecturer() *entity.User {
	return &entity.User{ID: 20, Role: workflow.RoleLecturer, IsActive: true}
}

func hr() *entity.User {
	return &entity.User{ID: 30, Role: workflow.RoleHR, IsActive: true}
}

func admin() *entity.User {
	return &entity.User{ID: 40, Role: workflow.RoleAdmin, IsActive: true}
}

func course() *entity.Course {
	return &entity.Course{ID: 100, LecturerID: 20, IsActive: true}
}

func timesheet(status workflow.Status) *entity.Timesheet {
	return &entity.Timesheet{ID: 1, TutorID: 10, CourseID: 100, Status: status}
}

func TestPolicy_CanCreateFor(t *testing.T) {
	p := New()

	tests := []struct {
		name    string
		creator *entity.User
		tutor   *entity.User
		course  *entity.Course
		want    bool
	}{
		{"lecturer creates for own-course tutor", lecturer(), tutor(), course(), true},
		{"admin creates anywhere", admin(), tutor(), &entity.Course{ID: 101, LecturerID: 99}, true},
		{"tutor may never self-create", tutor(), tutor(), course(), false},
		{"hr may not create", hr(), tutor(), course(), false},
		{"lecturer of another course", lecturer(), tutor(), &entity.Course{ID: 101, LecturerID: 99}, false},
		{"lecturer creates for non-tutor", lecturer(), lecturer(), course(), false},
		{"inactive creator", &entity.User{ID: 20, Role: workflow.RoleLecturer}, tutor(), course(), false},
		{"nil creator", nil, tutor(), course(), false},
		{"nil tutor", lecturer(), nil, course(), false},
		{"nil course", lecturer(), tutor(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanCreateFor(tt.creator, tt.tutor, tt.course); got != tt.want {
				t.Errorf("CanCreateFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_CanView(t *testing.T) {
	p := New()

	tests := []struct {
		name   string
		actor  *entity.User
		ts     *entity.Timesheet
		course *entity.Course
		want   bool
	}{
		{"owner tutor", tutor(), timesheet(workflow.StatusDraft), course(), true},
		{"other tutor", &entity.User{ID: 11, Role: workflow.RoleTutor, IsActive: true}, timesheet(workflow.StatusDraft), course(), false},
		{"course lecturer", lecturer(), timesheet(workflow.StatusDraft), course(), true},
		{"foreign lecturer", &entity.User{ID: 21, Role: workflow.RoleLecturer, IsActive: true}, timesheet(workflow.StatusDraft), course(), false},
		{"hr sees everything", hr(), timesheet(workflow.StatusDraft), course(), true},
		{"admin sees everything", admin(), timesheet(workflow.StatusDraft), nil, true},
		{"nil actor", nil, timesheet(workflow.StatusDraft), course(), false},
		{"nil timesheet", tutor(), nil, course(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanView(tt.actor, tt.ts, tt.course); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_CanEdit_StateGating(t *testing.T) {
	p := New()

	tests := []struct {
		status workflow.Status
		want   bool
	}{
		{workflow.StatusDraft, true},
		{workflow.StatusModificationRequested, true},
		{workflow.StatusPendingTutorConfirmation, false},
		{workflow.StatusTutorConfirmed, false},
		{workflow.StatusLecturerConfirmed, false},
		{workflow.StatusFinalConfirmed, false},
		{workflow.StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := p.CanEdit(tutor(), timesheet(tt.status), course()); got != tt.want {
				t.Errorf("CanEdit(owner, %s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestPolicy_CanApprove(t *testing.T) {
	p := New()

	tests := []struct {
		name   string
		actor  *entity.User
		ts     *entity.Timesheet
		course *entity.Course
		want   bool
	}{
		{"owner tutor on pending", tutor(), timesheet(workflow.StatusPendingTutorConfirmation), course(), true},
		{"course lecturer on tutor-confirmed", lecturer(), timesheet(workflow.StatusTutorConfirmed), course(), true},
		{"hr on lecturer-confirmed", hr(), timesheet(workflow.StatusLecturerConfirmed), course(), true},
		{"admin on pending", admin(), timesheet(workflow.StatusTutorConfirmed), nil, true},
		// State gating is the registry's job: the right actor passes the
		// identity check in any status and the missing rule is reported
		// as an invalid transition instead.
		{"owner tutor on draft", tutor(), timesheet(workflow.StatusDraft), course(), true},
		{"hr on terminal status", hr(), timesheet(workflow.StatusRejected), course(), true},
		{"non-owner tutor", &entity.User{ID: 11, Role: workflow.RoleTutor, IsActive: true}, timesheet(workflow.StatusPendingTutorConfirmation), course(), false},
		{"foreign lecturer", &entity.User{ID: 21, Role: workflow.RoleLecturer, IsActive: true}, timesheet(workflow.StatusTutorConfirmed), course(), false},
		{"inactive hr", &entity.User{ID: 30, Role: workflow.RoleHR}, timesheet(workflow.StatusLecturerConfirmed), course(), false},
		{"nil actor never throws", nil, timesheet(workflow.StatusTutorConfirmed), course(), false},
		{"nil timesheet never throws", hr(), nil, course(), false},
		{"nil course for lecturer", lecturer(), timesheet(workflow.StatusTutorConfirmed), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanApprove(tt.actor, tt.ts, tt.course); got != tt.want {
				t.Errorf("CanApprove() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_CanDelete(t *testing.T) {
	p := New()

	if !p.CanDelete(admin(), timesheet(workflow.StatusDraft), nil) {
		t.Error("CanDelete(admin, draft) = false, want true")
	}
	if p.CanDelete(admin(), timesheet(workflow.StatusFinalConfirmed), nil) {
		t.Error("CanDelete(admin, final) = true, want false")
	}
	if p.CanDelete(tutor(), timesheet(workflow.StatusPendingTutorConfirmation), course()) {
		t.Error("CanDelete(owner, pending) = true, want false")
	}
}
