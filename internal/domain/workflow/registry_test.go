package workflow

import (
	"reflect"
	"testing"
)

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name   string
		action Action
		role   Role
		from   Status
		want   Status
		ok     bool
	}{
		{"lecturer submits draft", ActionSubmitForApproval, RoleLecturer, StatusDraft, StatusPendingTutorConfirmation, true},
		{"tutor submits own draft", ActionSubmitForApproval, RoleTutor, StatusDraft, StatusPendingTutorConfirmation, true},
		{"tutor confirms", ActionTutorConfirm, RoleTutor, StatusPendingTutorConfirmation, StatusTutorConfirmed, true},
		{"tutor requests modification", ActionRequestModification, RoleTutor, StatusPendingTutorConfirmation, StatusModificationRequested, true},
		{"tutor rejects", ActionReject, RoleTutor, StatusPendingTutorConfirmation, StatusRejected, true},
		{"tutor resubmits", ActionSubmitForApproval, RoleTutor, StatusModificationRequested, StatusPendingTutorConfirmation, true},
		{"lecturer confirms", ActionLecturerConfirm, RoleLecturer, StatusTutorConfirmed, StatusLecturerConfirmed, true},
		{"hr final confirms", ActionHRConfirm, RoleHR, StatusLecturerConfirmed, StatusFinalConfirmed, true},
		{"hr rejects", ActionReject, RoleHR, StatusLecturerConfirmed, StatusRejected, true},
		{"admin override confirm", ActionTutorConfirm, RoleAdmin, StatusPendingTutorConfirmation, StatusTutorConfirmed, true},
		{"tutor cannot lecturer-confirm", ActionLecturerConfirm, RoleTutor, StatusTutorConfirmed, "", false},
		{"hr cannot confirm early", ActionHRConfirm, RoleHR, StatusPendingTutorConfirmation, "", false},
		{"no transition from rejected", ActionReject, RoleHR, StatusRejected, "", false},
		{"no transition from final", ActionSubmitForApproval, RoleLecturer, StatusFinalConfirmed, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := registry.Resolve(tt.action, tt.role, tt.from)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%s, %s, %s) = (%s, %v), want (%s, %v)",
					tt.action, tt.role, tt.from, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRegistry_ResolveIsPure(t *testing.T) {
	registry := NewRegistry()

	for _, rule := range registry.Rules() {
		first, ok1 := registry.Resolve(rule.Key.Action, rule.Key.Role, rule.Key.From)
		second, ok2 := registry.Resolve(rule.Key.Action, rule.Key.Role, rule.Key.From)
		if first != second || ok1 != ok2 {
			t.Errorf("Resolve(%v) not deterministic: (%s, %v) then (%s, %v)",
				rule.Key, first, ok1, second, ok2)
		}
	}
}

func TestRegistry_NoRulesFromTerminalStatuses(t *testing.T) {
	registry := NewRegistry()

	for _, status := range []Status{StatusRejected, StatusFinalConfirmed} {
		for _, action := range TransitionActions() {
			for _, role := range []Role{RoleTutor, RoleLecturer, RoleHR, RoleAdmin} {
				if _, ok := registry.Resolve(action, role, status); ok {
					t.Errorf("Resolve(%s, %s, %s) matched a rule from terminal status", action, role, status)
				}
			}
		}
	}
}

func TestRegistry_ValidActions(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		role Role
		from Status
		want []Action
	}{
		{RoleTutor, StatusPendingTutorConfirmation, []Action{ActionReject, ActionRequestModification, ActionTutorConfirm}},
		{RoleLecturer, StatusTutorConfirmed, []Action{ActionLecturerConfirm, ActionReject, ActionRequestModification}},
		{RoleHR, StatusLecturerConfirmed, []Action{ActionHRConfirm, ActionReject, ActionRequestModification}},
		{RoleTutor, StatusRejected, nil},
		{RoleHR, StatusDraft, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.from), func(t *testing.T) {
			got := registry.ValidActions(tt.role, tt.from)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ValidActions(%s, %s) = %v, want %v", tt.role, tt.from, got, tt.want)
			}
		})
	}
}

func TestRegistry_ValidateConsistency(t *testing.T) {
	registry := NewRegistry()

	if errs := registry.ValidateConsistency(); len(errs) != 0 {
		t.Errorf("ValidateConsistency() reported %d errors: %v", len(errs), errs)
	}
}

func TestRegistry_ValidateConsistencyDetectsConflicts(t *testing.T) {
	registry := NewRegistry()
	registry.add(ActionTutorConfirm, RoleTutor, StatusPendingTutorConfirmation, StatusRejected, "conflicting outcome")

	errs := registry.ValidateConsistency()
	if len(errs) == 0 {
		t.Fatal("ValidateConsistency() reported no errors for a conflicting rule")
	}
}

func TestRegistry_ValidateConsistencyDetectsUndefinedTarget(t *testing.T) {
	registry := NewRegistry()
	registry.add(ActionReject, RoleHR, StatusTutorConfirmed, Status("LIMBO"), "targets undefined status")

	errs := registry.ValidateConsistency()
	if len(errs) == 0 {
		t.Fatal("ValidateConsistency() reported no errors for an undefined target status")
	}
}
