package workflow

import (
	"fmt"
	"sort"
)

// RuleKey identifies a single workflow rule by (action, role, from status)
type RuleKey struct {
	Action Action
	Role   Role
	From   Status
}

// Rule maps a RuleKey to its resulting status
type Rule struct {
	Key         RuleKey
	To          Status
	Description string
}

// Registry is the immutable workflow rule table. It is built once at
// process start and is safe for concurrent reads without locking.
type Registry struct {
	rules     map[RuleKey]Rule
	conflicts []error
}

// NewRegistry builds the production approval workflow rule table
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[RuleKey]Rule)}

	r.add(ActionSubmitForApproval, RoleLecturer, StatusDraft, StatusPendingTutorConfirmation,
		"Lecturer submits a draft timesheet for tutor confirmation")
	r.add(ActionSubmitForApproval, RoleTutor, StatusDraft, StatusPendingTutorConfirmation,
		"Tutor submits their own draft timesheet for confirmation")

	r.add(ActionTutorConfirm, RoleTutor, StatusPendingTutorConfirmation, StatusTutorConfirmed,
		"Tutor confirms the recorded hours are accurate")
	r.add(ActionRequestModification, RoleTutor, StatusPendingTutorConfirmation, StatusModificationRequested,
		"Tutor requests corrections to an inaccurate timesheet")
	r.add(ActionReject, RoleTutor, StatusPendingTutorConfirmation, StatusRejected,
		"Tutor rejects a timesheet that does not reflect their work")

	r.add(ActionSubmitForApproval, RoleTutor, StatusModificationRequested, StatusPendingTutorConfirmation,
		"Tutor resubmits after applying the requested changes")
	r.add(ActionSubmitForApproval, RoleLecturer, StatusModificationRequested, StatusPendingTutorConfirmation,
		"Lecturer resubmits a corrected timesheet on the tutor's behalf")

	r.add(ActionLecturerConfirm, RoleLecturer, StatusTutorConfirmed, StatusLecturerConfirmed,
		"Lecturer confirms a tutor-confirmed timesheet")
	r.add(ActionRequestModification, RoleLecturer, StatusTutorConfirmed, StatusModificationRequested,
		"Lecturer requests corrections to a tutor-confirmed timesheet")
	r.add(ActionReject, RoleLecturer, StatusTutorConfirmed, StatusRejected,
		"Lecturer rejects a tutor-confirmed timesheet")

	r.add(ActionHRConfirm, RoleHR, StatusLecturerConfirmed, StatusFinalConfirmed,
		"HR gives final confirmation for payroll processing")
	r.add(ActionRequestModification, RoleHR, StatusLecturerConfirmed, StatusModificationRequested,
		"HR requests corrections before payroll processing")
	r.add(ActionReject, RoleHR, StatusLecturerConfirmed, StatusRejected,
		"HR rejects a timesheet with a mandatory reason")

	// Admin override: every non-admin rule is mirrored for ADMIN so that
	// administrators can drive any step of the workflow.
	base := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.Key.Role != RoleAdmin {
			base = append(base, rule)
		}
	}
	for _, rule := range base {
		r.add(rule.Key.Action, RoleAdmin, rule.Key.From, rule.To,
			"Admin override: "+rule.Description)
	}

	return r
}

// add registers a rule, recording a conflict instead of overwriting when a
// key is already mapped to a different outcome.
func (r *Registry) add(action Action, role Role, from, to Status, description string) {
	key := RuleKey{Action: action, Role: role, From: from}
	if existing, ok := r.rules[key]; ok {
		if existing.To != to {
			r.conflicts = append(r.conflicts, fmt.Errorf(
				"conflicting rules for %s/%s/%s: %s vs %s",
				action, role, from, existing.To, to))
		}
		return
	}
	r.rules[key] = Rule{Key: key, To: to, Description: description}
}

// Resolve returns the resulting status for (action, role, from). The second
// return value is false when no rule matches; callers must treat that as a
// rejection, not a system error.
func (r *Registry) Resolve(action Action, role Role, from Status) (Status, bool) {
	rule, ok := r.rules[RuleKey{Action: action, Role: role, From: from}]
	if !ok {
		return "", false
	}
	return rule.To, true
}

// Lookup returns the full rule for (action, role, from)
func (r *Registry) Lookup(action Action, role Role, from Status) (Rule, bool) {
	rule, ok := r.rules[RuleKey{Action: action, Role: role, From: from}]
	return rule, ok
}

// ValidActions returns the actions the given role may attempt from the
// given status, sorted for deterministic output.
func (r *Registry) ValidActions(role Role, from Status) []Action {
	var actions []Action
	for key := range r.rules {
		if key.Role == role && key.From == from {
			actions = append(actions, key.Action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Rules returns every rule in the table, sorted by key
func (r *Registry) Rules() []Rule {
	rules := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i].Key, rules[j].Key
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Action != b.Action {
			return a.Action < b.Action
		}
		return a.Role < b.Role
	})
	return rules
}

// ValidateConsistency checks the rule table at startup. It verifies that
// every key maps to exactly one outcome, that every rule references defined
// statuses, actions and roles, that every non-terminal status has at least
// one outgoing rule, and that terminal statuses have none.
func (r *Registry) ValidateConsistency() []error {
	var errs []error
	errs = append(errs, r.conflicts...)

	outgoing := make(map[Status]int)
	for key, rule := range r.rules {
		if !key.From.IsValid() {
			errs = append(errs, fmt.Errorf("rule %s/%s: undefined source status %s", key.Action, key.Role, key.From))
		}
		if !rule.To.IsValid() {
			errs = append(errs, fmt.Errorf("rule %s/%s/%s: undefined target status %s", key.Action, key.Role, key.From, rule.To))
		}
		if !key.Action.IsTransition() {
			errs = append(errs, fmt.Errorf("rule %s/%s/%s: action is not a transition action", key.Action, key.Role, key.From))
		}
		if !key.Role.IsValid() {
			errs = append(errs, fmt.Errorf("rule %s/%s/%s: undefined role", key.Action, key.Role, key.From))
		}
		outgoing[key.From]++
	}

	for _, status := range AllStatuses() {
		if status.IsEditable() && status.IsTerminal() {
			errs = append(errs, fmt.Errorf("status %s is both editable and terminal", status))
		}
		if status.IsTerminal() {
			if outgoing[status] > 0 {
				errs = append(errs, fmt.Errorf("terminal status %s has outgoing rules", status))
			}
			continue
		}
		if outgoing[status] == 0 {
			errs = append(errs, fmt.Errorf("non-terminal status %s has no outgoing rules", status))
		}
	}

	return errs
}
