package workflow

// Action represents an operation an actor attempts against a timesheet
type Action string

const (
	// Lifecycle actions gated by permission policy only
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"

	// Approval actions resolved through the rule registry
	ActionSubmitForApproval   Action = "SUBMIT_FOR_APPROVAL"
	ActionTutorConfirm        Action = "TUTOR_CONFIRM"
	ActionLecturerConfirm     Action = "LECTURER_CONFIRM"
	ActionHRConfirm           Action = "HR_CONFIRM"
	ActionReject              Action = "REJECT"
	ActionRequestModification Action = "REQUEST_MODIFICATION"
)

var validActions = map[Action]bool{
	ActionCreate:              true,
	ActionUpdate:              true,
	ActionDelete:              true,
	ActionSubmitForApproval:   true,
	ActionTutorConfirm:        true,
	ActionLecturerConfirm:     true,
	ActionHRConfirm:           true,
	ActionReject:              true,
	ActionRequestModification: true,
}

var transitionActions = map[Action]bool{
	ActionSubmitForApproval:   true,
	ActionTutorConfirm:        true,
	ActionLecturerConfirm:     true,
	ActionHRConfirm:           true,
	ActionReject:              true,
	ActionRequestModification: true,
}

// IsValid returns true if the action is a defined action
func (a Action) IsValid() bool {
	return validActions[a]
}

// IsTransition returns true if the action drives a workflow state transition
func (a Action) IsTransition() bool {
	return transitionActions[a]
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// TransitionActions returns every action resolved through the rule registry
func TransitionActions() []Action {
	return []Action{
		ActionSubmitForApproval,
		ActionTutorConfirm,
		ActionLecturerConfirm,
		ActionHRConfirm,
		ActionReject,
		ActionRequestModification,
	}
}
