package workflow

// Status represents a timesheet's position in the approval lifecycle
type Status string

const (
	StatusDraft                    Status = "DRAFT"
	StatusPendingTutorConfirmation Status = "PENDING_TUTOR_CONFIRMATION"
	StatusTutorConfirmed           Status = "TUTOR_CONFIRMED"
	StatusLecturerConfirmed        Status = "LECTURER_CONFIRMED"
	StatusFinalConfirmed           Status = "FINAL_CONFIRMED"
	StatusRejected                 Status = "REJECTED"
	StatusModificationRequested    Status = "MODIFICATION_REQUESTED"
)

var validStatuses = map[Status]bool{
	StatusDraft:                    true,
	StatusPendingTutorConfirmation: true,
	StatusTutorConfirmed:           true,
	StatusLecturerConfirmed:        true,
	StatusFinalConfirmed:           true,
	StatusRejected:                 true,
	StatusModificationRequested:    true,
}

var editableStatuses = map[Status]bool{
	StatusDraft:                 true,
	StatusModificationRequested: true,
}

var pendingStatuses = map[Status]bool{
	StatusPendingTutorConfirmation: true,
	StatusTutorConfirmed:           true,
	StatusLecturerConfirmed:        true,
}

var terminalStatuses = map[Status]bool{
	StatusFinalConfirmed: true,
	StatusRejected:       true,
}

// IsValid returns true if the status is a defined lifecycle status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsEditable returns true if the timesheet content may still be modified
func (s Status) IsEditable() bool {
	return editableStatuses[s]
}

// IsPending returns true if the status is awaiting confirmation by some role
func (s Status) IsPending() bool {
	return pendingStatuses[s]
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the status
func (s Status) DisplayName() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPendingTutorConfirmation:
		return "Pending Tutor Confirmation"
	case StatusTutorConfirmed:
		return "Tutor Confirmed"
	case StatusLecturerConfirmed:
		return "Lecturer Confirmed"
	case StatusFinalConfirmed:
		return "Final Confirmed"
	case StatusRejected:
		return "Rejected"
	case StatusModificationRequested:
		return "Modification Requested"
	default:
		return string(s)
	}
}

// AllStatuses returns every defined lifecycle status
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPendingTutorConfirmation,
		StatusTutorConfirmed,
		StatusLecturerConfirmed,
		StatusFinalConfirmed,
		StatusRejected,
		StatusModificationRequested,
	}
}
