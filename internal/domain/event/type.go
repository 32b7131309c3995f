package event

// Type identifies the type of domain event
type Type string

const (
	TypeTimesheetSubmitted    Type = "timesheet.submitted"
	TypeTimesheetConfirmed    Type = "timesheet.confirmed"
	TypeTimesheetFinalized    Type = "timesheet.finalized"
	TypeTimesheetRejected     Type = "timesheet.rejected"
	TypeModificationRequested Type = "timesheet.modification_requested"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTimesheetSubmitted,
		TypeTimesheetConfirmed,
		TypeTimesheetFinalized,
		TypeTimesheetRejected,
		TypeModificationRequested:
		return true
	default:
		return false
	}
}
