package workflow

import "errors"

var (
	// ErrNoTransition is returned when no rule matches (action, role, status)
	ErrNoTransition = errors.New("no such transition")

	// ErrInvalidStatus is returned when a status is not a defined lifecycle status
	ErrInvalidStatus = errors.New("invalid status")
)
