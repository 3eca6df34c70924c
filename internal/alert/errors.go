package alert

import "errors"

var (
	// ErrResolutionFailed wraps any error returned by the Resolver.
	ErrResolutionFailed = errors.New("alert resolution failed")

	// ErrAlertNotFound is returned for an alert that is not on the board.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlreadyTracked is returned when the same reservation is tracked twice.
	ErrAlreadyTracked = errors.New("alert already tracked")
)
