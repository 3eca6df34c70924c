package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity of a transient user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities for provider routing; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeveritySuccess:
		return 2
	case SeverityWarning:
		return 3
	case SeverityError:
		return 4
	default:
		return 0
	}
}

// Notification is a toast pushed to live clients and, by severity, to providers.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func NewNotification(severity Severity, message string) Notification {
	return Notification{
		ID:        uuid.New(),
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
