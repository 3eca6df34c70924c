package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the operator's decision code sent to the resolution collaborator.
type Outcome string

const (
	// OutcomeCallSuccessful means the customer was reached and the reservation stands.
	OutcomeCallSuccessful Outcome = "call_successful"
	// OutcomeCallFailed means the customer was not reached and the table was released.
	OutcomeCallFailed Outcome = "call_failed"
)

func (o Outcome) Valid() bool {
	return o == OutcomeCallSuccessful || o == OutcomeCallFailed
}

// Resolution is a row of noshow_actions and the payload of a resolution event.
type Resolution struct {
	ID         uuid.UUID `json:"id"`
	AlertID    string    `json:"reservation_id"`
	Outcome    Outcome   `json:"action"`
	Note       string    `json:"notes"`
	ResolvedAt time.Time `json:"resolved_at"`
}
