// Package alert tracks no-show alerts from detection to operator resolution.
//
// Status and countdown are derived from the release deadline and the current time on every
// tick; nothing derived here is persisted. The table release itself happens elsewhere.
package alert

import (
	"fmt"
	"time"

	"noshow-service/internal/models"
)

// Status is the display state of an alert.
type Status string

const (
	StatusPending Status = "pending"
	StatusUrgent  Status = "urgent"
	StatusExpired Status = "expired"
)

const (
	// DefaultUrgentWindow is how close to the deadline an alert turns urgent.
	DefaultUrgentWindow = 5 * time.Minute
	// DefaultTickInterval is how often a displayed alert is re-evaluated.
	DefaultTickInterval = time.Second

	ExpiredLabel = "Time exhausted"
	NoPhoneLabel = "No phone"
)

// DeriveStatus maps the time left before auto-release to a display status.
func DeriveStatus(remaining, urgentWindow time.Duration) Status {
	switch {
	case remaining <= 0:
		return StatusExpired
	case remaining < urgentWindow:
		return StatusUrgent
	default:
		return StatusPending
	}
}

// Countdown renders the time left as "<m>m <s>s", or ExpiredLabel once the deadline passed.
func Countdown(remaining time.Duration) string {
	if remaining <= 0 {
		return ExpiredLabel
	}
	ms := remaining.Milliseconds()
	return fmt.Sprintf("%dm %ds", ms/60000, (ms/1000)%60)
}

// PhoneDisplay never returns an empty string.
func PhoneDisplay(phone *string) string {
	if phone == nil || *phone == "" {
		return NoPhoneLabel
	}
	return *phone
}

// Snapshot is the presentation state of one alert at one instant.
type Snapshot struct {
	ReservationID   string    `json:"reservation_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	ReservationTime string    `json:"reservation_time"`
	PartySize       int       `json:"party_size"`
	RiskScore       int       `json:"risk_score"`
	AutoReleaseAt   time.Time `json:"auto_release_at"`
	Status          Status    `json:"status"`
	Countdown       string    `json:"countdown"`
	Resolved        bool      `json:"resolved"`
}

// Evaluate derives the snapshot of a at now.
func Evaluate(a models.NoShowAlert, now time.Time, urgentWindow time.Duration) Snapshot {
	remaining := a.AutoReleaseAt.Sub(now)
	return Snapshot{
		ReservationID:   a.ReservationID,
		CustomerName:    a.CustomerName,
		CustomerPhone:   PhoneDisplay(a.CustomerPhone),
		ReservationTime: a.ReservationTime,
		PartySize:       a.PartySize,
		RiskScore:       a.RiskScore,
		AutoReleaseAt:   a.AutoReleaseAt,
		Status:          DeriveStatus(remaining, urgentWindow),
		Countdown:       Countdown(remaining),
	}
}
