package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidAlert is returned when an upstream alert payload fails validation.
	ErrInvalidAlert = errors.New("invalid no-show alert")

	// ErrAlreadyResolved is returned when a decision is already on record for the reservation.
	ErrAlreadyResolved = errors.New("alert already resolved")
)

var validate = validator.New()

// NoShowAlert is one at-risk reservation waiting for an operator decision.
// The reservation ID doubles as the alert ID.
type NoShowAlert struct {
	ReservationID   string    `json:"reservation_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   *string   `json:"customer_phone"`
	ReservationTime string    `json:"reservation_time"`
	PartySize       int       `json:"party_size"`
	RiskScore       int       `json:"risk_score"`
	AutoReleaseAt   time.Time `json:"auto_release_at"`
}

// AlertPayload is the wire form produced by the upstream risk detection process.
type AlertPayload struct {
	ReservationID   string  `json:"reservation_id" binding:"required" validate:"required"`
	CustomerName    string  `json:"customer_name" binding:"required" validate:"required"`
	CustomerPhone   *string `json:"customer_phone"`
	ReservationTime string  `json:"reservation_time"`
	PartySize       int     `json:"party_size" binding:"gt=0" validate:"gt=0"`
	RiskScore       int     `json:"risk_score" binding:"gte=0,lte=100" validate:"gte=0,lte=100"`
	AutoReleaseAt   string  `json:"auto_release_at" binding:"required" validate:"required"`
}

// DecodeAlert parses and normalizes one upstream alert message.
func DecodeAlert(data []byte) (NoShowAlert, error) {
	var p AlertPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return NoShowAlert{}, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}
	return p.Normalize()
}

// Normalize is the single place where upstream alert data is cleaned and checked.
func (p AlertPayload) Normalize() (NoShowAlert, error) {
	p.ReservationID = strings.TrimSpace(p.ReservationID)
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.ReservationTime = strings.TrimSpace(p.ReservationTime)
	p.AutoReleaseAt = strings.TrimSpace(p.AutoReleaseAt)

	if err := validate.Struct(p); err != nil {
		return NoShowAlert{}, fmt.Errorf("%w: %v", ErrInvalidAlert, err)
	}

	releaseAt, err := time.Parse(time.RFC3339Nano, p.AutoReleaseAt)
	if err != nil {
		return NoShowAlert{}, fmt.Errorf("%w: auto_release_at: %v", ErrInvalidAlert, err)
	}

	var phone *string
	if p.CustomerPhone != nil {
		if v := strings.TrimSpace(*p.CustomerPhone); v != "" {
			phone = &v
		}
	}

	return NoShowAlert{
		ReservationID:   p.ReservationID,
		CustomerName:    p.CustomerName,
		CustomerPhone:   phone,
		ReservationTime: p.ReservationTime,
		PartySize:       p.PartySize,
		RiskScore:       p.RiskScore,
		AutoReleaseAt:   releaseAt.UTC(),
	}, nil
}
