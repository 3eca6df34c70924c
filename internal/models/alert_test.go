package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAlert(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantPhone *string
	}{
		{
			name: "valid alert with phone",
			body: `{"reservation_id":" res-1 ","customer_name":"Ana López","customer_phone":"+34600111222",
				"reservation_time":"21:30","party_size":4,"risk_score":82,"auto_release_at":"2026-10-19T21:45:00+02:00"}`,
			wantPhone: strPtr("+34600111222"),
		},
		{
			name: "null phone",
			body: `{"reservation_id":"res-2","customer_name":"Luis","customer_phone":null,
				"reservation_time":"20:00","party_size":2,"risk_score":0,"auto_release_at":"2026-10-19T20:15:00Z"}`,
		},
		{
			name: "blank phone becomes absent",
			body: `{"reservation_id":"res-3","customer_name":"Marta","customer_phone":"   ",
				"reservation_time":"20:00","party_size":2,"risk_score":100,"auto_release_at":"2026-10-19T20:15:00Z"}`,
		},
		{
			name:    "risk score above range",
			body:    `{"reservation_id":"res-4","customer_name":"X","party_size":2,"risk_score":101,"auto_release_at":"2026-10-19T20:15:00Z"}`,
			wantErr: true,
		},
		{
			name:    "zero party size",
			body:    `{"reservation_id":"res-5","customer_name":"X","party_size":0,"risk_score":10,"auto_release_at":"2026-10-19T20:15:00Z"}`,
			wantErr: true,
		},
		{
			name:    "missing reservation id",
			body:    `{"customer_name":"X","party_size":2,"risk_score":10,"auto_release_at":"2026-10-19T20:15:00Z"}`,
			wantErr: true,
		},
		{
			name:    "release time not ISO-8601",
			body:    `{"reservation_id":"res-6","customer_name":"X","party_size":2,"risk_score":10,"auto_release_at":"tomorrow"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			body:    `{"reservation_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAlert([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidAlert)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhone, got.CustomerPhone)
			assert.Equal(t, time.UTC, got.AutoReleaseAt.Location())
		})
	}
}

func TestNormalize_TrimsAndConvertsToUTC(t *testing.T) {
	p := AlertPayload{
		ReservationID:   "  res-1 ",
		CustomerName:    " Ana ",
		ReservationTime: " 21:30 ",
		PartySize:       3,
		RiskScore:       55,
		AutoReleaseAt:   "2026-10-19T21:45:00+02:00",
	}

	a, err := p.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "res-1", a.ReservationID)
	assert.Equal(t, "Ana", a.CustomerName)
	assert.Equal(t, "21:30", a.ReservationTime)
	assert.Equal(t, time.Date(2026, 10, 19, 19, 45, 0, 0, time.UTC), a.AutoReleaseAt)
}

func TestOutcome_Valid(t *testing.T) {
	assert.True(t, OutcomeCallSuccessful.Valid())
	assert.True(t, OutcomeCallFailed.Valid())
	assert.False(t, Outcome("call_maybe").Valid())
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityInfo.Rank(), SeveritySuccess.Rank())
	assert.Less(t, SeverityWarning.Rank(), SeverityError.Rank())
	assert.Equal(t, 0, Severity("debug").Rank())
}

func strPtr(s string) *string {
	return &s
}
