package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"noshow-service/internal/models"
)

// UpsertAlert stores an alert received upstream. A redelivered alert is left untouched.
// It returns models.ErrAlreadyResolved when a decision is already on record for it.
func (d *DB) UpsertAlert(ctx context.Context, a models.NoShowAlert) error {
	query := `
	WITH ins AS (
		INSERT INTO noshow_alerts (
			reservation_id, customer_name, customer_phone, reservation_time,
			party_size, risk_score, auto_release_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reservation_id) DO NOTHING
		RETURNING resolved_at
	)
	SELECT resolved_at FROM ins
	UNION ALL
	SELECT resolved_at FROM noshow_alerts
	WHERE reservation_id = $1 AND NOT EXISTS (SELECT 1 FROM ins)`

	var resolvedAt *time.Time
	err := d.Pool.QueryRow(ctx, query,
		a.ReservationID,
		a.CustomerName,
		a.CustomerPhone,
		a.ReservationTime,
		a.PartySize,
		a.RiskScore,
		a.AutoReleaseAt,
	).Scan(&resolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// inserted by a concurrent transaction not yet visible to this statement
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ReservationID, err)
	}
	if resolvedAt != nil {
		return fmt.Errorf("alert %s resolved at %s: %w", a.ReservationID, resolvedAt.UTC().Format(time.RFC3339), models.ErrAlreadyResolved)
	}
	return nil
}

// ListActiveAlerts returns every alert without a recorded resolution, closest deadline first.
func (d *DB) ListActiveAlerts(ctx context.Context) ([]models.NoShowAlert, error) {
	query := `
	SELECT reservation_id, customer_name, customer_phone, reservation_time,
		party_size, risk_score, auto_release_at
	FROM noshow_alerts
	WHERE resolved_at IS NULL
	ORDER BY auto_release_at ASC`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}
	defer rows.Close()

	var list []models.NoShowAlert
	for rows.Next() {
		var a models.NoShowAlert
		err := rows.Scan(
			&a.ReservationID,
			&a.CustomerName,
			&a.CustomerPhone,
			&a.ReservationTime,
			&a.PartySize,
			&a.RiskScore,
			&a.AutoReleaseAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.AutoReleaseAt = a.AutoReleaseAt.UTC()
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return list, nil
}

// RecordResolution writes the operator decision and closes the alert in one transaction.
// Only the first decision per reservation is kept: created reports whether this call
// recorded it, and recorded is the outcome on record afterwards.
func (d *DB) RecordResolution(ctx context.Context, r models.Resolution) (created bool, recorded models.Outcome, err error) {
	err = pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
		INSERT INTO noshow_actions (id, reservation_id, action, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reservation_id) DO NOTHING`,
			r.ID, r.AlertID, string(r.Outcome), r.Note, r.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert action: %w", err)
		}

		if tag.RowsAffected() == 0 {
			var action string
			err := tx.QueryRow(ctx,
				`SELECT action FROM noshow_actions WHERE reservation_id = $1`, r.AlertID,
			).Scan(&action)
			if err != nil {
				return fmt.Errorf("failed to read recorded action: %w", err)
			}
			created, recorded = false, models.Outcome(action)
			return nil
		}

		_, err = tx.Exec(ctx, `
		UPDATE noshow_alerts
		SET resolved_at = $2, resolution = $3
		WHERE reservation_id = $1 AND resolved_at IS NULL`,
			r.AlertID, r.ResolvedAt, string(r.Outcome),
		)
		if err != nil {
			return fmt.Errorf("failed to update alert: %w", err)
		}
		created, recorded = true, r.Outcome
		return nil
	})
	if err != nil {
		return false, "", fmt.Errorf("failed to record resolution for %s: %w", r.AlertID, err)
	}
	return created, recorded, nil
}
