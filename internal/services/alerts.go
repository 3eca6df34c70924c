package services

import (
	"context"
	"errors"
	"fmt"

	"noshow-service/internal/alert"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

// AlertStore persists alerts received upstream.
type AlertStore interface {
	UpsertAlert(ctx context.Context, a models.NoShowAlert) error
	ListActiveAlerts(ctx context.Context) ([]models.NoShowAlert, error)
}

// Tracker puts alerts on the live board.
type Tracker interface {
	Track(a models.NoShowAlert) (alert.Snapshot, error)
}

// AlertService is the intake path shared by the Kafka consumer and the HTTP API.
type AlertService struct {
	store  AlertStore
	board  Tracker
	logger *logging.Logger
}

func NewAlertService(store AlertStore, board Tracker, logger *logging.Logger) *AlertService {
	return &AlertService{store: store, board: board, logger: logger}
}

// HandleAlert persists a and starts displaying it. Redelivered alerts, including ones
// already resolved, are accepted silently.
func (s *AlertService) HandleAlert(ctx context.Context, a models.NoShowAlert) error {
	_, err := s.Accept(ctx, a)
	if errors.Is(err, models.ErrAlreadyResolved) {
		return nil
	}
	return err
}

// Accept is HandleAlert reporting whether the alert is new to the board.
// An alert with a decision on record stays off the board and yields models.ErrAlreadyResolved.
func (s *AlertService) Accept(ctx context.Context, a models.NoShowAlert) (created bool, err error) {
	if err := s.store.UpsertAlert(ctx, a); err != nil {
		if errors.Is(err, models.ErrAlreadyResolved) {
			s.logger.Debugf("Ignoring alert %s: %v", a.ReservationID, err)
			return false, err
		}
		return false, fmt.Errorf("failed to store alert: %w", err)
	}
	if _, err := s.board.Track(a); err != nil {
		if errors.Is(err, alert.ErrAlreadyTracked) {
			s.logger.Debugf("Alert %s already on the board", a.ReservationID)
			return false, nil
		}
		return false, fmt.Errorf("failed to track alert: %w", err)
	}
	return true, nil
}

// Restore puts every unresolved alert from the store back on the board.
func (s *AlertService) Restore(ctx context.Context) (int, error) {
	alerts, err := s.store.ListActiveAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active alerts: %w", err)
	}

	restored := 0
	for _, a := range alerts {
		if _, err := s.board.Track(a); err != nil {
			if !errors.Is(err, alert.ErrAlreadyTracked) {
				s.logger.Warnf("Skipping alert %s on restore: %v", a.ReservationID, err)
			}
			continue
		}
		restored++
	}
	s.logger.Infof("Restored %d active alerts", restored)
	return restored, nil
}
