// Package resolution records operator decisions on no-show alerts.
package resolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

var ErrInvalidOutcome = errors.New("invalid resolution outcome")

// Store persists a decision and closes the alert. Only the first decision per alert is kept:
// created reports whether r was recorded, recorded is the outcome on record.
type Store interface {
	RecordResolution(ctx context.Context, r models.Resolution) (created bool, recorded models.Outcome, err error)
}

// Publisher announces a decision to downstream consumers.
type Publisher interface {
	PublishResolution(ctx context.Context, r models.Resolution) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *logging.Logger
	clock     clockwork.Clock
}

// New builds the service. publisher may be nil.
func New(store Store, publisher Publisher, logger *logging.Logger, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, publisher: publisher, logger: logger, clock: clock}
}

// Resolve records the decision for alertID. Only a newly recorded decision is published,
// best effort. Repeating the decision on record is a no-op; contradicting it returns
// models.ErrAlreadyResolved.
func (s *Service) Resolve(ctx context.Context, alertID string, outcome models.Outcome, note string) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	r := models.Resolution{
		ID:         uuid.New(),
		AlertID:    alertID,
		Outcome:    outcome,
		Note:       note,
		ResolvedAt: s.clock.Now().UTC(),
	}
	created, recorded, err := s.store.RecordResolution(ctx, r)
	if err != nil {
		return err
	}
	if !created {
		if recorded != outcome {
			s.logger.Warnf("Alert %s already resolved with %s, rejecting %s", alertID, recorded, outcome)
			return fmt.Errorf("%w: recorded as %s", models.ErrAlreadyResolved, recorded)
		}
		s.logger.Infof("Alert %s already resolved with %s", alertID, recorded)
		return nil
	}
	s.logger.Infof("Recorded %s for alert %s (resolution %s)", outcome, alertID, r.ID)

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishResolution(ctx, r); err != nil {
		s.logger.Warnf("Failed to publish resolution for alert %s: %v", alertID, err)
	}
	return nil
}
