package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

const (
	NoteConfirmed = "Customer confirmed attendance by phone"
	NoteNoContact = "Customer could not be reached, table released"

	MessageConfirmed = "Reservation confirmed, alert resolved"
	MessageReleased  = "Table released, alert resolved"
	MessageFailed    = "Could not resolve the alert, please try again"
	MessageConflict  = "Alert was already resolved with another decision"
)

// Resolver forwards an operator decision to the persistence collaborator.
type Resolver interface {
	Resolve(ctx context.Context, alertID string, outcome models.Outcome, note string) error
}

// Notifier is a fire-and-forget sink for user-facing feedback.
type Notifier interface {
	Notify(severity models.Severity, message string)
}

// Options tune a Controller. Zero values fall back to the defaults.
type Options struct {
	Clock        clockwork.Clock
	TickInterval time.Duration
	UrgentWindow time.Duration

	// OnUpdate receives every snapshot published while the controller runs.
	// It must not call Stop.
	OnUpdate func(Snapshot)
	// OnResolved is called once the alert leaves the board with a decision on record,
	// after the timer stopped.
	OnResolved func(alertID string)
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.UrgentWindow <= 0 {
		o.UrgentWindow = DefaultUrgentWindow
	}
	return o
}

// Controller owns the countdown timer and resolution actions of one displayed alert.
type Controller struct {
	alert    models.NoShowAlert
	resolver Resolver
	notifier Notifier
	logger   *logging.Logger
	opts     Options

	mu       sync.Mutex
	current  Snapshot
	started  bool
	stopped  bool
	resolved bool
	ticker   clockwork.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewController builds a controller for a. Nothing ticks until Start.
func NewController(a models.NoShowAlert, resolver Resolver, notifier Notifier, logger *logging.Logger, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		alert:    a,
		resolver: resolver,
		notifier: notifier,
		logger:   logger.With("alert_id", a.ReservationID),
		opts:     opts,
		current:  Evaluate(a, opts.Clock.Now(), opts.UrgentWindow),
	}
}

// ID returns the alert ID.
func (c *Controller) ID() string {
	return c.alert.ReservationID
}

// Alert returns the alert as supplied upstream.
func (c *Controller) Alert() models.NoShowAlert {
	return c.alert
}

// Snapshot returns the last published presentation state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Resolved reports whether a decision is on record for the alert.
func (c *Controller) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// Start renders the alert once and starts its periodic re-evaluation.
// Calling Start twice, or after Stop, does nothing.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.current = Evaluate(c.alert, c.opts.Clock.Now(), c.opts.UrgentWindow)
	snap := c.current
	c.ticker = c.opts.Clock.NewTicker(c.opts.TickInterval)
	c.done = make(chan struct{})
	c.wg.Add(1)
	go c.run(c.ticker, c.done)
	c.mu.Unlock()

	c.publish(snap)
}

// Stop tears the timer down. After Stop returns no further snapshot is published.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.started {
		c.ticker.Stop()
		close(c.done)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) run(ticker clockwork.Ticker, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			c.refresh()
		}
	}
}

func (c *Controller) refresh() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.current = Evaluate(c.alert, c.opts.Clock.Now(), c.opts.UrgentWindow)
	c.current.Resolved = c.resolved
	snap := c.current
	c.mu.Unlock()

	c.publish(snap)
}

func (c *Controller) publish(snap Snapshot) {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(snap)
	}
}

// ResolveConfirmed records that the customer was reached and the reservation stands.
func (c *Controller) ResolveConfirmed(ctx context.Context) error {
	return c.resolve(ctx, models.OutcomeCallSuccessful, NoteConfirmed, MessageConfirmed)
}

// ResolveNoContact records that the customer could not be reached and the table was released.
func (c *Controller) ResolveNoContact(ctx context.Context) error {
	return c.resolve(ctx, models.OutcomeCallFailed, NoteNoContact, MessageReleased)
}

// resolve performs no deduplication: concurrent calls all reach the Resolver.
// When the Resolver reports an earlier, different decision on record, that decision wins and
// the alert leaves the board.
func (c *Controller) resolve(ctx context.Context, outcome models.Outcome, note, successMsg string) error {
	id := c.alert.ReservationID
	err := c.resolver.Resolve(ctx, id, outcome, note)
	conflict := errors.Is(err, models.ErrAlreadyResolved)

	// a response for an alert that is gone or already resolved is not displayed
	c.mu.Lock()
	detached := c.stopped || c.resolved
	if (err == nil || conflict) && !detached {
		c.resolved = true
		c.current.Resolved = true
	}
	c.mu.Unlock()

	if detached {
		c.logger.Debugf("Dropping %s response for alert no longer displayed (err=%v)", outcome, err)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResolutionFailed, err)
		}
		return nil
	}

	switch {
	case conflict:
		c.logger.Warnf("Resolve %s rejected: %v", outcome, err)
		c.notifier.Notify(models.SeverityWarning, MessageConflict)
		c.finish(id)
		return fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	case err != nil:
		c.logger.Errorf("Resolve %s failed: %v", outcome, err)
		c.notifier.Notify(models.SeverityError, MessageFailed)
		return fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	}

	c.logger.Infof("Alert resolved with %s", outcome)
	c.notifier.Notify(models.SeveritySuccess, successMsg)
	c.finish(id)
	return nil
}

func (c *Controller) finish(id string) {
	c.Stop()
	if c.opts.OnResolved != nil {
		c.opts.OnResolved(id)
	}
}
