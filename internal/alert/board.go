package alert

import (
	"context"
	"sort"
	"sync"

	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

// Broadcaster pushes board events to live clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

const (
	EventTick     = "alert.tick"
	EventTracked  = "alert.tracked"
	EventResolved = "alert.resolved"
	EventRemoved  = "alert.removed"
)

// Board owns the set of active alerts and one Controller per alert.
type Board struct {
	resolver    Resolver
	notifier    Notifier
	broadcaster Broadcaster
	logger      *logging.Logger
	opts        Options

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewBoard creates an empty board. broadcaster may be nil. OnUpdate and OnResolved in opts
// are ignored; the board installs its own.
func NewBoard(resolver Resolver, notifier Notifier, broadcaster Broadcaster, logger *logging.Logger, opts Options) *Board {
	return &Board{
		resolver:    resolver,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
		opts:        opts.withDefaults(),
		controllers: make(map[string]*Controller),
	}
}

// Track starts displaying a.
func (b *Board) Track(a models.NoShowAlert) (Snapshot, error) {
	opts := b.opts
	opts.OnUpdate = func(s Snapshot) { b.broadcast(EventTick, s) }
	opts.OnResolved = b.handleResolved
	ctrl := NewController(a, b.resolver, b.notifier, b.logger, opts)

	b.mu.Lock()
	if _, exists := b.controllers[a.ReservationID]; exists {
		b.mu.Unlock()
		return Snapshot{}, ErrAlreadyTracked
	}
	b.controllers[a.ReservationID] = ctrl
	b.mu.Unlock()

	ctrl.Start()
	snap := ctrl.Snapshot()
	b.broadcast(EventTracked, snap)
	b.logger.Infof("Tracking alert %s (risk %d, releases at %s)", a.ReservationID, a.RiskScore, a.AutoReleaseAt.Format("15:04:05"))
	return snap, nil
}

// Remove stops and drops an alert. It reports whether the alert was present.
func (b *Board) Remove(id string) bool {
	b.mu.Lock()
	ctrl, ok := b.controllers[id]
	if ok {
		delete(b.controllers, id)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	ctrl.Stop()
	b.broadcast(EventRemoved, map[string]string{"reservation_id": id})
	b.logger.Infof("Removed alert %s (remaining: %d)", id, b.Len())
	return true
}

func (b *Board) handleResolved(id string) {
	b.mu.Lock()
	delete(b.controllers, id)
	remaining := len(b.controllers)
	b.mu.Unlock()

	b.broadcast(EventResolved, map[string]string{"reservation_id": id})
	b.logger.Infof("Alert %s left the board (remaining: %d)", id, remaining)
}

// Get returns the controller for id.
func (b *Board) Get(id string) (*Controller, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ctrl, ok := b.controllers[id]
	return ctrl, ok
}

// Len returns the number of active alerts.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.controllers)
}

// Snapshot returns the current presentation state of one alert.
func (b *Board) Snapshot(id string) (Snapshot, error) {
	ctrl, ok := b.Get(id)
	if !ok {
		return Snapshot{}, ErrAlertNotFound
	}
	return ctrl.Snapshot(), nil
}

// Snapshots returns every active alert, closest release deadline first.
func (b *Board) Snapshots() []Snapshot {
	b.mu.RLock()
	out := make([]Snapshot, 0, len(b.controllers))
	for _, ctrl := range b.controllers {
		out = append(out, ctrl.Snapshot())
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AutoReleaseAt.Equal(out[j].AutoReleaseAt) {
			return out[i].ReservationID < out[j].ReservationID
		}
		return out[i].AutoReleaseAt.Before(out[j].AutoReleaseAt)
	})
	return out
}

// ResolveConfirmed forwards a confirmed outcome for id.
func (b *Board) ResolveConfirmed(ctx context.Context, id string) error {
	ctrl, ok := b.Get(id)
	if !ok {
		return ErrAlertNotFound
	}
	return ctrl.ResolveConfirmed(ctx)
}

// ResolveNoContact forwards a no-contact outcome for id.
func (b *Board) ResolveNoContact(ctx context.Context, id string) error {
	ctrl, ok := b.Get(id)
	if !ok {
		return ErrAlertNotFound
	}
	return ctrl.ResolveNoContact(ctx)
}

// Close stops every controller.
func (b *Board) Close() {
	b.mu.Lock()
	ctrls := make([]*Controller, 0, len(b.controllers))
	for id, ctrl := range b.controllers {
		ctrls = append(ctrls, ctrl)
		delete(b.controllers, id)
	}
	b.mu.Unlock()

	for _, ctrl := range ctrls {
		ctrl.Stop()
	}
}

func (b *Board) broadcast(event string, payload interface{}) {
	if b.broadcaster != nil {
		b.broadcaster.Broadcast(event, payload)
	}
}
