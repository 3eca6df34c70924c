package notification

import (
	"context"
	"sync"

	"noshow-service/internal/config"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

// EventNotification is the websocket event carrying a toast.
const EventNotification = "notification"

// Broadcaster pushes events to live clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Provider delivers notifications to an out-of-band channel such as a staff chat.
type Provider interface {
	Name() string
	MinSeverity() models.Severity
	Send(ctx context.Context, n models.Notification) error
}

// Service queues notifications and fans them out to live clients and providers.
type Service struct {
	logger      *logging.Logger
	config      config.Config
	broadcaster Broadcaster
	providers   []Provider
	queue       chan models.Notification
	ctx         context.Context
	cancel      context.CancelFunc
	wg          *sync.WaitGroup
}

// New constructs a notification Service. broadcaster may be nil.
func New(logger *logging.Logger, cfg config.Config, broadcaster Broadcaster, providers ...Provider) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		logger:      logger,
		config:      cfg,
		broadcaster: broadcaster,
		providers:   providers,
		queue:       make(chan models.Notification, cfg.Notification.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers. Notifications still queued are dropped.
func (s *Service) Stop() {
	s.cancel()
}

// Notify enqueues a notification without blocking. When the queue is full it is dropped.
func (s *Service) Notify(severity models.Severity, message string) {
	n := models.NewNotification(severity, message)
	select {
	case s.queue <- n:
		s.logger.Debugf("Queued %s notification %s", n.Severity, n.ID)
	default:
		s.logger.Errorf("Queue full, dropping %s notification: %s", n.Severity, n.Message)
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case n := <-s.queue:
			s.dispatch(n)
		}
	}
}

func (s *Service) dispatch(n models.Notification) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(EventNotification, n)
	}

	for _, p := range s.providers {
		if !shouldDispatch(p.MinSeverity(), n.Severity) {
			s.logger.Debugf("Provider %s skipped (severity %s below %s)", p.Name(), n.Severity, p.MinSeverity())
			continue
		}
		if err := p.Send(s.ctx, n); err != nil {
			s.logger.Errorf("Dispatch error via %s: %v", p.Name(), err)
			continue
		}
		s.logger.Infof("Notification %s dispatched via %s", n.ID, p.Name())
	}
}

// shouldDispatch reports whether severity meets the provider minimum. Unknown minimums never match.
func shouldDispatch(min, severity models.Severity) bool {
	if min.Rank() == 0 {
		return false
	}
	return severity.Rank() >= min.Rank()
}
