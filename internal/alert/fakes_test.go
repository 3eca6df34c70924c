package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"noshow-service/internal/models"
)

var t0 = time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)

type resolveCall struct {
	AlertID string
	Outcome models.Outcome
	Note    string
}

// MockResolver records calls and optionally blocks until release is closed.
type MockResolver struct {
	mu      sync.Mutex
	calls   []resolveCall
	err     error
	entered chan struct{}
	release chan struct{}
}

func (m *MockResolver) Resolve(ctx context.Context, alertID string, outcome models.Outcome, note string) error {
	m.mu.Lock()
	m.calls = append(m.calls, resolveCall{AlertID: alertID, Outcome: outcome, Note: note})
	err := m.err
	entered, release := m.entered, m.release
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return err
}

func (m *MockResolver) Calls() []resolveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]resolveCall(nil), m.calls...)
}

type sentNotification struct {
	Severity models.Severity
	Message  string
}

// MockNotifier records every notification.
type MockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *MockNotifier) Notify(severity models.Severity, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{Severity: severity, Message: message})
}

func (m *MockNotifier) Sent() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentNotification(nil), m.sent...)
}

type broadcastEvent struct {
	Event   string
	Payload interface{}
}

// MockBroadcaster records board events.
type MockBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (m *MockBroadcaster) Broadcast(event string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, broadcastEvent{Event: event, Payload: payload})
}

func (m *MockBroadcaster) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func newAlert(id string, releaseIn time.Duration) models.NoShowAlert {
	phone := "+34600111222"
	return models.NoShowAlert{
		ReservationID:   id,
		CustomerName:    "Ana López",
		CustomerPhone:   &phone,
		ReservationTime: "21:30",
		PartySize:       4,
		RiskScore:       82,
		AutoReleaseAt:   t0.Add(releaseIn),
	}
}

func nextUpdate(t *testing.T, updates <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-updates:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func assertNoUpdate(t *testing.T, updates <-chan Snapshot) {
	t.Helper()
	select {
	case s := <-updates:
		t.Fatalf("unexpected snapshot after teardown: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}
