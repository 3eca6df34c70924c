package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"noshow-service/internal/alert"
	"noshow-service/internal/config"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
	"noshow-service/internal/notification"
	"noshow-service/internal/services"
)

var t0 = time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)

// MockStore keeps the first decision per reservation.
type MockStore struct {
	mu       sync.Mutex
	resolved map[string]models.Outcome
}

func (m *MockStore) UpsertAlert(ctx context.Context, a models.NoShowAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if outcome, ok := m.resolved[a.ReservationID]; ok {
		return fmt.Errorf("alert %s resolved with %s: %w", a.ReservationID, outcome, models.ErrAlreadyResolved)
	}
	return nil
}

func (m *MockStore) ListActiveAlerts(ctx context.Context) ([]models.NoShowAlert, error) {
	return nil, nil
}

func (m *MockStore) record(alertID string, outcome models.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if recorded, ok := m.resolved[alertID]; ok {
		if recorded != outcome {
			return fmt.Errorf("%w: recorded as %s", models.ErrAlreadyResolved, recorded)
		}
		return nil
	}
	m.resolved[alertID] = outcome
	return nil
}

type MockResolver struct {
	mu    sync.Mutex
	err   error
	store *MockStore
}

func (m *MockResolver) Resolve(ctx context.Context, alertID string, outcome models.Outcome, note string) error {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.store.record(alertID, outcome)
}

type nopNotifier struct{}

func (nopNotifier) Notify(severity models.Severity, message string) {}

type testServer struct {
	router   *gin.Engine
	board    *alert.Board
	resolver *MockResolver
	hub      *notification.Hub
	store    *MockStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.Discard()
	hub := notification.NewHub(logger)
	store := &MockStore{resolved: make(map[string]models.Outcome)}
	resolver := &MockResolver{store: store}
	board := alert.NewBoard(resolver, nopNotifier{}, hub, logger,
		alert.Options{Clock: clockwork.NewFakeClockAt(t0)})
	t.Cleanup(board.Close)
	t.Cleanup(hub.Close)

	var cfg config.Config
	cfg.API.BasePath = "/api/v0"

	intake := services.NewAlertService(store, board, logger)
	h := NewHandler(board, intake, logger)
	rt := NewRealtimeHandler(hub, board, logger)
	return &testServer{router: NewRouter(logger, cfg, h, rt), board: board, resolver: resolver, hub: hub, store: store}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

const alertBody = `{
	"reservation_id": "res-1",
	"customer_name": "Ana López",
	"customer_phone": "",
	"reservation_time": "21:30",
	"party_size": 4,
	"risk_score": 82,
	"auto_release_at": "2026-10-19T20:04:30Z"
}`

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAlert(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v0/alerts", alertBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var snap alert.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "res-1", snap.ReservationID)
	assert.Equal(t, alert.NoPhoneLabel, snap.CustomerPhone)
	assert.Equal(t, alert.StatusUrgent, snap.Status)
	assert.Equal(t, "4m 30s", snap.Countdown)

	w = s.do(http.MethodPost, "/api/v0/alerts", alertBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.board.Len())
}

func TestCreateAlert_Invalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"reservation_id":`},
		{"zero party size", `{"reservation_id":"r","customer_name":"x","party_size":0,"risk_score":5,"auto_release_at":"2026-10-19T20:10:00Z"}`},
		{"risk out of range", `{"reservation_id":"r","customer_name":"x","party_size":2,"risk_score":101,"auto_release_at":"2026-10-19T20:10:00Z"}`},
		{"bad timestamp", `{"reservation_id":"r","customer_name":"x","party_size":2,"risk_score":5,"auto_release_at":"tonight"}`},
		{"blank id", `{"reservation_id":"  ","customer_name":"x","party_size":2,"risk_score":5,"auto_release_at":"2026-10-19T20:10:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v0/alerts", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Equal(t, 0, s.board.Len())
}

func TestListAndGetAlerts(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v0/alerts", alertBody).Code)

	w := s.do(http.MethodGet, "/api/v0/alerts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []alert.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "res-1", list[0].ReservationID)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v0/alerts/res-1", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v0/alerts/missing", "").Code)
}

func TestConfirmAlert(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v0/alerts", alertBody).Code)

	w := s.do(http.MethodPost, "/api/v0/alerts/res-1/confirm", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reservation_id":"res-1","action":"call_successful","resolved":true}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v0/alerts/res-1", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v0/alerts/res-1/confirm", "").Code)
}

func TestCreateAlert_AfterResolution(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v0/alerts", alertBody).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v0/alerts/res-1/confirm", "").Code)

	// the detection process posting the same reservation again does not bring it back
	w := s.do(http.MethodPost, "/api/v0/alerts", alertBody)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, 0, s.board.Len())
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v0/alerts/res-1", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v0/alerts/res-1/no-contact", "").Code)
	assert.Equal(t, models.OutcomeCallSuccessful, s.store.resolved["res-1"])
}

func TestConfirmAlert_DecidedElsewhere(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v0/alerts", alertBody).Code)

	// another operator released the table first
	require.NoError(t, s.store.record("res-1", models.OutcomeCallFailed))

	w := s.do(http.MethodPost, "/api/v0/alerts/res-1/confirm", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, s.board.Len())
	assert.Equal(t, models.OutcomeCallFailed, s.store.resolved["res-1"])
}

func TestNoContactFailure(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v0/alerts", alertBody).Code)
	s.resolver.mu.Lock()
	s.resolver.err = assert.AnError
	s.resolver.mu.Unlock()

	w := s.do(http.MethodPost, "/api/v0/alerts/res-1/no-contact", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1, s.board.Len())

	s.resolver.mu.Lock()
	s.resolver.err = nil
	s.resolver.mu.Unlock()

	w = s.do(http.MethodPost, "/api/v0/alerts/res-1/no-contact", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.board.Len())
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestAlertsWS(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v0/alerts", alertBody).Code)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v0/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first envelope
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, EventSnapshot, first.Type)
	var snaps []alert.Snapshot
	require.NoError(t, json.Unmarshal(first.Data, &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "res-1", snaps[0].ReservationID)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v0/alerts/res-1/confirm", "").Code)

	for {
		var env envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type == alert.EventResolved {
			assert.JSONEq(t, `{"reservation_id":"res-1"}`, string(env.Data))
			break
		}
	}
}
