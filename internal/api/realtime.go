package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"noshow-service/internal/logging"
	"noshow-service/internal/notification"
)

// EventSnapshot carries the full board to a client that just connected.
const EventSnapshot = "alert.snapshot"

const pingInterval = 25 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type RealtimeHandler struct {
	hub    *notification.Hub
	board  Board
	logger *logging.Logger
}

func NewRealtimeHandler(hub *notification.Hub, board Board, logger *logging.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, board: board, logger: logger}
}

// AlertsWS streams board events and notifications to a dashboard.
func (rh *RealtimeHandler) AlertsWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rh.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}
	if !rh.hub.AddConnection(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	if err := rh.hub.Send(conn, EventSnapshot, rh.board.Snapshots()); err != nil {
		rh.hub.RemoveConnection(conn)
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					rh.hub.RemoveConnection(conn)
					return
				}
			}
		}
	}()

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rh.hub.RemoveConnection(conn)
			return
		}
	}
}
