package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"noshow-service/internal/alert"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
)

// Board is the live alert set the handlers read and resolve.
type Board interface {
	Snapshots() []alert.Snapshot
	Snapshot(id string) (alert.Snapshot, error)
	ResolveConfirmed(ctx context.Context, id string) error
	ResolveNoContact(ctx context.Context, id string) error
}

// Intake accepts alerts posted by the detection process.
type Intake interface {
	Accept(ctx context.Context, a models.NoShowAlert) (bool, error)
}

type Handler struct {
	board  Board
	intake Intake
	logger *logging.Logger
}

func NewHandler(board Board, intake Intake, logger *logging.Logger) *Handler {
	return &Handler{board: board, intake: intake, logger: logger}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	snaps := h.board.Snapshots()
	h.logger.Debugf("Retrieved %d active alerts", len(snaps))
	c.JSON(http.StatusOK, snaps)
}

func (h *Handler) GetAlert(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.board.Snapshot(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var payload models.AlertPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Errorf("Invalid request body for alert: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	a, err := payload.Normalize()
	if err != nil {
		h.logger.Errorf("Invalid alert %s: %v", payload.ReservationID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.intake.Accept(c.Request.Context(), a)
	if errors.Is(err, models.ErrAlreadyResolved) {
		h.logger.Infof("Rejected resolved alert %s", a.ReservationID)
		c.JSON(http.StatusConflict, gin.H{"error": "Alert already resolved"})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to accept alert %s: %v", a.ReservationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept alert"})
		return
	}

	snap, err := h.board.Snapshot(a.ReservationID)
	if err != nil {
		// resolved between intake and lookup
		c.JSON(http.StatusAccepted, gin.H{"reservation_id": a.ReservationID})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Infof("Created alert: %s", a.ReservationID)
	}
	c.JSON(status, snap)
}

func (h *Handler) ConfirmAlert(c *gin.Context) {
	h.resolve(c, models.OutcomeCallSuccessful, h.board.ResolveConfirmed)
}

func (h *Handler) ReleaseAlert(c *gin.Context) {
	h.resolve(c, models.OutcomeCallFailed, h.board.ResolveNoContact)
}

func (h *Handler) resolve(c *gin.Context, outcome models.Outcome, fn func(context.Context, string) error) {
	id := c.Param("id")
	err := fn(c.Request.Context(), id)
	switch {
	case errors.Is(err, alert.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
	case errors.Is(err, models.ErrAlreadyResolved):
		h.logger.Warnf("Alert %s already resolved, rejected %s: %v", id, outcome, err)
		c.JSON(http.StatusConflict, gin.H{"error": alert.MessageConflict})
	case err != nil:
		h.logger.Errorf("Failed to resolve alert %s with %s: %v", id, outcome, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": alert.MessageFailed})
	default:
		c.JSON(http.StatusOK, gin.H{"reservation_id": id, "action": outcome, "resolved": true})
	}
}
