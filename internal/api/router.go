package api

import (
	"github.com/gin-gonic/gin"
	"noshow-service/internal/config"
	"noshow-service/internal/logging"
)

func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler, rt *RealtimeHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", h.Health)

	api := r.Group(cfg.API.BasePath)
	{
		// Alerts
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/:id", h.GetAlert)
		api.POST("/alerts", h.CreateAlert)
		api.POST("/alerts/:id/confirm", h.ConfirmAlert)
		api.POST("/alerts/:id/no-contact", h.ReleaseAlert)

		// Live updates
		if rt != nil {
			api.GET("/ws", rt.AlertsWS)
		}
	}
	return r
}
