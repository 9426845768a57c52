package handler

import (
	"net/http"
	"time"

	"apipulse/pkg/logger"
	"apipulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const streamInterval = 5 * time.Second

// DashboardHandler serves the aggregated dashboard views
type DashboardHandler struct {
	monitor *monitoring.Monitor
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(monitor *monitoring.Monitor) *DashboardHandler {
	return &DashboardHandler{monitor: monitor}
}

// GetDashboard returns the full dashboard payload
// GET /v1/dashboard?window=1h
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	window := time.Hour
	if windowStr := c.Query("window"); windowStr != "" {
		d, err := time.ParseDuration(windowStr)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a positive duration, e.g. 1h or 30m"})
			return
		}
		window = d
	}

	c.JSON(http.StatusOK, h.monitor.Dashboard(time.Now(), window))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, production should use stricter checks
	},
}

// StreamDashboard pushes the dashboard payload over a WebSocket on a fixed
// cadence, so the UI refreshes without polling
// GET /v1/dashboard/ws
func (h *DashboardHandler) StreamDashboard(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()

	// Initial push, then one frame per tick until the client goes away.
	if err := ws.WriteJSON(h.monitor.Dashboard(time.Now(), time.Hour)); err != nil {
		return
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteJSON(h.monitor.Dashboard(time.Now(), time.Hour)); err != nil {
				logger.DebugCtx(ctx, "dashboard stream closed: %v", err)
				return
			}
		}
	}
}

// Healthz is the liveness endpoint
// GET /healthz
func (h *DashboardHandler) Healthz(c *gin.Context) {
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": h.monitor.Uptime(now).Seconds(),
		"inFlight":      h.monitor.InFlight(),
	})
}
