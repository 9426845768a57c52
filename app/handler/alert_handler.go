package handler

import (
	"net/http"

	"apipulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// AlertHandler serves the alert listing and resolution APIs
type AlertHandler struct {
	monitor *monitoring.Monitor
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(monitor *monitoring.Monitor) *AlertHandler {
	return &AlertHandler{monitor: monitor}
}

// GetAlerts returns every alert ever raised
// GET /v1/alerts
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	alerts := h.monitor.AllAlerts()
	c.JSON(http.StatusOK, gin.H{
		"total":  len(alerts),
		"alerts": alerts,
	})
}

// GetActiveAlerts returns unresolved alerts, newest-first
// GET /v1/alerts/active
func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	alerts := h.monitor.ActiveAlerts()
	c.JSON(http.StatusOK, gin.H{
		"total":  len(alerts),
		"alerts": alerts,
	})
}

// ResolveAlert manually resolves one alert. Resolving an unknown or
// already-resolved alert returns 404 rather than an error payload.
// POST /v1/alerts/:id/resolve
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alert id is required"})
		return
	}

	if !h.monitor.ResolveAlert(id) {
		c.JSON(http.StatusNotFound, gin.H{"resolved": false, "error": "alert not found or already resolved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": true})
}
