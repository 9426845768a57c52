package handler

import (
	"net/http"
	"strconv"
	"time"

	"apipulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// StatsHandler serves the traffic statistics APIs
type StatsHandler struct {
	monitor *monitoring.Monitor
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(monitor *monitoring.Monitor) *StatsHandler {
	return &StatsHandler{monitor: monitor}
}

// GetStats returns a traffic summary over an optional time range; without
// one the whole stored history is summarized
// GET /v1/stats?from=...&to=...
func (h *StatsHandler) GetStats(c *gin.Context) {
	var from, to time.Time

	if fromStr := c.Query("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = t
	}
	if toStr := c.Query("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = t
	}

	c.JSON(http.StatusOK, h.monitor.APIStats(from, to))
}

// GetSlowEndpoints ranks endpoints whose average latency exceeds a threshold
// GET /v1/stats/slow?threshold_ms=1000
func (h *StatsHandler) GetSlowEndpoints(c *gin.Context) {
	threshold := 1000.0
	if thresholdStr := c.Query("threshold_ms"); thresholdStr != "" {
		v, err := strconv.ParseFloat(thresholdStr, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_ms must be a non-negative number"})
			return
		}
		threshold = v
	}

	endpoints := h.monitor.SlowEndpoints(threshold)
	c.JSON(http.StatusOK, gin.H{
		"thresholdMs": threshold,
		"total":       len(endpoints),
		"endpoints":   endpoints,
	})
}

// GetErrorAnalysis returns the per-endpoint error breakdown
// GET /v1/stats/errors
func (h *StatsHandler) GetErrorAnalysis(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.ErrorAnalysis())
}
