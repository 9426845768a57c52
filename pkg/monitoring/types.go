// Package monitoring implements the in-process API monitoring pipeline:
// per-call capture into a bounded store, rolling per-endpoint health
// aggregation, threshold alerting with de-duplication and auto-resolution,
// periodic process-level sampling, dashboard aggregation and best-effort
// snapshot persistence.
package monitoring

import "time"

// CallRecord is one observed request/response event. Records are immutable
// once created; the call store evicts them oldest-first beyond its capacity.
type CallRecord struct {
	ID            string    `json:"id"`
	TraceID       string    `json:"traceId,omitempty"`
	Method        string    `json:"method"`
	Path          string    `json:"path"`
	Endpoint      string    `json:"endpoint"`  // resolved route template, e.g. /v1/widgets/:id
	Operation     string    `json:"operation"` // "METHOD endpoint"
	StatusCode    int       `json:"statusCode"`
	DurationMs    int64     `json:"durationMs"`
	Timestamp     time.Time `json:"timestamp"`
	UserID        string    `json:"userId,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	ClientIP      string    `json:"clientIp,omitempty"`
	RequestBytes  int64     `json:"requestBytes"`
	ResponseBytes int64     `json:"responseBytes"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// Key returns the health-aggregation key for this record.
func (r *CallRecord) Key() string {
	return r.Method + ":" + r.Endpoint
}

// EndpointHealth holds the rolling statistics for one (method, endpoint)
// pair, recomputed from the bounded call window on every call.
type EndpointHealth struct {
	Endpoint          string     `json:"endpoint"`
	Method            string     `json:"method"`
	TotalRequests     int        `json:"totalRequests"`
	SuccessRate       float64    `json:"successRate"` // percentage
	ErrorRate         float64    `json:"errorRate"`   // always 100 - SuccessRate
	AvgResponseTimeMs float64    `json:"avgResponseTime"`
	P95ResponseTimeMs float64    `json:"p95ResponseTime"`
	P99ResponseTimeMs float64    `json:"p99ResponseTime"`
	RequestsPerMinute int        `json:"requestsPerMinute"`
	LastError         string     `json:"lastError,omitempty"`
	LastErrorTime     *time.Time `json:"lastErrorTime,omitempty"`
	ErrorCount        int        `json:"errorCount"`
}

// AlertSeverity classifies how urgent an alert is.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType identifies the breached condition.
type AlertType string

const (
	AlertUptime    AlertType = "uptime"
	AlertLatency   AlertType = "latency"
	AlertErrorRate AlertType = "error_rate"
	AlertSSLExpiry AlertType = "ssl_expiry"
	AlertRateLimit AlertType = "rate_limit"
	AlertMemory    AlertType = "memory"
	AlertCPU       AlertType = "cpu"
)

// APIAlert is a recorded threshold breach. At most one unresolved alert
// exists per (type, endpoint) pair; alerts are resolved, never deleted.
type APIAlert struct {
	ID         string        `json:"id"`
	Severity   AlertSeverity `json:"severity"`
	Type       AlertType     `json:"type"`
	Message    string        `json:"message"`
	Endpoint   string        `json:"endpoint,omitempty"`
	Value      float64       `json:"value,omitempty"`
	Threshold  float64       `json:"threshold,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
}

// MemoryUsage is a point-in-time view of process memory.
type MemoryUsage struct {
	Used       uint64  `json:"used"`
	Total      uint64  `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SystemMetricsSample is one per-minute process snapshot. Samples are
// immutable and evicted oldest-first beyond the history cap.
type SystemMetricsSample struct {
	Timestamp         time.Time   `json:"timestamp"`
	Memory            MemoryUsage `json:"memory"`
	APICallsLastMin   int         `json:"apiCallsLastMinute"`
	ErrorRateLastMin  float64     `json:"errorRateLastMinute"`
	AvgResponseTimeMs float64     `json:"avgResponseTime"`
	InFlight          int         `json:"inFlight"`
}
