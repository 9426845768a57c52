package middleware

import (
	"fmt"
	"net/http"
	"time"

	"apipulse/pkg/logger"
	"apipulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Capture observes every request/response cycle and feeds the monitor.
// It must be registered after Recovery so panics it re-raises still get a
// response written. Monitoring failures never propagate into the request.
func Capture(mon *monitoring.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader("X-Request-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		mon.BeginCall()

		// Emit the call record exactly once, whether the handler returned,
		// streamed, redirected or panicked.
		defer func() {
			mon.EndCall()

			status := c.Writer.Status()
			rec := recover()
			if rec != nil {
				status = http.StatusInternalServerError
			}

			emitRecord(mon, c, traceID, start, status)

			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

func emitRecord(mon *monitoring.Monitor, c *gin.Context, traceID string, start time.Time, status int) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(c.Request.Context(), "monitoring capture failed: %v", r)
		}
	}()

	endpoint := c.FullPath()
	if endpoint == "" {
		// Unmatched routes have no template; fall back to the raw path.
		endpoint = c.Request.URL.Path
	}

	requestBytes := c.Request.ContentLength
	if requestBytes < 0 {
		requestBytes = 0
	}
	responseBytes := int64(c.Writer.Size())
	if responseBytes < 0 {
		responseBytes = 0
	}

	record := &monitoring.CallRecord{
		ID:            uuid.NewString(),
		TraceID:       traceID,
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Endpoint:      endpoint,
		Operation:     c.Request.Method + " " + endpoint,
		StatusCode:    status,
		DurationMs:    time.Since(start).Milliseconds(),
		Timestamp:     start,
		UserID:        c.GetString("user_id"),
		UserAgent:     c.Request.UserAgent(),
		ClientIP:      c.ClientIP(),
		RequestBytes:  requestBytes,
		ResponseBytes: responseBytes,
		Success:       status < http.StatusBadRequest,
	}
	if !record.Success {
		record.Error = fmt.Sprintf("HTTP %d", status)
	}

	mon.Record(record)

	logger.DebugCtx(c.Request.Context(), "%s | %3d | %dms | %s",
		record.Operation, record.StatusCode, record.DurationMs, record.ClientIP)
}
