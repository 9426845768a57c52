package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apipulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCaptureRouter(mon *monitoring.Monitor) *gin.Engine {
	engine := gin.New()
	engine.Use(Recovery())
	engine.Use(Capture(mon))
	engine.GET("/api/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	engine.POST("/api/orders", func(c *gin.Context) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream down"})
	})
	engine.GET("/api/panic", func(c *gin.Context) {
		panic("handler exploded")
	})
	engine.GET("/api/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	return engine
}

// TestCapture_SuccessfulCall tests that one request produces one record with
// the route template as endpoint.
func TestCapture_SuccessfulCall(t *testing.T) {
	mon := monitoring.NewMonitor(monitoring.DefaultOptions())
	engine := newCaptureRouter(mon)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/42", nil)
	req.Header.Set("User-Agent", "apipulse-test")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	calls := mon.RecentCalls(10)
	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "/api/users/:id", c.Endpoint)
	assert.Equal(t, "/api/users/42", c.Path)
	assert.Equal(t, "GET /api/users/:id", c.Operation)
	assert.Equal(t, http.StatusOK, c.StatusCode)
	assert.True(t, c.Success)
	assert.Empty(t, c.Error)
	assert.Equal(t, "apipulse-test", c.UserAgent)
	assert.NotEmpty(t, c.ID)
	assert.Greater(t, c.ResponseBytes, int64(0))
}

// TestCapture_ErrorStatus tests failure classification at the 4xx boundary.
func TestCapture_ErrorStatus(t *testing.T) {
	mon := monitoring.NewMonitor(monitoring.DefaultOptions())
	engine := newCaptureRouter(mon)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"item":"x"}`)))

	calls := mon.RecentCalls(10)
	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, http.StatusBadGateway, c.StatusCode)
	assert.False(t, c.Success)
	assert.Equal(t, "HTTP 502", c.Error)
	assert.Equal(t, int64(12), c.RequestBytes)
}

// TestCapture_PanicRecordsOnce tests that a panicking handler is recorded
// exactly once as a 500 and the client still gets a response.
func TestCapture_PanicRecordsOnce(t *testing.T) {
	mon := monitoring.NewMonitor(monitoring.DefaultOptions())
	engine := newCaptureRouter(mon)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	calls := mon.RecentCalls(10)
	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, http.StatusInternalServerError, c.StatusCode)
	assert.False(t, c.Success)
	assert.Equal(t, "HTTP 500", c.Error)

	// The in-flight counter unwinds even on panic
	assert.Equal(t, 0, mon.InFlight())
}

// TestCapture_UnmatchedRoute tests the raw-path fallback for 404s.
func TestCapture_UnmatchedRoute(t *testing.T) {
	mon := monitoring.NewMonitor(monitoring.DefaultOptions())
	engine := newCaptureRouter(mon)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)

	calls := mon.RecentCalls(10)
	require.Len(t, calls, 1)
	assert.Equal(t, "/no/such/route", calls[0].Endpoint)
	assert.False(t, calls[0].Success)
}

// TestCapture_TraceIDPropagation tests request id reuse and generation.
func TestCapture_TraceIDPropagation(t *testing.T) {
	mon := monitoring.NewMonitor(monitoring.DefaultOptions())
	engine := newCaptureRouter(mon)

	// Caller-provided id is echoed back and recorded
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.Header.Set("X-Request-ID", "trace-abc")
	engine.ServeHTTP(w, req)

	assert.Equal(t, "trace-abc", w.Header().Get("X-Request-ID"))
	require.Len(t, mon.RecentCalls(1), 1)
	assert.Equal(t, "trace-abc", mon.RecentCalls(1)[0].TraceID)

	// Absent id gets generated
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/2", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

// TestCapture_DurationMeasured tests that elapsed time lands in the record.
func TestCapture_DurationMeasured(t *testing.T) {
	mon := monitoring.NewMonitor(monitoring.DefaultOptions())
	engine := newCaptureRouter(mon)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/slow", nil))

	calls := mon.RecentCalls(1)
	require.Len(t, calls, 1)
	assert.GreaterOrEqual(t, calls[0].DurationMs, int64(5))
}
