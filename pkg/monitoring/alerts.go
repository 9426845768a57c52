package monitoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Minimum request counts before rate-derived alerts are considered, so a
// handful of early failures cannot page anyone.
const (
	errorRateMinRequests = 10
	p95MinRequests       = 20
)

// Thresholds are the alerting limits, injected from configuration.
type Thresholds struct {
	ErrorRatePercent float64 // endpoint error rate (%)
	LatencyMs        float64 // single-call duration (ms)
	P95LatencyMs     float64 // endpoint p95 latency (ms)
	MemoryPercent    float64 // process memory usage (%)
}

// DefaultThresholds returns the stock alerting limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRatePercent: 5,
		LatencyMs:        2000,
		P95LatencyMs:     1000,
		MemoryPercent:    85,
	}
}

// AlertEngine evaluates calls and system samples against thresholds,
// de-duplicates unresolved alerts per (type, endpoint), and resolves them
// when conditions recover. Like the other pipeline components it relies on
// the Monitor for serialization.
type AlertEngine struct {
	thresholds Thresholds
	alerts     []*APIAlert
}

// NewAlertEngine creates an engine with the given thresholds.
func NewAlertEngine(thresholds Thresholds) *AlertEngine {
	return &AlertEngine{thresholds: thresholds}
}

// CheckCall evaluates one call after its health entry has been updated.
func (e *AlertEngine) CheckCall(record *CallRecord, health *EndpointHealth, now time.Time) {
	key := record.Key()

	if health.ErrorRate > e.thresholds.ErrorRatePercent && health.TotalRequests > errorRateMinRequests {
		e.raise(&APIAlert{
			Type:      AlertErrorRate,
			Severity:  SeverityError,
			Endpoint:  key,
			Value:     health.ErrorRate,
			Threshold: e.thresholds.ErrorRatePercent,
			Message: fmt.Sprintf("error rate %.1f%% on %s exceeds %.1f%% threshold",
				health.ErrorRate, key, e.thresholds.ErrorRatePercent),
		}, now)
	}

	if float64(record.DurationMs) > e.thresholds.LatencyMs {
		e.raise(&APIAlert{
			Type:      AlertLatency,
			Severity:  SeverityWarning,
			Endpoint:  key,
			Value:     float64(record.DurationMs),
			Threshold: e.thresholds.LatencyMs,
			Message: fmt.Sprintf("slow response %dms on %s exceeds %.0fms threshold",
				record.DurationMs, key, e.thresholds.LatencyMs),
		}, now)
	}

	if health.P95ResponseTimeMs > e.thresholds.P95LatencyMs && health.TotalRequests > p95MinRequests {
		e.raise(&APIAlert{
			Type:      AlertLatency,
			Severity:  SeverityWarning,
			Endpoint:  key,
			Value:     health.P95ResponseTimeMs,
			Threshold: e.thresholds.P95LatencyMs,
			Message: fmt.Sprintf("p95 latency %.0fms on %s exceeds %.0fms threshold",
				health.P95ResponseTimeMs, key, e.thresholds.P95LatencyMs),
		}, now)
	}
}

// CheckMemory evaluates a process memory sample. The caller gates this on
// the startup warm-up period.
func (e *AlertEngine) CheckMemory(memoryPercentage float64, now time.Time) {
	if memoryPercentage > e.thresholds.MemoryPercent {
		e.raise(&APIAlert{
			Type:      AlertMemory,
			Severity:  SeverityWarning,
			Value:     memoryPercentage,
			Threshold: e.thresholds.MemoryPercent,
			Message: fmt.Sprintf("memory usage %.1f%% exceeds %.1f%% threshold",
				memoryPercentage, e.thresholds.MemoryPercent),
		}, now)
	}
}

// raise records the alert unless an unresolved alert for the same
// (type, endpoint) already exists. This caps alert volume under a sustained
// breach instead of flooding one alert per request.
func (e *AlertEngine) raise(alert *APIAlert, now time.Time) {
	if e.findUnresolved(alert.Type, alert.Endpoint) != nil {
		return
	}
	alert.ID = uuid.NewString()
	alert.Timestamp = now
	e.alerts = append(e.alerts, alert)
}

func (e *AlertEngine) findUnresolved(alertType AlertType, endpoint string) *APIAlert {
	for _, a := range e.alerts {
		if !a.Resolved && a.Type == alertType && a.Endpoint == endpoint {
			return a
		}
	}
	return nil
}

// AutoResolve re-evaluates unresolved alerts against current state and
// resolves those whose triggering condition no longer holds. Only
// error_rate and memory alerts have a recovery path; latency alerts stay
// open until resolved manually (they describe discrete slow events, not a
// level-triggered condition).
func (e *AlertEngine) AutoResolve(healthFor func(key string) *EndpointHealth, memoryPercentage float64, now time.Time) {
	for _, a := range e.alerts {
		if a.Resolved {
			continue
		}
		switch a.Type {
		case AlertErrorRate:
			h := healthFor(a.Endpoint)
			if h == nil || h.ErrorRate <= e.thresholds.ErrorRatePercent {
				e.markResolved(a, now)
			}
		case AlertMemory:
			if memoryPercentage <= e.thresholds.MemoryPercent {
				e.markResolved(a, now)
			}
		}
	}
}

func (e *AlertEngine) markResolved(a *APIAlert, now time.Time) {
	a.Resolved = true
	t := now
	a.ResolvedAt = &t
}

// Resolve marks the alert with the given id resolved. Resolving an unknown
// or already-resolved alert is a no-op and returns false.
func (e *AlertEngine) Resolve(id string, now time.Time) bool {
	for _, a := range e.alerts {
		if a.ID == id {
			if a.Resolved {
				return false
			}
			e.markResolved(a, now)
			return true
		}
	}
	return false
}

// Active returns copies of the unresolved alerts, newest-first. Copies,
// because markResolved mutates the stored alerts in place and callers read
// these outside the Monitor's lock.
func (e *AlertEngine) Active() []*APIAlert {
	var out []*APIAlert
	for _, a := range e.alerts {
		if !a.Resolved {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// All returns a copy of every alert ever raised, in creation order.
func (e *AlertEngine) All() []*APIAlert {
	out := make([]*APIAlert, 0, len(e.alerts))
	for _, a := range e.alerts {
		c := *a
		out = append(out, &c)
	}
	return out
}

// BreachCount counts error_rate and latency alerts ever raised; the SLA
// view uses it for breach and MTBF figures.
func (e *AlertEngine) BreachCount() int {
	n := 0
	for _, a := range e.alerts {
		if a.Type == AlertErrorRate || a.Type == AlertLatency {
			n++
		}
	}
	return n
}

// Restore replaces the alert list, used when loading a snapshot.
func (e *AlertEngine) Restore(alerts []*APIAlert) {
	e.alerts = e.alerts[:0]
	for _, a := range alerts {
		if a != nil {
			e.alerts = append(e.alerts, a)
		}
	}
}
