package monitoring

import (
	"sort"
	"time"
)

const (
	recentCallsLimit = 50
	slowTopN         = 10
	slowMinRequests  = 5 // endpoints at or below this are statistically insignificant
	bucketSize       = 5 * time.Minute
	recentErrorLimit = 20
)

// Overview is the dashboard headline block.
type Overview struct {
	UptimeSeconds     float64      `json:"uptimeSeconds"`
	TotalRequests     int          `json:"totalRequests"`
	CallsPerMinute    int          `json:"callsPerMinute"`
	AvgResponseTimeMs float64      `json:"avgResponseTime"`
	ErrorRate         float64      `json:"errorRate"`
	SuccessRate       float64      `json:"successRate"`
	Memory            *MemoryUsage `json:"memory,omitempty"`
}

// TimeSeriesBucket is one 5-minute interval of the request chart.
type TimeSeriesBucket struct {
	Timestamp         time.Time `json:"timestamp"`
	RequestsPerMinute float64   `json:"requestsPerMinute"`
	AvgDurationMs     float64   `json:"avgDuration"`
	ErrorRate         float64   `json:"errorRate"`
}

// MethodShare is the per-HTTP-method request distribution.
type MethodShare struct {
	Method     string  `json:"method"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Charts groups the dashboard chart datasets.
type Charts struct {
	TimeSeries       []TimeSeriesBucket `json:"timeSeries"`
	SlowestEndpoints []*EndpointHealth  `json:"slowestEndpoints"`
	ErrorsByEndpoint []*EndpointHealth  `json:"errorsByEndpoint"`
	RequestsByMethod []MethodShare      `json:"requestsByMethod"`
}

// SLAMetrics compares observed reliability against the configured target.
type SLAMetrics struct {
	TargetPercent float64 `json:"target"`
	ActualUptime  float64 `json:"actualUptime"` // successful/total over the whole stored history
	BreachCount   int     `json:"breachCount"`
	MTBFSeconds   float64 `json:"mtbfSeconds"`
}

// DashboardData is the full payload assembled for the dashboard UI.
type DashboardData struct {
	Overview    Overview          `json:"overview"`
	Endpoints   []*EndpointHealth `json:"endpoints"`
	RecentCalls []*CallRecord     `json:"recentCalls"`
	Alerts      []*APIAlert       `json:"alerts"`
	Charts      Charts            `json:"charts"`
	SLA         SLAMetrics        `json:"sla"`
}

// APIStats summarizes traffic over one time window.
type APIStats struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	TotalRequests     int       `json:"totalRequests"`
	SuccessRate       float64   `json:"successRate"`
	ErrorRate         float64   `json:"errorRate"`
	AvgResponseTimeMs float64   `json:"avgResponseTime"`
	P95ResponseTimeMs float64   `json:"p95ResponseTime"`
	P99ResponseTimeMs float64   `json:"p99ResponseTime"`
}

// ErrorAnalysis breaks recent failures down per endpoint.
type ErrorAnalysis struct {
	TotalErrors      int               `json:"totalErrors"`
	ErrorsByEndpoint []*EndpointHealth `json:"errorsByEndpoint"`
	RecentErrors     []*CallRecord     `json:"recentErrors"`
}

// Dashboard assembles the full dashboard view on demand; nothing is cached.
// The time-series chart covers the given window in 5-minute buckets.
func (m *Monitor) Dashboard(now time.Time, window time.Duration) *DashboardData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if window <= 0 {
		window = time.Hour
	}

	calls := m.store.All()

	var successful int
	var totalDuration int64
	lastMinute := 0
	minuteCutoff := now.Add(-time.Minute)
	for _, c := range calls {
		if c.Success {
			successful++
		}
		totalDuration += c.DurationMs
		if !c.Timestamp.Before(minuteCutoff) {
			lastMinute++
		}
	}

	overview := Overview{
		UptimeSeconds:  now.Sub(m.startTime).Seconds(),
		TotalRequests:  len(calls),
		CallsPerMinute: lastMinute,
		SuccessRate:    100,
	}
	if len(calls) > 0 {
		overview.SuccessRate = 100 * float64(successful) / float64(len(calls))
		overview.ErrorRate = 100 - overview.SuccessRate
		overview.AvgResponseTimeMs = float64(totalDuration) / float64(len(calls))
	}
	if latest := m.sampler.Latest(); latest != nil {
		mem := latest.Memory
		overview.Memory = &mem
	}

	endpoints := m.health.All()
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].TotalRequests > endpoints[j].TotalRequests
	})

	return &DashboardData{
		Overview:    overview,
		Endpoints:   endpoints,
		RecentCalls: m.store.Recent(recentCallsLimit),
		Alerts:      m.alerts.Active(),
		Charts: Charts{
			TimeSeries:       buildTimeSeries(calls, now, window),
			SlowestEndpoints: slowestOf(endpoints),
			ErrorsByEndpoint: errorsOf(endpoints),
			RequestsByMethod: methodShares(calls),
		},
		SLA: m.slaLocked(now, calls),
	}
}

// APIStats summarizes the calls inside [from, to]. A zero from falls back
// to the whole stored history.
func (m *Monitor) APIStats(from, to time.Time) *APIStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if to.IsZero() {
		to = time.Now()
	}
	calls := m.store.Filter(func(c *CallRecord) bool {
		if !from.IsZero() && c.Timestamp.Before(from) {
			return false
		}
		return !c.Timestamp.After(to)
	})

	stats := &APIStats{From: from, To: to, TotalRequests: len(calls), SuccessRate: 100}
	if len(calls) == 0 {
		return stats
	}

	var successful int
	var totalDuration int64
	durations := make([]float64, 0, len(calls))
	for _, c := range calls {
		if c.Success {
			successful++
		}
		totalDuration += c.DurationMs
		durations = append(durations, float64(c.DurationMs))
	}

	stats.SuccessRate = 100 * float64(successful) / float64(len(calls))
	stats.ErrorRate = 100 - stats.SuccessRate
	stats.AvgResponseTimeMs = float64(totalDuration) / float64(len(calls))
	sort.Float64s(durations)
	stats.P95ResponseTimeMs = percentile(durations, 95)
	stats.P99ResponseTimeMs = percentile(durations, 99)
	return stats
}

// SlowEndpoints returns endpoints whose average response time exceeds the
// threshold, slowest first. Low-traffic endpoints are excluded.
func (m *Monitor) SlowEndpoints(thresholdMs float64) []*EndpointHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*EndpointHealth
	for _, h := range m.health.All() {
		if h.TotalRequests > slowMinRequests && h.AvgResponseTimeMs > thresholdMs {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AvgResponseTimeMs > out[j].AvgResponseTimeMs
	})
	return out
}

// ErrorAnalysis returns the per-endpoint error breakdown plus the most
// recent failing calls.
func (m *Monitor) ErrorAnalysis() *ErrorAnalysis {
	m.mu.RLock()
	defer m.mu.RUnlock()

	endpoints := errorsOf(m.health.All())
	total := 0
	for _, h := range endpoints {
		total += h.ErrorCount
	}

	var recent []*CallRecord
	for _, c := range m.store.Recent(m.store.Len()) {
		if !c.Success {
			recent = append(recent, c)
			if len(recent) == recentErrorLimit {
				break
			}
		}
	}

	return &ErrorAnalysis{
		TotalErrors:      total,
		ErrorsByEndpoint: endpoints,
		RecentErrors:     recent,
	}
}

// slaLocked computes the SLA view; callers hold at least the read lock.
func (m *Monitor) slaLocked(now time.Time, calls []*CallRecord) SLAMetrics {
	sla := SLAMetrics{
		TargetPercent: m.opts.SLATarget,
		ActualUptime:  100,
		BreachCount:   m.alerts.BreachCount(),
	}
	if len(calls) > 0 {
		successful := 0
		for _, c := range calls {
			if c.Success {
				successful++
			}
		}
		sla.ActualUptime = 100 * float64(successful) / float64(len(calls))
	}

	breaches := sla.BreachCount
	if breaches < 1 {
		breaches = 1
	}
	sla.MTBFSeconds = now.Sub(m.startTime).Seconds() / float64(breaches)
	return sla
}

// buildTimeSeries buckets calls into 5-minute intervals over the window,
// reporting a per-minute-normalized request rate per bucket.
func buildTimeSeries(calls []*CallRecord, now time.Time, window time.Duration) []TimeSeriesBucket {
	buckets := int(window / bucketSize)
	if buckets <= 0 {
		buckets = 1
	}
	start := now.Add(-time.Duration(buckets) * bucketSize)

	out := make([]TimeSeriesBucket, buckets)
	counts := make([]int, buckets)
	errors := make([]int, buckets)
	durations := make([]int64, buckets)

	for i := range out {
		out[i].Timestamp = start.Add(time.Duration(i) * bucketSize)
	}
	for _, c := range calls {
		if c.Timestamp.Before(start) || c.Timestamp.After(now) {
			continue
		}
		i := int(c.Timestamp.Sub(start) / bucketSize)
		if i >= buckets {
			i = buckets - 1
		}
		counts[i]++
		durations[i] += c.DurationMs
		if !c.Success {
			errors[i]++
		}
	}
	for i := range out {
		if counts[i] == 0 {
			continue
		}
		out[i].RequestsPerMinute = float64(counts[i]) / bucketSize.Minutes()
		out[i].AvgDurationMs = float64(durations[i]) / float64(counts[i])
		out[i].ErrorRate = 100 * float64(errors[i]) / float64(counts[i])
	}
	return out
}

// slowestOf returns the top slow endpoints by average response time,
// excluding low-traffic entries.
func slowestOf(endpoints []*EndpointHealth) []*EndpointHealth {
	var out []*EndpointHealth
	for _, h := range endpoints {
		if h.TotalRequests > slowMinRequests {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AvgResponseTimeMs > out[j].AvgResponseTimeMs
	})
	if len(out) > slowTopN {
		out = out[:slowTopN]
	}
	return out
}

// errorsOf returns endpoints with at least one error, highest count first.
func errorsOf(endpoints []*EndpointHealth) []*EndpointHealth {
	var out []*EndpointHealth
	for _, h := range endpoints {
		if h.ErrorCount > 0 {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ErrorCount > out[j].ErrorCount
	})
	return out
}

// methodShares computes the count and percentage share per HTTP method.
func methodShares(calls []*CallRecord) []MethodShare {
	if len(calls) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, c := range calls {
		counts[c.Method]++
	}
	out := make([]MethodShare, 0, len(counts))
	for method, count := range counts {
		out = append(out, MethodShare{
			Method:     method,
			Count:      count,
			Percentage: 100 * float64(count) / float64(len(calls)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
