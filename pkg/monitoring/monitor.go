package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"apipulse/pkg/logger"
)

// Options configures a Monitor instance.
type Options struct {
	MaxStoredCalls   int
	MaxStoredMetrics int
	Warmup           time.Duration // delay before memory alerts are armed
	SLATarget        float64
	Thresholds       Thresholds
}

// DefaultOptions returns the stock monitor configuration.
func DefaultOptions() Options {
	return Options{
		MaxStoredCalls:   10000,
		MaxStoredMetrics: 1440,
		Warmup:           30 * time.Second,
		SLATarget:        99.9,
		Thresholds:       DefaultThresholds(),
	}
}

// Monitor is the monitoring pipeline: call store, health aggregator, alert
// engine and system sampler behind a single mutex, so each call event is
// processed as one atomic append+aggregate+check unit. It is an explicitly
// constructed instance owned by the process composition root; readers get
// copies and never block the hot path for long.
type Monitor struct {
	mu      sync.RWMutex
	opts    Options
	store   *CallStore
	health  *HealthAggregator
	alerts  *AlertEngine
	sampler *Sampler

	startTime time.Time
	inFlight  atomic.Int64
}

// NewMonitor creates a monitor with the given options.
func NewMonitor(opts Options) *Monitor {
	if opts.MaxStoredCalls <= 0 {
		opts.MaxStoredCalls = 10000
	}
	if opts.MaxStoredMetrics <= 0 {
		opts.MaxStoredMetrics = 1440
	}
	if opts.SLATarget <= 0 {
		opts.SLATarget = 99.9
	}

	store := NewCallStore(opts.MaxStoredCalls)
	return &Monitor{
		opts:      opts,
		store:     store,
		health:    NewHealthAggregator(store),
		alerts:    NewAlertEngine(opts.Thresholds),
		sampler:   NewSampler(opts.MaxStoredMetrics),
		startTime: time.Now(),
	}
}

// StartTime returns the process start the monitor measures uptime from.
func (m *Monitor) StartTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startTime
}

// Uptime returns how long the monitor has been observing.
func (m *Monitor) Uptime(now time.Time) time.Duration {
	return now.Sub(m.StartTime())
}

// BeginCall marks a request in flight. The capture middleware pairs it with
// EndCall.
func (m *Monitor) BeginCall() {
	m.inFlight.Add(1)
}

// EndCall marks a request complete.
func (m *Monitor) EndCall() {
	m.inFlight.Add(-1)
}

// InFlight reports currently tracked in-flight requests.
func (m *Monitor) InFlight() int {
	return int(m.inFlight.Load())
}

// Record ingests one call: append to the store, recompute endpoint health,
// evaluate alert thresholds. Internal failures are logged and swallowed so
// monitoring can never break the request it observed.
func (m *Monitor) Record(record *CallRecord) {
	if record == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("dropping call record %s: %v", record.ID, r)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Append(record)
	health := m.health.OnCall(record, record.Timestamp)
	m.alerts.CheckCall(record, health, record.Timestamp)
}

// Tick runs one sampler cycle: snapshot system metrics, arm the memory
// check once the warm-up period has elapsed, then sweep unresolved alerts
// for auto-resolution.
func (m *Monitor) Tick(now time.Time) *SystemMetricsSample {
	m.mu.Lock()
	defer m.mu.Unlock()

	sample := m.sampler.Sample(m.store, m.InFlight(), now)

	if now.Sub(m.startTime) >= m.opts.Warmup {
		m.alerts.CheckMemory(sample.Memory.Percentage, now)
	}
	m.alerts.AutoResolve(m.health.Get, sample.Memory.Percentage, now)

	return sample
}

// ResolveAlert resolves an alert by id; false for unknown or already
// resolved ids.
func (m *Monitor) ResolveAlert(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts.Resolve(id, time.Now())
}

// ActiveAlerts returns copies of the unresolved alerts, newest-first. The
// copies stay stable after the lock is released.
func (m *Monitor) ActiveAlerts() []*APIAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.Active()
}

// AllAlerts returns a copy of every alert ever raised.
func (m *Monitor) AllAlerts() []*APIAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.All()
}

// EndpointHealths returns copies of all health entries.
func (m *Monitor) EndpointHealths() []*EndpointHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health.All()
}

// RecentCalls returns the last n call records, most-recent-first.
func (m *Monitor) RecentCalls(n int) []*CallRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Recent(n)
}

// LatestSample returns the most recent system-metrics sample, or nil.
func (m *Monitor) LatestSample() *SystemMetricsSample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sampler.Latest()
}
