package monitoring

import (
	"math"
	"sort"
	"time"
)

// HealthAggregator maintains per-(method, endpoint) rolling statistics
// derived from the call store. Statistics are recomputed from the full
// bounded window on every call rather than kept as running sums; that keeps
// eviction correct for the cost of an O(n) scan over a capped n.
type HealthAggregator struct {
	store  *CallStore
	health map[string]*EndpointHealth
}

// NewHealthAggregator creates an aggregator reading from the given store.
func NewHealthAggregator(store *CallStore) *HealthAggregator {
	return &HealthAggregator{
		store:  store,
		health: make(map[string]*EndpointHealth),
	}
}

// OnCall recomputes the health entry for the record's key and returns it.
// A brand-new key starts at successRate=100 so first traffic cannot trip a
// spurious zero-rate alert before real data resolves the value.
func (a *HealthAggregator) OnCall(record *CallRecord, now time.Time) *EndpointHealth {
	key := record.Key()
	h, ok := a.health[key]
	if !ok {
		h = &EndpointHealth{
			Endpoint:    record.Endpoint,
			Method:      record.Method,
			SuccessRate: 100,
		}
		a.health[key] = h
	}

	calls := a.store.ForKey(key)
	if len(calls) == 0 {
		return h
	}

	var successful, errors, lastMinute int
	var totalDuration int64
	durations := make([]float64, 0, len(calls))
	minuteCutoff := now.Add(-time.Minute)

	for _, c := range calls {
		if c.Success {
			successful++
		} else {
			errors++
		}
		totalDuration += c.DurationMs
		durations = append(durations, float64(c.DurationMs))
		if !c.Timestamp.Before(minuteCutoff) {
			lastMinute++
		}
	}

	h.TotalRequests = len(calls)
	h.SuccessRate = 100 * float64(successful) / float64(len(calls))
	h.ErrorRate = 100 - h.SuccessRate
	h.ErrorCount = errors
	h.AvgResponseTimeMs = float64(totalDuration) / float64(len(calls))
	h.RequestsPerMinute = lastMinute

	sort.Float64s(durations)
	h.P95ResponseTimeMs = percentile(durations, 95)
	h.P99ResponseTimeMs = percentile(durations, 99)

	if !record.Success {
		h.LastError = record.Error
		t := record.Timestamp
		h.LastErrorTime = &t
	}

	return h
}

// Get returns the live health entry for a method:endpoint key, or nil.
// For internal use under the Monitor's lock; readers crossing the lock
// boundary go through All or Entries.
func (a *HealthAggregator) Get(key string) *EndpointHealth {
	return a.health[key]
}

// All returns a copy of every health entry in unspecified order. Copies,
// not the live structs: callers marshal these after the Monitor's lock is
// released, while OnCall keeps mutating the originals.
func (a *HealthAggregator) All() []*EndpointHealth {
	out := make([]*EndpointHealth, 0, len(a.health))
	for _, h := range a.health {
		c := *h
		out = append(out, &c)
	}
	return out
}

// Entries returns a copied key → health map, for persistence.
func (a *HealthAggregator) Entries() map[string]*EndpointHealth {
	out := make(map[string]*EndpointHealth, len(a.health))
	for k, h := range a.health {
		c := *h
		out[k] = &c
	}
	return out
}

// Restore replaces the aggregate map, used when loading a snapshot.
func (a *HealthAggregator) Restore(entries map[string]*EndpointHealth) {
	a.health = make(map[string]*EndpointHealth, len(entries))
	for k, h := range entries {
		if h != nil {
			a.health[k] = h
		}
	}
}

// percentile returns the exact p-th percentile of an ascending-sorted slice
// using index ceil(p/100*N)-1, clamped to the valid range.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
