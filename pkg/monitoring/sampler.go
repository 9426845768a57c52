package monitoring

import (
	"runtime"
	"time"
)

// Sampler keeps the bounded history of per-minute process snapshots and
// builds new samples from the call store plus process memory state.
type Sampler struct {
	capacity int
	samples  []*SystemMetricsSample

	// overridable in tests
	readMemory func() MemoryUsage
}

// NewSampler creates a sampler with the given history capacity.
func NewSampler(capacity int) *Sampler {
	if capacity <= 0 {
		capacity = 1440
	}
	return &Sampler{
		capacity:   capacity,
		readMemory: readProcessMemory,
	}
}

// Sample builds one snapshot over the trailing minute and appends it to the
// history, evicting oldest samples beyond the cap.
func (s *Sampler) Sample(store *CallStore, inFlight int, now time.Time) *SystemMetricsSample {
	calls := store.Since(now.Add(-time.Minute))

	var errors int
	var totalDuration int64
	for _, c := range calls {
		if !c.Success {
			errors++
		}
		totalDuration += c.DurationMs
	}

	var errorRate, avgDuration float64
	if len(calls) > 0 {
		errorRate = 100 * float64(errors) / float64(len(calls))
		avgDuration = float64(totalDuration) / float64(len(calls))
	}

	sample := &SystemMetricsSample{
		Timestamp:         now,
		Memory:            s.readMemory(),
		APICallsLastMin:   len(calls),
		ErrorRateLastMin:  errorRate,
		AvgResponseTimeMs: avgDuration,
		InFlight:          inFlight,
	}

	s.samples = append(s.samples, sample)
	if len(s.samples) > s.capacity {
		overflow := len(s.samples) - s.capacity
		s.samples = append(s.samples[:0], s.samples[overflow:]...)
	}

	return sample
}

// Latest returns the most recent sample, or nil before the first tick.
func (s *Sampler) Latest() *SystemMetricsSample {
	if len(s.samples) == 0 {
		return nil
	}
	return s.samples[len(s.samples)-1]
}

// All returns a copy of the sample history, oldest-first.
func (s *Sampler) All() []*SystemMetricsSample {
	out := make([]*SystemMetricsSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Len returns the number of stored samples.
func (s *Sampler) Len() int {
	return len(s.samples)
}

// Restore replaces the history, applying the capacity bound. Used when
// loading a snapshot.
func (s *Sampler) Restore(samples []*SystemMetricsSample) {
	if len(samples) > s.capacity {
		samples = samples[len(samples)-s.capacity:]
	}
	s.samples = append(s.samples[:0:0], samples...)
}

// readProcessMemory reports heap in use against the total held from the OS.
func readProcessMemory() MemoryUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := MemoryUsage{
		Used:  m.HeapInuse + m.StackInuse,
		Total: m.Sys,
	}
	if usage.Total > 0 {
		usage.Percentage = 100 * float64(usage.Used) / float64(usage.Total)
	}
	return usage
}
