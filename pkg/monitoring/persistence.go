package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/pretty"
)

// healthPair serializes one endpointHealth map entry as a ["key", {...}]
// tuple, the layout dashboards already consume.
type healthPair struct {
	Key    string
	Health *EndpointHealth
}

func (p healthPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Key, p.Health})
}

func (p *healthPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("endpoint health entry must be a [key, health] pair, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Health)
}

// snapshotFile is the on-disk snapshot layout. Timestamps inside records
// serialize as RFC 3339 strings; startTime is epoch milliseconds.
type snapshotFile struct {
	Calls          []*CallRecord          `json:"calls"`
	Alerts         []*APIAlert            `json:"alerts"`
	EndpointHealth []healthPair           `json:"endpointHealth"`
	SystemMetrics  []*SystemMetricsSample `json:"systemMetrics"`
	StartTime      int64                  `json:"startTime"`
}

// Persistence periodically snapshots the monitor's bounded state to a local
// file and restores it at startup. It is best-effort: up to one interval of
// data is lost on crash, by design.
type Persistence struct {
	monitor    *Monitor
	path       string
	maxCalls   int
	maxMetrics int
}

// NewPersistence creates a persistence adapter writing to path, keeping the
// last maxCalls call records and maxMetrics system samples.
func NewPersistence(monitor *Monitor, path string, maxCalls, maxMetrics int) *Persistence {
	if maxCalls <= 0 {
		maxCalls = 1000
	}
	if maxMetrics <= 0 {
		maxMetrics = 100
	}
	return &Persistence{
		monitor:    monitor,
		path:       path,
		maxCalls:   maxCalls,
		maxMetrics: maxMetrics,
	}
}

// Path returns the snapshot file location.
func (p *Persistence) Path() string {
	return p.path
}

// Save writes the current snapshot, creating parent directories as needed.
// A failed save is skipped; the next timer tick retries.
func (p *Persistence) Save() error {
	snapshot := p.monitor.exportSnapshot(p.maxCalls, p.maxMetrics)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	// Pretty-printed so operators can inspect the snapshot directly.
	if err := os.WriteFile(p.path, pretty.Pretty(data), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load restores a previous snapshot into the monitor. Callers treat any
// error (missing file, corrupt JSON) as "start empty", never as fatal.
func (p *Persistence) Load() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}

	var snapshot snapshotFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	p.monitor.importSnapshot(&snapshot)
	return nil
}

// exportSnapshot copies the bounded state under the read lock.
func (m *Monitor) exportSnapshot(maxCalls, maxMetrics int) *snapshotFile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := m.store.All()
	if len(calls) > maxCalls {
		calls = calls[len(calls)-maxCalls:]
	}
	metrics := m.sampler.All()
	if len(metrics) > maxMetrics {
		metrics = metrics[len(metrics)-maxMetrics:]
	}

	entries := m.health.Entries()
	pairs := make([]healthPair, 0, len(entries))
	for key, health := range entries {
		pairs = append(pairs, healthPair{Key: key, Health: health})
	}

	return &snapshotFile{
		Calls:          calls,
		Alerts:         m.alerts.All(),
		EndpointHealth: pairs,
		SystemMetrics:  metrics,
		StartTime:      m.startTime.UnixMilli(),
	}
}

// importSnapshot replaces the monitor state from a decoded snapshot.
func (m *Monitor) importSnapshot(s *snapshotFile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Replace(s.Calls)
	m.alerts.Restore(s.Alerts)
	m.sampler.Restore(s.SystemMetrics)

	entries := make(map[string]*EndpointHealth, len(s.EndpointHealth))
	for _, pair := range s.EndpointHealth {
		if pair.Key != "" && pair.Health != nil {
			entries[pair.Key] = pair.Health
		}
	}
	m.health.Restore(entries)

	if s.StartTime > 0 {
		m.startTime = time.UnixMilli(s.StartTime)
	}
}
