package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPersistence_RoundTrip tests save followed by restore into a fresh
// monitor.
func TestPersistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitoring.json")

	m := newTestMonitor()
	now := time.Now()
	for i := 0; i < 11; i++ {
		m.Record(makeCall("GET", "/api/flaky", 500, 2500, now))
	}
	m.Record(makeCall("POST", "/api/users", 201, 50, now))
	m.Tick(now)

	p := NewPersistence(m, path, 1000, 100)
	require.NoError(t, p.Save())

	restored := newTestMonitor()
	rp := NewPersistence(restored, path, 1000, 100)
	require.NoError(t, rp.Load())

	assert.Len(t, restored.RecentCalls(100), 12)
	assert.Equal(t, m.StartTime().UnixMilli(), restored.StartTime().UnixMilli())

	healths := restored.EndpointHealths()
	require.Len(t, healths, 2)
	h := restored.health.Get("GET:/api/flaky")
	require.NotNil(t, h)
	assert.Equal(t, 11, h.TotalRequests)
	assert.InDelta(t, 100.0, h.ErrorRate, 0.001)

	// Both the error-rate and slow-call alerts survive
	assert.Len(t, restored.ActiveAlerts(), 2)
	require.NotNil(t, restored.LatestSample())
	assert.Equal(t, 12, restored.LatestSample().APICallsLastMin)
}

// TestPersistence_HealthPairLayout tests the [key, health] tuple encoding in
// the snapshot file.
func TestPersistence_HealthPairLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitoring.json")

	m := newTestMonitor()
	m.Record(makeCall("GET", "/api/users", 200, 100, time.Now()))

	p := NewPersistence(m, path, 1000, 100)
	require.NoError(t, p.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw struct {
		EndpointHealth [][]json.RawMessage `json:"endpointHealth"`
		StartTime      int64               `json:"startTime"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.EndpointHealth, 1)
	require.Len(t, raw.EndpointHealth[0], 2)

	var key string
	require.NoError(t, json.Unmarshal(raw.EndpointHealth[0][0], &key))
	assert.Equal(t, "GET:/api/users", key)
	assert.Greater(t, raw.StartTime, int64(0))
}

// TestPersistence_TruncatesToLimits tests that the snapshot keeps only the
// newest calls and samples.
func TestPersistence_TruncatesToLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitoring.json")

	m := newTestMonitor()
	now := time.Now()
	for i := 0; i < 30; i++ {
		m.Record(makeCall("GET", "/api/users", 200, 100, now.Add(time.Duration(i)*time.Second)))
	}
	for i := 0; i < 8; i++ {
		m.Tick(now.Add(time.Duration(i) * time.Minute))
	}

	p := NewPersistence(m, path, 10, 5)
	require.NoError(t, p.Save())

	restored := newTestMonitor()
	require.NoError(t, NewPersistence(restored, path, 10, 5).Load())

	calls := restored.RecentCalls(100)
	require.Len(t, calls, 10)
	// The newest record survives
	assert.Equal(t, now.Add(29*time.Second).Unix(), calls[0].Timestamp.Unix())
	assert.Equal(t, 5, restored.sampler.Len())
}

// TestPersistence_MissingFile tests that loading without a snapshot errors
// without touching the monitor.
func TestPersistence_MissingFile(t *testing.T) {
	m := newTestMonitor()
	p := NewPersistence(m, filepath.Join(t.TempDir(), "absent.json"), 1000, 100)

	err := p.Load()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, m.RecentCalls(10))
}

// TestPersistence_CorruptFile tests that corrupt JSON is reported and the
// monitor starts empty.
func TestPersistence_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitoring.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	m := newTestMonitor()
	err := NewPersistence(m, path, 1000, 100).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode snapshot")
	assert.Empty(t, m.RecentCalls(10))
	assert.Empty(t, m.EndpointHealths())
}

// TestPersistence_MalformedHealthPair tests rejection of entries that are
// not [key, health] pairs.
func TestPersistence_MalformedHealthPair(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitoring.json")
	snapshot := `{"calls":[],"alerts":[],"endpointHealth":[["only-key"]],"systemMetrics":[],"startTime":1}`
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0644))

	m := newTestMonitor()
	err := NewPersistence(m, path, 1000, 100).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair")
}

// TestPersistence_CreatesParentDirs tests directory creation on save.
func TestPersistence_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "monitoring.json")

	m := newTestMonitor()
	p := NewPersistence(m, path, 1000, 100)
	require.NoError(t, p.Save())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
