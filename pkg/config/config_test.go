package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestInit_LoadsConfigFile tests loading a full config via CONFIG_PATH.
func TestInit_LoadsConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  mode: debug
  api_key: secret
redis:
  addr: localhost:6379
logger:
  level: debug
  output: console
monitoring:
  max_stored_calls: 500
  snapshot_path: /tmp/pulse.json
  thresholds:
    error_rate_percent: 10
`)
	t.Setenv("CONFIG_PATH", path)

	require.NoError(t, Init())
	require.NotNil(t, GlobalConfig)

	assert.Equal(t, 9090, GlobalConfig.Server.Port)
	assert.Equal(t, "secret", GlobalConfig.Server.APIKey)
	assert.Equal(t, "localhost:6379", GlobalConfig.Redis.Addr)

	m := GlobalConfig.Monitoring
	assert.Equal(t, 500, m.MaxStoredCalls)
	assert.Equal(t, "/tmp/pulse.json", m.SnapshotPath)
	assert.InDelta(t, 10.0, m.Thresholds.ErrorRatePercent, 0.001)

	// Unset fields picked up the defaults
	assert.Equal(t, 1440, m.MaxStoredMetrics)
	assert.Equal(t, 60, m.SamplingInterval)
	assert.InDelta(t, 2000.0, m.Thresholds.LatencyMs, 0.001)
	assert.InDelta(t, 99.9, m.SLATarget, 0.001)
}

// TestInit_MissingFile tests that a missing config file fails startup.
func TestInit_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, Init())
}

// TestValidateAndApplyDefaults_FillsEverything tests the zero-value config.
func TestValidateAndApplyDefaults_FillsEverything(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, validateAndApplyDefaults(cfg))

	defaults := DefaultMonitoringConfig()
	assert.Equal(t, defaults, cfg.Monitoring)
}

// TestValidateAndApplyDefaults_RejectsInvalid tests fail-fast validation.
func TestValidateAndApplyDefaults_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MonitoringConfig)
	}{
		{"negative call capacity", func(m *MonitoringConfig) { m.MaxStoredCalls = -1 }},
		{"negative sampling interval", func(m *MonitoringConfig) { m.SamplingInterval = -10 }},
		{"sla target above 100", func(m *MonitoringConfig) { m.SLATarget = 120 }},
		{"negative error rate threshold", func(m *MonitoringConfig) { m.Thresholds.ErrorRatePercent = -5 }},
		{"error rate threshold above 100", func(m *MonitoringConfig) { m.Thresholds.ErrorRatePercent = 150 }},
		{"negative latency threshold", func(m *MonitoringConfig) { m.Thresholds.LatencyMs = -100 }},
		{"negative p95 threshold", func(m *MonitoringConfig) { m.Thresholds.P95LatencyMs = -1 }},
		{"memory threshold above 100", func(m *MonitoringConfig) { m.Thresholds.MemoryPercent = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Monitoring: DefaultMonitoringConfig()}
			tt.mutate(&cfg.Monitoring)
			assert.Error(t, validateAndApplyDefaults(cfg))
		})
	}
}

// TestMonitoringConfig_Durations tests the seconds-to-duration helpers.
func TestMonitoringConfig_Durations(t *testing.T) {
	m := MonitoringConfig{SamplingInterval: 60, PersistInterval: 300, WarmupSeconds: 30}
	assert.Equal(t, time.Minute, m.SamplingIntervalDuration())
	assert.Equal(t, 5*time.Minute, m.PersistIntervalDuration())
	assert.Equal(t, 30*time.Second, m.WarmupDuration())
}
