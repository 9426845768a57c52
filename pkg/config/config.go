package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Logger     LoggerConfig     `yaml:"logger"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for the dashboard read API (optional, if empty, auth is disabled)
}

// RedisConfig Redis configuration. Redis is only used for the background-job
// distributed locks; an empty addr runs the locks in single-instance mode.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// MonitoringConfig monitoring pipeline configuration
type MonitoringConfig struct {
	MaxStoredCalls   int             `yaml:"max_stored_calls"`   // call store capacity
	MaxStoredMetrics int             `yaml:"max_stored_metrics"` // system-metrics history capacity
	PersistedCalls   int             `yaml:"persisted_calls"`    // calls kept in the snapshot file
	PersistedMetrics int             `yaml:"persisted_metrics"`  // metric samples kept in the snapshot file
	SamplingInterval int             `yaml:"sampling_interval"`  // system-metrics sampling interval (seconds)
	PersistInterval  int             `yaml:"persist_interval"`   // snapshot write interval (seconds)
	SnapshotPath     string          `yaml:"snapshot_path"`      // snapshot file location
	WarmupSeconds    int             `yaml:"warmup_seconds"`     // delay before memory alerts are armed
	SLATarget        float64         `yaml:"sla_target"`         // target uptime percentage, e.g. 99.9
	Thresholds       ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig alert thresholds
type ThresholdConfig struct {
	ErrorRatePercent float64 `yaml:"error_rate_percent"` // endpoint error rate above this raises an alert
	LatencyMs        float64 `yaml:"latency_ms"`         // single-call duration above this raises an alert
	P95LatencyMs     float64 `yaml:"p95_latency_ms"`     // endpoint p95 above this raises an alert
	MemoryPercent    float64 `yaml:"memory_percent"`     // process memory usage above this raises an alert
}

// DefaultMonitoringConfig returns the monitoring defaults applied when the
// config file leaves fields unset.
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		MaxStoredCalls:   10000,
		MaxStoredMetrics: 1440, // 24h at one-minute resolution
		PersistedCalls:   1000,
		PersistedMetrics: 100,
		SamplingInterval: 60,
		PersistInterval:  300,
		SnapshotPath:     "data/monitoring.json",
		WarmupSeconds:    30,
		SLATarget:        99.9,
		Thresholds: ThresholdConfig{
			ErrorRatePercent: 5,
			LatencyMs:        2000,
			P95LatencyMs:     1000,
			MemoryPercent:    85,
		},
	}
}

// SamplingIntervalDuration returns the sampling interval as a time.Duration.
func (m *MonitoringConfig) SamplingIntervalDuration() time.Duration {
	return time.Duration(m.SamplingInterval) * time.Second
}

// PersistIntervalDuration returns the snapshot write interval as a time.Duration.
func (m *MonitoringConfig) PersistIntervalDuration() time.Duration {
	return time.Duration(m.PersistInterval) * time.Second
}

// WarmupDuration returns the memory-alert warm-up delay.
func (m *MonitoringConfig) WarmupDuration() time.Duration {
	return time.Duration(m.WarmupSeconds) * time.Second
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	if err := validateAndApplyDefaults(&cfg); err != nil {
		return err
	}

	GlobalConfig = &cfg
	return nil
}

// validateAndApplyDefaults fills unset monitoring fields with defaults and
// rejects values that would silently disable alerting. A misconfigured
// threshold fails startup instead of producing a monitor that never fires.
func validateAndApplyDefaults(cfg *Config) error {
	defaults := DefaultMonitoringConfig()
	m := &cfg.Monitoring

	if m.MaxStoredCalls == 0 {
		m.MaxStoredCalls = defaults.MaxStoredCalls
	}
	if m.MaxStoredMetrics == 0 {
		m.MaxStoredMetrics = defaults.MaxStoredMetrics
	}
	if m.PersistedCalls == 0 {
		m.PersistedCalls = defaults.PersistedCalls
	}
	if m.PersistedMetrics == 0 {
		m.PersistedMetrics = defaults.PersistedMetrics
	}
	if m.SamplingInterval == 0 {
		m.SamplingInterval = defaults.SamplingInterval
	}
	if m.PersistInterval == 0 {
		m.PersistInterval = defaults.PersistInterval
	}
	if m.SnapshotPath == "" {
		m.SnapshotPath = defaults.SnapshotPath
	}
	if m.WarmupSeconds == 0 {
		m.WarmupSeconds = defaults.WarmupSeconds
	}
	if m.SLATarget == 0 {
		m.SLATarget = defaults.SLATarget
	}
	if m.Thresholds.ErrorRatePercent == 0 {
		m.Thresholds.ErrorRatePercent = defaults.Thresholds.ErrorRatePercent
	}
	if m.Thresholds.LatencyMs == 0 {
		m.Thresholds.LatencyMs = defaults.Thresholds.LatencyMs
	}
	if m.Thresholds.P95LatencyMs == 0 {
		m.Thresholds.P95LatencyMs = defaults.Thresholds.P95LatencyMs
	}
	if m.Thresholds.MemoryPercent == 0 {
		m.Thresholds.MemoryPercent = defaults.Thresholds.MemoryPercent
	}

	if m.MaxStoredCalls < 0 || m.MaxStoredMetrics < 0 || m.PersistedCalls < 0 || m.PersistedMetrics < 0 {
		return fmt.Errorf("monitoring capacities must not be negative")
	}
	if m.SamplingInterval < 0 || m.PersistInterval < 0 || m.WarmupSeconds < 0 {
		return fmt.Errorf("monitoring intervals must not be negative")
	}
	if m.SLATarget < 0 || m.SLATarget > 100 {
		return fmt.Errorf("sla_target must be a percentage between 0 and 100, got %v", m.SLATarget)
	}
	t := m.Thresholds
	if t.ErrorRatePercent < 0 || t.ErrorRatePercent > 100 {
		return fmt.Errorf("error_rate_percent threshold must be between 0 and 100, got %v", t.ErrorRatePercent)
	}
	if t.LatencyMs < 0 {
		return fmt.Errorf("latency_ms threshold must not be negative, got %v", t.LatencyMs)
	}
	if t.P95LatencyMs < 0 {
		return fmt.Errorf("p95_latency_ms threshold must not be negative, got %v", t.P95LatencyMs)
	}
	if t.MemoryPercent < 0 || t.MemoryPercent > 100 {
		return fmt.Errorf("memory_percent threshold must be between 0 and 100, got %v", t.MemoryPercent)
	}

	return nil
}
