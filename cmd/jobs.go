package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"apipulse/internal/jobs"
	"apipulse/pkg/lock"
	"apipulse/pkg/logger"
	"apipulse/pkg/monitoring"
)

func (app *Application) initJobs() error {
	if app.monitor == nil {
		return fmt.Errorf("monitor not initialized")
	}

	manager := jobs.NewManager(app.ctx)

	samplingInterval := app.config.Monitoring.SamplingIntervalDuration()
	persistInterval := app.config.Monitoring.PersistIntervalDuration()

	// The sampler observes the local process, so every instance runs it.
	manager.Register(newSystemSamplerJob(samplingInterval, app.monitor))

	// Snapshot writes are guarded by a distributed lock so replicas sharing
	// a snapshot path do not clobber each other's files. Without Redis the
	// lock degrades to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	snapshotLock := lock.NewRedisDistributedLock(redisClient, "monitoring:snapshot-lock")
	manager.Register(newSnapshotJob(persistInterval, app.persistence, snapshotLock))

	app.jobsManager = manager
	return nil
}

// systemSamplerJob records a system-metrics sample every interval and
// re-evaluates memory alerts and auto-resolution.
type systemSamplerJob struct {
	interval time.Duration
	monitor  *monitoring.Monitor
}

func newSystemSamplerJob(interval time.Duration, mon *monitoring.Monitor) jobs.Job {
	return &systemSamplerJob{
		interval: interval,
		monitor:  mon,
	}
}

func (j *systemSamplerJob) Name() string {
	return "system-sampler"
}

func (j *systemSamplerJob) Interval() time.Duration {
	return j.interval
}

// AlignToInterval keeps samples on minute boundaries so the metrics history
// reads as a clean per-minute series.
func (j *systemSamplerJob) AlignToInterval() bool {
	return true
}

func (j *systemSamplerJob) Run(ctx context.Context) error {
	if j.monitor == nil {
		return fmt.Errorf("monitor not configured")
	}

	sample := j.monitor.Tick(time.Now())
	logger.DebugCtx(ctx, "system sample recorded: mem %.1f%%, %d calls last minute",
		sample.Memory.Percentage, sample.APICallsLastMin)
	return nil
}

// snapshotJob periodically persists the monitoring state to disk.
type snapshotJob struct {
	interval        time.Duration
	persistence     *monitoring.Persistence
	distributedLock lock.DistributedLock
}

func newSnapshotJob(interval time.Duration, p *monitoring.Persistence, l lock.DistributedLock) jobs.Job {
	return &snapshotJob{
		interval:        interval,
		persistence:     p,
		distributedLock: l,
	}
}

func (j *snapshotJob) Name() string {
	return "monitoring-snapshot"
}

func (j *snapshotJob) Interval() time.Duration {
	return j.interval
}

func (j *snapshotJob) Run(ctx context.Context) error {
	if j.persistence == nil {
		return fmt.Errorf("persistence not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is writing the monitoring snapshot, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "writing monitoring snapshot to %s", j.persistence.Path())
	return j.persistence.Save()
}
