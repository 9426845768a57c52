package main

import (
	"fmt"
	"net/http"

	"apipulse/app/handler"
	"apipulse/app/router"
	"apipulse/pkg/config"
	"apipulse/pkg/logger"
	"apipulse/pkg/monitoring"
	redisstore "apipulse/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})
	return nil
}

// initRedis initializes Redis. Redis only backs the distributed job locks,
// so a missing server degrades to single-instance mode instead of failing
// startup.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.InfoCtx(app.ctx, "Redis not configured, background jobs run in single-instance mode")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		logger.WarnCtx(app.ctx, "Redis unavailable, background jobs run in single-instance mode: %v", err)
		return nil
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initMonitor initializes the monitoring pipeline and seeds it from the
// last snapshot when one exists.
func (app *Application) initMonitor() error {
	mc := &app.config.Monitoring

	opts := monitoring.Options{
		MaxStoredCalls:   mc.MaxStoredCalls,
		MaxStoredMetrics: mc.MaxStoredMetrics,
		Warmup:           mc.WarmupDuration(),
		SLATarget:        mc.SLATarget,
		Thresholds: monitoring.Thresholds{
			ErrorRatePercent: mc.Thresholds.ErrorRatePercent,
			LatencyMs:        mc.Thresholds.LatencyMs,
			P95LatencyMs:     mc.Thresholds.P95LatencyMs,
			MemoryPercent:    mc.Thresholds.MemoryPercent,
		},
	}

	app.monitor = monitoring.NewMonitor(opts)
	app.persistence = monitoring.NewPersistence(app.monitor, mc.SnapshotPath, mc.PersistedCalls, mc.PersistedMetrics)

	// A missing or unreadable snapshot is not fatal, the pipeline just
	// starts empty.
	if err := app.persistence.Load(); err != nil {
		logger.WarnCtx(app.ctx, "Monitoring snapshot not loaded, starting empty: %v", err)
	} else {
		logger.InfoCtx(app.ctx, "Monitoring state restored from %s", app.persistence.Path())
	}

	return nil
}

// initHandlers initializes the handler layer
func (app *Application) initHandlers() error {
	if app.monitor == nil {
		return fmt.Errorf("monitor not initialized")
	}

	app.dashboardHandler = handler.NewDashboardHandler(app.monitor)
	app.alertHandler = handler.NewAlertHandler(app.monitor)
	app.statsHandler = handler.NewStatsHandler(app.monitor)

	return nil
}

// initHTTPServer initializes the HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(app.monitor, app.dashboardHandler, app.alertHandler, app.statsHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server
	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
