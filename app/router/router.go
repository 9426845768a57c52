package router

import (
	"apipulse/app/handler"
	"apipulse/app/middleware"
	"apipulse/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	monitor          *monitoring.Monitor
	dashboardHandler *handler.DashboardHandler
	alertHandler     *handler.AlertHandler
	statsHandler     *handler.StatsHandler
}

// NewRouter creates a new Router
func NewRouter(monitor *monitoring.Monitor, dashboardHandler *handler.DashboardHandler, alertHandler *handler.AlertHandler, statsHandler *handler.StatsHandler) *Router {
	return &Router{
		monitor:          monitor,
		dashboardHandler: dashboardHandler,
		alertHandler:     alertHandler,
		statsHandler:     statsHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	// Capture sits after Recovery so panics it re-raises still produce a
	// response; every route below it is observed.
	engine.Use(middleware.Capture(r.monitor))

	engine.GET("/healthz", r.dashboardHandler.Healthz)

	// V1 API - dashboard read surface
	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		v1.GET("/dashboard", r.dashboardHandler.GetDashboard)
		v1.GET("/dashboard/ws", r.dashboardHandler.StreamDashboard)

		v1.GET("/alerts", r.alertHandler.GetAlerts)
		v1.GET("/alerts/active", r.alertHandler.GetActiveAlerts)
		v1.POST("/alerts/:id/resolve", r.alertHandler.ResolveAlert)

		v1.GET("/stats", r.statsHandler.GetStats)
		v1.GET("/stats/slow", r.statsHandler.GetSlowEndpoints)
		v1.GET("/stats/errors", r.statsHandler.GetErrorAnalysis)
	}
}
