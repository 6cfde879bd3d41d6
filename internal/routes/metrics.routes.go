package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nigrani/internal/controllers"
)

// RegisterMetricsRoutes registers the snapshot and history API behind the
// given middleware chain (request timing, auth).
func RegisterMetricsRoutes(r *gin.Engine, mc *controllers.MetricsController, hc *controllers.HistoryController, chain ...gin.HandlerFunc) {
	metrics := r.Group("/api/metrics", chain...)
	{
		metrics.GET("/current", mc.GetCurrent)
		metrics.GET("/snapshots/latest", mc.GetLatest)
		metrics.POST("/snapshots", mc.CollectSnapshot)
		metrics.GET("/history", hc.GetHistory)
		metrics.GET("/history/all", hc.GetAllHistory)
		metrics.POST("/retention/sweep", mc.SweepRetention)
	}
}

// RegisterTelemetryRoutes exposes the process's own Prometheus metrics and
// a liveness check.
func RegisterTelemetryRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
