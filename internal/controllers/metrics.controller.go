package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nigrani/internal/models"
)

// StatusReader builds live status.
type StatusReader interface {
	LiveStatus(ctx context.Context) models.LiveStatus
}

// Collector takes snapshots on demand.
type Collector interface {
	CollectNow(ctx context.Context) models.Snapshot
}

// LatestReader returns the newest cached snapshot.
type LatestReader interface {
	Latest() (models.Snapshot, bool)
}

// Sweeper runs a retention sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type MetricsController struct {
	status    StatusReader
	collector Collector
	latest    LatestReader
	sweeper   Sweeper
	logger    *zap.Logger
}

func NewMetricsController(status StatusReader, collector Collector, latest LatestReader, sweeper Sweeper, logger *zap.Logger) *MetricsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsController{
		status:    status,
		collector: collector,
		latest:    latest,
		sweeper:   sweeper,
		logger:    logger,
	}
}

// GetCurrent returns a freshly built snapshot plus live-only readings
func (mc *MetricsController) GetCurrent(c *gin.Context) {
	c.JSON(http.StatusOK, mc.status.LiveStatus(c.Request.Context()))
}

// GetLatest returns the most recently collected snapshot
func (mc *MetricsController) GetLatest(c *gin.Context) {
	snap, ok := mc.latest.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot collected yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CollectSnapshot takes a snapshot immediately
func (mc *MetricsController) CollectSnapshot(c *gin.Context) {
	snap := mc.collector.CollectNow(c.Request.Context())
	c.JSON(http.StatusCreated, snap)
}

// SweepRetention deletes snapshots past the retention horizon
func (mc *MetricsController) SweepRetention(c *gin.Context) {
	deleted, err := mc.sweeper.Sweep(c.Request.Context())
	if err != nil {
		mc.logger.Error("On-demand retention sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retention sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_count": deleted})
}
