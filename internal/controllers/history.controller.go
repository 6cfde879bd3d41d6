package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nigrani/internal/models"
	"nigrani/internal/services"
)

// HistoryReader answers history queries.
type HistoryReader interface {
	ResolveWindow(token string) models.HistoryWindow
	History(ctx context.Context, token string, granularity models.Granularity) []models.HistoryPoint
	AllHistory(ctx context.Context) map[string][]models.HistoryPoint
}

type HistoryController struct {
	history HistoryReader
}

func NewHistoryController(history HistoryReader) *HistoryController {
	return &HistoryController{history: history}
}

// GetHistory returns normalized history for one range
// Query params: range=1h|6h|24h|7d|30d|6m|1y|3y (default: 24h), granularity=raw|hourly|daily|monthly|yearly
func (hc *HistoryController) GetHistory(c *gin.Context) {
	token := c.DefaultQuery("range", services.DefaultRange)

	granularity, err := services.ParseGranularity(c.Query("granularity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window := hc.history.ResolveWindow(token)
	if granularity != "" {
		window.Granularity = granularity
	}
	data := hc.history.History(c.Request.Context(), token, granularity)

	c.JSON(http.StatusOK, gin.H{
		"range":       window.Range,
		"granularity": window.Granularity,
		"start":       window.Start,
		"end":         window.End,
		"count":       len(data),
		"data":        data,
	})
}

// GetAllHistory returns the default history of every range in one response
func (hc *HistoryController) GetAllHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ranges": services.RangeTokens,
		"data":   hc.history.AllHistory(c.Request.Context()),
	})
}
