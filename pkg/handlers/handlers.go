package handlers

import (
	"net/http"
	"strconv"
	"time"

	"sales-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// HealthCheck サービス死活確認
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Sales Insight API",
	})
}

// MonitoringHandler リクエスト統計のAPI
type MonitoringHandler struct {
	monitoring *services.MonitoringService
}

// NewMonitoringHandler 新しいMonitoringHandlerを作成する
func NewMonitoringHandler(monitoring *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{monitoring: monitoring}
}

// GetStats 直近の集計済みリクエスト統計を返す。period_hoursで期間を指定できる（デフォルト24時間）。
func (h *MonitoringHandler) GetStats(c *gin.Context) {
	hours := 24
	if v := c.Query("period_hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	stats := h.monitoring.GetStats(time.Duration(hours) * time.Hour)
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
