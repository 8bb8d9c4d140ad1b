package handlers

import (
	"net/http"

	"codot-dashboard-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler モニタリングAPIのハンドラー
type MonitoringHandler struct {
	monitoringService *services.MonitoringService
}

// NewMonitoringHandler 新しいMonitoringHandlerを生成する
func NewMonitoringHandler(monitoringService *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{monitoringService: monitoringService}
}

// GetLogs 直近のリクエストログを返す
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"logs":    h.monitoringService.RecentLogs(limit),
	})
}
