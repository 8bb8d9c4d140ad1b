package handlers

import (
	"net/http"

	"codot-dashboard-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ReportHandler AIレポートAPIのハンドラー
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler 新しいReportHandlerを生成する
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetReport 店舗分析レポート（Markdown）を生成して返す。
// レポート生成は失敗しない設計のため常に200を返す。
func (h *ReportHandler) GetReport(c *gin.Context) {
	storeID := c.Param("storeID")
	months := queryInt(c, "months", 3)

	report := h.reportService.Generate(c.Request.Context(), storeID, months)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"store_id": storeID,
		"months":   months,
		"report":   report,
	})
}
