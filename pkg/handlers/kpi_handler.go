package handlers

import (
	"net/http"

	"codot-dashboard-api/pkg/services"
	"codot-dashboard-api/pkg/store"

	"github.com/gin-gonic/gin"
)

// KPIHandler KPI・トレンド・予測APIのハンドラー
type KPIHandler struct {
	kpiService *services.KPIService
	forecaster services.Forecaster
}

// NewKPIHandler 新しいKPIHandlerを生成する
func NewKPIHandler(kpiService *services.KPIService, forecaster services.Forecaster) *KPIHandler {
	return &KPIHandler{
		kpiService: kpiService,
		forecaster: forecaster,
	}
}

// GetStores 登録済み店舗の一覧を返す
func (h *KPIHandler) GetStores(c *gin.Context) {
	stores, err := h.kpiService.StoreList()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "店舗一覧の取得に失敗しました。",
		})
		return
	}
	if stores == nil {
		stores = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stores":  stores,
	})
}

// GetKPI 店舗の当期・前月・前年同期KPIを返す
func (h *KPIHandler) GetKPI(c *gin.Context) {
	storeID := c.Param("storeID")
	months := queryInt(c, "months", 3)

	aggregates, err := h.kpiService.Aggregates(storeID, months)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "KPIの集計に失敗しました。",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"kpi":     aggregates,
	})
}

// GetTrend 店舗の月次トレンド（今年 + 前年同期）を返す
func (h *KPIHandler) GetTrend(c *gin.Context) {
	storeID := c.Param("storeID")
	metric := c.DefaultQuery("metric", store.MetricCustomers)
	months := queryInt(c, "months", 3)

	trend, err := h.kpiService.MonthlyTrend(storeID, metric, months)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "トレンドの取得に失敗しました。metricは customers / spend / productivity のいずれかを指定してください。",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"trend":   trend,
	})
}

// GetForecast 店舗メトリックの180日予測（信頼区間付き）を返す
func (h *KPIHandler) GetForecast(c *gin.Context) {
	storeID := c.Param("storeID")
	metric := c.DefaultQuery("metric", store.MetricCustomers)

	series, err := h.kpiService.ForecastInput(storeID, metric)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "予測入力の取得に失敗しました。metricは customers / spend のいずれかを指定してください。",
		})
		return
	}

	points, err := h.forecaster.Forecast(series, services.ForecastHorizonDays)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":  false,
			"error":    err.Error(),
			"forecast": []interface{}{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"store_id": storeID,
		"metric":   metric,
		"forecast": points,
	})
}
