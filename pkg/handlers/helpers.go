package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HealthCheck ヘルスチェックエンドポイント
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Codot Dashboard API",
	})
}

// queryInt クエリパラメータを整数として取得する（不正値はデフォルトに落とす）
func queryInt(c *gin.Context, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
