package main

import (
	"log"
	"net/http"

	config "codot-dashboard-api/configs"
	"codot-dashboard-api/pkg/etl"
	"codot-dashboard-api/pkg/handlers"
	"codot-dashboard-api/pkg/openai"
	"codot-dashboard-api/pkg/services"
	"codot-dashboard-api/pkg/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// ファクトストアの初期化
	factStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open fact store at %s: %v", cfg.DatabasePath, err)
	}
	defer factStore.Close()

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	aiClient := openai.NewClient(cfg.OpenAIEndpoint, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	kpiService := services.NewKPIService(factStore)
	forecastService := services.NewLinearForecastService()
	reportService := services.NewReportService(kpiService, forecastService, aiClient)
	ingestor := etl.NewIngestor(factStore)

	// ハンドラーの初期化
	ingestHandler := handlers.NewIngestHandler(ingestor)
	kpiHandler := handlers.NewKPIHandler(kpiService, forecastService)
	reportHandler := handlers.NewReportHandler(reportService)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware()) // ロギングミドルウェアをグローバルに適用
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" || apiKey == "default_secret_key" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// Excel取り込みAPI
		v1.POST("/ingest", ingestHandler.IngestFiles)

		// KPIダッシュボードAPI
		v1.GET("/stores", kpiHandler.GetStores)
		v1.GET("/kpi/:storeID", kpiHandler.GetKPI)
		v1.GET("/trends/:storeID", kpiHandler.GetTrend)
		v1.GET("/forecast/:storeID", kpiHandler.GetForecast)

		// AIレポートAPI
		v1.GET("/report/:storeID", reportHandler.GetReport)

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	log.Printf("Starting Codot Dashboard API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
