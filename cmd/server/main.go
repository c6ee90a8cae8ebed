package main

import (
	"log"
	"net/http"

	config "sales-insight-api/configs"
	"sales-insight-api/pkg/handlers"
	"sales-insight-api/pkg/llm"
	"sales-insight-api/pkg/services"

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

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	cache := services.NewDatasetCache(cfg.DataFile, cfg.ProfitTolerance)
	analyticsService := services.NewAnalyticsService(cache, services.SummaryOptions{
		StaffTopN:    cfg.StaffTopN,
		ProductTopN:  cfg.ProductTopN,
		CustomerTopN: cfg.CustomerTopN,
		TrendMonths:  cfg.TrendMonths,
		MaxTurns:     cfg.MaxHistoryTurns,
	})
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.ChatMaxTokens, cfg.ChatTemperature)
	sessionStore := services.NewSessionStore(cfg.MaxHistoryTurns)

	// 起動時に一度データを読み込んでおく（失敗しても起動は継続し、
	// 各リクエストで再試行される）
	if snap, err := cache.Ensure(); err != nil {
		log.Printf("⚠️ 初回データ読み込みに失敗しました: %v", err)
	} else {
		log.Printf("✅ データ読み込み完了: %d件", len(snap.Dataset))
	}

	// ハンドラーの初期化
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	chatHandler := handlers.NewChatHandler(analyticsService, llmClient, sessionStore)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
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
		// データAPI
		data := v1.Group("/data")
		{
			data.GET("/validation", analyticsHandler.GetValidationReport)
			data.GET("/dimensions", analyticsHandler.GetDimensions)
			data.POST("/reload", analyticsHandler.ReloadData)
		}

		// 集計API
		analytics := v1.Group("/analytics")
		{
			analytics.POST("/query", analyticsHandler.RunQuery)
			analytics.POST("/top", analyticsHandler.RunTopN)
			analytics.POST("/summary", analyticsHandler.RunSummary)
			analytics.POST("/export", analyticsHandler.ExportCSV)
		}

		// AIアシスタントAPI
		ai := v1.Group("/ai")
		{
			ai.POST("/chat", chatHandler.Chat)
			ai.GET("/quick-questions", chatHandler.GetQuickQuestions)
			ai.GET("/history/:session", chatHandler.GetHistory)
			ai.DELETE("/history/:session", chatHandler.ClearHistory)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/stats", monitoringHandler.GetStats)
		}
	}

	log.Printf("Starting Sales Insight API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
