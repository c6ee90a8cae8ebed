package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port        string
	APIKey      string
	Environment string

	// データソース
	DataFile string

	// LLM接続設定（OpenAI互換API）
	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	ChatMaxTokens   int
	ChatTemperature float64

	// 検証・集計のチューニング値。
	// 粗利整合性チェックの許容差（円）と、ダイジェスト各セクションの上限件数。
	// 元は画面ごとに食い違っていた値をここで一元管理する。
	ProfitTolerance float64
	StaffTopN       int
	ProductTopN     int
	CustomerTopN    int
	TrendMonths     int
	MaxHistoryTurns int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		APIKey:          getEnv("API_KEY", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		DataFile:        getEnv("DATA_FILE", "sales_test_data_utf8.csv"),
		LLMBaseURL:      getEnv("LLM_URL", "https://api.openai.com"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		ChatMaxTokens:   getEnvInt("CHAT_MAX_TOKENS", 1000),
		ChatTemperature: getEnvFloat("CHAT_TEMPERATURE", 0.7),
		ProfitTolerance: getEnvFloat("PROFIT_TOLERANCE", 1.0),
		StaffTopN:       getEnvInt("DIGEST_STAFF_TOP_N", 5),
		ProductTopN:     getEnvInt("DIGEST_PRODUCT_TOP_N", 5),
		CustomerTopN:    getEnvInt("DIGEST_CUSTOMER_TOP_N", 5),
		TrendMonths:     getEnvInt("DIGEST_TREND_MONTHS", 12),
		MaxHistoryTurns: getEnvInt("MAX_HISTORY_TURNS", 10),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
