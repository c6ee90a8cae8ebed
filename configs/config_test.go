package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":             "9090",
		"ENVIRONMENT":      "test",
		"DATA_FILE":        "testdata/sales.csv",
		"LLM_URL":          "http://localhost:1234",
		"LLM_API_KEY":      "test-key",
		"LLM_MODEL":        "gpt-4",
		"PROFIT_TOLERANCE": "2.5",
		"DIGEST_STAFF_TOP_N": "3",
		"MAX_HISTORY_TURNS":  "6",
	}

	// 環境変数を設定
	for key, value := range testCases {
		os.Setenv(key, value)
	}

	// テスト後にクリーンアップ
	defer func() {
		for key := range testCases {
			os.Unsetenv(key)
		}
	}()

	// 設定を読み込み
	cfg := LoadConfig()

	// 検証
	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.DataFile != "testdata/sales.csv" {
		t.Errorf("Expected DataFile to be 'testdata/sales.csv', got '%s'", cfg.DataFile)
	}

	if cfg.LLMBaseURL != "http://localhost:1234" {
		t.Errorf("Expected LLMBaseURL to be 'http://localhost:1234', got '%s'", cfg.LLMBaseURL)
	}

	if cfg.ProfitTolerance != 2.5 {
		t.Errorf("Expected ProfitTolerance to be 2.5, got %f", cfg.ProfitTolerance)
	}

	if cfg.StaffTopN != 3 {
		t.Errorf("Expected StaffTopN to be 3, got %d", cfg.StaffTopN)
	}

	if cfg.MaxHistoryTurns != 6 {
		t.Errorf("Expected MaxHistoryTurns to be 6, got %d", cfg.MaxHistoryTurns)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "DATA_FILE", "LLM_URL", "LLM_API_KEY",
		"LLM_MODEL", "CHAT_MAX_TOKENS", "CHAT_TEMPERATURE",
		"PROFIT_TOLERANCE", "DIGEST_STAFF_TOP_N", "DIGEST_PRODUCT_TOP_N",
		"DIGEST_CUSTOMER_TOP_N", "DIGEST_TREND_MONTHS", "MAX_HISTORY_TURNS",
	}

	for _, v := range vars {
		os.Unsetenv(v)
	}

	// 設定を読み込み
	cfg := LoadConfig()

	// デフォルト値の検証
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.DataFile != "sales_test_data_utf8.csv" {
		t.Errorf("Expected default DataFile to be 'sales_test_data_utf8.csv', got '%s'", cfg.DataFile)
	}

	if cfg.ChatMaxTokens != 1000 {
		t.Errorf("Expected default ChatMaxTokens to be 1000, got %d", cfg.ChatMaxTokens)
	}

	if cfg.ProfitTolerance != 1.0 {
		t.Errorf("Expected default ProfitTolerance to be 1.0, got %f", cfg.ProfitTolerance)
	}

	if cfg.TrendMonths != 12 {
		t.Errorf("Expected default TrendMonths to be 12, got %d", cfg.TrendMonths)
	}

	// 不正な数値は無視されデフォルトに戻る
	os.Setenv("CHAT_MAX_TOKENS", "abc")
	defer os.Unsetenv("CHAT_MAX_TOKENS")
	cfg = LoadConfig()
	if cfg.ChatMaxTokens != 1000 {
		t.Errorf("Expected invalid CHAT_MAX_TOKENS to fall back to 1000, got %d", cfg.ChatMaxTokens)
	}
}
