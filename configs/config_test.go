package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":           "9090",
		"ENVIRONMENT":    "test",
		"API_KEY":        "test-api-key",
		"DATABASE_PATH":  "/tmp/test.db",
		"OPENAI_API_KEY": "test-openai-key",
		"OPENAI_MODEL":   "gpt-4",
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

	if cfg.APIKey != "test-api-key" {
		t.Errorf("Expected APIKey to be 'test-api-key', got '%s'", cfg.APIKey)
	}

	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("Expected DatabasePath to be '/tmp/test.db', got '%s'", cfg.DatabasePath)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey to be 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}

	if cfg.OpenAIModel != "gpt-4" {
		t.Errorf("Expected OpenAIModel to be 'gpt-4', got '%s'", cfg.OpenAIModel)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// 環境変数をクリア
	vars := []string{
		"PORT", "ENVIRONMENT", "API_KEY", "DATABASE_PATH",
		"OPENAI_ENDPOINT", "OPENAI_API_KEY", "OPENAI_MODEL",
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

	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}

	if cfg.DatabasePath != "codot.db" {
		t.Errorf("Expected default DatabasePath to be 'codot.db', got '%s'", cfg.DatabasePath)
	}

	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("Expected default OpenAIModel to be 'gpt-4o-mini', got '%s'", cfg.OpenAIModel)
	}
}
