package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("LOG_FILE", "./data/chat_logs.txt")
	t.Setenv("SETTINGS_FILE", "./data/settings.json")
	t.Setenv("DOCS_DIR", "./docs")
	t.Setenv("CLEANUP_CHECK_INTERVAL", "1m")
	t.Setenv("FETCH_TIMEOUT", "30s")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retention.CheckInterval != time.Minute {
		t.Errorf("CheckInterval = %v, want 1m", cfg.Retention.CheckInterval)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 30s", cfg.Fetch.Timeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsEmptyPort(t *testing.T) {
	t.Setenv("PORT", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty PORT")
	}
}

func TestRequireAIHasNoFallbackCredentials(t *testing.T) {
	cfg := &Config{}
	err := cfg.RequireAI()
	if err == nil {
		t.Fatal("expected missing credentials to be reported")
	}
	for _, want := range []string{"BAILIAN_API_KEY", "BAILIAN_APP_ID", "DOC_API_KEY", "DOC_APP_ID"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	cfg.AI = AIConfig{ChatAPIKey: "k", ChatAppID: "a", DocAPIKey: "dk", DocAppID: "da"}
	if err := cfg.RequireAI(); err != nil {
		t.Fatalf("RequireAI with all values: %v", err)
	}
}

func TestChatKeyFallsBackToAccessKeySecret(t *testing.T) {
	t.Setenv("BAILIAN_API_KEY", "")
	t.Setenv("ALIBABA_CLOUD_ACCESS_KEY_SECRET", "secret-from-console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.ChatAPIKey != "secret-from-console" {
		t.Errorf("ChatAPIKey = %q", cfg.AI.ChatAPIKey)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", " http://a.example , ,http://b.example")
	got := getEnvList("TEST_LIST", nil)
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("getEnvList = %v", got)
	}
}
