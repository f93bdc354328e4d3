// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	Env         string
	LogLevel    slog.Level
	CORSOrigins []string

	LogFile      string
	SettingsFile string
	DocsDir      string
	FrontendDir  string

	MaxRequestBodySize int64

	Retention RetentionConfig
	AI        AIConfig
	Fetch     FetchConfig
}

// RetentionConfig controls the log retention scheduler.
type RetentionConfig struct {
	CheckInterval  time.Duration
	StreamInterval time.Duration
}

// AIConfig holds credentials and timeouts for the hosted AI applications.
type AIConfig struct {
	BaseURL           string
	ChatAPIKey        string
	ChatAppID         string
	DocAPIKey         string
	DocAppID          string
	ChatTimeout       time.Duration
	GenerationTimeout time.Duration
}

// FetchConfig controls remote page retrieval.
type FetchConfig struct {
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	chatKey := getEnv("BAILIAN_API_KEY", "")
	if chatKey == "" {
		chatKey = getEnv("ALIBABA_CLOUD_ACCESS_KEY_SECRET", "")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"*"}),
		LogFile:            getEnv("LOG_FILE", "./data/chat_logs.txt"),
		SettingsFile:       getEnv("SETTINGS_FILE", "./data/settings.json"),
		DocsDir:            getEnv("DOCS_DIR", "./docs"),
		FrontendDir:        getEnv("FRONTEND_DIR", "./frontend"),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY", 1<<20)),
		Retention: RetentionConfig{
			CheckInterval:  getEnvDuration("CLEANUP_CHECK_INTERVAL", time.Minute),
			StreamInterval: getEnvDuration("LOG_STREAM_INTERVAL", 5*time.Second),
		},
		AI: AIConfig{
			BaseURL:           getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com"),
			ChatAPIKey:        chatKey,
			ChatAppID:         getEnv("BAILIAN_APP_ID", ""),
			DocAPIKey:         getEnv("DOC_API_KEY", ""),
			DocAppID:          getEnv("DOC_APP_ID", ""),
			ChatTimeout:       getEnvDuration("CHAT_TIMEOUT", 60*time.Second),
			GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 120*time.Second),
		},
		Fetch: FetchConfig{
			Timeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.LogFile == "" {
		return fmt.Errorf("LOG_FILE cannot be empty")
	}
	if c.SettingsFile == "" {
		return fmt.Errorf("SETTINGS_FILE cannot be empty")
	}
	if c.DocsDir == "" {
		return fmt.Errorf("DOCS_DIR cannot be empty")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY must be > 0")
	}
	if c.Retention.CheckInterval <= 0 {
		return fmt.Errorf("CLEANUP_CHECK_INTERVAL must be > 0")
	}
	if c.Retention.StreamInterval <= 0 {
		return fmt.Errorf("LOG_STREAM_INTERVAL must be > 0")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be > 0")
	}
	return nil
}

// RequireAI checks the hosted AI application credentials. There are no
// built-in fallbacks: every value must come from the environment.
func (c *Config) RequireAI() error {
	var errs []error
	if c.AI.ChatAPIKey == "" {
		errs = append(errs, errors.New("BAILIAN_API_KEY (or ALIBABA_CLOUD_ACCESS_KEY_SECRET) is required"))
	}
	if c.AI.ChatAppID == "" {
		errs = append(errs, errors.New("BAILIAN_APP_ID is required"))
	}
	if c.AI.DocAPIKey == "" {
		errs = append(errs, errors.New("DOC_API_KEY is required"))
	}
	if c.AI.DocAppID == "" {
		errs = append(errs, errors.New("DOC_APP_ID is required"))
	}
	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || strings.EqualFold(c.Env, "development")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return lvl
}
