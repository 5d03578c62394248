package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ウィンドウのバックエンド
const (
	WindowBackendRod  = "rod"
	WindowBackendNone = "none"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	BaseURL    string

	// Persistence
	DatabaseURL     string
	LocalStorePath  string
	OperatorID      string
	PersistDebounce time.Duration
	PersistTimeout  time.Duration

	// Bus
	BusBuffer int

	// Display window
	WindowBackend      string
	BrowserBin         string
	BrowserHeadless    bool
	DisplayWidth       int
	DisplayHeight      int
	DisplaySettleDelay time.Duration
	DisplayStateResend time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitRemote  int

	// Remote control
	RemoteTokenSecret string
	RemoteTokenTTL    time.Duration

	// Announcements
	FeedRefreshInterval time.Duration
	FetchTimeout        time.Duration
	FetchMaxSize        int64
	FetchMaxConcurrent  int

	// Logging
	LogRetentionDays int
	LogLevel         string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.RemoteTokenSecret = os.Getenv("REMOTE_TOKEN_SECRET")
	if cfg.RemoteTokenSecret == "" {
		missing = append(missing, "REMOTE_TOKEN_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LocalStorePath = getEnvString("LOCAL_STORE_PATH", "stagecast.db")
	cfg.OperatorID = getEnvString("OPERATOR_ID", "local")
	cfg.PersistDebounce = getEnvDuration("PERSIST_DEBOUNCE", 2*time.Second)
	cfg.PersistTimeout = getEnvDuration("PERSIST_TIMEOUT", 10*time.Second)
	cfg.BusBuffer = getEnvInt("BUS_BUFFER", 64)
	cfg.WindowBackend = getEnvChoice("WINDOW_BACKEND", WindowBackendRod, WindowBackendRod, WindowBackendNone)
	cfg.BrowserBin = os.Getenv("BROWSER_BIN")
	cfg.BrowserHeadless = getEnvBool("BROWSER_HEADLESS", false)
	cfg.DisplayWidth = getEnvInt("DISPLAY_WIDTH", 1280)
	cfg.DisplayHeight = getEnvInt("DISPLAY_HEIGHT", 720)
	cfg.DisplaySettleDelay = getEnvDuration("DISPLAY_SETTLE_DELAY", time.Second)
	cfg.DisplayStateResend = getEnvDuration("DISPLAY_STATE_RESEND", 500*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 600)
	cfg.RateLimitRemote = getEnvInt("RATE_LIMIT_REMOTE", 120)
	cfg.RemoteTokenTTL = getEnvDuration("REMOTE_TOKEN_TTL", 12*time.Hour)
	cfg.FeedRefreshInterval = getEnvDuration("FEED_REFRESH_INTERVAL", 15*time.Minute)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchMaxConcurrent = getEnvInt("FETCH_MAX_CONCURRENT", 4)
	cfg.LogRetentionDays = getEnvInt("LOG_RETENTION_DAYS", 30)
	cfg.LogLevel = getEnvChoice("LOG_LEVEL", "info", "debug", "info", "warn", "error")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// DisplayURL はディスプレイウィンドウで開くURLを返す。
func (c *Config) DisplayURL() string {
	return c.BaseURL + "/display?projector=true"
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvChoice は許可された値のいずれかであればそれを、そうでなければ既定値を返す。
func getEnvChoice(key, defaultVal string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return defaultVal
}

// getEnvInt は正の整数を読む。0以下や数値でない値は既定値にする。
func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
