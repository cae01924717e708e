package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdeChrysler/szen-bi/internal/logger"
	"github.com/AdeChrysler/szen-bi/internal/model"
	"github.com/AdeChrysler/szen-bi/internal/security"
)

// ボットユーザーのデフォルト値。
const (
	DefaultBotEmail         = "agent@zenithspace.app"
	DefaultBotUsername      = "zenithspace-agent"
	DefaultBotDisplayName   = "ZenithSpace Agent"
	DefaultTokenDescription = "Auto-generated token for the ZenithSpace Agent bot."

	// fallbackSuffix はワークスペースに紐づかないトークンの説明文に付与する。
	fallbackSuffix = " (no workspace)"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Bot
	BotEmail         string
	BotUsername      string
	BotDisplayName   string
	BotRole          model.Role
	TokenDescription string

	// Logging
	LogLevel slog.Level

	// Worker
	ReconcileInterval  time.Duration
	ReconcileMinGap    time.Duration
	RateLimitReconcile int // POST /reconcile のクライアントごとの上限（req/min）
	ServerPort         string

	// Metrics
	MetricsTextfile string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// 表示用の文字列はマークアップを除去して保存する
	sanitizer := security.NewTextSanitizer()

	// Optional fields with defaults
	cfg.BotEmail = getEnvString("BOT_EMAIL", DefaultBotEmail)
	cfg.BotUsername = getEnvString("BOT_USERNAME", DefaultBotUsername)
	cfg.BotDisplayName = sanitizer.Sanitize(getEnvString("BOT_DISPLAY_NAME", DefaultBotDisplayName))
	cfg.TokenDescription = sanitizer.Sanitize(getEnvString("TOKEN_DESCRIPTION", DefaultTokenDescription))
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", 10*time.Minute)
	cfg.ReconcileMinGap = getEnvDuration("RECONCILE_MIN_GAP", 30*time.Second)
	cfg.RateLimitReconcile = getEnvInt("RATE_LIMIT_RECONCILE", 6)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsTextfile = getEnvString("METRICS_TEXTFILE", "")

	var invalid []string

	role, err := model.ParseRole(getEnvString("BOT_ROLE", model.RoleMember.String()))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("BOT_ROLE: %v", err))
	}
	cfg.BotRole = role

	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	cfg.LogLevel = level

	if !strings.Contains(cfg.BotEmail, "@") {
		invalid = append(invalid, fmt.Sprintf("BOT_EMAIL: %q is not an email address", cfg.BotEmail))
	}
	if strings.ContainsAny(cfg.BotUsername, " \t\r\n") {
		invalid = append(invalid, fmt.Sprintf("BOT_USERNAME: %q must not contain whitespace", cfg.BotUsername))
	}
	if cfg.BotDisplayName == "" {
		invalid = append(invalid, "BOT_DISPLAY_NAME: empty after removing markup")
	}
	if cfg.ReconcileInterval <= 0 {
		invalid = append(invalid, "RECONCILE_INTERVAL: must be positive")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %v", invalid)
	}

	return cfg, nil
}

// FallbackTokenDescription はワークスペースに紐づかないトークンの説明文を返す。
func (c *Config) FallbackTokenDescription() string {
	return c.TokenDescription + fallbackSuffix
}

// IdentitySpec はボットユーザーの正規値を返す。
func (c *Config) IdentitySpec() model.IdentitySpec {
	return model.IdentitySpec{
		Email:       c.BotEmail,
		Username:    c.BotUsername,
		DisplayName: c.BotDisplayName,
	}
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
