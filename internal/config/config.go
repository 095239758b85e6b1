package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/timesheet/internal/logger"
)

// データバックエンド
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	DataBackend string
	DatabaseURL string
	SQLitePath  string

	// Server
	ServerPort        string
	CORSAllowedOrigin string

	// Rate Limit（req/min/利用者）
	RateLimitGeneral int
	RateLimitWrite   int

	// Stats
	DefaultHourlyRate int
	Timezone          string
	Location          *time.Location

	// Auth
	AuthProvider string

	// Events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Jobs
	SeedOnStart     bool
	CleanupInterval time.Duration

	// Logging
	LogLevel slog.Level
}

// Load はカレントディレクトリの.envと環境変数からConfigを読み込む。
// .envが存在しない場合は無視し、既に設定済みの環境変数が優先される。
// 必須環境変数の不足や不正な値はまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	var (
		missing []string
		invalid []string
	)

	cfg.DataBackend = strings.ToLower(getEnvString("DATA_BACKEND", BackendMemory))
	switch cfg.DataBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		invalid = append(invalid, fmt.Sprintf("DATA_BACKEND=%q (memory, postgres, sqlite)", cfg.DataBackend))
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DataBackend == BackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthProvider = strings.ToLower(getEnvString("AUTH_PROVIDER", "mock"))
	switch cfg.AuthProvider {
	case "mock", "header":
	default:
		invalid = append(invalid, fmt.Sprintf("AUTH_PROVIDER=%q (mock, header)", cfg.AuthProvider))
	}

	cfg.Timezone = getEnvString("TIMEZONE", "Local")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("TIMEZONE=%q", cfg.Timezone))
	}
	cfg.Location = loc

	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("LOG_LEVEL=%q (debug, info, warn, error)", os.Getenv("LOG_LEVEL")))
	}
	cfg.LogLevel = level

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	// Optional fields with defaults
	cfg.SQLitePath = getEnvString("SQLITE_PATH", "data/timesheet.db")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 60)
	cfg.DefaultHourlyRate = getEnvInt("DEFAULT_HOURLY_RATE", 150)
	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.AMQPExchange = getEnvString("AMQP_EXCHANGE", "timesheet.events")
	cfg.AMQPQueue = getEnvString("AMQP_QUEUE", "timesheet.events")
	cfg.SeedOnStart = getEnvBool("SEED_ON_START", true)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Hour)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
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
