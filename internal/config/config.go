package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Storage backends selectable through BACKEND.
const (
	BackendMemory   = "memory"
	BackendDisk     = "disk"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Port      string
	LogLevel  string
	BoardName string

	// Storage gateway
	Backend            string
	DataDir            string
	SQLitePath         string
	SQLitePollInterval time.Duration
	DatabaseURL        string
	QueryTimeout       time.Duration

	PaletteConfigPath string
	ViewportWidth     int
	ViewportHeight    int
	ViewportTouch     bool

	// Gateway circuit breaker
	GatewayMaxFailures  int
	GatewayResetTimeout time.Duration

	// Plugin notifications
	PluginRetryMax     int
	PluginRetryBackoff time.Duration
	PluginRPCTimeout   time.Duration
}

func Load() Config {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		BoardName:           getEnv("BOARD_NAME", "pixelMessageBoard"),
		Backend:             getEnv("BACKEND", BackendMemory),
		DataDir:             getEnv("DATA_DIR", "./data"),
		SQLitePath:          getEnv("SQLITE_PATH", "./data/board.db"),
		SQLitePollInterval:  getEnvDuration("SQLITE_POLL_INTERVAL", 500*time.Millisecond),
		QueryTimeout:        getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		PaletteConfigPath:   getEnv("PALETTE_CONFIG_PATH", ""),
		ViewportWidth:       getEnvInt("VIEWPORT_WIDTH", 1920),
		ViewportHeight:      getEnvInt("VIEWPORT_HEIGHT", 1080),
		ViewportTouch:       getEnvBool("VIEWPORT_TOUCH", false),
		GatewayMaxFailures:  getEnvInt("GATEWAY_MAX_FAILURES", 5),
		GatewayResetTimeout: getEnvDuration("GATEWAY_RESET_TIMEOUT", 30*time.Second),
		PluginRetryMax:      getEnvInt("PLUGIN_RETRY_MAX", 3),
		PluginRetryBackoff:  getEnvDuration("PLUGIN_RETRY_BACKOFF", 100*time.Millisecond),
		PluginRPCTimeout:    getEnvDuration("PLUGIN_RPC_TIMEOUT", 5*time.Second),
	}
	if cfg.Backend == BackendPostgres {
		cfg.DatabaseURL = getEnvRequired("DATABASE_URL")
	}
	return cfg
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
