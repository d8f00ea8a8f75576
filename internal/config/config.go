package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int
	StoreBackend    string
	DatabaseURL     string
	SQLitePath      string
	NatsURL         string
	NatsToken       string
	APIToken        string
	QuestionsFile   string
	FragmentDelay   time.Duration
	SessionTTL      time.Duration
}

func Load() Config {
	return Config{
		Port:            envInt("PATHFINDER_PORT", 8760),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("PATHFINDER_MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:       envInt("PATHFINDER_MAX_TOKENS", 300),
		StoreBackend:    envStr("PATHFINDER_STORE", "memory"),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		SQLitePath:      envStr("SQLITE_PATH", "pathfinder.db"),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		APIToken:        envStr("PATHFINDER_API_TOKEN", ""),
		QuestionsFile:   envStr("PATHFINDER_QUESTIONS_FILE", ""),
		FragmentDelay:   envDuration("PATHFINDER_FRAGMENT_DELAY", time.Second),
		SessionTTL:      envDuration("PATHFINDER_SESSION_TTL", time.Hour),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
