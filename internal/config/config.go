package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shop-ledger/internal/core"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	// Storage
	StoreBackend string
	DatabaseURL  string
	SQLitePath   string
	RemoteURL    string
	RemoteToken  string

	// HTTP server
	ServerPort     string
	AllowedOrigins string
	JWTSecret      string

	// AI
	OpenAIAPIKey string
	OpenAIModel  string

	// Messaging
	KafkaBrokers  []string
	KafkaTopic    string
	RabbitMQURL   string
	ReminderQueue string

	// Reminders and printing
	DefaultCountryCode string
	Shop               core.ShopProfile
	ReminderTemplate   string
	ShopID             string

	CacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the environment. Callers load .env with godotenv first.
func Load() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	config := &Config{
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "shop-ledger.db"),
		RemoteURL:          strings.TrimRight(getEnv("REMOTE_URL", ""), "/"),
		RemoteToken:        getEnv("REMOTE_TOKEN", ""),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "ledger-events"),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		ReminderQueue:      getEnv("REMINDER_QUEUE", "invoice-reminders"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "94"),
		Shop: core.ShopProfile{
			Name:    getEnv("SHOP_NAME", "Computer Shop"),
			Phone:   getEnv("SHOP_PHONE", ""),
			Address: getEnv("SHOP_ADDRESS", ""),
			Website: getEnv("SHOP_WEBSITE", ""),
		},
		ReminderTemplate: getEnv("REMINDER_TEMPLATE", core.DefaultReminderTemplate),
		ShopID:           getEnv("SHOP_ID", ""),
		CacheTTL:         ttl,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendRemote:
		if c.RemoteURL == "" {
			return fmt.Errorf("REMOTE_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of sqlite, postgres, remote (got %q)", c.StoreBackend)
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("SERVER_PORT must be numeric (got %q)", c.ServerPort)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if strings.Trim(c.DefaultCountryCode, "0123456789") != "" {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE must be digits only (got %q)", c.DefaultCountryCode)
	}
	return nil
}

// RequireServer checks the settings only the HTTP server needs.
func (c *Config) RequireServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.StoreBackend == BackendRemote {
		return fmt.Errorf("the server cannot use the remote backend")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
