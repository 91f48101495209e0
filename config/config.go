package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // SCHEDULER_TIMEZONE must resolve in slim containers

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Store backend: "postgres" or "memory"
	StoreBackend string

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisEnabled  bool
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Logging configuration
	LogLevel  string
	LogFormat string

	// MetricsAddr serves /metrics; empty disables it
	MetricsAddr string

	Market    MarketConfig
	Scheduler SchedulerConfig
	Source    SourceConfig
	Alert     AlertConfig
}

// MarketConfig holds market analysis parameters
type MarketConfig struct {
	MinProductCount int
	// ServeStale returns yesterday's analysis while today's is regenerated in the background
	ServeStale bool
}

// SchedulerConfig holds the daily hot-product sweep parameters
type SchedulerConfig struct {
	Enabled    bool
	RunHour    int
	RunMinute  int
	Timezone   string
	Workers    int
	TopN       int
	RunOnStart bool
	// AlertFailureRatio raises an alert when more than this share of categories fail
	AlertFailureRatio float64
}

// SourceConfig holds resilience settings for upstream aggregate queries
type SourceConfig struct {
	QueryTimeout    time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
}

// AlertConfig holds the webhook that receives sweep failure alerts
type AlertConfig struct {
	// WebhookURL empty disables delivery; alerts are still logged
	WebhookURL string
	AuthHeader string
	AuthValue  string
	RetryCount int
	RetryDelay time.Duration
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	return &Config{
		StoreBackend: getEnvOrDefault("STORE_BACKEND", "postgres"),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "flashsell"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "flashsell"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "flashsell"),

		// Redis configuration
		RedisEnabled:  getEnvOrDefault("REDIS_ENABLED", "true") == "true",
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		MetricsAddr: getEnvOrDefault("METRICS_ADDR", ":9090"),

		Market: MarketConfig{
			MinProductCount: getEnvInt("MARKET_MIN_PRODUCT_COUNT", 10),
			ServeStale:      getEnvOrDefault("MARKET_SERVE_STALE", "false") == "true",
		},

		Scheduler: SchedulerConfig{
			Enabled:           getEnvOrDefault("SCHEDULER_ENABLED", "true") == "true",
			RunHour:           getEnvInt("SCHEDULER_RUN_HOUR", 2),
			RunMinute:         getEnvInt("SCHEDULER_RUN_MINUTE", 0),
			Timezone:          getEnvOrDefault("SCHEDULER_TIMEZONE", "UTC"),
			Workers:           getEnvInt("SCHEDULER_WORKERS", 8),
			TopN:              getEnvInt("SCHEDULER_TOP_N", 20),
			RunOnStart:        getEnvOrDefault("SCHEDULER_RUN_ON_START", "false") == "true",
			AlertFailureRatio: getEnvFloat("SCHEDULER_ALERT_FAILURE_RATIO", 0.5),
		},

		Source: SourceConfig{
			QueryTimeout:    getEnvDuration("SOURCE_QUERY_TIMEOUT", 10*time.Second),
			BreakerFailures: uint32(getEnvInt("SOURCE_BREAKER_FAILURES", 5)),
			BreakerOpenFor:  getEnvDuration("SOURCE_BREAKER_OPEN_FOR", 30*time.Second),
			RateLimitPerSec: getEnvFloat("SOURCE_RATE_LIMIT", 50),
			RateLimitBurst:  getEnvInt("SOURCE_RATE_BURST", 10),
		},

		Alert: AlertConfig{
			WebhookURL: getEnvOrDefault("ALERT_WEBHOOK_URL", ""),
			AuthHeader: getEnvOrDefault("ALERT_WEBHOOK_AUTH_HEADER", ""),
			AuthValue:  getEnvOrDefault("ALERT_WEBHOOK_AUTH_VALUE", ""),
			RetryCount: getEnvInt("ALERT_WEBHOOK_RETRIES", 3),
			RetryDelay: getEnvDuration("ALERT_WEBHOOK_RETRY_DELAY", 5*time.Second),
		},
	}
}

// Location resolves the scheduler timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvDuration gets environment variable as time.Duration ("10s", "1m") or returns default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
