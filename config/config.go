package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Ledger configuration
	LedgerRPCURL    string
	LedgerWSURL     string
	SignerURL       string
	IssuanceProgram string

	// Watcher configuration
	WatcherReconnectDelay time.Duration
	WatcherMaxAttempts    int
	SignatureDedupTTL     time.Duration

	// Webhook caller authentication
	WebhookHMACKey string

	// Verify endpoint rate limit
	VerifyRateLimit  int
	VerifyRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticket-backend"),

		// Ledger
		LedgerRPCURL:    getEnv("LEDGER_RPC_URL", "http://localhost:8899"),
		LedgerWSURL:     getEnv("LEDGER_WS_URL", "ws://localhost:8900"),
		SignerURL:       getEnv("SIGNER_URL", "http://localhost:7070"),
		IssuanceProgram: getEnv("ISSUANCE_PROGRAM_ID", ""),

		// Watcher. Zero max attempts means retry forever.
		WatcherReconnectDelay: getEnvAsDuration("WATCHER_RECONNECT_DELAY", "5s"),
		WatcherMaxAttempts:    getEnvAsInt("WATCHER_MAX_ATTEMPTS", 0),
		SignatureDedupTTL:     getEnvAsDuration("SIGNATURE_DEDUP_TTL", "10m"),

		// Webhook
		WebhookHMACKey: getEnv("WEBHOOK_HMAC_KEY", ""),

		// Rate limit
		VerifyRateLimit:  getEnvAsInt("VERIFY_RATE_LIMIT", 30),
		VerifyRateWindow: getEnvAsDuration("VERIFY_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
