package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "WATCHER_RECONNECT_DELAY", "WATCHER_MAX_ATTEMPTS", "SIGNATURE_DEDUP_TTL", "VERIFY_RATE_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.WatcherReconnectDelay)
	assert.Equal(t, 0, cfg.WatcherMaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.SignatureDedupTTL)
	assert.Equal(t, 30, cfg.VerifyRateLimit)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("WATCHER_RECONNECT_DELAY", "250ms")
	t.Setenv("WATCHER_MAX_ATTEMPTS", "4")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 250*time.Millisecond, cfg.WatcherReconnectDelay)
	assert.Equal(t, 4, cfg.WatcherMaxAttempts)
}
