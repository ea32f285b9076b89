package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "9020", cfg.Port)
	assert.Equal(t, 0.85, cfg.DedupThreshold)
	assert.Equal(t, 256, cfg.QueryCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.QueryCacheTTL)
	assert.False(t, cfg.ConsumerEnabled)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.Equal(t, 2, cfg.DBMinConns)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DEDUP_THRESHOLD", "0.9")
	t.Setenv("CONSUMER_ENABLED", "true")
	t.Setenv("QUERY_CACHE_TTL", "90s")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25, cfg.DBMaxConns)
	assert.Equal(t, 0.9, cfg.DedupThreshold)
	assert.True(t, cfg.ConsumerEnabled)
	assert.Equal(t, 90*time.Second, cfg.QueryCacheTTL)
}

func TestLoad_SecretFromFile(t *testing.T) {
	path := t.TempDir() + "/db_password"
	if err := os.WriteFile(path, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	t.Setenv("DB_PASSWORD_FILE", path)

	cfg := Load()
	assert.Equal(t, "s3cret", cfg.DBPassword)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("DEDUP_THRESHOLD", "not-a-number")
	t.Setenv("QUERY_CACHE_SIZE", "oops")

	cfg := Load()

	assert.Equal(t, 0.85, cfg.DedupThreshold)
	assert.Equal(t, 256, cfg.QueryCacheSize)
}
