package rsessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNamespace(t *testing.T) {
	assert.Equal(t, "rs:", Config{}.normalize().Namespace)
	assert.Equal(t, "myapp:", Config{Namespace: "myapp"}.normalize().Namespace)
	// Already-suffixed namespaces do not double up.
	assert.Equal(t, "myapp:", Config{Namespace: "myapp:"}.normalize().Namespace)
}

func TestNormalizeFloorsAndDefaults(t *testing.T) {
	cfg := Config{
		WipeInterval: time.Second,
		WipeBatch:    -1,
		CacheSize:    0,
	}.normalize()

	assert.Equal(t, 10*time.Second, cfg.WipeInterval)
	assert.Equal(t, 500, cfg.WipeBatch)
	assert.Equal(t, 10000, cfg.CacheSize)
	assert.Equal(t, 1, cfg.RetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)

	// Zero wipe interval stays zero: the sweeper is disabled, not floored.
	assert.Equal(t, time.Duration(0), Config{}.normalize().WipeInterval)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis://127.0.0.1:6379/0", cfg.RedisURL)
	assert.Equal(t, "rs", cfg.Namespace)
	assert.Equal(t, 600*time.Second, cfg.WipeInterval)
	assert.Equal(t, 500, cfg.WipeBatch)
	assert.Equal(t, time.Duration(0), cfg.CacheTime)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("RSESS_REDIS_URL", "redis://:secret@redis.internal:6380/2")
	t.Setenv("RSESS_NAMESPACE", "prod")
	t.Setenv("RSESS_WIPE_INTERVAL", "30s")
	t.Setenv("RSESS_CACHE_TIME", "15s")
	t.Setenv("RSESS_CACHE_SIZE", "2048")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis://:secret@redis.internal:6380/2", cfg.RedisURL)
	assert.Equal(t, "prod", cfg.Namespace)
	assert.Equal(t, 30*time.Second, cfg.WipeInterval)
	assert.Equal(t, 15*time.Second, cfg.CacheTime)
	assert.Equal(t, 2048, cfg.CacheSize)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	t.Setenv("RSESS_WIPE_INTERVAL", "not-a-duration")

	_, err := LoadConfig()
	require.Error(t, err)
}
