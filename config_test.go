package redisidentity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 0, cfg.Redis.DB)
	require.Equal(t, 10, cfg.Redis.PoolSize)
	require.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("REDIS_DIAL_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, "secret", cfg.Redis.Password)
	require.Equal(t, 3, cfg.Redis.DB)
	require.Equal(t, 25, cfg.Redis.PoolSize)
	require.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Redis: RedisConfig{Addr: "localhost:6379", PoolSize: 10}}
	require.NoError(t, cfg.Validate())

	cfg.Redis.Addr = ""
	require.ErrorIs(t, cfg.Validate(), ErrInvalidArgument)

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.PoolSize = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidArgument)

	cfg.Redis.PoolSize = 10
	cfg.Redis.DB = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidArgument)
}
