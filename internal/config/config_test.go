package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/edushare")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_ACCESS_EXPIRY", "1h")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_PUBLIC_USE_SSL", "not-a-bool")
	t.Setenv("DB_MAX_OPEN_CONNS", "10")
	t.Setenv("DB_MAX_IDLE_CONNS", "many")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTAccessExpiry)
	assert.True(t, cfg.MinIOUseSSL)
	assert.True(t, cfg.MinIOPublicUseSSL)
	assert.Equal(t, "edushare-covers", cfg.MinIOBucket)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, 5, cfg.DBMaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "JWT_SECRET")

	cfg = &Config{DatabaseURL: "postgres://db", JWTSecret: "s", DBMaxOpenConns: 2, DBMaxIdleConns: 4}
	assert.ErrorContains(t, cfg.Validate(), "DB_MAX_IDLE_CONNS")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Environment: "production", LogLevel: "debug"})
	assert.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger(&Config{Environment: "development", LogLevel: "bogus"})
	assert.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(ctx, &Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())

	_, err = NewRedisClient(ctx, &Config{RedisURL: "not a url"})
	assert.ErrorContains(t, err, "REDIS_URL")

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(ctx, &Config{RedisURL: "redis://" + addr})
	assert.ErrorContains(t, err, "ping redis")
}
