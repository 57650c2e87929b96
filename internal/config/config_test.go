package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 72, cfg.GuestCartTTL)
	assert.Equal(t, 30, cfg.SelectionTTL)
	assert.Equal(t, "http://localhost:8003", cfg.CartAPIURL)
	assert.Empty(t, cfg.JWTSecret)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, 50, cfg.RateLimitRPS)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("GUEST_CART_TTL_HOURS", "24")
	t.Setenv("CART_API_URL", "https://cart.internal")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 24, cfg.GuestCartTTL)
	assert.Equal(t, "https://cart.internal", cfg.CartAPIURL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	require.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidTTL(t *testing.T) {
	t.Setenv("GUEST_CART_TTL_HOURS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guest cart TTL")
}
