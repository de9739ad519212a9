package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Reconcile.UndatedAsEnded)
	assert.Equal(t, 5*time.Second, cfg.Booking.TxTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BOOKING_TX_TIMEOUT", "750ms")
	t.Setenv("RECONCILE_UNDATED_AS_ENDED", "false")
	t.Setenv("JWT_EXPIRES_IN", "60")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Booking.TxTimeout)
	assert.False(t, cfg.Reconcile.UndatedAsEnded)
	assert.Equal(t, time.Minute, cfg.JWT.JWTExpiresIn)
	assert.Equal(t, 0, cfg.Redis.DB)
}
