package config

import (
	"testing"
	"time"

	"github.com/fjod/go_order/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendSQLite, cfg.CartBackend)
	assert.Equal(t, domain.PaymentCard, cfg.DefaultPayment)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.OutboxEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CART_BACKEND", "Mongo")
	t.Setenv("DEFAULT_PAYMENT_METHOD", "cash")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("CHECKOUT_TIMEOUT", "2m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OUTBOX_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, BackendMongo, cfg.CartBackend)
	assert.Equal(t, domain.PaymentCash, cfg.DefaultPayment)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.CheckoutTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.OutboxEnabled)
	assert.Equal(t, 6543, cfg.DBPort)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown payment method", "DEFAULT_PAYMENT_METHOD", "barter"},
		{"unknown backend", "CART_BACKEND", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "five")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
