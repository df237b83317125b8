package config

import (
	"testing"
	"time"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", "key")
	t.Setenv("SHOPIFY_API_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.HostURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsEmbedded)
	assert.Equal(t, StoreMongo, cfg.SessionStore)
	assert.Equal(t, "offline", cfg.AccessMode)
	assert.Equal(t, domain.BillingIntervalOneTime, cfg.Billing.Interval)
	assert.False(t, cfg.Billing.Required)
	assert.True(t, cfg.Billing.Test)
	assert.Equal(t, 10*time.Minute, cfg.BillingCacheTTL)
	assert.Equal(t, []byte("secret"), cfg.CookieKey)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HOST", "https://app.example.com/")
	t.Setenv("SCOPES", "read_products, write_orders,,")
	t.Setenv("EMBEDDED_APP", "false")
	t.Setenv("SESSION_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	t.Setenv("BILLING_REQUIRED", "true")
	t.Setenv("BILLING_INTERVAL", "ANNUAL")
	t.Setenv("BILLING_AMOUNT", "19.99")
	t.Setenv("BILLING_CACHE_TTL", "30s")
	t.Setenv("SESSION_COOKIE_KEY", "cookie-key")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.HostURL)
	assert.Equal(t, []string{"read_products", "write_orders"}, cfg.Scopes)
	assert.Equal(t, "read_products,write_orders", cfg.DefaultScopes())
	assert.False(t, cfg.IsEmbedded)
	assert.Equal(t, StorePostgres, cfg.SessionStore)
	assert.True(t, cfg.Billing.Required)
	assert.Equal(t, domain.BillingIntervalAnnual, cfg.Billing.Interval)
	assert.InDelta(t, 19.99, cfg.Billing.Amount, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.BillingCacheTTL)
	assert.Equal(t, []byte("cookie-key"), cfg.CookieKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing api key":      {"SHOPIFY_API_KEY": ""},
		"bad access mode":      {"SESSION_ACCESS_MODE": "per-user"},
		"unknown store":        {"SESSION_STORE": "sqlite"},
		"postgres without url": {"SESSION_STORE": "postgres"},
		"bad interval":         {"BILLING_INTERVAL": "WEEKLY"},
		"bad bool":             {"BILLING_REQUIRED": "maybe"},
		"bad duration":         {"BILLING_CACHE_TTL": "soon"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(zerolog.Nop())
			assert.Error(t, err)
		})
	}
}
