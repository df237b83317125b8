// Package config loads the app settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"archie-core-shopify-app/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// Config is the process configuration
type Config struct {
	APIKey       string
	APISecret    string
	OldAPISecret string
	Scopes       []string
	HostURL      string
	APIVersion   string
	IsEmbedded   bool
	Port         string
	AccessMode   string
	FrontendDir  string

	// ExpiringOfflineTokens asks token exchange for offline tokens with a refresh token
	ExpiringOfflineTokens bool
	CookieKey             []byte

	SessionStore  string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	RedisURL      string

	Billing         domain.BillingConfig
	BillingCacheTTL time.Duration

	// PlatformRateLimit is requests per second per shop, 0 disables limiting
	PlatformRateLimit float64
	PlatformRateBurst int
}

// Load reads .env when present and then the process environment
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg := &Config{
		APIKey:        os.Getenv("SHOPIFY_API_KEY"),
		APISecret:     os.Getenv("SHOPIFY_API_SECRET"),
		OldAPISecret:  os.Getenv("SHOPIFY_OLD_API_SECRET"),
		Scopes:        splitScopes(os.Getenv("SCOPES")),
		HostURL:       strings.TrimRight(getEnv("HOST", "http://localhost:8080"), "/"),
		APIVersion:    getEnv("SHOPIFY_API_VERSION", "2025-10"),
		Port:          getEnv("PORT", "8080"),
		AccessMode:    getEnv("SESSION_ACCESS_MODE", "offline"),
		FrontendDir:   getEnv("FRONTEND_DIR", "./frontend/dist"),
		SessionStore:  getEnv("SESSION_STORE", StoreMongo),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "shopify_app"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		CookieKey:     []byte(os.Getenv("SESSION_COOKIE_KEY")),
		Billing: domain.BillingConfig{
			ChargeName:   getEnv("BILLING_CHARGE_NAME", "My Shopify One-Time Charge"),
			CurrencyCode: getEnv("BILLING_CURRENCY", "USD"),
			Interval:     domain.BillingInterval(getEnv("BILLING_INTERVAL", string(domain.BillingIntervalOneTime))),
		},
	}

	var err error
	if cfg.IsEmbedded, err = getBool("EMBEDDED_APP", true); err != nil {
		return nil, err
	}
	if cfg.ExpiringOfflineTokens, err = getBool("SHOPIFY_EXPIRING_OFFLINE_TOKENS", false); err != nil {
		return nil, err
	}
	if cfg.Billing.Required, err = getBool("BILLING_REQUIRED", false); err != nil {
		return nil, err
	}
	if cfg.Billing.Test, err = getBool("BILLING_TEST", true); err != nil {
		return nil, err
	}
	if cfg.Billing.Amount, err = getFloat("BILLING_AMOUNT", 5.0); err != nil {
		return nil, err
	}
	if cfg.BillingCacheTTL, err = getDuration("BILLING_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PlatformRateLimit, err = getFloat("PLATFORM_RATE_LIMIT", 2); err != nil {
		return nil, err
	}
	if cfg.PlatformRateBurst, err = getInt("PLATFORM_RATE_BURST", 40); err != nil {
		return nil, err
	}

	if len(cfg.CookieKey) == 0 {
		cfg.CookieKey = []byte(cfg.APISecret)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("SHOPIFY_API_KEY environment variable is required")
	}
	if c.APISecret == "" {
		return errors.New("SHOPIFY_API_SECRET environment variable is required")
	}
	if _, err := domain.ParseAccessMode(c.AccessMode); err != nil {
		return fmt.Errorf("SESSION_ACCESS_MODE: %w", err)
	}

	switch c.SessionStore {
	case StoreMongo:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreMongo, StorePostgres, c.SessionStore)
	}

	switch c.Billing.Interval {
	case domain.BillingIntervalOneTime, domain.BillingIntervalEvery30Days, domain.BillingIntervalAnnual:
	default:
		return fmt.Errorf("BILLING_INTERVAL %q is not supported", c.Billing.Interval)
	}
	return nil
}

// DefaultScopes is the scope string stored on sessions whose grant carried none
func (c *Config) DefaultScopes() string {
	return strings.Join(c.Scopes, ",")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
