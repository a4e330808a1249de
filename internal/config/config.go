package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	defaultEnv      = "development"
	defaultDBPath   = "./dev.db"
	defaultPort     = "8080"
	defaultLogLevel = "info"
	defaultCurrency = "AUD"
	defaultLocale   = "en-AU"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	DBPath        string
	Port          string
	LogLevel      string
	Currency      string
	Locale        string
	// PriceListPolicy is the width policy used for price lists when a request
	// does not name one. Empty means every request must choose explicitly.
	PriceListPolicy string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// A missing .env is fine; production injects real environment variables.
	_ = godotenv.Load(".env")

	return Config{
		Env:             strings.ToLower(getenv("APP_ENV", defaultEnv)),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		DBPath:          getenv("DB_PATH", defaultDBPath),
		Port:            getenv("PORT", defaultPort),
		LogLevel:        getenv("LOG_LEVEL", defaultLogLevel),
		Currency:        strings.ToUpper(getenv("CURRENCY", defaultCurrency)),
		Locale:          getenv("LOCALE", defaultLocale),
		PriceListPolicy: strings.ToLower(strings.TrimSpace(os.Getenv("PRICE_LIST_POLICY"))),
	}
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == defaultEnv
}

// Warn logs missing settings that the service can run without.
func (c Config) Warn(logger *zap.Logger) {
	if c.AdminEmail == "" {
		logger.Warn("ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD is not set")
	}
	if c.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is not set")
	}
	if c.PriceListPolicy == "" {
		logger.Info("PRICE_LIST_POLICY is not set; price list requests must pass a policy")
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
