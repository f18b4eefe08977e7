package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Nav      NavConfig
	Pricing  PricingConfig
	Log      LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds ledger-database configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// NavConfig holds the NAV generator settings. These were deliberately made
// explicit constructor inputs instead of package globals so tests can run
// with different thresholds side by side.
type NavConfig struct {
	CacheDir          string  // directory for persisted NAV series
	RenewalMinutes    int     // cache freshness window
	MinPortfolioSize  float64 // dust threshold: below this, daily returns are forced to 0
	ReportingCurrency string
	DefaultUser       string // user the background refresher regenerates
	RefreshSchedule   string // cron spec for the background refresher, empty disables
}

// RenewalTTL returns the cache freshness window as a duration.
func (c NavConfig) RenewalTTL() time.Duration {
	return time.Duration(c.RenewalMinutes) * time.Minute
}

// PricingConfig holds market-data provider settings.
type PricingConfig struct {
	BaseURL     string
	KeyFile     string // fernet-encrypted API key store
	KeySecret   string // fernet key used to decrypt KeyFile
	CallTimeout time.Duration
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Nav: NavConfig{
			CacheDir:          getEnv("NAV_CACHE_DIR", "./data/nav_data"),
			RenewalMinutes:    getEnvInt("NAV_RENEW_MINUTES", 10),
			MinPortfolioSize:  getEnvFloat("NAV_MIN_PORTFOLIO_SIZE", 5),
			ReportingCurrency: getEnv("REPORTING_CURRENCY", "USD"),
			DefaultUser:       getEnv("DEFAULT_USER", ""),
			RefreshSchedule:   getEnv("NAV_REFRESH_SCHEDULE", ""),
		},
		Pricing: PricingConfig{
			BaseURL:     getEnv("PRICE_API_URL", "https://min-api.cryptocompare.com"),
			KeyFile:     getEnv("PRICE_API_KEYFILE", "./data/api_keys.enc"),
			KeySecret:   getEnv("PRICE_API_KEYSECRET", ""),
			CallTimeout: time.Duration(getEnvInt("PRICE_CALL_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnv("LOG_PRETTY", "false") == "true",
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value.
// Non-numeric values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloat gets a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
