package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Tokens
	RefreshTokenTTL time.Duration

	// Quote cache
	PriceCacheTTL time.Duration
	TickerNameTTL time.Duration

	// Finnhub
	FinnhubAPIKey   string
	FinnhubExchange string

	// Startup backfill of ticker display names
	EnableTickerBackfill bool

	// Directory saved portfolio CSVs are written to
	ExportDir string

	// Advisor
	AdvisorAPIURL string
	AdvisorAPIKey string
	AdvisorModel  string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "stockfolio"),
		DBPassword: getEnv("DB_PASSWORD", "stockfolio"),
		DBName:     getEnv("DB_NAME", "stockfolio"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		FinnhubAPIKey:   getEnv("FINNHUB_API_KEY", ""),
		FinnhubExchange: getEnv("FINNHUB_SYMBOLS_EXCHANGE", "US"),

		EnableTickerBackfill: getEnvBool("ENABLE_TICKER_BACKFILL", false),

		ExportDir: getEnv("EXPORT_DIR", "exports"),

		AdvisorAPIURL: getEnv("ADVISOR_API_URL", ""),
		AdvisorAPIKey: getEnv("ADVISOR_API_KEY", ""),
		AdvisorModel:  getEnv("ADVISOR_MODEL", "gpt-4o-mini"),
	}

	config.RefreshTokenTTL = time.Duration(getEnvInt("TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour
	config.PriceCacheTTL = time.Duration(getEnvInt("PRICE_CACHE_TTL_SECONDS", 600)) * time.Second
	config.TickerNameTTL = time.Duration(getEnvInt("TICKER_NAME_TTL_DAYS", 30)) * 24 * time.Hour

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %v\n", key, value, defaultValue)
		return defaultValue
	}
	return b
}
