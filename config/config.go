// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port           string
	ServiceToken   string
	AllowedOrigins []string

	DBDriver   string // "postgres" | "sqlite"
	DSN        string
	SQLitePath string
	DBLogLevel string

	Timezone      *time.Location
	TxMaxAttempts int

	CatalogSource    string
	BackfillInterval time.Duration

	ObjectStoreEndpoint  string
	ObjectStoreRegion    string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "5200"),
		ServiceToken:  os.Getenv("SERVICE_TOKEN"),
		DBDriver:      strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
		SQLitePath:    getEnvOrDefault("SQLITE_PATH", "./data/progress.db"),
		DBLogLevel:    getEnvOrDefault("DB_LOG_LEVEL", "warn"),
		CatalogSource: os.Getenv("CATALOG_SOURCE"),

		ObjectStoreEndpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
		ObjectStoreRegion:    getEnvOrDefault("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY_ID"),
		ObjectStoreSecretKey: os.Getenv("OBJECT_STORE_SECRET_ACCESS_KEY"),
	}

	origins := getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	cfg.DSN = os.Getenv("DATABASE_URL")
	if cfg.DSN == "" && cfg.DBDriver == "postgres" {
		cfg.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnvOrDefault("DB_HOST", "localhost"),
			getEnvOrDefault("DB_PORT", "5432"),
			getEnvOrDefault("DB_USER", "postgres"),
			getEnvOrDefault("DB_PASSWORD", ""),
			getEnvOrDefault("DB_NAME", "skilltracker"),
			getEnvOrDefault("DB_SSLMODE", "disable"),
		)
	}

	tz := getEnvOrDefault("PROGRESS_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PROGRESS_TIMEZONE %q: %w", tz, err)
	}
	cfg.Timezone = loc

	cfg.TxMaxAttempts, err = strconv.Atoi(getEnvOrDefault("TX_MAX_ATTEMPTS", "5"))
	if err != nil || cfg.TxMaxAttempts < 1 {
		return nil, fmt.Errorf("invalid TX_MAX_ATTEMPTS %q", os.Getenv("TX_MAX_ATTEMPTS"))
	}

	cfg.BackfillInterval, err = time.ParseDuration(getEnvOrDefault("BACKFILL_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKFILL_INTERVAL: %w", err)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
