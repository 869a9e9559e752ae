package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN            string
	Environment      string
	CalendarBaseURL  string
	CalendarAPIKey   string
	CalendarTimezone string
	CalendarTimeout  time.Duration
	RequestExpiry    time.Duration
	SweepInterval    time.Duration
}

func Load() (*Config, error) {
	// Load .env when present, otherwise fall back to the environment
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:            os.Getenv("DB_DSN"),
		Environment:      os.Getenv("ENV"),
		CalendarBaseURL:  os.Getenv("CALENDAR_BASE_URL"),
		CalendarAPIKey:   os.Getenv("CALENDAR_API_KEY"),
		CalendarTimezone: os.Getenv("CALENDAR_TIMEZONE"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.CalendarTimezone == "" {
		cfg.CalendarTimezone = "Asia/Jakarta"
	}

	cfg.CalendarTimeout = time.Duration(envInt("CALENDAR_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.RequestExpiry = time.Duration(envInt("REQUEST_EXPIRY_HOURS", 48)) * time.Hour
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 60)) * time.Minute

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.CalendarBaseURL == "" {
		return nil, fmt.Errorf("CALENDAR_BASE_URL is required but not set")
	}
	if _, err := time.LoadLocation(cfg.CalendarTimezone); err != nil {
		return nil, fmt.Errorf("invalid CALENDAR_TIMEZONE %q: %w", cfg.CalendarTimezone, err)
	}

	return cfg, nil
}

// Location resolves the configured institutional timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.CalendarTimezone)
	if err != nil {
		// Validated in Load
		return time.UTC
	}
	return loc
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return v
}
