package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultSourceURL = "https://services.utdallas.edu/transit/garages/_code.php"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceURL       string
	FetchMode       string
	ChromeBin       string
	FetchTimeoutSec int

	DataDir  string
	ChartDir string

	Timezone         string
	DayStartHour     int
	DayEndHour       int
	DayIntervalSec   int
	NightIntervalSec int
	KeepUnlabeled    bool

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	MetricsAddr string
	Debug       bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SourceURL:       getEnv("SOURCE_URL", DefaultSourceURL),
		FetchMode:       strings.ToLower(getEnv("FETCH_MODE", "http")),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SEC", 30),

		DataDir:  getEnv("DATA_DIR", "./data"),
		ChartDir: getEnv("CHART_DIR", "./charts"),

		Timezone:         getEnv("TIMEZONE", "America/Chicago"),
		DayStartHour:     getEnvInt("DAY_START_HOUR", 7),
		DayEndHour:       getEnvInt("DAY_END_HOUR", 18),
		DayIntervalSec:   getEnvInt("DAY_INTERVAL_SEC", 30),
		NightIntervalSec: getEnvInt("NIGHT_INTERVAL_SEC", 3600),
		KeepUnlabeled:    getEnvBool("KEEP_UNLABELED", true),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "parking_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		Debug:       getEnvBool("LOG_DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Location resolves Timezone. An unknown zone falls back to the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
