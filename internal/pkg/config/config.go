package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfiguration is returned when a required setting is missing or malformed.
var ErrConfiguration = errors.New("configuration error")

// Config represents the application configuration
// All stages receive their settings from here; nothing else reads the environment.
type Config struct {
	Market    MarketConfig
	Database  DatabaseConfig
	Artifact  ArtifactConfig
	Predictor PredictorConfig
	Logging   LoggingConfig
	Schedule  ScheduleConfig
	Server    ServerConfig
}

type MarketConfig struct {
	APIKey      string
	BaseURL     string
	Symbol      string
	OutputSize  string
	Timeout     time.Duration
	MaxRetries  int
	RetryWait   time.Duration
	DisplayName string
}

type DatabaseConfig struct {
	URL              string
	Table            string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

type ArtifactConfig struct {
	Path string
}

type PredictorConfig struct {
	PctThreshold float64
}

type LoggingConfig struct {
	Level         string
	Format        string
	FileEnabled   bool
	FilePath      string
	RotationSize  int
	RetentionDays int
}

type ScheduleConfig struct {
	Cron string
}

// ServerConfig configures the read-only HTTP API (trendcast serve)
type ServerConfig struct {
	Port        string
	Mode        string // gin mode: debug, release, test
	CORSOrigins []string
}

// Load loads configuration from env files and the process environment.
// With no files it reads .env, and a missing .env is not an error.
// Variables already set in the process win over file values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	var errs []string

	timeout, err := getDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	retryWait, err := getDuration("FETCH_RETRY_WAIT", 2*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	retries, err := getInt("FETCH_MAX_RETRIES", 0)
	if err != nil {
		errs = append(errs, err.Error())
	}
	connectTimeout, err := getDuration("DB_CONNECT_TIMEOUT", 5*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	stmtTimeout, err := getDuration("DB_STATEMENT_TIMEOUT", 60*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	threshold, err := getFloat("PCT_THRESHOLD", 0.1)
	if err != nil {
		errs = append(errs, err.Error())
	}
	rotation, err := getInt("LOG_ROTATION_MB", 100)
	if err != nil {
		errs = append(errs, err.Error())
	}
	retention, err := getInt("LOG_RETENTION_DAYS", 14)
	if err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(errs, "; "))
	}

	cfg := &Config{
		Market: MarketConfig{
			APIKey:      getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:     getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			Symbol:      getEnv("SYMBOL", "AAPL"),
			OutputSize:  getEnv("ALPHA_VANTAGE_OUTPUT_SIZE", "full"),
			Timeout:     timeout,
			MaxRetries:  retries,
			RetryWait:   retryWait,
			DisplayName: getEnv("SYMBOL_NAME", "Apple"),
		},
		Database: DatabaseConfig{
			URL:              getEnv("DB_URI", getEnv("DATABASE_URL", "")),
			Table:            getEnv("PRICE_TABLE", "apple_stock"),
			MaxConns:         4,
			MinConns:         1,
			MaxConnLifetime:  1 * time.Hour,
			MaxConnIdleTime:  30 * time.Minute,
			ConnectTimeout:   connectTimeout,
			StatementTimeout: stmtTimeout,
		},
		Artifact: ArtifactConfig{
			Path: getEnv("ARTIFACT_PATH", "Data/apple_stock_data.csv"),
		},
		Predictor: PredictorConfig{
			PctThreshold: threshold,
		},
		Logging: LoggingConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "pretty"),
			FileEnabled:   getEnv("LOG_FILE_ENABLED", "false") == "true",
			FilePath:      getEnv("LOG_PATH", "logs"),
			RotationSize:  rotation,
			RetentionDays: retention,
		},
		Schedule: ScheduleConfig{
			Cron: getEnv("SCHEDULE_CRON", "0 30 18 * * 1-5"),
		},
		Server: ServerConfig{
			Port:        getEnv("PORT", "8099"),
			Mode:        getEnv("GIN_MODE", "release"),
			CORSOrigins: getList("CORS_ORIGINS", []string{"*"}),
		},
	}

	return cfg, nil
}

// Validate checks the settings a full pipeline run depends on.
func (c *Config) Validate() error {
	return c.require(c.marketMissing(), c.databaseMissing())
}

// ValidateMarket checks only what the fetch stage needs
func (c *Config) ValidateMarket() error {
	return c.require(c.marketMissing(), nil)
}

// ValidateDatabase checks only what the upload and predict stages need
func (c *Config) ValidateDatabase() error {
	return c.require(nil, c.databaseMissing())
}

func (c *Config) marketMissing() []string {
	var missing []string
	if c.Market.APIKey == "" {
		missing = append(missing, "ALPHA_VANTAGE_API_KEY")
	}
	if c.Market.Symbol == "" {
		missing = append(missing, "SYMBOL")
	}
	if c.Artifact.Path == "" {
		missing = append(missing, "ARTIFACT_PATH")
	}
	return missing
}

func (c *Config) databaseMissing() []string {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DB_URI")
	}
	if c.Database.Table == "" {
		missing = append(missing, "PRICE_TABLE")
	}
	return missing
}

func (c *Config) require(market, database []string) error {
	missing := append(market, database...)
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	if c.Predictor.PctThreshold < 0 {
		return fmt.Errorf("%w: PCT_THRESHOLD must not be negative", ErrConfiguration)
	}
	return nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return f, nil
}

// getList splits a comma separated value, dropping empty items
func getList(key string, fallback []string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
