package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"giftrank/database"
	"giftrank/period"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr              string
	CronSecret            string // Bearer token required on the sync trigger in production
	CheckoutRatePerMinute float64

	// Civil timezone used for every month boundary
	CivilTimezone string

	// Square configuration
	SquareAccessToken   string
	SquareLocationID    string
	SquareApplicationID string
	SquareEnvironment   string // "production" or "sandbox"
	SquareDryRun        bool
	SquareRatePerSecond float64
	SiteURL             string

	// Sync configuration
	SyncInterval         time.Duration // 0 disables the in-process worker
	SyncLookback         time.Duration // watermark fallback when the ledger is empty
	SyncRecomputeWorkers int

	// NATS configuration
	NATSServers string // comma-separated; empty disables publishing

	// Discord notification configuration
	DiscordToken     string
	DiscordChannelID string

	// OpenTelemetry configuration
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging configuration
	LogLevel string
	LogFile  string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// SetForTesting replaces the global configuration
func SetForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UseDryRunGateway reports whether Square calls should be skipped
func (c *Config) UseDryRunGateway() bool {
	return c.SquareDryRun ||
		c.SquareAccessToken == "" ||
		c.SquareLocationID == "" ||
		c.SquareApplicationID == ""
}

// NewTestConfig returns a configuration suitable for tests
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:                 ":0",
		CheckoutRatePerMinute:    600,
		CivilTimezone:            period.DefaultTimezone,
		SquareEnvironment:        "sandbox",
		SquareDryRun:             true,
		SquareRatePerSecond:      5,
		SiteURL:                  "http://localhost:3000",
		SyncLookback:             24 * time.Hour,
		SyncRecomputeWorkers:     2,
		OTelServiceName:          "giftrank",
		OTelExporterType:         "none",
		OTelExportIntervalMillis: 60000,
		LogLevel:                 "debug",
		Environment:              "test",
	}
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// HTTP
		HTTPAddr:              getEnvWithDefault("HTTP_ADDR", ":8080"),
		CronSecret:            os.Getenv("CRON_SECRET"),
		CheckoutRatePerMinute: 30,

		CivilTimezone: getEnvWithDefault("CIVIL_TIMEZONE", period.DefaultTimezone),

		// Square
		SquareAccessToken:   os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareLocationID:    os.Getenv("SQUARE_LOCATION_ID"),
		SquareApplicationID: os.Getenv("SQUARE_APPLICATION_ID"),
		SquareEnvironment:   "sandbox",
		SquareDryRun:        os.Getenv("SQUARE_DRY_RUN") == "true",
		SquareRatePerSecond: 5,
		SiteURL:             getEnvWithDefault("SITE_URL", "http://localhost:3000"),

		// Sync
		SyncLookback:         24 * time.Hour,
		SyncRecomputeWorkers: 4,

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Discord
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// OpenTelemetry
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "giftrank"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 60000,

		// Logging
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if os.Getenv("SQUARE_ENV") == "production" {
		config.SquareEnvironment = "production"
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("SQUARE_RATE_PER_SECOND"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			config.SquareRatePerSecond = parsed
		}
	}
	if v := os.Getenv("CHECKOUT_RATE_PER_MINUTE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			config.CheckoutRatePerMinute = parsed
		}
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
		}
		config.SyncInterval = parsed
	}
	if v := os.Getenv("SYNC_LOOKBACK"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SYNC_LOOKBACK: %w", err)
		}
		config.SyncLookback = parsed
	}
	if v := os.Getenv("SYNC_RECOMPUTE_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.SyncRecomputeWorkers = parsed
		}
	}
	if v := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if _, err := period.NewClock(config.CivilTimezone); err != nil {
		return nil, fmt.Errorf("invalid CIVIL_TIMEZONE: %w", err)
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.IsProduction() && config.CronSecret == "" {
			return nil, fmt.Errorf("CRON_SECRET is required in production")
		}
	}

	return config, nil
}

// ParseNATSServers splits the comma-separated server list
func (c *Config) ParseNATSServers() []string {
	var servers []string
	for _, s := range strings.Split(c.NATSServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
