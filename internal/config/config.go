// Package config loads service settings from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort             = "3000"
	defaultGRPCPort         = "50051"
	defaultEnvironment      = "development"
	defaultDBDriver         = "memory"
	defaultSQLiteFile       = "golf-outing.db"
	defaultNATSSubject      = "outing.events"
	defaultMetricsPort      = "9090"
	defaultRetryAttempts    = 3
	defaultHandicapInterval = 5 * time.Minute
)

// Config holds every runtime setting.
type Config struct {
	Port        string
	GRPCPort    string
	Environment string

	DBDriver    string
	SQLiteFile  string
	DatabaseURL string
	SeedFile    string

	Roster     RosterConfig
	NATS       NATSConfig
	ClickHouse ClickHouseConfig
	Metrics    MetricsConfig

	// AllocationSeed fixes the foursome shuffle when set.
	AllocationSeed *uint64
}

// RosterConfig points the session at a remote roster store.
type RosterConfig struct {
	URL           string
	ClientID      string
	ClientSecret  string
	TokenURL      string
	RetryAttempts int
}

// NATSConfig selects an external NATS server. An empty URL uses an embedded
// server in development and local fan-out elsewhere.
type NATSConfig struct {
	URL     string
	Subject string
}

// ClickHouseConfig enables the handicap sync job when Addr is set.
type ClickHouseConfig struct {
	Addr         string
	Database     string
	Username     string
	Password     string
	SyncInterval time.Duration
}

// MetricsConfig controls telemetry export settings.
type MetricsConfig struct {
	Enabled      bool
	Port         string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Load reads the environment.
func Load() Config {
	cfg := Config{
		Port:        envOrDefault("PORT", defaultPort),
		GRPCPort:    envOrDefault("GRPC_PORT", defaultGRPCPort),
		Environment: envOrDefault("ENVIRONMENT", defaultEnvironment),
		DBDriver:    strings.ToLower(envOrDefault("DB_DRIVER", defaultDBDriver)),
		SQLiteFile:  envOrDefault("SQLITE_FILE", defaultSQLiteFile),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SeedFile:    os.Getenv("SEED_FILE"),
		Roster: RosterConfig{
			URL:           strings.TrimRight(os.Getenv("ROSTER_URL"), "/"),
			ClientID:      os.Getenv("ROSTER_CLIENT_ID"),
			ClientSecret:  os.Getenv("ROSTER_CLIENT_SECRET"),
			TokenURL:      os.Getenv("ROSTER_TOKEN_URL"),
			RetryAttempts: intEnvOrDefault("ROSTER_RETRY_ATTEMPTS", defaultRetryAttempts),
		},
		NATS: NATSConfig{
			URL:     os.Getenv("NATS_URL"),
			Subject: envOrDefault("NATS_SUBJECT", defaultNATSSubject),
		},
		ClickHouse: ClickHouseConfig{
			Addr:         os.Getenv("CLICKHOUSE_ADDR"),
			Database:     envOrDefault("CLICKHOUSE_DB", "default"),
			Username:     envOrDefault("CLICKHOUSE_USER", "default"),
			Password:     os.Getenv("CLICKHOUSE_PASSWORD"),
			SyncInterval: durationEnvOrDefault("HANDICAP_SYNC_INTERVAL", defaultHandicapInterval),
		},
		Metrics: MetricsConfig{
			Enabled:      boolEnvOrDefault("METRICS_ENABLED", true),
			Port:         envOrDefault("METRICS_PORT", defaultMetricsPort),
			OtlpEndpoint: os.Getenv("OTLP_ENDPOINT"),
			OtlpInsecure: boolEnvOrDefault("OTLP_INSECURE", true),
		},
	}

	if raw := strings.TrimSpace(os.Getenv("ALLOCATION_SEED")); raw != "" {
		if seed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.AllocationSeed = &seed
		}
	}
	return cfg
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// RosterAuthEnabled reports whether roster requests need a client
// credentials token.
func (c RosterConfig) RosterAuthEnabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

func envOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func durationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func intEnvOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return defaultValue
	}
	return val
}

func boolEnvOrDefault(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultValue
	}
}
