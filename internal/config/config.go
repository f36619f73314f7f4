package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Matching MatchingConfig
	Pricing  PricingConfig
	Tasks    TaskConfig
	Log      LogConfig
	NewRelic NewRelicConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Backend string // postgres or memory
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	RunMigrations bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds task queue configuration. With no brokers, jobs run
// in-process.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	WriteTimeout time.Duration
}

// MatchingConfig holds pooling engine parameters.
type MatchingConfig struct {
	PickupRadiusKm     float64
	DetourKmPerMinute  float64
	RouteSpeedKmPerMin float64
	LockTTL            time.Duration
	LockWait           time.Duration
	LockRetryInterval  time.Duration
	SurgeRadiusKm      float64
	SweepInterval      time.Duration
}

// PricingConfig holds fare parameters.
type PricingConfig struct {
	BaseFare              float64
	RatePerKm             float64
	DetourPenaltyFraction float64
}

// TaskConfig holds background job retry parameters.
type TaskConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// WorkerConfig holds queue consumer process configuration.
type WorkerConfig struct {
	MetricsAddr string
}

var defaults = map[string]any{
	"SERVER_PORT":          "8080",
	"SERVER_READ_TIMEOUT":  10 * time.Second,
	"SERVER_WRITE_TIMEOUT": 10 * time.Second,

	"STORAGE_BACKEND": "postgres",

	"DB_HOST":           "localhost",
	"DB_PORT":           "5432",
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "ridepool",
	"DB_SSLMODE":        "disable",
	"DB_RUN_MIGRATIONS": true,

	"REDIS_ENABLED":  true,
	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"KAFKA_BROKERS":       "",
	"KAFKA_TOPIC":         "ridepool.jobs",
	"KAFKA_GROUP_ID":      "ridepool-workers",
	"KAFKA_WRITE_TIMEOUT": 2 * time.Second,

	"MATCHING_PICKUP_RADIUS_KM":       3.0,
	"MATCHING_DETOUR_KM_PER_MINUTE":   0.5,
	"MATCHING_ROUTE_SPEED_KM_PER_MIN": 0.5,
	"MATCHING_LOCK_TTL":               30 * time.Second,
	"MATCHING_LOCK_WAIT":              30 * time.Second,
	"MATCHING_LOCK_RETRY_INTERVAL":    100 * time.Millisecond,
	"MATCHING_SURGE_RADIUS_KM":        5.0,
	"MATCHING_SWEEP_INTERVAL":         time.Duration(0),

	"PRICING_BASE_FARE":               50.0,
	"PRICING_RATE_PER_KM":             12.0,
	"PRICING_DETOUR_PENALTY_FRACTION": 0.8,

	"TASK_MAX_RETRIES":   3,
	"TASK_RETRY_BACKOFF": 5 * time.Second,

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",

	"NEW_RELIC_APP_NAME":    "ridepool-service",
	"NEW_RELIC_LICENSE_KEY": "",
	"NEW_RELIC_ENABLED":     false,

	"WORKER_METRICS_ADDR": ":2112",
}

// Load reads configuration from the environment, optionally layered over an
// env-format file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		},
		Database: DatabaseConfig{
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			DBName:        v.GetString("DB_NAME"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers:      splitAndTrim(v.GetString("KAFKA_BROKERS")),
			Topic:        v.GetString("KAFKA_TOPIC"),
			GroupID:      v.GetString("KAFKA_GROUP_ID"),
			WriteTimeout: v.GetDuration("KAFKA_WRITE_TIMEOUT"),
		},
		Matching: MatchingConfig{
			PickupRadiusKm:     v.GetFloat64("MATCHING_PICKUP_RADIUS_KM"),
			DetourKmPerMinute:  v.GetFloat64("MATCHING_DETOUR_KM_PER_MINUTE"),
			RouteSpeedKmPerMin: v.GetFloat64("MATCHING_ROUTE_SPEED_KM_PER_MIN"),
			LockTTL:            v.GetDuration("MATCHING_LOCK_TTL"),
			LockWait:           v.GetDuration("MATCHING_LOCK_WAIT"),
			LockRetryInterval:  v.GetDuration("MATCHING_LOCK_RETRY_INTERVAL"),
			SurgeRadiusKm:      v.GetFloat64("MATCHING_SURGE_RADIUS_KM"),
			SweepInterval:      v.GetDuration("MATCHING_SWEEP_INTERVAL"),
		},
		Pricing: PricingConfig{
			BaseFare:              v.GetFloat64("PRICING_BASE_FARE"),
			RatePerKm:             v.GetFloat64("PRICING_RATE_PER_KM"),
			DetourPenaltyFraction: v.GetFloat64("PRICING_DETOUR_PENALTY_FRACTION"),
		},
		Tasks: TaskConfig{
			MaxRetries:   v.GetInt("TASK_MAX_RETRIES"),
			RetryBackoff: v.GetDuration("TASK_RETRY_BACKOFF"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("NEW_RELIC_APP_NAME"),
			LicenseKey: v.GetString("NEW_RELIC_LICENSE_KEY"),
			Enabled:    v.GetBool("NEW_RELIC_ENABLED"),
		},
		Worker: WorkerConfig{
			MetricsAddr: v.GetString("WORKER_METRICS_ADDR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.Backend != "postgres" && c.Storage.Backend != "memory" {
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", c.Storage.Backend))
	}
	if c.Matching.PickupRadiusKm <= 0 {
		errs = append(errs, errors.New("MATCHING_PICKUP_RADIUS_KM must be positive"))
	}
	if c.Matching.DetourKmPerMinute <= 0 {
		errs = append(errs, errors.New("MATCHING_DETOUR_KM_PER_MINUTE must be positive"))
	}
	if c.Matching.LockTTL <= 0 {
		errs = append(errs, errors.New("MATCHING_LOCK_TTL must be positive"))
	}
	if c.Matching.LockWait < 0 {
		errs = append(errs, errors.New("MATCHING_LOCK_WAIT must not be negative"))
	}
	if c.Pricing.BaseFare < 0 || c.Pricing.RatePerKm < 0 {
		errs = append(errs, errors.New("pricing parameters must not be negative"))
	}
	if c.Tasks.MaxRetries < 0 {
		errs = append(errs, errors.New("TASK_MAX_RETRIES must not be negative"))
	}

	return errors.Join(errs...)
}

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
