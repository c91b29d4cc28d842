package config

import (
	"fmt"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/pkg/configparser"
)

// Config contains all configuration variables of the application.
type (
	Config struct {
		HTTP     HTTPConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Redis    RedisConfig
		Kafka    KafkaConfig
		Auth     AuthConfig
		Dispatch DispatchConfig
		Relay    RelayConfig
		Location LocationConfig
		Pricing  PricingConfig

		LogLevel string `env:"LOG_LEVEL" default:"DEBUG"`
	}

	HTTPConfig struct {
		Port            string        `env:"HTTP_PORT" default:"3000"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"kwenda_user"`
		Password string `env:"DATABASE_PASSWORD" default:"kwenda_pass"`
		Database string `env:"DATABASE_DATABASE" default:"kwenda_dispatch"`

		MigrationsDir string `env:"DATABASE_MIGRATIONS_DIR" default:"migrations"`
		Migrate       bool   `env:"DATABASE_MIGRATE" default:"false"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	// Redis backs the optional GEO driver index. Empty Addr selects the
	// in-memory geohash index instead.
	RedisConfig struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		GeoKey   string `env:"REDIS_GEO_KEY" default:"drivers_geo"`
	}

	// Kafka receives the raw location report firehose for analytics.
	// Empty Brokers disables archival.
	KafkaConfig struct {
		Brokers string `env:"KAFKA_BROKERS"`
		Topic   string `env:"KAFKA_TOPIC" default:"driver-locations"`
	}

	AuthConfig struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	DispatchConfig struct {
		InitialRadiusKm float64       `env:"DISPATCH_INITIAL_RADIUS_KM" default:"3"`
		MaxRounds       int           `env:"DISPATCH_MAX_ROUNDS" default:"4"`
		CandidateLimit  int           `env:"DISPATCH_CANDIDATE_LIMIT" default:"10"`
		CoalesceWindow  time.Duration `env:"DISPATCH_COALESCE_WINDOW" default:"10s"`
	}

	RelayConfig struct {
		PollInterval time.Duration `env:"RELAY_POLL_INTERVAL" default:"1s"`
		BatchSize    int           `env:"RELAY_BATCH_SIZE" default:"100"`
	}

	LocationConfig struct {
		FreshnessWindow time.Duration `env:"LOCATION_FRESHNESS_WINDOW" default:"30s"`
	}

	PricingConfig struct {
		CancellationFeePercent float64 `env:"PRICING_CANCELLATION_FEE_PERCENT" default:"10"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// NewConfig loads the YAML file (if present) and the environment into a
// Config.
func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	if err := configparser.LoadAndParse(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
