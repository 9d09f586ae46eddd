package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// BackendMemory keeps every store in process memory. Only allowed in development.
	BackendMemory = "memory"
	// BackendPostgres persists stores in PostgreSQL through pgx.
	BackendPostgres = "postgres"
	// BackendMongo persists stores in MongoDB.
	BackendMongo = "mongo"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `envconfig:"APP_NAME" default:"ShifaWallet"`
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	Port           string        `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	Backend        string        `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	MongoURI       string        `envconfig:"MONGO_URI"`
	MongoDatabase  string        `envconfig:"MONGO_DATABASE" default:"shifa"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	KafkaBrokers   []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic     string        `envconfig:"KAFKA_TOPIC" default:"wallet.events"`
	Currency       string        `envconfig:"WALLET_CURRENCY" default:"EGP"`
	AdminTokenHash string        `envconfig:"ADMIN_TOKEN_HASH"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	RechargeLimit  int           `envconfig:"RECHARGE_SUBMISSIONS_PER_HOUR" default:"5"`
	AutoMigrate    bool          `envconfig:"AUTO_MIGRATE" default:"false"`
}

// Load reads an optional .env file and then populates a Config from the environment.
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Backend = strings.ToLower(cfg.Backend)
	cfg.Currency = strings.ToUpper(cfg.Currency)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=%s", c.Backend)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI must be set when STORE_BACKEND=%s", c.Backend)
		}
	case BackendMemory:
		if !c.IsDev() {
			return fmt.Errorf("STORE_BACKEND=%s is only allowed in development", c.Backend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}

	if !c.IsDev() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.ShutdownPeriod <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// IsDev reports whether the service runs in a local/development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
