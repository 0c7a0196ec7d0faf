package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Trust    TrustConfig       `mapstructure:"trust"`
	Sink     SinkConfig        `mapstructure:"sink"`
	Delivery DeliveryConfig    `mapstructure:"delivery"`
	Vault    VaultConfig       `mapstructure:"vault"`
	Sync     SyncConfig        `mapstructure:"sync"`
	Idem     IdempotencyConfig `mapstructure:"idempotency"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Database DatabaseConfig    `mapstructure:"database"`
	NATS     NATSConfig        `mapstructure:"nats"`
	Policy   PolicyConfig      `mapstructure:"policy"`
	DLQ      DLQConfig         `mapstructure:"dlq"`
	Auth     AuthConfig        `mapstructure:"auth"`
	Audit    AuditConfig       `mapstructure:"audit"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Logging  LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type TrustConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SinkConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Apps lists the destination app IDs every event fans out to. When
	// empty, the apps named in the policy profiles file are used.
	Apps []string `mapstructure:"apps"`
}

type DeliveryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BaseInterval time.Duration `mapstructure:"base_interval"`
}

type VaultConfig struct {
	// Key is the hex-encoded 32-byte encryption key, normally provided via
	// FLUXGATE_VAULT_KEY. It is validated lazily at first vault use, not
	// at startup.
	Key string `mapstructure:"key"`
	// Backend selects the session store: "memory" or "postgres".
	Backend string `mapstructure:"backend"`
}

type SyncConfig struct {
	BatchSize       int     `mapstructure:"batch_size"`
	ProviderRateRPS float64 `mapstructure:"provider_rate_rps"`
	// Providers maps provider name to the base URL of its connector API.
	Providers map[string]string `mapstructure:"providers"`
	Timeout   time.Duration     `mapstructure:"timeout"`
}

type IdempotencyConfig struct {
	Backend string        `mapstructure:"backend"` // "memory" or "redis"
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds a pgx-compatible connection string.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type PolicyConfig struct {
	ProfilesPath string `mapstructure:"profiles_path"`
}

type DLQConfig struct {
	Backend        string        `mapstructure:"backend"` // "memory" or "postgres"
	ReplayInterval time.Duration `mapstructure:"replay_interval"`
	ReplayBatch    int           `mapstructure:"replay_batch"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type AuditConfig struct {
	SigningKey string `mapstructure:"signing_key"`
}

type MetricsConfig struct {
	Window time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	QueueSize int    `mapstructure:"queue_size"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8092)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("trust.url", "http://localhost:8095")
	v.SetDefault("trust.timeout", "5s")
	v.SetDefault("sink.url", "http://localhost:8099")
	v.SetDefault("sink.timeout", "10s")
	v.SetDefault("delivery.max_attempts", 3)
	v.SetDefault("delivery.base_interval", "100ms")
	v.SetDefault("sync.batch_size", 5)
	v.SetDefault("sync.provider_rate_rps", 10.0)
	v.SetDefault("sync.timeout", "15s")
	v.SetDefault("idempotency.backend", "memory")
	v.SetDefault("idempotency.ttl", "5m")
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "fluxgate")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "fluxgate")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("policy.profiles_path", "profiles.yaml")
	// Secrets default to empty so the matching FLUXGATE_* environment
	// variables bind without a config file entry.
	v.SetDefault("vault.key", "")
	v.SetDefault("vault.backend", "memory")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("audit.signing_key", "")
	v.SetDefault("dlq.backend", "memory")
	v.SetDefault("dlq.replay_interval", "1m")
	v.SetDefault("dlq.replay_batch", 50)
	v.SetDefault("metrics.window", "5m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.queue_size", 1024)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fluxgate")
	}

	// Environment variables override
	v.SetEnvPrefix("FLUXGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
