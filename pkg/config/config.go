package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-before-going-live"

// Config holds all application configuration
type Config struct {
	App             AppConfig        `mapstructure:"app"`
	Server          ServerConfig     `mapstructure:"server"`
	ListingDatabase DatabaseConfig   `mapstructure:"listing_database"`
	Redis           RedisConfig      `mapstructure:"redis"`
	Kafka           KafkaConfig      `mapstructure:"kafka"`
	JWT             JWTConfig        `mapstructure:"jwt"`
	OTel            OTelConfig       `mapstructure:"otel"`
	Pricing         PricingConfig    `mapstructure:"pricing"`
	Worker          WorkerConfig     `mapstructure:"worker"`
	Repository      RepositoryConfig `mapstructure:"repository"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
	// Topic receives calendar and moderation change events
	Topic string `mapstructure:"topic"`
}

// JWTConfig holds JWT verification settings
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
	ServiceName    string  `mapstructure:"service_name"`
	CollectorAddr  string  `mapstructure:"collector_addr"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// PricingConfig holds evaluator-facing settings
type PricingConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	MaxRangeDays int           `mapstructure:"max_range_days"`
	// RateLimitRPS caps public quote requests per client IP; 0 disables the limiter
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// WorkerConfig holds deal expiry worker settings
type WorkerConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	// Timezone decides which calendar day a deal ends on
	Timezone string `mapstructure:"timezone"`
}

// RepositoryConfig selects the storage backend
type RepositoryConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// .env is optional, environment variables still apply
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "wedding-market")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Listing Database
	v.SetDefault("LISTING_DATABASE_HOST", "localhost")
	v.SetDefault("LISTING_DATABASE_PORT", 5432)
	v.SetDefault("LISTING_DATABASE_USER", "postgres")
	v.SetDefault("LISTING_DATABASE_PASSWORD", "postgres")
	v.SetDefault("LISTING_DATABASE_DBNAME", "listing_db")
	v.SetDefault("LISTING_DATABASE_SSLMODE", "disable")
	v.SetDefault("LISTING_DATABASE_MAX_OPEN_CONNS", 50)
	v.SetDefault("LISTING_DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("LISTING_DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("LISTING_DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "wedding-market")
	v.SetDefault("KAFKA_TOPIC", "listing-events")

	// JWT defaults
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "wedding-market")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_METRICS_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "wedding-market")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Pricing defaults
	v.SetDefault("PRICING_CACHE_TTL", "2m")
	v.SetDefault("PRICING_MAX_RANGE_DAYS", 366)
	v.SetDefault("PRICING_RATE_LIMIT_RPS", 20)
	v.SetDefault("PRICING_RATE_LIMIT_BURST", 40)

	// Worker defaults
	v.SetDefault("WORKER_SCAN_INTERVAL", "1m")
	v.SetDefault("WORKER_BATCH_SIZE", 200)
	v.SetDefault("WORKER_TIMEZONE", "UTC")

	v.SetDefault("REPOSITORY_DRIVER", "postgres")
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	// Listing Database
	cfg.ListingDatabase.Host = v.GetString("LISTING_DATABASE_HOST")
	cfg.ListingDatabase.Port = v.GetInt("LISTING_DATABASE_PORT")
	cfg.ListingDatabase.User = v.GetString("LISTING_DATABASE_USER")
	cfg.ListingDatabase.Password = v.GetString("LISTING_DATABASE_PASSWORD")
	cfg.ListingDatabase.DBName = v.GetString("LISTING_DATABASE_DBNAME")
	cfg.ListingDatabase.SSLMode = v.GetString("LISTING_DATABASE_SSLMODE")
	cfg.ListingDatabase.MaxOpenConns = v.GetInt("LISTING_DATABASE_MAX_OPEN_CONNS")
	cfg.ListingDatabase.MaxIdleConns = v.GetInt("LISTING_DATABASE_MAX_IDLE_CONNS")
	cfg.ListingDatabase.ConnMaxLifetime = v.GetDuration("LISTING_DATABASE_CONN_MAX_LIFETIME")
	cfg.ListingDatabase.ConnMaxIdleTime = v.GetDuration("LISTING_DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")

	// JWT
	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.MetricsEnabled = v.GetBool("OTEL_METRICS_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Pricing
	cfg.Pricing.CacheTTL = v.GetDuration("PRICING_CACHE_TTL")
	cfg.Pricing.MaxRangeDays = v.GetInt("PRICING_MAX_RANGE_DAYS")
	cfg.Pricing.RateLimitRPS = v.GetFloat64("PRICING_RATE_LIMIT_RPS")
	cfg.Pricing.RateLimitBurst = v.GetInt("PRICING_RATE_LIMIT_BURST")

	// Worker
	cfg.Worker.ScanInterval = v.GetDuration("WORKER_SCAN_INTERVAL")
	cfg.Worker.BatchSize = v.GetInt("WORKER_BATCH_SIZE")
	cfg.Worker.Timezone = v.GetString("WORKER_TIMEZONE")

	cfg.Repository.Driver = strings.ToLower(v.GetString("REPOSITORY_DRIVER"))

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}

	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return errors.New("JWT secret must be changed in production")
	}

	if c.Pricing.MaxRangeDays <= 0 {
		return fmt.Errorf("invalid PRICING_MAX_RANGE_DAYS: %d", c.Pricing.MaxRangeDays)
	}

	if c.Pricing.RateLimitRPS < 0 {
		return fmt.Errorf("invalid PRICING_RATE_LIMIT_RPS: %v", c.Pricing.RateLimitRPS)
	}

	if c.Worker.ScanInterval <= 0 {
		return fmt.Errorf("invalid WORKER_SCAN_INTERVAL: %s", c.Worker.ScanInterval)
	}

	if _, err := time.LoadLocation(c.Worker.Timezone); err != nil {
		return fmt.Errorf("invalid WORKER_TIMEZONE: %w", err)
	}

	switch c.Repository.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown REPOSITORY_DRIVER: %q", c.Repository.Driver)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when Kafka is enabled")
	}

	return nil
}

// ValidateListingDatabase validates listing database configuration
func (c *Config) ValidateListingDatabase() error {
	if c.ListingDatabase.Host == "" {
		return errors.New("LISTING_DATABASE_HOST is required")
	}
	if c.ListingDatabase.DBName == "" {
		return errors.New("LISTING_DATABASE_DBNAME is required")
	}
	return nil
}

// UsesMemoryRepository reports whether the in-memory store is selected
func (c *Config) UsesMemoryRepository() bool {
	return c.Repository.Driver == "memory"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
