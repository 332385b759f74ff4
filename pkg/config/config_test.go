package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithPath_Defaults(t *testing.T) {
	cfg, err := LoadWithPath(writeEnvFile(t, "APP_NAME=pricing-test\n"))
	require.NoError(t, err)

	assert.Equal(t, "pricing-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "listing_db", cfg.ListingDatabase.DBName)
	assert.Equal(t, 2*time.Minute, cfg.Pricing.CacheTTL)
	assert.Equal(t, 366, cfg.Pricing.MaxRangeDays)
	assert.Equal(t, 20.0, cfg.Pricing.RateLimitRPS)
	assert.Equal(t, 40, cfg.Pricing.RateLimitBurst)
	assert.Equal(t, time.Minute, cfg.Worker.ScanInterval)
	assert.Equal(t, "UTC", cfg.Worker.Timezone)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.UsesMemoryRepository())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadWithPath_Overrides(t *testing.T) {
	cfg, err := LoadWithPath(writeEnvFile(t, `
SERVER_PORT=9090
REPOSITORY_DRIVER=MEMORY
KAFKA_BROKERS=a:9092, b:9092
PRICING_MAX_RANGE_DAYS=31
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.UsesMemoryRepository())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 31, cfg.Pricing.MaxRangeDays)
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:        AppConfig{Name: "x", Environment: "development"},
			Server:     ServerConfig{Port: 8080},
			JWT:        JWTConfig{Secret: "s"},
			Pricing:    PricingConfig{MaxRangeDays: 10},
			Worker:     WorkerConfig{ScanInterval: time.Second},
			Repository: RepositoryConfig{Driver: "postgres"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, true},
		{"zero range", func(c *Config) { c.Pricing.MaxRangeDays = 0 }, true},
		{"negative rate limit", func(c *Config) { c.Pricing.RateLimitRPS = -1 }, true},
		{"zero scan interval", func(c *Config) { c.Worker.ScanInterval = 0 }, true},
		{"unknown timezone", func(c *Config) { c.Worker.Timezone = "Mars/Olympus" }, true},
		{"unknown driver", func(c *Config) { c.Repository.Driver = "sqlite" }, true},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
