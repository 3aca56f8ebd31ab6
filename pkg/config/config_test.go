package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, "index.complete", cfg.Kafka.Topics.IndexComplete)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
store:
  driver: sqlite
  sqlitePath: /tmp/idx.db
  pushdown: true
search:
  defaultLimit: 20
  maxLimit: 50
redis:
  cacheTTL: 2m
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("SP_SEARCH_MAX_LIMIT", "75")
	t.Setenv("SP_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/idx.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.Store.Pushdown)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 75, cfg.Search.MaxLimit)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.True(t, cfg.Redis.Enabled)
	// untouched sections keep their defaults
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, true},
		{"sqlite without path", func(c *Config) {
			c.Store.Driver = DriverSQLite
			c.Store.SQLitePath = ""
		}, true},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }, true},
		{"max below default", func(c *Config) { c.Search.MaxLimit = 5 }, true},
		{"uncapped", func(c *Config) { c.Search.MaxLimit = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
