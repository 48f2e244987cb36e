package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "qido-index.db", cfg.Storage.IndexPath)
	assert.Equal(t, "qido-metadata.db", cfg.Storage.MetadataPath)
	assert.Equal(t, 0, cfg.Query.MaxConcurrentFetches)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("QIDO_SERVER_ADDRESS", "127.0.0.1:9000")
	t.Setenv("QIDO_SERVER_READ_TIMEOUT", "5s")
	t.Setenv("QIDO_QUERY_MAX_CONCURRENT_FETCHES", "8")
	t.Setenv("QIDO_LOG_JSON", "true")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 8, cfg.Query.MaxConcurrentFetches)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qido.yaml")
	content := `
server:
  address: ":9090"
  write_timeout: 2m
storage:
  index_path: /var/lib/qido/index.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "/var/lib/qido/index.db", cfg.Storage.IndexPath)
	assert.Equal(t, "qido-metadata.db", cfg.Storage.MetadataPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestNewViper_MissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Address: ":8080"},
			Storage: StorageConfig{IndexPath: "i.db", MetadataPath: "m.db"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = " " }},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }},
		{"missing index", func(c *Config) { c.Storage.IndexPath = "" }},
		{"missing metadata", func(c *Config) { c.Storage.MetadataPath = "" }},
		{"negative fetches", func(c *Config) { c.Query.MaxConcurrentFetches = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.NoError(t, cfg.Validate())
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
