// Package config loads the server configuration from defaults, an optional
// config file and QIDO_ prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/caio-sobreiro/dicomweb/errors"
)

// EnvPrefix prefixes every environment variable, e.g. QIDO_SERVER_ADDRESS.
const EnvPrefix = "QIDO"

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Query   QueryConfig   `mapstructure:"query"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	IndexPath    string `mapstructure:"index_path"`
	MetadataPath string `mapstructure:"metadata_path"`
}

type QueryConfig struct {
	// MaxConcurrentFetches caps metadata fetches per request; 0 means one
	// per match.
	MaxConcurrentFetches int `mapstructure:"max_concurrent_fetches"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("storage.index_path", "qido-index.db")
	v.SetDefault("storage.metadata_path", "qido-metadata.db")

	v.SetDefault("query.max_concurrent_fetches", 0)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// NewViper builds a viper instance with defaults and environment binding.
// configFile is read when not empty; its format follows the extension.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configFile)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("config: server.address is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("config: server timeouts cannot be negative")
	}
	if strings.TrimSpace(c.Storage.IndexPath) == "" {
		return errors.New("config: storage.index_path is required")
	}
	if strings.TrimSpace(c.Storage.MetadataPath) == "" {
		return errors.New("config: storage.metadata_path is required")
	}
	if c.Query.MaxConcurrentFetches < 0 {
		return errors.WithHint(errors.New("config: query.max_concurrent_fetches cannot be negative"), "use 0 for no limit")
	}
	return nil
}
