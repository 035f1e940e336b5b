// Package config loads the client configuration. The REST base URL and the
// GraphQL endpoint are both required at startup; everything else has a
// sensible default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	defaultPreviewAddr = "127.0.0.1:0"
	defaultConcurrency = 0 // unbounded
	defaultLingerSecs  = 3
)

// Config is the client configuration.
type Config struct {
	ServerURL  string `mapstructure:"server_url"`  // REST base URL (required)
	GraphQLURL string `mapstructure:"graphql_url"` // GraphQL endpoint (required)
	Token      string `mapstructure:"token"`       // bearer credential; empty means unauthenticated

	DownloadDir string `mapstructure:"download_dir"`
	CachePath   string `mapstructure:"cache_path"`
	PreviewAddr string `mapstructure:"preview_addr"`

	UploadConcurrency int `mapstructure:"upload_concurrency"` // 0 = unbounded
	LingerSeconds     int `mapstructure:"linger_seconds"`     // completed-task visibility delay
}

// SetDefaults installs the optional-field defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("download_dir", filepath.Join(home, "Downloads"))
	v.SetDefault("cache_path", filepath.Join(home, ".vault", "cache.db"))
	v.SetDefault("preview_addr", defaultPreviewAddr)
	v.SetDefault("upload_concurrency", defaultConcurrency)
	v.SetDefault("linger_seconds", defaultLingerSecs)
}

// Load extracts and validates the configuration from a viper instance that
// has already read its sources.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads a YAML config file at path and validates it.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("VAULT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return Load(v)
}

// Validate checks the invariants of a loaded configuration.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.GraphQLURL == "" {
		return fmt.Errorf("graphql_url is required")
	}
	if c.UploadConcurrency < 0 {
		return fmt.Errorf("upload_concurrency must not be negative")
	}
	if c.LingerSeconds <= 0 {
		return fmt.Errorf("linger_seconds must be greater than 0")
	}
	return nil
}
