package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gdrive "github.com/Abhishekdank1254/gdrive-downloader"
)

// EnvAPIKey is the environment variable consulted when no API key is set
// through a flag or config file.
const EnvAPIKey = "GDRIVE_APIKEY"

// Config defines configuration for the gdrive-downloader CLI.
type Config struct {
	APIKey    string        `yaml:"apikey"`
	UserAgent string        `yaml:"user_agent"`
	Proxy     string        `yaml:"proxy"`
	Quiet     bool          `yaml:"quiet"`
	ChunkSize int64         `yaml:"-"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		ChunkSize: 32 * 1024,
	}
}

// yamlConfig mirrors Config for unmarshaling, with a human-readable chunk
// size ("32KB", "1MB").
type yamlConfig struct {
	APIKey    string `yaml:"apikey"`
	UserAgent string `yaml:"user_agent"`
	Proxy     string `yaml:"proxy"`
	Quiet     bool   `yaml:"quiet"`
	ChunkSize string `yaml:"chunk_size"`
	Timeout   string `yaml:"timeout"`
}

// Load reads a YAML config file and merges it over the defaults. An empty
// path returns the defaults. The GDRIVE_APIKEY environment variable fills in
// the API key when the file does not set one.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		var yc yamlConfig
		if err := yaml.Unmarshal(data, &yc); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		if yc.APIKey != "" {
			cfg.APIKey = yc.APIKey
		}
		if yc.UserAgent != "" {
			cfg.UserAgent = yc.UserAgent
		}
		if yc.Proxy != "" {
			cfg.Proxy = yc.Proxy
		}
		cfg.Quiet = yc.Quiet
		if yc.Timeout != "" {
			d, err := time.ParseDuration(yc.Timeout)
			if err != nil {
				return cfg, fmt.Errorf("parse config: timeout: %w", err)
			}
			cfg.Timeout = d
		}
		if yc.ChunkSize != "" {
			size, err := gdrive.ParseBytes(yc.ChunkSize)
			if err != nil {
				return cfg, fmt.Errorf("parse config: chunk_size: %w", err)
			}
			cfg.ChunkSize = size
		}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv(EnvAPIKey))
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
