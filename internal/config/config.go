package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Terminal  TerminalConfig  `yaml:"terminal" toml:"terminal"`
	Client    ClientConfig    `yaml:"client" toml:"client"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string   `envconfig:"PORT" yaml:"port" toml:"port"`
	Host         string   `envconfig:"HOST" yaml:"host" toml:"host"`
	AllowOrigins []string `envconfig:"CORS_ORIGINS" yaml:"allow_origins" toml:"allow_origins"`
}

// TerminalConfig holds the remote shell settings.
type TerminalConfig struct {
	Shell      string   `envconfig:"WEBTERM_SHELL" yaml:"shell" toml:"shell"`
	WorkingDir string   `envconfig:"WEBTERM_WORKDIR" yaml:"working_dir" toml:"working_dir"`
	Term       string   `envconfig:"WEBTERM_TERM" yaml:"term" toml:"term"`
	TokenTTL   Duration `envconfig:"WEBTERM_TOKEN_TTL" yaml:"token_ttl" toml:"token_ttl"`
}

// ClientConfig holds the terminal client settings.
type ClientConfig struct {
	URL              string   `envconfig:"WEBTERM_URL" yaml:"url" toml:"url"`
	Mode             string   `envconfig:"WEBTERM_MODE" yaml:"mode" toml:"mode"`
	Rows             int      `envconfig:"WEBTERM_ROWS" yaml:"rows" toml:"rows"`
	Cols             int      `envconfig:"WEBTERM_COLS" yaml:"cols" toml:"cols"`
	Content          string   `envconfig:"WEBTERM_CONTENT" yaml:"content" toml:"content"`
	HandshakeTimeout Duration `envconfig:"WEBTERM_HANDSHAKE_TIMEOUT" yaml:"handshake_timeout" toml:"handshake_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Duration is a time.Duration that decodes from strings like "5m" in
// environment variables and profile files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load loads the defaults overlaid with environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the defaults, overlays the profile at path (YAML or TOML by
// extension) when path is not empty, then overlays environment variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Host:         "127.0.0.1",
			AllowOrigins: []string{"*"},
		},
		Terminal: TerminalConfig{
			Term:     "dumb",
			TokenTTL: Duration(5 * time.Minute),
		},
		Client: ClientConfig{
			URL:              "http://127.0.0.1:8000",
			Mode:             "rpc",
			Rows:             24,
			Cols:             80,
			Content:          "sanitized",
			HandshakeTimeout: Duration(10 * time.Second),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			Enabled:           true,
		},
	}
}
