package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the config file.
const (
	EnvURL      = "YAAN_URL"
	EnvHost     = "YAAN_HOST"
	EnvPort     = "YAAN_PORT"
	EnvLogLevel = "YAAN_LOG_LEVEL"
	EnvLogFile  = "YAAN_LOG_FILE"
)

type Config struct {
	Client ClientConfig `yaml:"client" toml:"client"`
	UI     UIConfig     `yaml:"ui" toml:"ui"`
	Log    LogConfig    `yaml:"log" toml:"log"`
	Server ServerConfig `yaml:"server" toml:"server"`
}

type ClientConfig struct {
	URL        string        `yaml:"url" toml:"url"`
	ReadLimit  int64         `yaml:"read_limit" toml:"read_limit"`
	CloseGrace time.Duration `yaml:"close_grace" toml:"close_grace"`
}

type UIConfig struct {
	Markdown        bool   `yaml:"markdown" toml:"markdown"`
	MarkdownStyle   string `yaml:"markdown_style" toml:"markdown_style"`
	TimestampFormat string `yaml:"timestamp_format" toml:"timestamp_format"`
	Plain           bool   `yaml:"plain" toml:"plain"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

type ServerConfig struct {
	Host           string   `yaml:"host" toml:"host"`
	Port           int      `yaml:"port" toml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	UserName       string   `yaml:"user_name" toml:"user_name"`
	MaxConnections int      `yaml:"max_connections" toml:"max_connections"`
}

func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			URL:        "ws://localhost:8000/ws",
			ReadLimit:  1 << 20,
			CloseGrace: 5 * time.Second,
		},
		UI: UIConfig{
			Markdown:        true,
			MarkdownStyle:   "dark",
			TimestampFormat: "15:04:05",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			UserName:       "User",
			MaxConnections: 64,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "yaan", "config.yaml")
}

// Load reads a YAML or TOML (by extension) config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvURL); v != "" {
		c.Client.URL = v
	}
	if v := getenv(EnvHost); v != "" {
		c.Server.Host = v
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
	return nil
}

// Validate checks the fields both commands depend on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.URL)
	if err != nil {
		return fmt.Errorf("client.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("client.url: missing host")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Client.ReadLimit < 0 {
		return fmt.Errorf("client.read_limit: must not be negative")
	}
	return nil
}

// Addr is the listen address of the reference server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
