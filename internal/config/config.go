// Package config loads the settings shared by the g2p commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ieee0824/g2p-go/decoder"
)

// Config represents the application configuration
type Config struct {
	// Model settings
	Model struct {
		Path   string `yaml:"path"`
		Format string `yaml:"format"` // binary, text or auto
	} `yaml:"model"`

	// Decoder settings
	Decoder struct {
		NBest         int      `yaml:"nbest"`
		SkipSymbols   []string `yaml:"skip_symbols"`
		MaxStates     int      `yaml:"max_states"`
		MaxIterations int      `yaml:"max_iterations"`
		Unique        bool     `yaml:"unique"`
	} `yaml:"decoder"`

	// Cache settings; an empty path disables the cache
	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	// Server settings
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Environment variables read by ApplyEnv.
const (
	EnvModel    = "G2P_MODEL"
	EnvNBest    = "G2P_NBEST"
	EnvCache    = "G2P_CACHE"
	EnvPort     = "G2P_PORT"
	EnvLogLevel = "G2P_LOG_LEVEL"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	dec := decoder.DefaultConfig()

	cfg.Model.Path = ""
	cfg.Model.Format = "auto"

	cfg.Decoder.NBest = dec.NBest
	cfg.Decoder.SkipSymbols = dec.SkipSymbols
	cfg.Decoder.MaxStates = dec.MaxStates
	cfg.Decoder.MaxIterations = dec.MaxIterations
	cfg.Decoder.Unique = dec.Unique

	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080

	cfg.Log.Level = "warn"
	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.g2prc > /etc/g2p/config.yaml > defaults
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigPath := filepath.Join(homeDir, ".g2prc")
		if _, err := os.Stat(userConfigPath); err == nil {
			if cfg, err := Load(userConfigPath); err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/g2p/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		if cfg, err := Load(systemConfigPath); err == nil {
			return cfg, nil
		}
	}

	return DefaultConfig(), nil
}

// ApplyEnv overrides settings from the environment after loading an
// optional .env file from the working directory.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()

	if v := os.Getenv(EnvModel); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv(EnvCache); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvNBest); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvNBest, v, err)
		}
		c.Decoder.NBest = n
	}
	if v := os.Getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvPort, v, err)
		}
		c.Server.Port = p
	}
	return c.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Model.Format {
	case "auto", "binary", "text":
	default:
		return fmt.Errorf("unknown model format %q", c.Model.Format)
	}
	if c.Decoder.NBest < 1 {
		return fmt.Errorf("decoder.nbest must be positive, got %d", c.Decoder.NBest)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// DecoderConfig returns the decoder parameters.
func (c *Config) DecoderConfig() decoder.Config {
	return decoder.Config{
		NBest:         c.Decoder.NBest,
		SkipSymbols:   c.Decoder.SkipSymbols,
		MaxStates:     c.Decoder.MaxStates,
		MaxIterations: c.Decoder.MaxIterations,
		Unique:        c.Decoder.Unique,
	}
}

// Addr returns the listen address of the HTTP service.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
