// Package config loads the service configuration from an optional YAML file
// and the process environment. Credentials are never compiled in.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen        string       `yaml:"listen"`
	DatabaseURL   string       `yaml:"database_url"`
	SessionSecret string       `yaml:"session_secret"`
	StaticDir     string       `yaml:"static_dir"`
	LogLevel      string       `yaml:"log_level"`
	Gemini        GeminiConfig `yaml:"gemini"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		Listen:    ":8084",
		StaticDir: "./static",
		LogLevel:  "info",
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HANDOVER_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("HANDOVER_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("HANDOVER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// API_KEY is still honoured for older deployments.
	if v := os.Getenv("API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
}

// SyncEnabled reports whether a shared record store is configured. Without
// one the service runs local-only.
func (c Config) SyncEnabled() bool {
	return c.DatabaseURL != ""
}
