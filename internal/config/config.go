package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-based configuration for teamchat.
type Config struct {
	// Base URL of the REST backend, e.g. http://localhost:8000.
	ServerURL string `env:"TEAMCHAT_SERVER_URL" envDefault:"http://localhost:8000"`

	// Account credentials. Used whenever the cached session token is
	// missing or expired.
	Email    string `env:"TEAMCHAT_EMAIL"`
	Password string `env:"TEAMCHAT_PASSWORD"`

	// Channel to open on startup. Empty selects the first channel in the
	// workspace.
	Channel string `env:"TEAMCHAT_CHANNEL"`

	// Device name this client identifies as. Defaults to system hostname.
	DeviceName string `env:"DEVICE_NAME"`

	// RealtimeEnabled controls whether the push channel is opened at all.
	// The persisted per-user preference can still turn it off.
	RealtimeEnabled bool `env:"TEAMCHAT_REALTIME" envDefault:"true"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// configFileEnv names an optional YAML file whose keys mirror the env
// variables (lowercased). Values from the file never override variables
// already set in the environment.
const configFileEnv = "TEAMCHAT_CONFIG"

// Load reads configuration from the environment. It first attempts to
// load a .env file if present, then applies the optional YAML config
// file, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if path := os.Getenv(configFileEnv); path != "" {
		if err := applyConfigFile(path); err != nil {
			return nil, fmt.Errorf("applying config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DeviceName == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "teamchat"
		}

		cfg.DeviceName = hostname
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyConfigFile reads a YAML file of scalar values and exports each as
// an environment variable unless that variable is already set. This keeps
// a single precedence order: process env > config file > defaults.
func applyConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	for key, value := range values {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}

		if err := os.Setenv(name, value); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("TEAMCHAT_SERVER_URL is required")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TEAMCHAT_SERVER_URL must be an http(s) URL, got %q", c.ServerURL)
	}

	if c.Email == "" {
		return fmt.Errorf("TEAMCHAT_EMAIL is required")
	}

	if c.Password == "" {
		return fmt.Errorf("TEAMCHAT_PASSWORD is required")
	}

	return nil
}

// RealtimeURL derives the websocket base URL from the server URL.
func (c *Config) RealtimeURL() string {
	if strings.HasPrefix(c.ServerURL, "https://") {
		return "wss://" + strings.TrimPrefix(c.ServerURL, "https://")
	}

	return "ws://" + strings.TrimPrefix(c.ServerURL, "http://")
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
