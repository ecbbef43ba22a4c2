package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration. Values come from an optional YAML
// file, then the environment, then flags.
type Config struct {
	Backend     string `yaml:"backend"`
	GatewayURL  string `yaml:"gateway_url"`
	RedisURL    string `yaml:"redis_url"`
	SessionFile string `yaml:"session_file"`
	LogLevel    string `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Backend:    "gateway",
		GatewayURL: "http://localhost:8081",
		RedisURL:   "redis://localhost:6379/0",
		LogLevel:   "warn",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	config.Backend = getEnv("POMOROOM_BACKEND", config.Backend)
	config.GatewayURL = getEnv("POMOROOM_GATEWAY_URL", config.GatewayURL)
	config.RedisURL = getEnv("REDIS_URL", config.RedisURL)
	config.SessionFile = getEnv("POMOROOM_SESSION_FILE", config.SessionFile)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	return config, config.validate()
}

func (c Config) validate() error {
	switch c.Backend {
	case "gateway", "postgres", "redis", "memory":
	default:
		return fmt.Errorf("unknown backend %q (want gateway, postgres, redis or memory)", c.Backend)
	}
	if c.Backend == "gateway" && c.GatewayURL == "" {
		return fmt.Errorf("gateway_url is required for the gateway backend")
	}
	if c.Backend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("redis_url is required for the redis backend")
	}
	return nil
}
