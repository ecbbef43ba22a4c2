package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mcdev12/pomoroom/go/internal/models"
	"gopkg.in/yaml.v3"
)

// Config is the local-only state that survives restarts: the nickname that
// lets a returning user skip nickname entry, and their color.
type Config struct {
	mu       sync.RWMutex
	path     string
	nickname string
	color    string
}

type fileFormat struct {
	Nickname string `yaml:"nickname,omitempty"`
	Color    string `yaml:"color,omitempty"`
}

// DefaultPath returns the session file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "pomoroom", "session.yaml"), nil
}

// Load reads the session file once. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{path: path, color: models.Palette[0]}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	cfg.nickname = f.Nickname
	if f.Color != "" {
		cfg.color = f.Color
	}
	return cfg, nil
}

// InMemory returns a config that is never written to disk.
func InMemory(nickname, color string) *Config {
	if color == "" {
		color = models.Palette[0]
	}
	return &Config{nickname: nickname, color: color}
}

// Nickname returns the saved nickname, empty if none.
func (c *Config) Nickname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

// Color returns the selected color.
func (c *Config) Color() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.color
}

// SetNickname stores and persists the nickname.
func (c *Config) SetNickname(nickname string) error {
	c.mu.Lock()
	c.nickname = nickname
	c.mu.Unlock()
	return c.Save()
}

// SetColor stores and persists the color.
func (c *Config) SetColor(color string) error {
	c.mu.Lock()
	c.color = color
	c.mu.Unlock()
	return c.Save()
}

// Clear forgets nickname and color, as when a user leaves a room.
func (c *Config) Clear() error {
	c.mu.Lock()
	c.nickname = ""
	c.color = models.Palette[0]
	c.mu.Unlock()

	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Save writes the config to its file. In-memory configs are a no-op.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	f := fileFormat{Nickname: c.nickname, Color: c.color}
	c.mu.RUnlock()

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
