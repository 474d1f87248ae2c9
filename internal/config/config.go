package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the optional purge configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Safety   SafetyConfig   `toml:"safety"`
}

// DefaultsConfig holds persistent flag defaults. Nil means unset.
type DefaultsConfig struct {
	Jobs       *int  `toml:"jobs"`
	QueueDepth *int  `toml:"queue_depth"`
	Quiet      *bool `toml:"quiet"`
	NoProgress *bool `toml:"no_progress"`
}

// SafetyConfig extends the built-in protected set. Entries may start with ~.
type SafetyConfig struct {
	Protected []string `toml:"protected"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "purge", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the config at path. A missing file is not an
// error.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Defaults.Jobs != nil && *c.Defaults.Jobs < 1 {
		return fmt.Errorf("defaults.jobs must be >= 1 (got %d)", *c.Defaults.Jobs)
	}
	if c.Defaults.QueueDepth != nil && *c.Defaults.QueueDepth < 1 {
		return fmt.Errorf("defaults.queue_depth must be >= 1 (got %d)", *c.Defaults.QueueDepth)
	}
	for _, p := range c.Safety.Protected {
		if !filepath.IsAbs(p) && !strings.HasPrefix(p, "~") {
			return fmt.Errorf("safety.protected entry %q must be absolute or start with ~", p)
		}
	}
	return nil
}
