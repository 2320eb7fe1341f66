// Package config handles CLI configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration. Values here are fallbacks:
// explicit flags and the SD_SERVER_URL environment variable take precedence.
type Config struct {
	// ServerURL is the sd-server root URL.
	ServerURL string `yaml:"server_url"`
	// Output is the default output path template.
	Output string `yaml:"output"`
	// Timeout is the default request timeout in time.ParseDuration syntax,
	// e.g. "90s" or "5m". Empty means no timeout.
	Timeout string `yaml:"timeout"`
	// Verbose enables verbose output by default.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfigPath returns the default configuration file path for the
// current platform.
//   - macOS/Linux: ~/.sdcli/config.yaml
//   - Windows: %USERPROFILE%\.sdcli\config.yaml
func DefaultConfigPath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		// Fallback to current directory
		return "config.yaml"
	}

	return filepath.Join(homeDir, ".sdcli", "config.yaml")
}

// LoadConfig loads configuration from the specified path.
// If the file doesn't exist, returns an empty config without error.
// Returns an error only if the file exists but cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing config file is not an error
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, fmt.Errorf("invalid timeout in %s: %w", path, err)
	}

	return cfg, nil
}

// TimeoutDuration parses the configured timeout. Empty means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}
