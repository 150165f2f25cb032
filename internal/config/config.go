// Package config loads the security policy configuration: defaults
// first, then an optional YAML file overlaying them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable security policy for the core.
//
// Units: LockTimeoutMinutes is minutes, MaxBackoffSeconds and
// ClipboardTTLSeconds are seconds.
type Config struct {
	KDFIterations       int `yaml:"kdf_iterations"`
	MaxPINAttempts      int `yaml:"max_pin_attempts"`
	MaxBackoffSeconds   int `yaml:"max_backoff_seconds"`
	LockTimeoutMinutes  int `yaml:"lock_timeout_minutes"`
	ClipboardTTLSeconds int `yaml:"clipboard_ttl_seconds"`
}

// Defaults returns the built-in policy.
func Defaults() Config {
	return Config{
		KDFIterations:       210000,
		MaxPINAttempts:      5,
		MaxBackoffSeconds:   300,
		LockTimeoutMinutes:  5,
		ClipboardTTLSeconds: 30,
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// A missing file is not an error; a malformed or out-of-range file is.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.KDFIterations < 100000 {
		return fmt.Errorf("config: kdf_iterations %d below the 100000 floor", c.KDFIterations)
	}
	if c.MaxPINAttempts < 1 {
		return fmt.Errorf("config: max_pin_attempts must be at least 1, got %d", c.MaxPINAttempts)
	}
	if c.MaxBackoffSeconds < 1 {
		return fmt.Errorf("config: max_backoff_seconds must be at least 1, got %d", c.MaxBackoffSeconds)
	}
	if c.LockTimeoutMinutes < 1 {
		return fmt.Errorf("config: lock_timeout_minutes must be at least 1, got %d", c.LockTimeoutMinutes)
	}
	if c.ClipboardTTLSeconds < 1 {
		return fmt.Errorf("config: clipboard_ttl_seconds must be at least 1, got %d", c.ClipboardTTLSeconds)
	}
	return nil
}
