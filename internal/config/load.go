package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the viewer.
func (c *Config) Validate() error {
	switch c.Viewer.Mode {
	case "auto", "static", "morph":
	default:
		return fmt.Errorf("viewer.mode: unknown mode %q", c.Viewer.Mode)
	}
	if c.Viewer.StaticSection < 0 {
		return fmt.Errorf("viewer.static_section: must be >= 0, got %d", c.Viewer.StaticSection)
	}
	if c.Viewer.FOV <= 0 || c.Viewer.FOV >= 180 {
		return fmt.Errorf("viewer.fov: must be in (0, 180), got %v", c.Viewer.FOV)
	}
	if c.Viewer.CameraDistance <= 0 {
		return fmt.Errorf("viewer.camera_distance: must be > 0, got %v", c.Viewer.CameraDistance)
	}
	if c.Graphics.FPSLimit < 0 {
		return fmt.Errorf("graphics.fps_limit: must be >= 0, got %d", c.Graphics.FPSLimit)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "ScrollMorph")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ScrollMorph")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "scrollmorph")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "scrollmorph")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
