package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tether-home/tether/internal/atomicfile"
)

// Settings is the part of the configuration users change at runtime
// through the API. It is kept in its own file (storage.settings_path) so
// the operator's config file, with its ${VAR} references, is never rewritten.
type Settings struct {
	Bluetooth TargetSettings `yaml:"bluetooth"`
	System    SystemConfig   `yaml:"system"`
	Passes    PassesConfig   `yaml:"passes"`
}

// TargetSettings is the paired phone.
type TargetSettings struct {
	TargetAddress string `yaml:"target_address"`
	TargetName    string `yaml:"target_name"`
	RSSIThreshold int    `yaml:"rssi_threshold"`
}

// Settings extracts the user settings from c.
func (c *Config) Settings() Settings {
	return Settings{
		Bluetooth: TargetSettings{
			TargetAddress: c.Bluetooth.TargetAddress,
			TargetName:    c.Bluetooth.TargetName,
			RSSIThreshold: c.Bluetooth.RSSIThreshold,
		},
		System: c.System,
		Passes: c.Passes,
	}
}

// ApplySettings overwrites the user settings in c.
func (c *Config) ApplySettings(s Settings) {
	c.Bluetooth.TargetAddress = s.Bluetooth.TargetAddress
	c.Bluetooth.TargetName = s.Bluetooth.TargetName
	c.Bluetooth.RSSIThreshold = s.Bluetooth.RSSIThreshold
	c.System = s.System
	c.Passes = s.Passes
}

// LoadSettings overlays the settings file onto c. A missing file leaves c
// unchanged and reports false.
func (c *Config) LoadSettings() (bool, error) {
	path := c.Storage.SettingsPath
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	s := c.Settings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return false, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	next := *c
	next.ApplySettings(s)
	next.ApplyDefaults()
	if err := next.Validate(); err != nil {
		return false, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	*c = next
	return true, nil
}

// SaveSettings atomically writes the user settings of c to storage.settings_path.
func (c *Config) SaveSettings() error {
	return NewSettingsFile(c.Storage.SettingsPath).Save(c.Settings())
}

// SettingsFile persists Settings as YAML at a fixed path.
type SettingsFile struct {
	path string
}

// NewSettingsFile creates a SettingsFile for path.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// Save atomically replaces the file with s, creating its directory when needed.
func (f *SettingsFile) Save(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := atomicfile.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
