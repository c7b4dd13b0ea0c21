package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tether-home/tether/internal/domain/device"
	"github.com/tether-home/tether/internal/domain/pass"
)

// Storage drivers.
const (
	DriverFile   = "file"
	DriverValkey = "valkey"
	DriverRedis  = "redis"
)

// Bluetooth adapters.
const (
	AdapterMock = "mock"
	AdapterNone = "none"
)

// Config holds the tether service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	System    SystemConfig    `yaml:"system"`
	Passes    PassesConfig    `yaml:"passes"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"` // empty disables CORS
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  string `yaml:"file"`  // optional JSON log file in addition to stderr
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// StorageConfig selects where the pass record and the user settings live.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // file, valkey, redis (default: file)
	PassesPath       string   `yaml:"passes_path"`
	SettingsPath     string   `yaml:"settings_path"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Key              string   `yaml:"key"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BluetoothConfig holds the paired phone and the scanner settings.
type BluetoothConfig struct {
	TargetAddress  string       `yaml:"target_address"`
	TargetName     string       `yaml:"target_name"`
	RSSIThreshold  int          `yaml:"rssi_threshold"`
	ScanTimeoutSec int          `yaml:"scan_timeout_sec"`
	Adapter        string       `yaml:"adapter"` // mock, none
	MockDevices    []MockDevice `yaml:"mock_devices"`
}

// MockDevice is a device reported by the mock adapter.
type MockDevice struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
	RSSI    *int   `yaml:"rssi"`
}

// SystemConfig holds installation-wide settings.
type SystemConfig struct {
	Timezone           string `yaml:"timezone"`
	OnboardingComplete bool   `yaml:"onboarding_complete"`
}

// PassesConfig holds the pass allowance used when the ledger is first created.
type PassesConfig struct {
	PerMonth uint32 `yaml:"per_month"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver:       DriverFile,
			PassesPath:   "/var/lib/tether/passes.json",
			SettingsPath: "/var/lib/tether/settings.yaml",
		},
		Bluetooth: BluetoothConfig{
			TargetAddress: device.UnconfiguredAddress,
			RSSIThreshold: device.DefaultRSSIThreshold,
			Adapter:       AdapterNone,
		},
		System: SystemConfig{
			Timezone: "UTC",
		},
		Passes: PassesConfig{
			PerMonth: 3,
		},
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from the YAML file at path. Values of the
// form ${VAR} and ${VAR:-default} are taken from the environment.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from TETHER_ENV or ENV, defaulting to "local".
func GetEnv() string {
	for _, key := range []string{"TETHER_ENV", "ENV"} {
		if env := os.Getenv(key); env != "" {
			return env
		}
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFile
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if c.Bluetooth.TargetAddress == "" {
		c.Bluetooth.TargetAddress = device.UnconfiguredAddress
	}
	if c.Bluetooth.ScanTimeoutSec <= 0 {
		c.Bluetooth.ScanTimeoutSec = 10
	}
	if c.Bluetooth.Adapter == "" {
		c.Bluetooth.Adapter = AdapterNone
	}
	if c.System.Timezone == "" {
		c.System.Timezone = "UTC"
	}
}

// Validate checks the configuration for correctness and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.PassesPath == "" {
			errs = append(errs, errors.New("storage.passes_path is required for the file driver"))
		}
	case DriverValkey, DriverRedis:
		if len(c.Storage.Addrs) == 0 {
			errs = append(errs, fmt.Errorf("storage.addrs is required for the %s driver", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be \"file\", \"valkey\" or \"redis\", got %q", c.Storage.Driver))
	}
	if c.Storage.SettingsPath == "" {
		errs = append(errs, errors.New("storage.settings_path is required"))
	}

	if err := c.Bluetooth.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Bluetooth.Adapter {
	case AdapterMock, AdapterNone:
	default:
		errs = append(errs, fmt.Errorf("bluetooth.adapter must be \"mock\" or \"none\", got %q", c.Bluetooth.Adapter))
	}
	for i, d := range c.Bluetooth.MockDevices {
		if !device.IsValidAddress(d.Address) {
			errs = append(errs, fmt.Errorf("bluetooth.mock_devices[%d].address %q: %w", i, d.Address, device.ErrInvalidAddress))
		}
	}

	if _, err := c.System.Location(); err != nil {
		errs = append(errs, err)
	}

	if err := pass.ValidateQuota(c.Passes.PerMonth); err != nil {
		errs = append(errs, fmt.Errorf("passes.per_month: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks the target address and RSSI threshold.
func (b BluetoothConfig) Validate() error {
	var errs []error
	if !device.IsValidAddress(b.TargetAddress) {
		errs = append(errs, fmt.Errorf("bluetooth.target_address %q: %w", b.TargetAddress, device.ErrInvalidAddress))
	}
	if err := device.ValidateRSSIThreshold(b.RSSIThreshold); err != nil {
		errs = append(errs, fmt.Errorf("bluetooth.rssi_threshold: %w", err))
	}
	return errors.Join(errs...)
}

// Target returns the configured proximity target.
func (b BluetoothConfig) Target() device.Target {
	return device.Target{
		Address:       b.TargetAddress,
		Name:          b.TargetName,
		RSSIThreshold: b.RSSIThreshold,
	}
}

// ScanTimeout returns the scan timeout as a duration.
func (b BluetoothConfig) ScanTimeout() time.Duration {
	return time.Duration(b.ScanTimeoutSec) * time.Second
}

// Location loads the configured IANA timezone.
func (s SystemConfig) Location() (*time.Location, error) {
	return device.LoadTimezone(s.Timezone)
}

// Addr returns the listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check /etc/tether/ on the device
	if path := filepath.Join("/etc/tether", filename); fileExists(path) {
		return path
	}

	// 3. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 4. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
