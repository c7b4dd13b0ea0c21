package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tether-home/tether/internal/domain/device"
	"github.com/tether-home/tether/internal/domain/pass"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func validConfig() Config {
	cfg := Default()
	cfg.ApplyDefaults()
	return cfg
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "http:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Storage.Driver != DriverFile || cfg.Storage.PassesPath != "/var/lib/tether/passes.json" {
		t.Errorf("storage defaults: %+v", cfg.Storage)
	}
	if cfg.Bluetooth.TargetAddress != device.UnconfiguredAddress || cfg.Bluetooth.RSSIThreshold != -60 {
		t.Errorf("bluetooth defaults: %+v", cfg.Bluetooth)
	}
	if cfg.Passes.PerMonth != 3 || cfg.System.Timezone != "UTC" {
		t.Errorf("passes=%d timezone=%q", cfg.Passes.PerMonth, cfg.System.Timezone)
	}
	if cfg.HTTP.ShutdownSec != 10 || cfg.Bluetooth.ScanTimeoutSec != 10 {
		t.Errorf("timeouts: %+v %+v", cfg.HTTP, cfg.Bluetooth)
	}
}

func TestLoadFile_ExplicitZeroQuotaKept(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "passes:\n  per_month: 0\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Passes.PerMonth != 0 {
		t.Errorf("per_month = %d, want 0", cfg.Passes.PerMonth)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TETHER_TEST_PORT", "7000")
	t.Setenv("TETHER_TEST_KEY", "secret")

	cfg, err := LoadFile(writeConfig(t, `
http:
  port: ${TETHER_TEST_PORT}
auth:
  api_keys: ["${TETHER_TEST_KEY}"]
system:
  timezone: ${TETHER_TEST_UNSET:-Europe/Berlin}
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 7000 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "secret" {
		t.Errorf("api keys = %v", cfg.Auth.APIKeys)
	}
	if cfg.System.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q", cfg.System.Timezone)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "passes:\n  per_month: 32\n"))
	if !errors.Is(err, pass.ErrQuotaOutOfRange) {
		t.Fatalf("expected ErrQuotaOutOfRange, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	cfg.Bluetooth.TargetAddress = "not-a-mac"
	cfg.Bluetooth.RSSIThreshold = 10
	cfg.System.Timezone = "Nowhere/Special"
	cfg.Passes.PerMonth = 99

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []error{
		device.ErrInvalidAddress,
		device.ErrInvalidRSSIThreshold,
		device.ErrInvalidTimezone,
		pass.ErrQuotaOutOfRange,
	} {
		if !errors.Is(err, want) {
			t.Errorf("missing %v in %v", want, err)
		}
	}
	if !strings.Contains(err.Error(), "http.port") {
		t.Errorf("missing port error in %v", err)
	}
}

func TestValidate_StorageDriver(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"file", func(c *Config) {}, false},
		{"file without path", func(c *Config) { c.Storage.PassesPath = "" }, true},
		{"valkey", func(c *Config) {
			c.Storage.Driver = DriverValkey
			c.Storage.Addrs = []string{"localhost:6379"}
		}, false},
		{"redis without addrs", func(c *Config) { c.Storage.Driver = DriverRedis }, true},
		{"unknown", func(c *Config) { c.Storage.Driver = "sqlite" }, true},
		{"bad adapter", func(c *Config) { c.Bluetooth.Adapter = "bluez" }, true},
		{"bad mock device", func(c *Config) {
			c.Bluetooth.MockDevices = []MockDevice{{Address: "xx"}}
		}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TETHER_ENV", "")
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("default = %q", got)
	}
	t.Setenv("ENV", "dev")
	if got := GetEnv(); got != "dev" {
		t.Errorf("ENV = %q", got)
	}
	t.Setenv("TETHER_ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("TETHER_ENV = %q", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TETHER_X", "x")
	got := string(expandEnvVars([]byte("a: ${TETHER_X}\nb: ${TETHER_Y:-y}\nc: ${TETHER_Z}")))
	if got != "a: x\nb: y\nc: " {
		t.Errorf("got %q", got)
	}
}

func TestShippedConfigsLoad(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			if _, err := Load(env); err != nil {
				t.Fatalf("Load(%s): %v", env, err)
			}
		})
	}
}
