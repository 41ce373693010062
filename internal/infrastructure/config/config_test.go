package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
bridge:
  id: "qsys-test"
  health_interval: 10
cores:
  - id: "core-1"
    host: "10.0.0.5"
    port: 1710
    poll_rate: 0.1
devices:
  - id: "lobby-router"
    type: "router"
    core: "core-1"
    component: "Router1"
    output: 3
  - id: "mic-to-zone"
    type: "crosspoint"
    core: "core-1"
    component: "Mixer"
    input: 2
    output: 4
  - id: "scenes"
    type: "snapshot"
    core: "core-1"
    component: "Scenes"
    bank: 8
database:
  path: "/tmp/qsys.db"
mqtt:
  broker:
    host: "broker"
    port: 1883
  qos: 1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "qsys-test" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "qsys-test")
	}
	if len(cfg.Cores) != 1 || cfg.Cores[0].Host != "10.0.0.5" {
		t.Errorf("Cores = %+v", cfg.Cores)
	}
	if len(cfg.Devices) != 3 || cfg.Devices[1].Input != 2 || cfg.Devices[2].Bank != 8 {
		t.Errorf("Devices = %+v", cfg.Devices)
	}
	if cfg.MQTT.Broker.Host != "broker" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker")
	}
	// Defaults survive for unset sections.
	if !cfg.History.Enabled || cfg.History.RetentionDays != 30 {
		t.Errorf("History = %+v, want defaults", cfg.History)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "cores: [unclosed")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.Cores = []CoreConfig{{ID: "core-1", Host: "10.0.0.5"}}
		cfg.Devices = []DeviceConfig{{ID: "r", Type: DeviceTypeRouter, Core: "core-1", Component: "Router1", Output: 1}}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing bridge id", func(c *Config) { c.Bridge.ID = "" }, "bridge.id is required"},
		{"duplicate core", func(c *Config) { c.Cores = append(c.Cores, c.Cores[0]) }, "is duplicated"},
		{"core without host", func(c *Config) { c.Cores[0].Host = "" }, "cores[0].host is required"},
		{"unknown device core", func(c *Config) { c.Devices[0].Core = "core-9" }, "is not a configured core"},
		{"unknown device type", func(c *Config) { c.Devices[0].Type = "amplifier" }, "is not one of"},
		{"router without output", func(c *Config) { c.Devices[0].Output = 0 }, ".output must be at least 1"},
		{"crosspoint without input", func(c *Config) {
			c.Devices[0].Type = DeviceTypeCrosspoint
		}, ".input and .output must be at least 1"},
		{"snapshot without bank", func(c *Config) { c.Devices[0].Type = DeviceTypeSnapshot }, ".bank must be between 1 and 64"},
		{"snapshot bank too large", func(c *Config) {
			c.Devices[0].Type = DeviceTypeSnapshot
			c.Devices[0].Bank = 100000
		}, ".bank must be between 1 and 64"},
		{"duplicate device", func(c *Config) { c.Devices = append(c.Devices, c.Devices[0]) }, "devices[1].id"},
		{"history without database", func(c *Config) { c.Database.Path = "" }, "database.path is required"},
		{"negative retention", func(c *Config) { c.History.RetentionDays = -1 }, "retention_days"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad api port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"api disabled ignores port", func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bridge.ID = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	if !strings.Contains(err.Error(), "bridge.id") || !strings.Contains(err.Error(), "mqtt.qos") {
		t.Errorf("Validate() error = %v, want both problems", err)
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetHealthInterval(); got != 30*time.Second {
		t.Errorf("GetHealthInterval() = %v", got)
	}
	if got := cfg.GetRetention(); got != 30*24*time.Hour {
		t.Errorf("GetRetention() = %v", got)
	}
	if got := cfg.GetReadTimeout(); got != 15*time.Second {
		t.Errorf("GetReadTimeout() = %v", got)
	}

	core := CoreConfig{ConnectTimeout: 3, KeepaliveInterval: 20, PollRate: 0.25}
	connect, keepalive, poll := core.Timeouts()
	if connect != 3*time.Second || keepalive != 20*time.Second || poll != 250*time.Millisecond {
		t.Errorf("Timeouts() = %v, %v, %v", connect, keepalive, poll)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GRAYLOGIC_BRIDGE_ID", "from-env")
	t.Setenv("GRAYLOGIC_DATABASE_PATH", "/env/qsys.db")
	t.Setenv("GRAYLOGIC_MQTT_HOST", "env-broker")
	t.Setenv("GRAYLOGIC_MQTT_PASSWORD", "secret")
	t.Setenv("GRAYLOGIC_INFLUXDB_TOKEN", "token")
	t.Setenv("GRAYLOGIC_LOG_LEVEL", "debug")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Bridge.ID != "from-env" || cfg.Database.Path != "/env/qsys.db" {
		t.Errorf("bridge/database overrides not applied: %+v %+v", cfg.Bridge, cfg.Database)
	}
	if cfg.MQTT.Broker.Host != "env-broker" || cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT overrides not applied: %+v", cfg.MQTT)
	}
	if cfg.InfluxDB.Token != "token" || cfg.Logging.Level != "debug" {
		t.Error("InfluxDB/logging overrides not applied")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if Path() != DefaultPath {
		t.Errorf("Path() = %q, want %q", Path(), DefaultPath)
	}
	t.Setenv("GRAYLOGIC_CONFIG", "/etc/qsys.yaml")
	if Path() != "/etc/qsys.yaml" {
		t.Errorf("Path() = %q", Path())
	}
}
