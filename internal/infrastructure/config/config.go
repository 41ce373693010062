package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Device types understood by the bridge.
const (
	DeviceTypeRouter     = "router"
	DeviceTypeCrosspoint = "crosspoint"
	DeviceTypeSnapshot   = "snapshot"
)

// MaxSnapshotBank is the largest snapshot bank a device may declare.
const MaxSnapshotBank = 64

// DefaultPath is used when GRAYLOGIC_CONFIG is not set.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for the Q-SYS bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Cores    []CoreConfig   `yaml:"cores"`
	Devices  []DeviceConfig `yaml:"devices"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BridgeConfig identifies the bridge on the bus.
type BridgeConfig struct {
	ID string `yaml:"id"`

	// HealthInterval is how often health is published (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// CoreConfig describes one Q-SYS Core.
type CoreConfig struct {
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ConnectTimeout bounds the TCP dial (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// KeepaliveInterval is the NoOp period (seconds).
	KeepaliveInterval int `yaml:"keepalive_interval"`

	// PollRate is the change group auto-poll rate (seconds, fractional).
	PollRate float64 `yaml:"poll_rate"`
}

// DeviceConfig maps a Gray Logic device onto a Q-SYS component.
type DeviceConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Core      string `yaml:"core"`
	Component string `yaml:"component"`
	Output    int    `yaml:"output"`
	Input     int    `yaml:"input"`
	Bank      int    `yaml:"bank"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// HistoryConfig controls feedback history recording.
type HistoryConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
	QueueSize     int  `yaml:"queue_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Path returns the config file path from GRAYLOGIC_CONFIG, or DefaultPath.
func Path() string {
	if v := os.Getenv("GRAYLOGIC_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "qsys-bridge-01",
			HealthInterval: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/qsys.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-qsys",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8091,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
			QueueSize:     1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/qsys-bridge.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}

	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	coreIDs := make(map[string]bool, len(c.Cores))
	for i, core := range c.Cores {
		errs = append(errs, core.validate(i, coreIDs)...)
	}

	deviceIDs := make(map[string]bool, len(c.Devices))
	for i, dev := range c.Devices {
		errs = append(errs, dev.validate(i, deviceIDs, coreIDs)...)
	}

	if c.History.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when history is enabled")
	}
	if c.History.RetentionDays < 0 {
		errs = append(errs, "history.retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c CoreConfig) validate(i int, seen map[string]bool) []string {
	var errs []string
	prefix := fmt.Sprintf("cores[%d]", i)

	switch {
	case c.ID == "":
		errs = append(errs, prefix+".id is required")
	case seen[c.ID]:
		errs = append(errs, fmt.Sprintf("%s.id %q is duplicated", prefix, c.ID))
	default:
		seen[c.ID] = true
	}
	if c.Host == "" {
		errs = append(errs, prefix+".host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, prefix+".port must be between 1 and 65535")
	}
	if c.PollRate < 0 {
		errs = append(errs, prefix+".poll_rate must not be negative")
	}
	return errs
}

func (d DeviceConfig) validate(i int, seen, cores map[string]bool) []string {
	var errs []string
	prefix := fmt.Sprintf("devices[%d]", i)

	switch {
	case d.ID == "":
		errs = append(errs, prefix+".id is required")
	case seen[d.ID]:
		errs = append(errs, fmt.Sprintf("%s.id %q is duplicated", prefix, d.ID))
	default:
		seen[d.ID] = true
	}
	if d.Component == "" {
		errs = append(errs, prefix+".component is required")
	}
	if !cores[d.Core] {
		errs = append(errs, fmt.Sprintf("%s.core %q is not a configured core", prefix, d.Core))
	}

	switch d.Type {
	case DeviceTypeRouter:
		if d.Output < 1 {
			errs = append(errs, prefix+".output must be at least 1")
		}
	case DeviceTypeCrosspoint:
		if d.Input < 1 || d.Output < 1 {
			errs = append(errs, prefix+".input and .output must be at least 1")
		}
	case DeviceTypeSnapshot:
		if d.Bank < 1 || d.Bank > MaxSnapshotBank {
			errs = append(errs, fmt.Sprintf("%s.bank must be between 1 and %d", prefix, MaxSnapshotBank))
		}
	default:
		errs = append(errs, fmt.Sprintf("%s.type %q is not one of router, crosspoint, snapshot", prefix, d.Type))
	}
	return errs
}

// GetHealthInterval returns the health publish interval.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetRetention returns the history retention period. Zero keeps everything.
func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// Timeouts returns the Core's timers as durations. Zero values are left
// for the session to default.
func (c CoreConfig) Timeouts() (connect, keepalive, pollRate time.Duration) {
	connect = time.Duration(c.ConnectTimeout) * time.Second
	keepalive = time.Duration(c.KeepaliveInterval) * time.Second
	pollRate = time.Duration(c.PollRate * float64(time.Second))
	return connect, keepalive, pollRate
}
