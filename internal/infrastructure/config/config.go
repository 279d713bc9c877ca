package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/lantuya-core/internal/device"
)

// Config is the root configuration structure for the LAN Tuya service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tuya      TuyaConfig      `yaml:"tuya"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// InfluxDBConfig contains InfluxDB connection settings for state
// time-series recording.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TuyaConfig contains device communication settings.
type TuyaConfig struct {
	// DevicesFile is the path to the YAML device registration file.
	DevicesFile string `yaml:"devices_file"`

	// ExchangeTimeout bounds one request/response round trip (seconds).
	ExchangeTimeout int `yaml:"exchange_timeout"`

	// StrictFrames enables checksum and magic verification on received
	// frames.
	StrictFrames bool `yaml:"strict_frames"`

	// PollInterval is the time between state poll sweeps (seconds).
	PollInterval int `yaml:"poll_interval"`

	// PollWorkers is how many devices are fetched concurrently per sweep.
	PollWorkers int `yaml:"poll_workers"`

	// HistoryRetentionDays is how long state history rows are kept.
	// 0 disables pruning.
	HistoryRetentionDays int `yaml:"history_retention_days"`

	// Translation overrides the generic unit ranges.
	Translation device.TranslationConfig `yaml:"translation"`
}

// DiscoveryConfig contains presence broadcast listening settings.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LANTUYA_SECTION_KEY
// For example: LANTUYA_DATABASE_PATH, LANTUYA_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "LAN Tuya",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/lantuya.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lantuya-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tuya: TuyaConfig{
			DevicesFile:          "./data/devices.yaml",
			ExchangeTimeout:      5,
			StrictFrames:         true,
			PollInterval:         30,
			PollWorkers:          16,
			HistoryRetentionDays: 30,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LANTUYA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("LANTUYA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LANTUYA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LANTUYA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LANTUYA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LANTUYA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Tuya
	if v := os.Getenv("LANTUYA_DEVICES_FILE"); v != "" {
		cfg.Tuya.DevicesFile = v
	}
	if v := os.Getenv("LANTUYA_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tuya.PollInterval = n
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Tuya validation
	if c.Tuya.DevicesFile == "" {
		errs = append(errs, "tuya.devices_file is required")
	}
	if c.Tuya.ExchangeTimeout < 1 {
		errs = append(errs, "tuya.exchange_timeout must be at least 1 second")
	}
	if c.Tuya.PollInterval < 1 {
		errs = append(errs, "tuya.poll_interval must be at least 1 second")
	}
	if c.Tuya.PollWorkers < 1 {
		errs = append(errs, "tuya.poll_workers must be at least 1")
	}

	// InfluxDB validation only matters when enabled
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set LANTUYA_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetExchangeTimeout returns the per-exchange timeout as a Duration.
func (c *Config) GetExchangeTimeout() time.Duration {
	return time.Duration(c.Tuya.ExchangeTimeout) * time.Second
}

// GetPollInterval returns the poll sweep interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Tuya.PollInterval) * time.Second
}

// GetHistoryRetention returns the state history retention as a Duration;
// zero disables pruning.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Tuya.HistoryRetentionDays) * 24 * time.Hour
}
