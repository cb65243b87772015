package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Devices.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Audio    AudioConfig    `yaml:"audio"`
	Climate  ClimateConfig  `yaml:"climate"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
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

// InfluxDBConfig contains InfluxDB connection settings for playback telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AudioConfig contains the LAN multiroom audio bridge settings.
type AudioConfig struct {
	Enabled bool                `yaml:"enabled"`
	Devices []AudioDeviceConfig `yaml:"devices"`

	// HealthInterval is how often the bridge publishes its health status
	// to MQTT, in seconds. Default: 30.
	HealthInterval int `yaml:"health_interval"`

	// EventListen is the local listen address for device event callbacks.
	// Default: ":8089".
	EventListen string `yaml:"event_listen"`

	// EventCallbackURL is the base URL players deliver event notifications
	// to, as reachable from the LAN (e.g. "http://192.168.1.10:8089").
	// Required when any device has push enabled.
	EventCallbackURL string `yaml:"event_callback_url"`
}

// AudioDeviceConfig describes one multiroom audio player on the LAN.
type AudioDeviceConfig struct {
	// ID is the device identifier used in MQTT topics.
	ID string `yaml:"id"`

	// Host is the player's IP address or hostname on the LAN.
	Host string `yaml:"host"`

	// FastPoll is the player-status polling interval in seconds.
	// A value <= 0 disables the fast cadence.
	FastPoll int `yaml:"fast_poll"`

	// SlowPoll is the extended-status polling interval in seconds.
	// A value <= 0 disables the slow cadence.
	SlowPoll int `yaml:"slow_poll"`

	// PushEnabled enables the device-side event subscription when the
	// eventing transport is available.
	PushEnabled bool `yaml:"push_enabled"`

	// OfflineThreshold is the number of consecutive failed fetches before
	// the device is reported offline. Default: 3.
	OfflineThreshold int `yaml:"offline_threshold"`

	// RequestTimeout is the per-request HTTP timeout in seconds.
	// Default: 5.
	RequestTimeout int `yaml:"request_timeout"`
}

// ClimateConfig contains the cloud climate bridge settings.
type ClimateConfig struct {
	Enabled  bool                   `yaml:"enabled"`
	Accounts []ClimateAccountConfig `yaml:"accounts"`

	// HealthInterval is how often the bridge publishes its health status
	// to MQTT, in seconds. Default: 30.
	HealthInterval int `yaml:"health_interval"`
}

// ClimateAccountConfig describes one cloud climate account.
type ClimateAccountConfig struct {
	// ID is the account identifier used in MQTT topics.
	ID string `yaml:"id"`

	// BaseURL is the cloud API endpoint.
	BaseURL string `yaml:"base_url"`

	// Username and Password are the cloud account credentials.
	// Password should be supplied via GRAYDEVICES_CLIMATE_PASSWORD rather
	// than stored in the YAML file.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// SessionTimeout is the idle time in seconds after which the cloud
	// session is verified with a keepalive before the next request.
	// Default: 300.
	SessionTimeout int `yaml:"session_timeout"`

	// PollInterval is the zone-status polling interval in seconds.
	// A value <= 0 disables polling.
	PollInterval int `yaml:"poll_interval"`

	// KeepaliveInterval is the background session keepalive interval in
	// seconds. A value <= 0 disables the background keepalive.
	KeepaliveInterval int `yaml:"keepalive_interval"`

	// OfflineThreshold is the number of consecutive failed polls before
	// the account is reported offline. Default: 3.
	OfflineThreshold int `yaml:"offline_threshold"`

	// RequestTimeout is the per-request HTTP timeout in seconds.
	// Default: 10.
	RequestTimeout int `yaml:"request_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYDEVICES_SECTION_KEY
// For example: GRAYDEVICES_MQTT_HOST, GRAYDEVICES_INFLUXDB_TOKEN
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
			ID:   "site-001",
			Name: "Gray Logic",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-devices",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "0.0.0.0:9143",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Audio: AudioConfig{
			HealthInterval: 30,
			EventListen:    ":8089",
		},
		Climate: ClimateConfig{
			HealthInterval: 30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYDEVICES_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("GRAYDEVICES_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYDEVICES_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYDEVICES_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYDEVICES_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Cloud credentials are per-account; the env override applies to every
	// account so the secret never has to live in the YAML file.
	if v := os.Getenv("GRAYDEVICES_CLIMATE_PASSWORD"); v != "" {
		for i := range cfg.Climate.Accounts {
			cfg.Climate.Accounts[i].Password = v
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

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	// Audio device validation
	seenAudio := make(map[string]bool, len(c.Audio.Devices))
	for i, dev := range c.Audio.Devices {
		if dev.ID == "" {
			errs = append(errs, fmt.Sprintf("audio.devices[%d].id is required", i))
			continue
		}
		if dev.Host == "" {
			errs = append(errs, fmt.Sprintf("audio.devices[%d].host is required", i))
		}
		if seenAudio[dev.ID] {
			errs = append(errs, fmt.Sprintf("audio.devices[%d].id %q is duplicated", i, dev.ID))
		}
		seenAudio[dev.ID] = true
		if dev.PushEnabled && c.Audio.EventCallbackURL == "" {
			errs = append(errs, fmt.Sprintf(
				"audio.event_callback_url is required when audio.devices[%d] has push enabled", i))
		}
	}

	// Climate account validation
	seenClimate := make(map[string]bool, len(c.Climate.Accounts))
	for i, acc := range c.Climate.Accounts {
		if acc.ID == "" {
			errs = append(errs, fmt.Sprintf("climate.accounts[%d].id is required", i))
			continue
		}
		if acc.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("climate.accounts[%d].base_url is required", i))
		}
		if c.Climate.Enabled && acc.Username == "" {
			errs = append(errs, fmt.Sprintf("climate.accounts[%d].username is required", i))
		}
		if seenClimate[acc.ID] {
			errs = append(errs, fmt.Sprintf("climate.accounts[%d].id %q is duplicated", i, acc.ID))
		}
		seenClimate[acc.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetFastPollInterval returns the device's fast polling cadence as a Duration.
// A zero or negative configured value returns 0, which disables the cadence.
func (d AudioDeviceConfig) GetFastPollInterval() time.Duration {
	if d.FastPoll <= 0 {
		return 0
	}
	return time.Duration(d.FastPoll) * time.Second
}

// GetSlowPollInterval returns the device's slow polling cadence as a Duration.
// A zero or negative configured value returns 0, which disables the cadence.
func (d AudioDeviceConfig) GetSlowPollInterval() time.Duration {
	if d.SlowPoll <= 0 {
		return 0
	}
	return time.Duration(d.SlowPoll) * time.Second
}

// GetOfflineThreshold returns the device's offline debounce threshold.
func (d AudioDeviceConfig) GetOfflineThreshold() int {
	if d.OfflineThreshold <= 0 {
		return 3
	}
	return d.OfflineThreshold
}

// GetRequestTimeout returns the device's per-request HTTP timeout.
func (d AudioDeviceConfig) GetRequestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.RequestTimeout) * time.Second
}

// GetSessionTimeout returns the account's session staleness timeout.
func (a ClimateAccountConfig) GetSessionTimeout() time.Duration {
	if a.SessionTimeout <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.SessionTimeout) * time.Second
}

// GetPollInterval returns the account's polling cadence as a Duration.
// A zero or negative configured value returns 0, which disables polling.
func (a ClimateAccountConfig) GetPollInterval() time.Duration {
	if a.PollInterval <= 0 {
		return 0
	}
	return time.Duration(a.PollInterval) * time.Second
}

// GetKeepaliveInterval returns the account's background keepalive cadence.
// A zero or negative configured value returns 0, which disables the keepalive.
func (a ClimateAccountConfig) GetKeepaliveInterval() time.Duration {
	if a.KeepaliveInterval <= 0 {
		return 0
	}
	return time.Duration(a.KeepaliveInterval) * time.Second
}

// GetOfflineThreshold returns the account's offline debounce threshold.
func (a ClimateAccountConfig) GetOfflineThreshold() int {
	if a.OfflineThreshold <= 0 {
		return 3
	}
	return a.OfflineThreshold
}

// GetRequestTimeout returns the account's per-request HTTP timeout.
func (a ClimateAccountConfig) GetRequestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.RequestTimeout) * time.Second
}

// GetHealthInterval returns the audio bridge health reporting interval.
func (a AudioConfig) GetHealthInterval() time.Duration {
	if a.HealthInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.HealthInterval) * time.Second
}

// GetHealthInterval returns the climate bridge health reporting interval.
func (c ClimateConfig) GetHealthInterval() time.Duration {
	if c.HealthInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HealthInterval) * time.Second
}
