package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Leafcore Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Automation AutomationConfig `yaml:"automation"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// DeviceConfig selects and configures the actuator/sensor backend.
type DeviceConfig struct {
	// Backend selects the Capability implementation: "hardware" or "simulated".
	Backend string `yaml:"backend"`

	// Pins maps actuator channels to GPIO pin names for the hardware backend.
	Pins PinConfig `yaml:"pins"`
}

// PinConfig contains GPIO pin assignments for the hardware backend.
// Pin names use the board numbering scheme expected by the platform adaptor.
type PinConfig struct {
	Fan       string `yaml:"fan"`
	Heater    string `yaml:"heater"`
	Pump      string `yaml:"pump"`
	Sprinkler string `yaml:"sprinkler"`
	Light     string `yaml:"light"` // PWM-capable pin
}

// StorageConfig contains settings-file storage locations.
type StorageConfig struct {
	// DataDir is the directory holding the settings JSON files
	// (targets, manual overrides, device identity).
	DataDir string `yaml:"data_dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// SensorsConfig contains sensor polling and telemetry forwarding settings.
type SensorsConfig struct {
	// ReadInterval is the sensor poll cadence in seconds.
	ReadInterval int `yaml:"read_interval"`

	// ForwardInterval is the telemetry forwarding cadence in seconds.
	// Should be a multiple of ReadInterval.
	ForwardInterval int `yaml:"forward_interval"`

	// Collectors is the list of remote collector base URLs that receive
	// forwarded sensor payloads. Delivery is best-effort.
	Collectors []string `yaml:"collectors"`

	// ForwardTimeout bounds a single collector POST, in seconds.
	ForwardTimeout int `yaml:"forward_timeout"`
}

// AutomationConfig contains automation engine settings.
type AutomationConfig struct {
	// TickInterval is the evaluation cadence in seconds.
	TickInterval int `yaml:"tick_interval"`

	// TemperatureHysteresis is the heater dead band in degrees Celsius.
	TemperatureHysteresis float64 `yaml:"temperature_hysteresis"`

	// HumidityHysteresis is the fan/sprinkler dead band in %RH.
	HumidityHysteresis float64 `yaml:"humidity_hysteresis"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT      JWTConfig `yaml:"jwt"`
	PanelKey string    `yaml:"panel_key"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LEAFCORE_SECTION_KEY
// For example: LEAFCORE_DATABASE_PATH, LEAFCORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend: "simulated",
			Pins: PinConfig{
				Fan:       "16",
				Heater:    "36",
				Pump:      "37",
				Sprinkler: "18",
				Light:     "12",
			},
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Database: DatabaseConfig{
			Path:        "./data/leafcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Sensors: SensorsConfig{
			ReadInterval:    2,
			ForwardInterval: 10,
			ForwardTimeout:  3,
		},
		Automation: AutomationConfig{
			TickInterval:          5,
			TemperatureHysteresis: 1.0,
			HumidityHysteresis:    5.0,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "leafcore-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LEAFCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEAFCORE_DEVICE_BACKEND"); v != "" {
		cfg.Device.Backend = v
	}
	if v := os.Getenv("LEAFCORE_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("LEAFCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LEAFCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LEAFCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LEAFCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("LEAFCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("LEAFCORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("LEAFCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("LEAFCORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("LEAFCORE_PANEL_KEY"); v != "" {
		cfg.Security.PanelKey = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Device.Backend {
	case "hardware", "simulated":
	default:
		errs = append(errs, "device.backend must be \"hardware\" or \"simulated\"")
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, "storage.data_dir is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Sensors.ReadInterval < 1 {
		errs = append(errs, "sensors.read_interval must be at least 1 second")
	}
	if c.Sensors.ForwardInterval < c.Sensors.ReadInterval {
		errs = append(errs, "sensors.forward_interval must not be shorter than sensors.read_interval")
	}

	if c.Automation.TickInterval < 1 {
		errs = append(errs, "automation.tick_interval must be at least 1 second")
	}
	if c.Automation.TemperatureHysteresis <= 0 {
		errs = append(errs, "automation.temperature_hysteresis must be positive")
	}
	if c.Automation.HumidityHysteresis <= 0 {
		errs = append(errs, "automation.humidity_hysteresis must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// JWT secret is required: the API drives physical actuators, so a
	// forged token would allow remote control of the terrarium hardware.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set LEAFCORE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadInterval returns the sensor poll cadence as a Duration.
func (c *SensorsConfig) GetReadInterval() time.Duration {
	return time.Duration(c.ReadInterval) * time.Second
}

// GetForwardInterval returns the telemetry forwarding cadence as a Duration.
func (c *SensorsConfig) GetForwardInterval() time.Duration {
	return time.Duration(c.ForwardInterval) * time.Second
}

// GetForwardTimeout returns the per-collector POST timeout as a Duration.
func (c *SensorsConfig) GetForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeout) * time.Second
}

// GetTickInterval returns the automation evaluation cadence as a Duration.
func (c *AutomationConfig) GetTickInterval() time.Duration {
	return time.Duration(c.TickInterval) * time.Second
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
