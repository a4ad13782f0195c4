package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the pre-heat service.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Preheat  PreheatConfig  `yaml:"preheat"`
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// PreheatConfig describes the presence zone, the tracked devices and the
// thermostats controlled by the pre-heat rule.
type PreheatConfig struct {
	// Zone is the presence zone whose occupancy count means "someone is home".
	Zone string `yaml:"zone"`

	// StateKey is the text-value key holding the persisted state.
	// Default: "preheat_state"
	StateKey string `yaml:"state_key"`

	// CheckInterval is how often the activity timeout is evaluated.
	// Default: 5m
	CheckInterval time.Duration `yaml:"check_interval"`

	// Devices pairs each presence tracker with its distance sensor.
	// Order is significant.
	Devices []PreheatDeviceConfig `yaml:"devices"`

	// Thermostats are raised when pre-heat starts.
	Thermostats []string `yaml:"thermostats"`

	Notify   NotifyConfig   `yaml:"notify"`
	Tunables TunablesConfig `yaml:"tunables"`
}

// PreheatDeviceConfig pairs a tracker with the sensor reporting its distance.
type PreheatDeviceConfig struct {
	Tracker        string `yaml:"tracker"`
	DistanceSensor string `yaml:"distance_sensor"`
}

// NotifyConfig controls pre-heat notifications.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Target  string `yaml:"target"`
}

// TunablesConfig holds the optional pre-heat thresholds. A nil field means
// "not set" and takes the engine default; zero is a meaningful value for
// some of them (activity_timeout_minutes: 0 disables the timeout).
type TunablesConfig struct {
	DistanceThreshold      *float64 `yaml:"distance_threshold"`       // metres
	TempIncrement          *float64 `yaml:"temp_increment"`           // °C
	CooldownMinutes        *float64 `yaml:"cooldown_minutes"`         // minutes
	ActivityTimeoutMinutes *float64 `yaml:"activity_timeout_minutes"` // minutes, 0 = disabled
	MinApproachSpeed       *float64 `yaml:"min_approach_speed"`       // metres per minute
	MaxTimeDiffMinutes     *float64 `yaml:"max_time_diff_minutes"`    // minutes
	MaxPreheatTemp         *float64 `yaml:"max_preheat_temp"`         // °C
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// Environment variables follow the pattern GRAYLOGIC_SECTION_KEY, for
// example GRAYLOGIC_DATABASE_PATH or GRAYLOGIC_MQTT_PASSWORD.
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
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/preheat.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-preheat",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Preheat: PreheatConfig{
			StateKey:      "preheat_state",
			CheckInterval: 5 * time.Minute,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
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

	if v := os.Getenv("GRAYLOGIC_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("GRAYLOGIC_PREHEAT_STATE_KEY"); v != "" {
		cfg.Preheat.StateKey = v
	}
}

// Validate checks the configuration for errors, reporting all of them at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	errs = append(errs, c.Preheat.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (p *PreheatConfig) validate() []string {
	var errs []string

	if p.Zone == "" {
		errs = append(errs, "preheat.zone is required")
	}
	if p.StateKey == "" {
		errs = append(errs, "preheat.state_key is required")
	}
	if p.CheckInterval <= 0 {
		errs = append(errs, "preheat.check_interval must be positive")
	}

	if len(p.Devices) == 0 {
		errs = append(errs, "preheat.devices must list at least one tracker")
	}
	trackers := make(map[string]struct{}, len(p.Devices))
	sensors := make(map[string]struct{}, len(p.Devices))
	for i, d := range p.Devices {
		if d.Tracker == "" || d.DistanceSensor == "" {
			errs = append(errs, fmt.Sprintf("preheat.devices[%d] needs tracker and distance_sensor", i))
			continue
		}
		if _, dup := trackers[d.Tracker]; dup {
			errs = append(errs, fmt.Sprintf("preheat.devices[%d]: duplicate tracker %q", i, d.Tracker))
		}
		if _, dup := sensors[d.DistanceSensor]; dup {
			errs = append(errs, fmt.Sprintf("preheat.devices[%d]: duplicate distance_sensor %q", i, d.DistanceSensor))
		}
		trackers[d.Tracker] = struct{}{}
		sensors[d.DistanceSensor] = struct{}{}
	}

	if len(p.Thermostats) == 0 {
		errs = append(errs, "preheat.thermostats must list at least one thermostat")
	}

	if p.Notify.Enabled && p.Notify.Target == "" {
		errs = append(errs, "preheat.notify.target is required when notifications are enabled")
	}

	t := p.Tunables
	for _, f := range []struct {
		name      string
		value     *float64
		allowZero bool
	}{
		{"distance_threshold", t.DistanceThreshold, false},
		{"temp_increment", t.TempIncrement, false},
		{"cooldown_minutes", t.CooldownMinutes, true},
		{"activity_timeout_minutes", t.ActivityTimeoutMinutes, true},
		{"min_approach_speed", t.MinApproachSpeed, true},
		{"max_time_diff_minutes", t.MaxTimeDiffMinutes, false},
		{"max_preheat_temp", t.MaxPreheatTemp, false},
	} {
		if f.value == nil {
			continue
		}
		if *f.value < 0 || (!f.allowZero && *f.value == 0) {
			errs = append(errs, fmt.Sprintf("preheat.tunables.%s is out of range", f.name))
		}
	}

	return errs
}
