// Package config loads controller settings from configs/config.yml and
// ZONE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"zone_controller/internal/models"
)

const (
	EnvPrefix = "ZONE"

	BackendMQTT = "mqtt"
	BackendSim  = "sim"

	// DefaultModeAuto leaves the zone to the decision engine when neither a
	// manual override nor a schedule rule applies.
	DefaultModeAuto = "auto"
)

var errInvalidConfig = errors.New("invalid config")

type Config struct {
	Port      string               `mapstructure:"port"`
	LogLevel  string               `mapstructure:"log_level"`
	ZoneID    string               `mapstructure:"zone_id"`
	DB        DBConfig             `mapstructure:"db"`
	Comfort   models.ComfortConfig `mapstructure:"comfort"`
	Interlock InterlockConfig      `mapstructure:"interlock"`
	Control   ControlConfig        `mapstructure:"control"`
	Override  OverrideConfig       `mapstructure:"override"`
	Audit     AuditConfig          `mapstructure:"audit"`
	Sensor    SensorConfig         `mapstructure:"sensor"`
	MQTT      MQTTConfig           `mapstructure:"mqtt"`
	Auth      AuthConfig           `mapstructure:"auth"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type InterlockConfig struct {
	MinIdle time.Duration `mapstructure:"min_idle"`
	Persist bool          `mapstructure:"persist"`
}

type ControlConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

type RateLimitConfig struct {
	Every time.Duration `mapstructure:"every"`
	Burst int           `mapstructure:"burst"`
}

type OverrideConfig struct {
	DefaultMode           string          `mapstructure:"default_mode"`
	ScheduleFile          string          `mapstructure:"schedule_file"`
	Timezone              string          `mapstructure:"timezone"`
	ButtonDurationMinutes int             `mapstructure:"button_duration_minutes"`
	ButtonDebounce        time.Duration   `mapstructure:"button_debounce"`
	RateLimit             RateLimitConfig `mapstructure:"rate_limit"`
}

type AuditConfig struct {
	Path    string `mapstructure:"path"`
	KeyPath string `mapstructure:"key_path"`
	Sign    bool   `mapstructure:"sign"`
}

type SensorConfig struct {
	Backend         string        `mapstructure:"backend"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	FrozenWindow    int           `mapstructure:"frozen_window"`
	FrozenTolerance float64       `mapstructure:"frozen_tolerance"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("zone_id", "zone-1")
	v.SetDefault("db.path", "app.db")

	v.SetDefault("comfort.temp_min", models.DefaultComfort.TempMin)
	v.SetDefault("comfort.temp_max", models.DefaultComfort.TempMax)
	v.SetDefault("comfort.humid_min", models.DefaultComfort.HumidMin)
	v.SetDefault("comfort.humid_max", models.DefaultComfort.HumidMax)

	v.SetDefault("interlock.min_idle", "10s")
	v.SetDefault("interlock.persist", false)
	v.SetDefault("control.tick", "5s")

	v.SetDefault("override.default_mode", DefaultModeAuto)
	v.SetDefault("override.schedule_file", "")
	v.SetDefault("override.timezone", "Local")
	v.SetDefault("override.button_duration_minutes", 30)
	v.SetDefault("override.button_debounce", "300ms")
	v.SetDefault("override.rate_limit.every", "2s")
	v.SetDefault("override.rate_limit.burst", 5)

	v.SetDefault("audit.path", "logs/audit.jsonl")
	v.SetDefault("audit.key_path", "")
	v.SetDefault("audit.sign", false)

	v.SetDefault("sensor.backend", BackendSim)
	v.SetDefault("sensor.stale_after", "60s")
	v.SetDefault("sensor.frozen_window", 5)
	v.SetDefault("sensor.frozen_tolerance", 0.1)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "zone-controller")
	v.SetDefault("mqtt.topic_prefix", "hvac/zone-1")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "12h")
}

// Load reads the config file at path, or configs/config.yml when path is
// empty. A missing default file is not an error; defaults and environment
// still apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the controller cannot run with.
func (c Config) Validate() error {
	if err := c.Comfort.Validate(); err != nil {
		return err
	}
	if _, err := c.DefaultMode(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Control.Tick <= 0 {
		return fmt.Errorf("%w: control.tick must be positive", errInvalidConfig)
	}
	if c.Interlock.MinIdle < 0 {
		return fmt.Errorf("%w: interlock.min_idle must not be negative", errInvalidConfig)
	}
	if c.Override.ButtonDurationMinutes <= 0 {
		return fmt.Errorf("%w: override.button_duration_minutes must be positive", errInvalidConfig)
	}
	if c.Override.RateLimit.Every > 0 && c.Override.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: override.rate_limit.burst must be at least 1", errInvalidConfig)
	}
	switch c.Sensor.Backend {
	case BackendSim:
	case BackendMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("%w: mqtt.broker is required for the mqtt backend", errInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: sensor.backend must be %q or %q", errInvalidConfig, BackendMQTT, BackendSim)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2", errInvalidConfig)
	}
	if c.Audit.Sign && c.Audit.KeyPath == "" {
		return fmt.Errorf("%w: audit.key_path is required when audit.sign is set", errInvalidConfig)
	}
	return nil
}

// DefaultMode returns the configured fallback override mode, or "" for auto.
func (c Config) DefaultMode() (models.Mode, error) {
	s := strings.TrimSpace(c.Override.DefaultMode)
	if s == "" || strings.EqualFold(s, DefaultModeAuto) {
		return "", nil
	}
	return models.ParseMode(s)
}

// Location resolves override.timezone; empty means the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Override.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Override.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: override.timezone: %v", errInvalidConfig, err)
	}
	return loc, nil
}
