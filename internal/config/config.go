// Package config loads and validates the monitor's declarative configuration:
// device identity, connection and retry settings, the ordered health-check
// definitions with their threshold policies, and the output/notification/
// history surfaces.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// Config is the fully parsed configuration tree.
type Config struct {
	Device        DeviceConfig     `mapstructure:"device"`
	Connection    ConnectionConfig `mapstructure:"connection"`
	Retry         RetryConfig      `mapstructure:"retry"`
	Checks        []CheckConfig    `mapstructure:"checks"`
	Output        OutputConfig     `mapstructure:"output"`
	History       HistoryConfig    `mapstructure:"history"`
	Notifications []ChannelConfig  `mapstructure:"notifications"`
	Server        ServerConfig     `mapstructure:"server"`
	Schedule      ScheduleConfig   `mapstructure:"schedule"`
	Engine        EngineConfig     `mapstructure:"engine"`
}

// DeviceConfig identifies the monitored switch.
type DeviceConfig struct {
	Hostname string `mapstructure:"hostname"`
	Host     string `mapstructure:"host"`
	Model    string `mapstructure:"model"`
	Location string `mapstructure:"location"`
}

// ConnectionConfig holds session establishment settings. Credentials may be
// overridden by the SWITCH_HOST / SWITCH_USER / SWITCH_PASS / SWITCH_SECRET
// environment variables.
type ConnectionConfig struct {
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	EnableSecret    string        `mapstructure:"enable_secret"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
	CommandInterval time.Duration `mapstructure:"command_interval"`
	Probe           bool          `mapstructure:"probe"`
	ProbeCount      int           `mapstructure:"probe_count"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
}

// RetryConfig bounds per-command retries.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// CheckConfig is one health-check category as declared in the config file.
// List order is execution order.
type CheckConfig struct {
	Name       string                     `mapstructure:"name"`
	Enabled    bool                       `mapstructure:"enabled"`
	Format     string                     `mapstructure:"format"`
	Commands   []CommandConfig            `mapstructure:"commands"`
	Thresholds map[string]ThresholdConfig `mapstructure:"thresholds"`
}

// CommandConfig is one diagnostic command within a check.
type CommandConfig struct {
	Command     string        `mapstructure:"command"`
	Description string        `mapstructure:"description"`
	Parse       bool          `mapstructure:"parse"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ThresholdConfig declares warning/critical bounds and the comparison
// direction for one metric.
type ThresholdConfig struct {
	Warning   *float64 `mapstructure:"warning"`
	Critical  *float64 `mapstructure:"critical"`
	Direction string   `mapstructure:"direction"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// HistoryConfig controls report persistence. An empty path disables it.
type HistoryConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// ChannelConfig declares one alert notification channel.
type ChannelConfig struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"`
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"`
	Headers map[string]string `mapstructure:"headers"`
}

// ServerConfig controls the daemon-mode HTTP surface.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// ScheduleConfig controls daemon-mode polling.
type ScheduleConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// EngineConfig holds engine policy knobs.
type EngineConfig struct {
	// CriticalDegrades forces a check with a critical threshold alert to
	// report at least degraded even when every command succeeded.
	CriticalDegrades bool `mapstructure:"critical_degrades"`
}

// Load reads the configuration file (or the default search path) into a
// Viper instance with defaults applied.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("connection.port", 22)
	v.SetDefault("connection.connect_timeout", "15s")
	v.SetDefault("connection.command_timeout", "10s")
	v.SetDefault("connection.command_interval", "250ms")
	v.SetDefault("connection.probe", true)
	v.SetDefault("connection.probe_count", 3)
	v.SetDefault("connection.probe_timeout", "5s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff", "2s")
	v.SetDefault("retry.multiplier", 1.0)
	v.SetDefault("output.format", "json")
	v.SetDefault("output.dir", "./output")
	v.SetDefault("history.retention", "720h")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9180)
	v.SetDefault("schedule.interval", "5m")
	v.SetDefault("engine.critical_degrades", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("switchmon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/switchmon")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// Parse unmarshals and validates the loaded configuration, applying the
// credential environment overrides.
func Parse(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if host := os.Getenv("SWITCH_HOST"); host != "" {
		cfg.Device.Host = host
	}
	if user := os.Getenv("SWITCH_USER"); user != "" {
		cfg.Connection.Username = user
	}
	if pass := os.Getenv("SWITCH_PASS"); pass != "" {
		cfg.Connection.Password = pass
	}
	if secret := os.Getenv("SWITCH_SECRET"); secret != "" {
		cfg.Connection.EnableSecret = secret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Device.Host == "" {
		return fmt.Errorf("device.host is required (or set SWITCH_HOST)")
	}
	if c.Connection.Username == "" {
		return fmt.Errorf("connection.username is required (or set SWITCH_USER)")
	}
	switch c.Output.Format {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("output.format %q: must be json, yaml or text", c.Output.Format)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}

	for i := range c.Checks {
		check := &c.Checks[i]
		if check.Name == "" {
			return fmt.Errorf("checks[%d]: name is required", i)
		}
		if check.Enabled && len(check.Commands) == 0 {
			return fmt.Errorf("check %q: enabled but has no commands", check.Name)
		}
		for metric, th := range check.Thresholds {
			switch th.Direction {
			case "", string(engine.DirectionAbove), string(engine.DirectionBelow):
			default:
				return fmt.Errorf("check %q metric %q: direction %q must be %q or %q",
					check.Name, metric, th.Direction, engine.DirectionAbove, engine.DirectionBelow)
			}
			if th.Warning == nil && th.Critical == nil {
				return fmt.Errorf("check %q metric %q: at least one of warning/critical is required",
					check.Name, metric)
			}
		}
	}

	for i := range c.Notifications {
		ch := &c.Notifications[i]
		switch ch.Type {
		case "webhook", "alertmanager":
		default:
			return fmt.Errorf("notification %q: unknown type %q", ch.Name, ch.Type)
		}
		if ch.Enabled && ch.URL == "" {
			return fmt.Errorf("notification %q: url is required", ch.Name)
		}
	}
	return nil
}

// CheckDefinitions converts the configured checks into the engine's
// read-only definitions, preserving declared order.
func (c *Config) CheckDefinitions() []engine.CheckDefinition {
	defs := make([]engine.CheckDefinition, 0, len(c.Checks))
	for _, check := range c.Checks {
		def := engine.CheckDefinition{
			Name:    check.Name,
			Enabled: check.Enabled,
			Format:  check.Format,
		}
		for _, cmd := range check.Commands {
			def.Commands = append(def.Commands, engine.CommandSpec{
				Command:     cmd.Command,
				Description: cmd.Description,
				Parse:       cmd.Parse,
				Timeout:     cmd.Timeout,
			})
		}
		if len(check.Thresholds) > 0 {
			def.Thresholds = make(engine.Policy, len(check.Thresholds))
			for metric, th := range check.Thresholds {
				dir := engine.Direction(th.Direction)
				if dir == "" {
					dir = engine.DirectionAbove
				}
				def.Thresholds[metric] = engine.Threshold{
					Warning:   th.Warning,
					Critical:  th.Critical,
					Direction: dir,
				}
			}
		}
		defs = append(defs, def)
	}
	return defs
}

// RetryPolicy converts the retry settings into the engine's policy type.
func (c *Config) RetryPolicy() engine.RetryPolicy {
	return engine.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		Backoff:     c.Retry.Backoff,
		Multiplier:  c.Retry.Multiplier,
	}
}

// DeviceInfo converts the device settings into the engine's report metadata.
func (c *Config) DeviceInfo() engine.DeviceInfo {
	return engine.DeviceInfo{
		Hostname: c.Device.Hostname,
		Host:     c.Device.Host,
		Model:    c.Device.Model,
		Location: c.Device.Location,
	}
}
