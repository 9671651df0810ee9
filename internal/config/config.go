package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Bounds for the realtime tick. Intervals outside are clamped, never rejected
// mid-session, so a bad config cannot stall the live chart.
const (
	MinTickInterval = 1 * time.Second
	MaxTickInterval = 60 * time.Second
)

// Defaults for the streaming chart tuning knobs.
const (
	defaultTickInterval   = 1 * time.Second
	defaultRefreshDelay   = 1 * time.Second
	defaultStreamWindow   = 60 * time.Second
	defaultAxisFloor      = 0.005
	defaultPowerMediumW   = 200.0
	defaultPowerHighW     = 500.0
	defaultSmoothingSize  = 15
	defaultPort           = "8081"
	defaultBackendTimeout = 10 * time.Second
	defaultLogLevel       = "info"
)

// Config is the daemon configuration loaded from configs/config.yml.
type Config struct {
	Port     string
	LogLevel string

	BackendURL     string // base URL of the UPS backend, e.g. http://127.0.0.1:5050
	BackendTimeout time.Duration
	PushURL        string // websocket URL of the push channel; derived from BackendURL when empty

	DBPath string

	TickInterval  time.Duration // realtime sampling cadence, clamped to [MinTickInterval, MaxTickInterval]
	RefreshDelay  time.Duration // fixed delay before a streaming refresh, absorbs network jitter
	StreamWindow  time.Duration // visible window of the streaming chart
	AxisFloor     float64       // minimum y-axis ceiling, currency units
	PowerMediumW  float64       // border color breakpoint low->medium
	PowerHighW    float64       // border color breakpoint medium->high
	SmoothingSize int           // ring buffer capacity of the smoothing filter
}

// Load reads configs/config.yml via viper, applies defaults and clamps the
// tuning knobs to their allowed ranges.
func Load() (Config, error) {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Port:           viper.GetString("port"),
		LogLevel:       viper.GetString("log_level"),
		BackendURL:     viper.GetString("backend.url"),
		BackendTimeout: viper.GetDuration("backend.timeout"),
		PushURL:        viper.GetString("backend.push_url"),
		DBPath:         viper.GetString("db.path"),
		TickInterval:   viper.GetDuration("realtime.tick_interval"),
		RefreshDelay:   viper.GetDuration("realtime.refresh_delay"),
		StreamWindow:   viper.GetDuration("realtime.stream_window"),
		AxisFloor:      viper.GetFloat64("realtime.axis_floor"),
		PowerMediumW:   viper.GetFloat64("realtime.power_medium_w"),
		PowerHighW:     viper.GetFloat64("realtime.power_high_w"),
		SmoothingSize:  viper.GetInt("realtime.smoothing_size"),
	}
	return cfg.withDefaults(), cfg.validate()
}

func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.BackendTimeout <= 0 {
		c.BackendTimeout = defaultBackendTimeout
	}
	if c.DBPath == "" {
		c.DBPath = "energy.db"
	}
	if c.TickInterval == 0 {
		c.TickInterval = defaultTickInterval
	}
	c.TickInterval = ClampTickInterval(c.TickInterval)
	if c.RefreshDelay <= 0 {
		c.RefreshDelay = defaultRefreshDelay
	}
	if c.StreamWindow <= 0 {
		c.StreamWindow = defaultStreamWindow
	}
	if c.AxisFloor <= 0 {
		c.AxisFloor = defaultAxisFloor
	}
	if c.PowerMediumW <= 0 {
		c.PowerMediumW = defaultPowerMediumW
	}
	if c.PowerHighW <= c.PowerMediumW {
		c.PowerHighW = defaultPowerHighW
		if c.PowerHighW <= c.PowerMediumW {
			c.PowerHighW = c.PowerMediumW * 2
		}
	}
	if c.SmoothingSize <= 0 {
		c.SmoothingSize = defaultSmoothingSize
	}
	return c
}

func (c Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend.url is required")
	}
	return nil
}

// ClampTickInterval bounds a tick interval to [MinTickInterval, MaxTickInterval].
func ClampTickInterval(d time.Duration) time.Duration {
	if d < MinTickInterval {
		return MinTickInterval
	}
	if d > MaxTickInterval {
		return MaxTickInterval
	}
	return d
}
