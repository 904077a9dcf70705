package config

import (
	"net/url"
	"strings"
	"time"
)

// Config holds client configuration values.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Reconnect ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Events    EventsConfig    `mapstructure:"events" yaml:"events"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify"`
}

// APIConfig locates the automation backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	WSURL   string        `mapstructure:"ws_url" yaml:"ws_url"`
	PollURL string        `mapstructure:"poll_url" yaml:"poll_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ReconnectConfig is the realtime reconnect policy.
type ReconnectConfig struct {
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay     time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier       float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter           bool          `mapstructure:"jitter" yaml:"jitter"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	RestorePreferred bool          `mapstructure:"restore_preferred" yaml:"restore_preferred"`
	PingInterval     time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
}

// DashboardConfig configures the local dashboard server.
type DashboardConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig locates the persisted client state.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig selects the log level and output format (console or json).
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// EventsConfig sizes the in-memory event log.
type EventsConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// NotifyConfig sizes the notification queue.
type NotifyConfig struct {
	Max int           `mapstructure:"max" yaml:"max"`
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:3001",
			Timeout: 30 * time.Second,
		},
		Reconnect: ReconnectConfig{
			MaxRetries:       5,
			InitialDelay:     time.Second,
			MaxDelay:         30 * time.Second,
			Multiplier:       2,
			Jitter:           true,
			HandshakeTimeout: 10 * time.Second,
			RestorePreferred: true,
			PingInterval:     20 * time.Second,
		},
		Dashboard: DashboardConfig{
			Addr:              "127.0.0.1:8787",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Store:  StoreConfig{Path: "livetrigger.db"},
		Log:    LogConfig{Level: "info", Format: "console"},
		Events: EventsConfig{Capacity: 100},
		Notify: NotifyConfig{Max: 5, TTL: 3 * time.Second},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Booleans are copied only when set, so they can be turned on but not off.
func (c *Config) UpdateFrom(other Config) {
	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.WSURL != "" {
		c.API.WSURL = other.API.WSURL
	}
	if other.API.PollURL != "" {
		c.API.PollURL = other.API.PollURL
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}
	if other.Reconnect.MaxRetries != 0 {
		c.Reconnect.MaxRetries = other.Reconnect.MaxRetries
	}
	if other.Reconnect.InitialDelay != 0 {
		c.Reconnect.InitialDelay = other.Reconnect.InitialDelay
	}
	if other.Reconnect.MaxDelay != 0 {
		c.Reconnect.MaxDelay = other.Reconnect.MaxDelay
	}
	if other.Reconnect.Multiplier != 0 {
		c.Reconnect.Multiplier = other.Reconnect.Multiplier
	}
	if other.Reconnect.Jitter {
		c.Reconnect.Jitter = true
	}
	if other.Reconnect.HandshakeTimeout != 0 {
		c.Reconnect.HandshakeTimeout = other.Reconnect.HandshakeTimeout
	}
	if other.Reconnect.RestorePreferred {
		c.Reconnect.RestorePreferred = true
	}
	if other.Reconnect.PingInterval != 0 {
		c.Reconnect.PingInterval = other.Reconnect.PingInterval
	}
	if other.Dashboard.Addr != "" {
		c.Dashboard.Addr = other.Dashboard.Addr
	}
	if other.Dashboard.ReadHeaderTimeout != 0 {
		c.Dashboard.ReadHeaderTimeout = other.Dashboard.ReadHeaderTimeout
	}
	if other.Dashboard.ShutdownTimeout != 0 {
		c.Dashboard.ShutdownTimeout = other.Dashboard.ShutdownTimeout
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.Events.Capacity != 0 {
		c.Events.Capacity = other.Events.Capacity
	}
	if other.Notify.Max != 0 {
		c.Notify.Max = other.Notify.Max
	}
	if other.Notify.TTL != 0 {
		c.Notify.TTL = other.Notify.TTL
	}
}

// WebSocketURL is the realtime websocket endpoint, derived from the base URL
// unless configured.
func (a APIConfig) WebSocketURL() string {
	if a.WSURL != "" {
		return a.WSURL
	}
	u, err := url.Parse(strings.TrimRight(a.BaseURL, "/"))
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String()
}

// LongPollURL is the realtime fallback endpoint, derived from the base URL
// unless configured.
func (a APIConfig) LongPollURL() string {
	if a.PollURL != "" {
		return a.PollURL
	}
	return strings.TrimRight(a.BaseURL, "/") + "/api/realtime/poll"
}
