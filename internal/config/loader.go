package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "LIVETRIGGER"
	envConfigDefaultPath = "LIVETRIGGER_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// setDefaults registers every key so AutomaticEnv can resolve nested ones.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.ws_url", cfg.API.WSURL)
	v.SetDefault("api.poll_url", cfg.API.PollURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)

	v.SetDefault("reconnect.max_retries", cfg.Reconnect.MaxRetries)
	v.SetDefault("reconnect.initial_delay", cfg.Reconnect.InitialDelay)
	v.SetDefault("reconnect.max_delay", cfg.Reconnect.MaxDelay)
	v.SetDefault("reconnect.multiplier", cfg.Reconnect.Multiplier)
	v.SetDefault("reconnect.jitter", cfg.Reconnect.Jitter)
	v.SetDefault("reconnect.handshake_timeout", cfg.Reconnect.HandshakeTimeout)
	v.SetDefault("reconnect.restore_preferred", cfg.Reconnect.RestorePreferred)
	v.SetDefault("reconnect.ping_interval", cfg.Reconnect.PingInterval)

	v.SetDefault("dashboard.addr", cfg.Dashboard.Addr)
	v.SetDefault("dashboard.read_header_timeout", cfg.Dashboard.ReadHeaderTimeout)
	v.SetDefault("dashboard.shutdown_timeout", cfg.Dashboard.ShutdownTimeout)

	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("events.capacity", cfg.Events.Capacity)
	v.SetDefault("notify.max", cfg.Notify.Max)
	v.SetDefault("notify.ttl", cfg.Notify.TTL)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

// defaultFile is written with human-readable durations.
type defaultFile struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Reconnect struct {
		MaxRetries       int     `yaml:"max_retries"`
		InitialDelay     string  `yaml:"initial_delay"`
		MaxDelay         string  `yaml:"max_delay"`
		Multiplier       float64 `yaml:"multiplier"`
		Jitter           bool    `yaml:"jitter"`
		HandshakeTimeout string  `yaml:"handshake_timeout"`
		RestorePreferred bool    `yaml:"restore_preferred"`
		PingInterval     string  `yaml:"ping_interval"`
	} `yaml:"reconnect"`
	Dashboard struct {
		Addr string `yaml:"addr"`
	} `yaml:"dashboard"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Events EventsConfig `yaml:"events"`
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var f defaultFile
	f.API.BaseURL = cfg.API.BaseURL
	f.API.Timeout = cfg.API.Timeout.String()
	f.Reconnect.MaxRetries = cfg.Reconnect.MaxRetries
	f.Reconnect.InitialDelay = cfg.Reconnect.InitialDelay.String()
	f.Reconnect.MaxDelay = cfg.Reconnect.MaxDelay.String()
	f.Reconnect.Multiplier = cfg.Reconnect.Multiplier
	f.Reconnect.Jitter = cfg.Reconnect.Jitter
	f.Reconnect.HandshakeTimeout = cfg.Reconnect.HandshakeTimeout.String()
	f.Reconnect.RestorePreferred = cfg.Reconnect.RestorePreferred
	f.Reconnect.PingInterval = cfg.Reconnect.PingInterval.String()
	f.Dashboard.Addr = cfg.Dashboard.Addr
	f.Store = cfg.Store
	f.Log = cfg.Log
	f.Events = cfg.Events

	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
