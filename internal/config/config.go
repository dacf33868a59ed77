package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete svcbind configuration
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Host     HostConfig     `mapstructure:"host"`
	Registry RegistryConfig `mapstructure:"registry"`
	Router   RouterConfig   `mapstructure:"router"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for svcbind.log; empty writes to stderr
	Dir string `mapstructure:"dir"`
}

// HostConfig names the repository and metastore the static host supplies
type HostConfig struct {
	// Repository is the name of the host repository handle
	Repository string `mapstructure:"repository"`
	// MetaStore is the name of the host metastore handle
	MetaStore string `mapstructure:"metastore"`
}

// RegistryConfig controls the directory-backed service registry
type RegistryConfig struct {
	// Dir is the directory watched for *.yaml service descriptors.
	// Empty disables the registry.
	Dir string `mapstructure:"dir"`
	// DebounceMs coalesces bursts of filesystem events (default: 50)
	DebounceMs int `mapstructure:"debounce_ms"`
}

// RouterConfig controls local connection routing
type RouterConfig struct {
	// LocalHosts are glob patterns of hosts served by the local client service
	LocalHosts []string `mapstructure:"local_hosts"`
	// Fallback is what happens to a local host when no service is published.
	// Options: "remote", "fail" (default: "remote")
	Fallback string `mapstructure:"fallback"`
}

// MetricsConfig controls the Prometheus endpoint of `svcbind run`
type MetricsConfig struct {
	// Enabled serves /metrics when true (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Addr is the listen address (default: "127.0.0.1:9464")
	Addr string `mapstructure:"addr"`
}

// Router fallback values
const (
	FallbackRemote = "remote"
	FallbackFail   = "fail"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
		Host: HostConfig{
			Repository: "default",
			MetaStore:  "local",
		},
		Registry: RegistryConfig{
			Dir:        "",
			DebounceMs: 50,
		},
		Router: RouterConfig{
			LocalHosts: []string{"localhost", "127.0.0.1", "*.local"},
			Fallback:   FallbackRemote,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Debounce returns the registry debounce interval as a time.Duration
func (c *RegistryConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("host.repository", defaults.Host.Repository)
	viper.SetDefault("host.metastore", defaults.Host.MetaStore)

	viper.SetDefault("registry.dir", defaults.Registry.Dir)
	viper.SetDefault("registry.debounce_ms", defaults.Registry.DebounceMs)

	viper.SetDefault("router.local_hosts", defaults.Router.LocalHosts)
	viper.SetDefault("router.fallback", defaults.Router.Fallback)

	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v and validates it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "svcbind")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".svcbind"
	}
	return filepath.Join(home, ".config", "svcbind")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidFallbacks returns the list of valid router fallback values
func ValidFallbacks() []string {
	return []string{FallbackRemote, FallbackFail}
}
