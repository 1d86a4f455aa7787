package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader reads configuration from file, environment and defaults
type ConfigLoader struct {
	configFile string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader creates a loader. An empty configFile searches ./configs and .
// for halmon.yaml; a missing file is not an error.
func NewConfigLoader(configFile, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = "HALMON"
	}
	return &ConfigLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// Viper exposes the underlying instance so cobra flags can be bound to it
func (cl *ConfigLoader) Viper() *viper.Viper {
	return cl.viper
}

// LoadConfig loads, unmarshals and validates the configuration
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	cl.viper.SetConfigType("yaml")
	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cl.viper.AutomaticEnv()

	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var cfg Config
	if err := cl.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configFile != "" {
		cl.viper.SetConfigFile(cl.configFile)
		return cl.viper.ReadInConfig()
	}

	cl.viper.SetConfigName("halmon")
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")
	if err := cl.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// ConfigFileUsed returns the path of the loaded file, if any
func (cl *ConfigLoader) ConfigFileUsed() string {
	return cl.viper.ConfigFileUsed()
}

func (cl *ConfigLoader) setDefaults() {
	v := cl.viper

	v.SetDefault("monitor.sample_interval", "1s")
	v.SetDefault("monitor.evaluate_interval", "5s")
	v.SetDefault("monitor.sample_timeout", "5s")
	v.SetDefault("monitor.cpu_window", "1s")
	v.SetDefault("monitor.disk_path", DefaultDiskPath())
	v.SetDefault("monitor.history_size", 1000)

	v.SetDefault("alerts.window", 8)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "alarms.json")
	v.SetDefault("store.watch", false)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key", "halmon:alarms")
	v.SetDefault("store.redis.timeout", "3s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "./logs/halmon.log")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.caller", false)

	v.SetDefault("events.file_path", "./logs/events.log")
	v.SetDefault("events.max_size", 10)
	v.SetDefault("events.max_backups", 5)
	v.SetDefault("events.max_age", 90)
	v.SetDefault("events.compress", true)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_burst", 200)

	v.SetDefault("auth.token_expiry", "2160h")

	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.port", 587)
	v.SetDefault("notify.email.timeout", "10s")

	v.SetDefault("metrics.enabled", true)
}

// DefaultDiskPath is the root of the system volume on this OS
func DefaultDiskPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// Validate checks value ranges that the rest of the program relies on
func Validate(cfg *Config) error {
	m := cfg.Monitor
	if m.SampleInterval <= 0 {
		return fmt.Errorf("monitor.sample_interval must be positive")
	}
	if m.EvaluateInterval < m.SampleInterval {
		return fmt.Errorf("monitor.evaluate_interval (%s) must not be shorter than sample_interval (%s)",
			m.EvaluateInterval, m.SampleInterval)
	}
	if m.SampleTimeout <= 0 {
		return fmt.Errorf("monitor.sample_timeout must be positive")
	}
	if m.CPUWindow < 0 || m.CPUWindow >= m.SampleTimeout {
		return fmt.Errorf("monitor.cpu_window must be in [0, sample_timeout)")
	}
	if m.HistorySize < 1 {
		return fmt.Errorf("monitor.history_size must be at least 1")
	}
	if cfg.Alerts.Window < 1 {
		return fmt.Errorf("alerts.window must be at least 1")
	}
	switch cfg.Store.Backend {
	case "file":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file backend")
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported store backend: %q", cfg.Store.Backend)
	}
	if cfg.Server.Enabled && (cfg.Server.Port <= 0 || cfg.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Notify.Email.Enabled {
		e := cfg.Notify.Email
		if e.Host == "" || e.From == "" || len(e.To) == 0 {
			return fmt.Errorf("notify.email requires host, from and at least one recipient")
		}
	}
	return nil
}
