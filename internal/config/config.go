package config

import "time"

// Config is the full application configuration
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Events  EventsConfig  `mapstructure:"events"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MonitorConfig controls the background sampling loop
type MonitorConfig struct {
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	EvaluateInterval time.Duration `mapstructure:"evaluate_interval"`
	SampleTimeout    time.Duration `mapstructure:"sample_timeout"`
	CPUWindow        time.Duration `mapstructure:"cpu_window"`
	DiskPath         string        `mapstructure:"disk_path"`
	HistorySize      int           `mapstructure:"history_size"`
}

// AlertsConfig controls the retained alert window
type AlertsConfig struct {
	Window int `mapstructure:"window"`
}

// StoreConfig selects where alarm definitions are persisted
type StoreConfig struct {
	Backend string      `mapstructure:"backend"` // file | redis
	Path    string      `mapstructure:"path"`
	Watch   bool        `mapstructure:"watch"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LogConfig configures diagnostic logging
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json | text
	Output     string `mapstructure:"output"` // stdout | stderr | file
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// EventsConfig configures the event log file
type EventsConfig struct {
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig configures the optional HTTP control API
type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
}

// AuthConfig configures JWT tokens for the websocket stream
type AuthConfig struct {
	Secret      string        `mapstructure:"secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

type NotifyConfig struct {
	Email EmailConfig `mapstructure:"email"`
}

// EmailConfig configures SMTP alarm notifications
type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	To       []string      `mapstructure:"to"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
