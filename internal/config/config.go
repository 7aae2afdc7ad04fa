package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Limit    LimitConfig    `mapstructure:"limit"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustProxyHeaders keys clients by True-Client-IP, X-Real-IP or
	// X-Forwarded-For instead of the socket peer. Enable only behind a proxy
	// that overwrites those headers.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

// LimitConfig applies to every client. Excluded paths are never counted.
type LimitConfig struct {
	MaxRequests   int           `mapstructure:"max_requests"`
	Window        time.Duration `mapstructure:"window"`
	ExcludedPaths []string      `mapstructure:"excluded_paths"`
}

// UpstreamConfig points at the API the limiter protects. Empty URL serves a
// built-in handler instead of proxying.
type UpstreamConfig struct {
	URL string `mapstructure:"url"`
}

type LoggingConfig struct {
	// debug, info, warn, error
	Level string `mapstructure:"level"`
	// json or console
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
