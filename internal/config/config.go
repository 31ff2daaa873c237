package config

import (
	"net"
	"time"
)

// Config holds server configuration values.
type Config struct {
	// ServerName is the source of every server reply (":<server_name> 001 ...").
	ServerName string `mapstructure:"server_name" yaml:"server_name"`
	// Host is the address to bind. Empty listens on every interface, IPv4 and IPv6.
	Host string `mapstructure:"host" yaml:"host"`
	// Port is a numeric port or a service name such as "ircd".
	Port string `mapstructure:"port" yaml:"port"`

	MaxLineLength  int     `mapstructure:"max_line_length" yaml:"max_line_length"`
	ReadBufferSize int     `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	MaxConnections int     `mapstructure:"max_connections" yaml:"max_connections"`
	AcceptRate     float64 `mapstructure:"accept_rate" yaml:"accept_rate"`

	ResolveHostnames bool          `mapstructure:"resolve_hostnames" yaml:"resolve_hostnames"`
	ResolveTimeout   time.Duration `mapstructure:"resolve_timeout" yaml:"resolve_timeout"`
	HostCacheTTL     time.Duration `mapstructure:"host_cache_ttl" yaml:"host_cache_ttl"`

	// HTTPAddr enables the health/stats endpoints and the WebSocket gateway.
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerName:        "irc.example.com",
		Host:              "",
		Port:              "6667",
		MaxLineLength:     512,
		ReadBufferSize:    512,
		ResolveTimeout:    2 * time.Second,
		HostCacheTTL:      10 * time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
	}
}

// ListenAddr returns host:port for the IRC listener.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ServerName != "" {
		c.ServerName = other.ServerName
	}
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != "" {
		c.Port = other.Port
	}
	if other.MaxLineLength != 0 {
		c.MaxLineLength = other.MaxLineLength
	}
	if other.ReadBufferSize != 0 {
		c.ReadBufferSize = other.ReadBufferSize
	}
	if other.MaxConnections != 0 {
		c.MaxConnections = other.MaxConnections
	}
	if other.AcceptRate != 0 {
		c.AcceptRate = other.AcceptRate
	}
	if other.ResolveHostnames {
		c.ResolveHostnames = true
	}
	if other.ResolveTimeout != 0 {
		c.ResolveTimeout = other.ResolveTimeout
	}
	if other.HostCacheTTL != 0 {
		c.HostCacheTTL = other.HostCacheTTL
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
