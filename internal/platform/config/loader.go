// Package config loads forge-bridge server configuration from the
// environment. It keeps the teacher's plain env-var helper shape
// (infrastructure/config/loader.go) but drops the Marble/TEE secret
// machinery: this domain has no secret-store concept, only a Postgres DSN
// and bind/log/maintenance settings read once at process startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the bridge server reads at startup.
type Config struct {
	PersistenceURL string
	BindHost       string
	BindPort       int
	LogLevel       string
	LogFormat      string

	PingInterval time.Duration
	PongTimeout  time.Duration
	HelloTimeout time.Duration

	MaxMessageBytes int64

	MaintenanceInterval time.Duration
	SessionStaleAfter   time.Duration
}

const (
	defaultBindHost            = "0.0.0.0"
	defaultBindPort            = 8765
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultPingInterval        = 30 * time.Second
	defaultPongTimeout         = 10 * time.Second
	defaultHelloTimeout        = 15 * time.Second
	defaultMaxMessageBytes     = 10 << 20 // 10 MiB
	defaultMaintenanceInterval = 5 * time.Minute
	defaultSessionStaleAfter   = 10 * time.Minute
)

// DefaultConfig returns a Config matching the documented defaults. It
// leaves PersistenceURL empty; callers that need a runnable config
// without reading the environment (tests, mostly) set it themselves.
func DefaultConfig() *Config {
	return &Config{
		BindHost:            defaultBindHost,
		BindPort:            defaultBindPort,
		LogLevel:            defaultLogLevel,
		LogFormat:           defaultLogFormat,
		PingInterval:        defaultPingInterval,
		PongTimeout:         defaultPongTimeout,
		HelloTimeout:        defaultHelloTimeout,
		MaxMessageBytes:     defaultMaxMessageBytes,
		MaintenanceInterval: defaultMaintenanceInterval,
		SessionStaleAfter:   defaultSessionStaleAfter,
	}
}

// LoadFromEnv reads Config from the process environment, overlaying
// DefaultConfig with whatever is set.
//
//	FORGE_BRIDGE_PERSISTENCE_URL       Postgres DSN (required)
//	FORGE_BRIDGE_BIND_HOST             default "0.0.0.0"
//	FORGE_BRIDGE_BIND_PORT             default 8765
//	FORGE_BRIDGE_LOG_LEVEL             default "info"
//	FORGE_BRIDGE_LOG_FORMAT            default "json"
//	FORGE_BRIDGE_PING_INTERVAL         default 30s
//	FORGE_BRIDGE_PONG_TIMEOUT          default 10s
//	FORGE_BRIDGE_HELLO_TIMEOUT         default 15s
//	FORGE_BRIDGE_MAX_MESSAGE_BYTES     default 10485760
//	FORGE_BRIDGE_MAINTENANCE_INTERVAL  default 5m
//	FORGE_BRIDGE_SESSION_STALE_AFTER   default 10m
func LoadFromEnv() (*Config, error) {
	dsn := GetEnv("FORGE_BRIDGE_PERSISTENCE_URL", "")
	if dsn == "" {
		return nil, fmt.Errorf("FORGE_BRIDGE_PERSISTENCE_URL is required")
	}

	cfg := DefaultConfig()
	cfg.PersistenceURL = dsn
	cfg.BindHost = GetEnv("FORGE_BRIDGE_BIND_HOST", cfg.BindHost)
	cfg.BindPort = GetEnvInt("FORGE_BRIDGE_BIND_PORT", cfg.BindPort)
	cfg.LogLevel = GetEnv("FORGE_BRIDGE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = GetEnv("FORGE_BRIDGE_LOG_FORMAT", cfg.LogFormat)
	cfg.PingInterval = ParseDurationOrDefault(GetEnv("FORGE_BRIDGE_PING_INTERVAL", ""), cfg.PingInterval)
	cfg.PongTimeout = ParseDurationOrDefault(GetEnv("FORGE_BRIDGE_PONG_TIMEOUT", ""), cfg.PongTimeout)
	cfg.HelloTimeout = ParseDurationOrDefault(GetEnv("FORGE_BRIDGE_HELLO_TIMEOUT", ""), cfg.HelloTimeout)
	cfg.MaxMessageBytes = int64(GetEnvInt("FORGE_BRIDGE_MAX_MESSAGE_BYTES", int(cfg.MaxMessageBytes)))
	cfg.MaintenanceInterval = ParseDurationOrDefault(GetEnv("FORGE_BRIDGE_MAINTENANCE_INTERVAL", ""), cfg.MaintenanceInterval)
	cfg.SessionStaleAfter = ParseDurationOrDefault(GetEnv("FORGE_BRIDGE_SESSION_STALE_AFTER", ""), cfg.SessionStaleAfter)

	return cfg, nil
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PersistenceURL) == "" {
		return fmt.Errorf("persistence URL is required")
	}
	if c.BindPort <= 0 || c.BindPort > 65535 {
		return fmt.Errorf("bind port must be between 1 and 65535, got %d", c.BindPort)
	}
	if c.PingInterval <= 0 || c.PongTimeout <= 0 || c.HelloTimeout <= 0 {
		return fmt.Errorf("ping interval, pong timeout, and hello timeout must all be positive")
	}
	return nil
}

// Addr returns the host:port pair the server should bind to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.BindPort)
}

// GetEnv retrieves an environment variable with an optional default.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool retrieves a boolean environment variable with an optional default.
// Accepts "true", "1", "yes", "y" (case-insensitive) as true.
func GetEnvBool(key string, defaultValue bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	lower := strings.ToLower(val)
	return lower == "true" || lower == "1" || lower == "yes" || lower == "y"
}

// GetEnvInt retrieves an integer environment variable with an optional default.
func GetEnvInt(key string, defaultValue int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// ParseDurationOrDefault parses a duration string or returns the default.
func ParseDurationOrDefault(raw string, defaultDuration time.Duration) time.Duration {
	if raw == "" {
		return defaultDuration
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		return parsed
	}
	return defaultDuration
}
