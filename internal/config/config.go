// Package config loads the gateway configuration: a JSON config file,
// overridden by GATEWAY_* environment variables (with .env support).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the top-level gateway configuration.
type Config struct {
	Security          SecurityConfig `json:"security"`
	Server            ServerConfig   `json:"server"`
	Router            RouterConfig   `json:"router"`
	ConnectionPool    PoolConfig     `json:"connection_pool"`
	ReverseConnection ReverseConfig  `json:"reverse_connection"`
	Event             EventConfig    `json:"event"`
}

// SecurityConfig holds the accepted api-key tokens.
type SecurityConfig struct {
	Tokens []string `json:"tokens" env:"GATEWAY_TOKENS" envSeparator:"," validate:"min=1,dive,required"`
}

// ServerConfig holds the listen addresses and logging knobs.
type ServerConfig struct {
	Address      string `json:"address" env:"GATEWAY_ADDRESS" validate:"required"`
	AdminAddress string `json:"admin_address" env:"GATEWAY_ADMIN_ADDRESS"`
	LogLevel     string `json:"log_level" env:"GATEWAY_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile      string `json:"log_file" env:"GATEWAY_LOG_FILE"`
}

// RouterConfig tunes the dynamic router. All durations are seconds.
type RouterConfig struct {
	HeartbeatTimeout int `json:"heartbeat_timeout" env:"GATEWAY_ROUTER_HEARTBEAT_TIMEOUT" validate:"min=1"`
	RequestTimeout   int `json:"request_timeout" env:"GATEWAY_ROUTER_REQUEST_TIMEOUT" validate:"min=1"`
	// Reserved: parsed and validated, but no retry machinery consumes it yet.
	RetryAttempts         int `json:"retry_attempts" env:"GATEWAY_ROUTER_RETRY_ATTEMPTS" validate:"min=0"`
	MaxConcurrentRequests int `json:"max_concurrent_requests" env:"GATEWAY_ROUTER_MAX_CONCURRENT" validate:"min=1"`
}

// PoolConfig tunes the forward connection pool. All durations are seconds.
type PoolConfig struct {
	MaxConnections  int `json:"max_connections" env:"GATEWAY_POOL_MAX_CONNECTIONS" validate:"min=1"`
	ConnectionTTL   int `json:"connection_ttl" env:"GATEWAY_POOL_CONNECTION_TTL" validate:"min=1"`
	IdleTimeout     int `json:"idle_timeout" env:"GATEWAY_POOL_IDLE_TIMEOUT" validate:"min=1"`
	CleanupInterval int `json:"cleanup_interval" env:"GATEWAY_POOL_CLEANUP_INTERVAL" validate:"min=1"`
}

// ReverseConfig tunes the reverse connection manager. All durations are seconds.
type ReverseConfig struct {
	HeartbeatTimeout   int `json:"heartbeat_timeout" env:"GATEWAY_REVERSE_HEARTBEAT_TIMEOUT" validate:"min=1"`
	RequestTimeout     int `json:"request_timeout" env:"GATEWAY_REVERSE_REQUEST_TIMEOUT" validate:"min=1"`
	CleanupInterval    int `json:"cleanup_interval" env:"GATEWAY_REVERSE_CLEANUP_INTERVAL" validate:"min=1"`
	MaxPendingRequests int `json:"max_pending_requests" env:"GATEWAY_REVERSE_MAX_PENDING" validate:"min=1"`
}

// EventConfig tunes the event bus.
type EventConfig struct {
	MaxSubscribersPerType int  `json:"max_subscribers_per_type" env:"GATEWAY_EVENT_MAX_SUBSCRIBERS" validate:"min=1"`
	ChannelCapacity       int  `json:"channel_capacity" env:"GATEWAY_EVENT_CHANNEL_CAPACITY" validate:"min=1"`
	EnableMetrics         bool `json:"enable_metrics" env:"GATEWAY_EVENT_ENABLE_METRICS"`
}

// Default returns the configuration used when the config file omits keys.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      "0.0.0.0:50051",
			AdminAddress: "127.0.0.1:8091",
			LogLevel:     "info",
			LogFile:      "./logs/gateway.log",
		},
		Router: RouterConfig{
			HeartbeatTimeout:      120,
			RequestTimeout:        30,
			RetryAttempts:         3,
			MaxConcurrentRequests: 1024,
		},
		ConnectionPool: PoolConfig{
			MaxConnections:  100,
			ConnectionTTL:   300,
			IdleTimeout:     60,
			CleanupInterval: 30,
		},
		ReverseConnection: ReverseConfig{
			HeartbeatTimeout:   120,
			RequestTimeout:     30,
			CleanupInterval:    60,
			MaxPendingRequests: 1000,
		},
		Event: EventConfig{
			MaxSubscribersPerType: 1000,
			ChannelCapacity:       1024,
			EnableMetrics:         true,
		},
	}
}

// Load reads the config file at path (missing file means defaults), applies
// environment overrides and validates the result. A .env file in the working
// directory is honored before the environment is read.
func Load(path string) (*Config, error) {
	// Best effort: a missing .env is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateToken reports whether token matches one of the configured api keys.
func (c *Config) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	for _, t := range c.Security.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *RouterConfig) RequestTimeoutDuration() time.Duration { return seconds(c.RequestTimeout) }

func (c *PoolConfig) ConnectionTTLDuration() time.Duration   { return seconds(c.ConnectionTTL) }
func (c *PoolConfig) IdleTimeoutDuration() time.Duration     { return seconds(c.IdleTimeout) }
func (c *PoolConfig) CleanupIntervalDuration() time.Duration { return seconds(c.CleanupInterval) }

func (c *ReverseConfig) HeartbeatTimeoutDuration() time.Duration { return seconds(c.HeartbeatTimeout) }
func (c *ReverseConfig) RequestTimeoutDuration() time.Duration   { return seconds(c.RequestTimeout) }
func (c *ReverseConfig) CleanupIntervalDuration() time.Duration  { return seconds(c.CleanupInterval) }
