package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	CORS     CORSConfig     `yaml:"cors"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Ops      OpsConfig      `yaml:"ops"`
}

// OpsConfig access control for the ops surface (metrics, queue stats)
type OpsConfig struct {
	AllowedIPs []string `yaml:"allowed_ips"` // IPs or CIDRs allowed beyond localhost
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// RedisConfig redis cache configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// Addr host:port for the redis client
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// BridgeConfig sweep pipeline tuning knobs
type BridgeConfig struct {
	// Planning
	QuoteTTLSeconds   int      `yaml:"quote_ttl_seconds"`   // quote and plan validity window
	MinChainValueUsd  float64  `yaml:"min_chain_value_usd"` // dust below this per chain is not worth bridging
	SwapFeeRate       float64  `yaml:"swap_fee_rate"`       // flat assumed swap fee for post-swap estimates
	TimeBufferSeconds int      `yaml:"time_buffer_seconds"` // safety buffer added to the slowest leg
	HubChains         []string `yaml:"hub_chains"`          // low-fee chains considered for hub routing

	// Execution coordinator
	ExecuteConcurrency int     `yaml:"execute_concurrency"` // distinct plans in flight
	ExecuteRatePerSec  float64 `yaml:"execute_rate_per_sec"`

	// Status tracker
	TrackConcurrency      int     `yaml:"track_concurrency"`
	TrackRatePerSec       float64 `yaml:"track_rate_per_sec"`
	MaxStatusChecks       int     `yaml:"max_status_checks"`        // polls before a leg is force-failed
	StatusCheckIntervalMs int     `yaml:"status_check_interval_ms"` // delay between polls
	TransientRetryLimit   int     `yaml:"transient_retry_limit"`    // independent budget for status-query errors

	// History
	HistoryLimit int `yaml:"history_limit"` // most recent entries kept per user
}

// QuoteTTL quote validity window as a duration
func (c BridgeConfig) QuoteTTL() time.Duration {
	return time.Duration(c.QuoteTTLSeconds) * time.Second
}

// StatusCheckInterval delay between status polls as a duration
func (c BridgeConfig) StatusCheckInterval() time.Duration {
	return time.Duration(c.StatusCheckIntervalMs) * time.Millisecond
}

// AppConfig global application configuration
var AppConfig *Config

// DefaultConfig returns the built-in defaults, matching the tuning the
// sweep pipeline was sized for
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Redis: RedisConfig{
			Host:    "localhost",
			Port:    6379,
			Timeout: 5,
		},
		NATS: NATSConfig{
			Timeout: 10,
		},
		CORS: CORSConfig{
			AllowCredentials: true,
			MaxAge:           3600,
		},
		Bridge: BridgeConfig{
			QuoteTTLSeconds:       180,
			MinChainValueUsd:      1.0,
			SwapFeeRate:           0.003,
			TimeBufferSeconds:     300,
			HubChains:             []string{"ethereum", "arbitrum"},
			ExecuteConcurrency:    5,
			ExecuteRatePerSec:     10,
			TrackConcurrency:      20,
			TrackRatePerSec:       50,
			MaxStatusChecks:       60,
			StatusCheckIntervalMs: 30000,
			TransientRetryLimit:   10,
			HistoryLimit:          500,
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// variable overrides. A missing file is not fatal; defaults apply.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Printf("⚠️ [Config] Config file %s not found, using defaults", path)
		} else {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			log.Printf("✅ [Config] Loaded configuration from %s", path)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	AppConfig = config
	return config, nil
}

// applyEnvOverrides environment variables win over the YAML file
func applyEnvOverrides(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		config.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			config.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		config.CORS.AllowedOrigins = config.CORS.AllowedOrigins[:0]
		for _, o := range parts {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}

	if ttl := os.Getenv("BRIDGE_QUOTE_TTL_SECONDS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil && t > 0 {
			config.Bridge.QuoteTTLSeconds = t
		}
	}
	if checks := os.Getenv("BRIDGE_MAX_STATUS_CHECKS"); checks != "" {
		if n, err := strconv.Atoi(checks); err == nil && n > 0 {
			config.Bridge.MaxStatusChecks = n
		}
	}
	if interval := os.Getenv("BRIDGE_STATUS_CHECK_INTERVAL_MS"); interval != "" {
		if n, err := strconv.Atoi(interval); err == nil && n > 0 {
			config.Bridge.StatusCheckIntervalMs = n
		}
	}
}

// validate rejects configurations the pipeline cannot run with
func validate(config *Config) error {
	if config.Bridge.QuoteTTLSeconds <= 0 {
		return fmt.Errorf("bridge.quote_ttl_seconds must be positive")
	}
	if config.Bridge.MaxStatusChecks <= 0 {
		return fmt.Errorf("bridge.max_status_checks must be positive")
	}
	if config.Bridge.StatusCheckIntervalMs <= 0 {
		return fmt.Errorf("bridge.status_check_interval_ms must be positive")
	}
	if config.Bridge.ExecuteConcurrency <= 0 || config.Bridge.TrackConcurrency <= 0 {
		return fmt.Errorf("bridge worker concurrency must be positive")
	}
	return nil
}
