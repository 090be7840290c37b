// Package config provides configuration management for the wheel advisor.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Defaults applied by normalize when fields are unset.
const (
	defaultGatewayTimeout  = "10s"
	defaultFallbackTimeout = "15s"
	defaultStalenessMax    = "10m"
	defaultDashboardPort   = 8080
)

// Default OTM bands, as [low, high] fractions of the underlying price.
var (
	defaultCSPBand = []float64{0.10, 0.16}
	defaultCCBand  = []float64{0.10, 0.30}
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Fallback    FallbackConfig    `yaml:"fallback"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// GatewayConfig defines the broker gateway session settings. ClientID must
// be stable per deployment: the gateway rejects duplicate concurrent
// connections with the same identity.
type GatewayConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID int    `yaml:"client_id"`
	Readonly bool   `yaml:"readonly"`
	Timeout  string `yaml:"timeout"`
}

// FallbackConfig defines the delayed quote provider settings.
type FallbackConfig struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
}

// StrategyConfig defines the wheel selection parameters. Bands are
// [low, high] OTM fractions.
type StrategyConfig struct {
	CSPBand      []float64 `yaml:"csp_band"`
	CCBand       []float64 `yaml:"cc_band"`
	StalenessMax string    `yaml:"staleness_max"`
}

// DashboardConfig defines the optional JSON dashboard server.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// It also fills defaults, so a validated config is ready to use.
func (c *Config) Validate() error {
	c.normalize()

	// Gateway validation
	if c.Gateway.Host == "" {
		return fmt.Errorf("gateway.host is required")
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be in (0, 65535], got %d", c.Gateway.Port)
	}
	if c.Gateway.ClientID < 0 {
		return fmt.Errorf("gateway.client_id must be >= 0")
	}
	if _, err := time.ParseDuration(c.Gateway.Timeout); err != nil {
		return fmt.Errorf("gateway.timeout invalid: %w", err)
	}

	// Fallback validation
	if c.Fallback.Endpoint == "" {
		return fmt.Errorf("fallback.endpoint is required")
	}
	if _, err := time.ParseDuration(c.Fallback.Timeout); err != nil {
		return fmt.Errorf("fallback.timeout invalid: %w", err)
	}

	// Strategy validation
	if err := validateBand("strategy.csp_band", c.Strategy.CSPBand); err != nil {
		return err
	}
	if err := validateBand("strategy.cc_band", c.Strategy.CCBand); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Strategy.StalenessMax); err != nil {
		return fmt.Errorf("strategy.staleness_max invalid: %w", err)
	}

	// Dashboard validation
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be in (0, 65535], got %d", c.Dashboard.Port)
	}

	// Environment validation
	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug|info|warn|error")
	}

	return nil
}

func validateBand(name string, band []float64) error {
	if len(band) != 2 {
		return fmt.Errorf("%s must be [low, high]", name)
	}
	low, high := band[0], band[1]
	if low < 0 || high <= low || high >= 1 {
		return fmt.Errorf("%s must satisfy 0 <= low < high < 1, got [%.3f, %.3f]", name, low, high)
	}
	return nil
}

// normalize fills unset fields with defaults.
func (c *Config) normalize() {
	if c.Gateway.Timeout == "" {
		c.Gateway.Timeout = defaultGatewayTimeout
	}
	if c.Fallback.Timeout == "" {
		c.Fallback.Timeout = defaultFallbackTimeout
	}
	if len(c.Strategy.CSPBand) == 0 {
		c.Strategy.CSPBand = append([]float64(nil), defaultCSPBand...)
	}
	if len(c.Strategy.CCBand) == 0 {
		c.Strategy.CCBand = append([]float64(nil), defaultCCBand...)
	}
	if c.Strategy.StalenessMax == "" {
		c.Strategy.StalenessMax = defaultStalenessMax
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = defaultDashboardPort
	}
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
}

// IsReadonly reports whether order placement is gated off.
func (c *Config) IsReadonly() bool {
	return c.Gateway.Readonly
}

// GatewayTimeout returns the configured gateway call timeout.
func (c *Config) GatewayTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gateway.Timeout)
	if err != nil {
		return 10 * time.Second // default
	}
	return d
}

// FallbackTimeout returns the configured fallback provider timeout.
func (c *Config) FallbackTimeout() time.Duration {
	d, err := time.ParseDuration(c.Fallback.Timeout)
	if err != nil {
		return 15 * time.Second // default
	}
	return d
}

// StalenessMax returns the configured chain staleness bound.
func (c *Config) StalenessMax() time.Duration {
	d, err := time.ParseDuration(c.Strategy.StalenessMax)
	if err != nil {
		return 10 * time.Minute // default
	}
	return d
}
