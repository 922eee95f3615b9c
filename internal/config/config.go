// Package config
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Bridge  BridgeConfig  `yaml:"bridge"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Relay   RelayConfig   `yaml:"relay"`
	CORS    CORSConfig    `yaml:"cors"`
	Logging LoggingConfig `yaml:"logging"`
}

type BridgeConfig struct {
	DispatcherURL    string `yaml:"dispatcher_url" validate:"required,url"`
	PollIntervalMS   int    `yaml:"poll_interval_ms" validate:"gt=0"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms" validate:"gt=0"`
	Autostart        bool   `yaml:"autostart"`
}

type SandboxConfig struct {
	Interpreter   []string `yaml:"interpreter" validate:"min=1,dive,required"`
	ExecTimeoutMS int      `yaml:"exec_timeout_ms" validate:"gt=0"`
}

type RelayConfig struct {
	Host           string `yaml:"host" validate:"required"`
	Port           int    `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms" validate:"gt=0"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms" validate:"gt=0"`
	SubmitWaitMS   int    `yaml:"submit_wait_ms" validate:"gt=0"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAgeSeconds  int      `yaml:"max_age_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns a runnable localhost configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			DispatcherURL:    "http://127.0.0.1:8723",
			PollIntervalMS:   1000,
			RequestTimeoutMS: 5000,
		},
		Sandbox: SandboxConfig{
			Interpreter:   []string{"/bin/sh"},
			ExecTimeoutMS: 30000,
		},
		Relay: RelayConfig{
			Host:           "127.0.0.1",
			Port:           8723,
			ReadTimeoutMS:  15000,
			WriteTimeoutMS: 150000,
			SubmitWaitMS:   120000,
		},
		CORS: CORSConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration and applies environment variable overrides.
// An empty path starts from Default() without touching the filesystem.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate ensures all configuration values are usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	// Submit responses are written only after the wait completes, so
	// the write timeout must outlast the wait.
	if c.Relay.WriteTimeoutMS <= c.Relay.SubmitWaitMS {
		return fmt.Errorf("relay.write_timeout_ms (%d) must exceed relay.submit_wait_ms (%d)",
			c.Relay.WriteTimeoutMS, c.Relay.SubmitWaitMS)
	}
	return nil
}

// applyEnvOverrides checks for environment variables with SB_ prefix
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SB_DISPATCHER_URL"); v != "" {
		cfg.Bridge.DispatcherURL = v
	}
	if v := os.Getenv("SB_POLL_INTERVAL_MS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Bridge.PollIntervalMS)
	}
	if v := os.Getenv("SB_SANDBOX_INTERPRETER"); v != "" {
		cfg.Sandbox.Interpreter = strings.Fields(v)
	}

	if v := os.Getenv("SB_RELAY_HOST"); v != "" {
		cfg.Relay.Host = v
	}
	if v := os.Getenv("SB_RELAY_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Relay.Port)
	}

	if v := os.Getenv("SB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
}

// GetPollInterval returns the fixed cycle/backoff delay as a duration
func (b *BridgeConfig) GetPollInterval() time.Duration {
	return time.Duration(b.PollIntervalMS) * time.Millisecond
}

// GetRequestTimeout returns the per-request timeout as a duration
func (b *BridgeConfig) GetRequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutMS) * time.Millisecond
}

// GetExecTimeout returns the command execution timeout as a duration
func (s *SandboxConfig) GetExecTimeout() time.Duration {
	return time.Duration(s.ExecTimeoutMS) * time.Millisecond
}

// GetReadTimeout returns the read timeout as a duration
func (r *RelayConfig) GetReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutMS) * time.Millisecond
}

// GetWriteTimeout returns the write timeout as a duration
func (r *RelayConfig) GetWriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeoutMS) * time.Millisecond
}

// GetSubmitWait returns how long a submitter blocks for output
func (r *RelayConfig) GetSubmitWait() time.Duration {
	return time.Duration(r.SubmitWaitMS) * time.Millisecond
}

// Addr returns the relay listen address
func (r *RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
