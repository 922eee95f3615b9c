package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
bridge:
  dispatcher_url: "http://10.0.0.5:9000"
  poll_interval_ms: 250
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Bridge.DispatcherURL != "http://10.0.0.5:9000" {
		t.Errorf("got dispatcher_url %q", cfg.Bridge.DispatcherURL)
	}
	if cfg.Bridge.GetPollInterval() != 250*time.Millisecond {
		t.Errorf("got poll interval %v, want 250ms", cfg.Bridge.GetPollInterval())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("got logging %s/%s, want debug/json", cfg.Logging.Level, cfg.Logging.Format)
	}

	// Values the file does not mention keep their defaults.
	if cfg.Relay.Port != 8723 {
		t.Errorf("got relay port %d, want default 8723", cfg.Relay.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Bridge.DispatcherURL != Default().Bridge.DispatcherURL {
		t.Errorf("got dispatcher_url %q, want default", cfg.Bridge.DispatcherURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SB_DISPATCHER_URL", "http://192.168.1.20:8000")
	t.Setenv("SB_POLL_INTERVAL_MS", "750")
	t.Setenv("SB_SANDBOX_INTERPRETER", "/usr/bin/env python3")
	t.Setenv("SB_LOG_LEVEL", "WARN")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Bridge.DispatcherURL != "http://192.168.1.20:8000" {
		t.Errorf("got dispatcher_url %q", cfg.Bridge.DispatcherURL)
	}
	if cfg.Bridge.PollIntervalMS != 750 {
		t.Errorf("got poll_interval_ms %d, want 750", cfg.Bridge.PollIntervalMS)
	}
	if len(cfg.Sandbox.Interpreter) != 2 || cfg.Sandbox.Interpreter[0] != "/usr/bin/env" {
		t.Errorf("got interpreter %v", cfg.Sandbox.Interpreter)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("got level %q, want warn", cfg.Logging.Level)
	}
}

func TestValidationRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dispatcher url", func(c *Config) { c.Bridge.DispatcherURL = "" }},
		{"malformed dispatcher url", func(c *Config) { c.Bridge.DispatcherURL = "not a url" }},
		{"zero poll interval", func(c *Config) { c.Bridge.PollIntervalMS = 0 }},
		{"empty interpreter", func(c *Config) { c.Sandbox.Interpreter = nil }},
		{"relay port out of range", func(c *Config) { c.Relay.Port = 70000 }},
		{"write timeout shorter than submit wait", func(c *Config) { c.Relay.WriteTimeoutMS = 1000 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation to reject config")
			}
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	cfg.Relay.SubmitWaitMS = 2500

	if got := cfg.Relay.GetSubmitWait(); got != 2500*time.Millisecond {
		t.Errorf("got submit wait %v, want 2.5s", got)
	}
	if got := cfg.Sandbox.GetExecTimeout(); got != 30*time.Second {
		t.Errorf("got exec timeout %v, want 30s", got)
	}
	if got := cfg.Relay.Addr(); got != "127.0.0.1:8723" {
		t.Errorf("got addr %q", got)
	}
}
