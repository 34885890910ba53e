package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8001 {
		t.Errorf("port = %d, want 8001", cfg.Server.Port)
	}
	if cfg.Sandbox.Mode != ModeLocal {
		t.Errorf("mode = %q, want %q", cfg.Sandbox.Mode, ModeLocal)
	}
	if cfg.Sandbox.PoolSize != 3 {
		t.Errorf("pool_size = %d, want 3", cfg.Sandbox.PoolSize)
	}
	if cfg.ExecutionTimeout() != 30*time.Second {
		t.Errorf("execution timeout = %v, want 30s", cfg.ExecutionTimeout())
	}
	if cfg.Sandbox.Local.PythonBin != "python3" {
		t.Errorf("python_bin = %q, want python3", cfg.Sandbox.Local.PythonBin)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("metrics = %+v", cfg.Observability.Metrics)
	}
	if cfg.RateLimitPerMinute != 20 {
		t.Errorf("rate_limit_per_minute = %d, want 20", cfg.RateLimitPerMinute)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
sandbox:
  mode: remote
  pool_size: 8
  remote:
    url: http://sandbox:8080
rate_limit_per_minute: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Sandbox.Mode != ModeRemote {
		t.Errorf("mode = %q, want remote", cfg.Sandbox.Mode)
	}
	if cfg.Sandbox.Remote.URL != "http://sandbox:8080" {
		t.Errorf("url = %q", cfg.Sandbox.Remote.URL)
	}
	if cfg.RateLimitPerMinute != 5 {
		t.Errorf("rate_limit_per_minute = %d, want 5", cfg.RateLimitPerMinute)
	}
	// Values absent from the file keep their defaults.
	if cfg.Server.WriteTimeout != 120*time.Second {
		t.Errorf("write_timeout = %v, want 120s", cfg.Server.WriteTimeout)
	}
	if cfg.Sandbox.Remote.Namespace != "default" {
		t.Errorf("namespace = %q, want default", cfg.Sandbox.Remote.Namespace)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("RUNBOX_MODE", "remote")
	t.Setenv("RUNBOX_PORT", "8123")
	t.Setenv("RUNBOX_POOL_SIZE", "1")
	t.Setenv("RUNBOX_EXECUTION_TIMEOUT", "5000")
	t.Setenv("RUNBOX_SANDBOX_URL", "http://localhost:49999")
	t.Setenv("RUNBOX_RATE_LIMIT_PER_MIN", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sandbox.Mode != ModeRemote {
		t.Errorf("mode = %q, want remote", cfg.Sandbox.Mode)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("port = %d, want 8123", cfg.Server.Port)
	}
	if cfg.Sandbox.PoolSize != 1 {
		t.Errorf("pool_size = %d, want 1", cfg.Sandbox.PoolSize)
	}
	if cfg.ExecutionTimeout() != 5*time.Second {
		t.Errorf("execution timeout = %v, want 5s", cfg.ExecutionTimeout())
	}
	if cfg.Sandbox.Remote.URL != "http://localhost:49999" {
		t.Errorf("url = %q", cfg.Sandbox.Remote.URL)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("rate_limit_per_minute = %d, want 0", cfg.RateLimitPerMinute)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RUNBOX_PORT", "9001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want env to win over file", cfg.Server.Port)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Sandbox.Mode = "docker" },
			wantErr: "sandbox.mode",
		},
		{
			name: "remote mode needs url or template",
			mutate: func(c *Config) {
				c.Sandbox.Mode = ModeRemote
			},
			wantErr: "requires",
		},
		{
			name: "remote url and template are exclusive",
			mutate: func(c *Config) {
				c.Sandbox.Mode = ModeRemote
				c.Sandbox.Remote.URL = "http://x"
				c.Sandbox.Remote.Template = "tmpl"
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "remote mode with template is valid",
			mutate: func(c *Config) {
				c.Sandbox.Mode = ModeRemote
				c.Sandbox.Remote.Template = "tmpl"
			},
		},
		{
			name:    "negative pool size",
			mutate:  func(c *Config) { c.Sandbox.PoolSize = -1 },
			wantErr: "pool_size",
		},
		{
			name:    "zero execution timeout",
			mutate:  func(c *Config) { c.Sandbox.ExecutionTimeoutMs = 0 },
			wantErr: "execution_timeout_ms",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.RateLimitPerMinute = -5 },
			wantErr: "rate_limit_per_minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
