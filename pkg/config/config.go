// Package config provides unified configuration for the runbox service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (RUNBOX_ prefix)
//  4. Validation
//
// The resulting Config is constructed once at process start and passed
// by reference to the handlers.
package config

import "time"

// Mode selects the sandbox provider.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config holds all configuration for the runbox service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Observability ObservabilityConfig `yaml:"observability"`

	// RateLimitPerMinute bounds requests per client per minute on the
	// execute endpoints. Zero disables rate limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8001
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// SandboxConfig holds sandbox provider settings.
type SandboxConfig struct {
	// Mode is "local" (subprocess sandboxes) or "remote" (sandbox
	// servers reached over HTTP).
	Mode string `yaml:"mode"` // default: "local"

	// PoolSize bounds concurrent sandboxes. Zero means unbounded.
	PoolSize int `yaml:"pool_size"` // default: 3

	// ExecutionTimeoutMs is the code execution ceiling in milliseconds.
	ExecutionTimeoutMs int `yaml:"execution_timeout_ms"` // default: 30000

	Local  LocalConfig  `yaml:"local"`
	Remote RemoteConfig `yaml:"remote"`
}

// LocalConfig holds settings for subprocess sandboxes.
type LocalConfig struct {
	PythonBin       string `yaml:"python_bin"`        // default: "python3"
	PackageIndexURL string `yaml:"package_index_url"` // default: interpreter default
}

// RemoteConfig holds settings for HTTP sandbox servers.
type RemoteConfig struct {
	// URL is the static address of a sandbox server (development mode).
	// Mutually exclusive with Template.
	URL string `yaml:"url"`

	// Template is the SandboxTemplate CRD name for claim-based
	// acquisition. Mutually exclusive with URL.
	Template string `yaml:"template"`

	// Namespace is the Kubernetes namespace for SandboxClaims.
	Namespace string `yaml:"namespace"`

	// ClaimTimeoutSeconds is how long to wait for a claim to be bound.
	ClaimTimeoutSeconds int `yaml:"claim_timeout_seconds"` // default: 30

	// WorkDir is the working directory inside remote sandboxes.
	WorkDir string `yaml:"workdir"` // default: "/home/user"
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ExecutionTimeout returns the execution ceiling as a duration.
func (c *Config) ExecutionTimeout() time.Duration {
	return time.Duration(c.Sandbox.ExecutionTimeoutMs) * time.Millisecond
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8001,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Sandbox: SandboxConfig{
			Mode:               ModeLocal,
			PoolSize:           3,
			ExecutionTimeoutMs: 30000,
			Local: LocalConfig{
				PythonBin: "python3",
			},
			Remote: RemoteConfig{
				Namespace:           "default",
				ClaimTimeoutSeconds: 30,
				WorkDir:             "/home/user",
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		RateLimitPerMinute: 20,
	}
}
