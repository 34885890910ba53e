package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, RUNBOX_CONFIG env, ./config.yaml,
//     /etc/runbox/config.yaml)
//  3. Environment variable overrides
//  4. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. RUNBOX_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/runbox/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("RUNBOX_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/runbox/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RUNBOX_MODE"); v != "" {
		cfg.Sandbox.Mode = v
	}
	if v := os.Getenv("RUNBOX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RUNBOX_POOL_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Sandbox.PoolSize = size
		}
	}
	if v := os.Getenv("RUNBOX_EXECUTION_TIMEOUT"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Sandbox.ExecutionTimeoutMs = ms
		}
	}
	if v := os.Getenv("RUNBOX_RATE_LIMIT_PER_MIN"); v != "" {
		if rpm, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = rpm
		}
	}
	if v := os.Getenv("RUNBOX_SANDBOX_URL"); v != "" {
		cfg.Sandbox.Remote.URL = v
	}
	if v := os.Getenv("RUNBOX_SANDBOX_TEMPLATE"); v != "" {
		cfg.Sandbox.Remote.Template = v
	}
	if v := os.Getenv("RUNBOX_SANDBOX_NAMESPACE"); v != "" {
		cfg.Sandbox.Remote.Namespace = v
	}
	if v := os.Getenv("RUNBOX_PYTHON_BIN"); v != "" {
		cfg.Sandbox.Local.PythonBin = v
	}
	if v := os.Getenv("RUNBOX_PYTHON_INDEX"); v != "" {
		cfg.Sandbox.Local.PackageIndexURL = v
	}
}
