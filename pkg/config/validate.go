package config

import "fmt"

// Validate checks the configuration for invalid or contradictory values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	switch c.Sandbox.Mode {
	case ModeLocal:
		// Local mode needs nothing beyond defaults.
	case ModeRemote:
		if c.Sandbox.Remote.URL != "" && c.Sandbox.Remote.Template != "" {
			return fmt.Errorf("sandbox.remote.url and sandbox.remote.template are mutually exclusive")
		}
		if c.Sandbox.Remote.URL == "" && c.Sandbox.Remote.Template == "" {
			return fmt.Errorf("sandbox mode %q requires sandbox.remote.url or sandbox.remote.template", ModeRemote)
		}
	default:
		return fmt.Errorf("sandbox.mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.Sandbox.Mode)
	}

	if c.Sandbox.PoolSize < 0 {
		return fmt.Errorf("sandbox.pool_size must not be negative, got %d", c.Sandbox.PoolSize)
	}
	if c.Sandbox.ExecutionTimeoutMs <= 0 {
		return fmt.Errorf("sandbox.execution_timeout_ms must be positive, got %d", c.Sandbox.ExecutionTimeoutMs)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must not be negative, got %d", c.RateLimitPerMinute)
	}

	return nil
}
