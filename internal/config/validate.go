package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProxies(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return fmt.Errorf("paths.work_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	return nil
}

func (c *Config) validateProxies() error {
	for i, proxy := range c.Proxies {
		if strings.TrimSpace(proxy.Host) == "" {
			return fmt.Errorf("proxies[%d].host is required", i)
		}
		if proxy.Port <= 0 || proxy.Port > 65535 {
			return fmt.Errorf("proxies[%d].port must be within 1-65535", i)
		}
		if strings.TrimSpace(proxy.Username) == "" {
			return fmt.Errorf("proxies[%d].username is required", i)
		}
	}
	return nil
}

func (c *Config) validateQuota() error {
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"quota.free_limit", c.Quota.FreeLimit},
		{"quota.pro_limit", c.Quota.ProLimit},
		{"quota.enterprise_limit", c.Quota.EnterpriseLimit},
	} {
		if limit.value < UnlimitedQuota {
			return fmt.Errorf("%s must be a positive count or %d for unlimited", limit.name, UnlimitedQuota)
		}
		if limit.value == 0 {
			return fmt.Errorf("%s cannot be zero", limit.name)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers <= 0 {
		return fmt.Errorf("workflow.workers must be positive")
	}
	if c.Workflow.QueuePollInterval <= 0 {
		return fmt.Errorf("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return fmt.Errorf("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
