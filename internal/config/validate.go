package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePortal(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateEmbeddings(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePortal() error {
	if c.Portal.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/minutebook/config.toml"
		}
		return fmt.Errorf("portal.base_url is required. Edit %s (create with 'minutebook config init')", defaultPath)
	}
	if c.Portal.RequestTimeout <= 0 {
		return errors.New("portal.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.MinConfidence < 0 || c.Matching.MinConfidence > 1 {
		return errors.New("matching.min_confidence must be between 0 and 1")
	}
	if c.Matching.AmbiguityMargin < 0 || c.Matching.AmbiguityMargin > 1 {
		return errors.New("matching.ambiguity_margin must be between 0 and 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxParallel < 1 {
		return errors.New("pipeline.max_parallel must be at least 1")
	}
	return nil
}

func (c *Config) validateEmbeddings() error {
	if !c.Embeddings.Enabled {
		return nil
	}
	if c.Embeddings.BatchSize < 1 {
		return errors.New("embeddings.batch_size must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
