package config

import (
	"fmt"
)

// WithProviderURL sets the provider URL
func WithProviderURL(providerURL string) Option {
	return func(c *Config) error {
		if providerURL == "" {
			return fmt.Errorf("provider URL cannot be empty")
		}
		c.ProviderURL = providerURL
		return nil
	}
}

// WithOutputDir sets the extraction directory
func WithOutputDir(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return fmt.Errorf("output directory cannot be empty")
		}
		c.OutputDir = dir
		return nil
	}
}

// WithSkipIfExisting keeps files already present in the output directory
func WithSkipIfExisting(skip bool) Option {
	return func(c *Config) error {
		c.SkipIfExisting = skip
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		if _, err := parseLevel(level); err != nil {
			return err
		}
		c.LogLevel = level
		return nil
	}
}

// WithAddr sets the HTTP listen address
func WithAddr(addr string) Option {
	return func(c *Config) error {
		if addr == "" {
			return fmt.Errorf("listen address cannot be empty")
		}
		c.Addr = addr
		return nil
	}
}

// WithSchemaSetup creates the postgres table on first use
func WithSchemaSetup(enabled bool) Option {
	return func(c *Config) error {
		c.SchemaSetup = enabled
		return nil
	}
}
