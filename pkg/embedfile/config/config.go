package config

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-embed/pkg/embedfile"
	fsprovider "github.com/tendant/simple-embed/pkg/embedfile/provider/fs"
	"github.com/tendant/simple-embed/pkg/embedfile/provider/memory"
	"github.com/tendant/simple-embed/pkg/embedfile/provider/postgres"
	s3provider "github.com/tendant/simple-embed/pkg/embedfile/provider/s3"
)

// Provider URL schemes
const (
	SchemeBundled    = "bundled"
	SchemeMemory     = "memory"
	SchemeFile       = "file"
	SchemeS3         = "s3"
	SchemePostgres   = "postgres"
	SchemePostgreSQL = "postgresql"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Config selects where payloads come from and how they are extracted
type Config struct {
	// ProviderURL picks the content provider, e.g. "bundled://",
	// "file:///srv/assets" or "s3://bucket?region=us-east-1&prefix=bundles"
	ProviderURL string

	OutputDir      string
	SkipIfExisting bool
	LogLevel       string // debug, info, warn, error

	// Addr is the listen address for the HTTP surface
	Addr string

	// SchemaSetup creates the postgres table on first use
	SchemaSetup bool
}

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		ProviderURL: SchemeBundled + "://",
		OutputDir:   ".",
		LogLevel:    "info",
		Addr:        ":8080",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	u, err := url.Parse(c.ProviderURL)
	if err != nil {
		return fmt.Errorf("invalid provider URL %q: %w", c.ProviderURL, err)
	}
	switch u.Scheme {
	case SchemeBundled, SchemeMemory, SchemePostgres, SchemePostgreSQL:
	case SchemeFile:
		if u.Path == "" {
			return fmt.Errorf("filesystem path cannot be empty in provider URL")
		}
	case SchemeS3:
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in provider URL")
		}
	default:
		return fmt.Errorf("unsupported provider URL format: %s (use 'bundled://', 'memory://', 'file://...', 's3://...' or 'postgres://...')", c.ProviderURL)
	}
	return nil
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// BuildProvider creates the content provider named by ProviderURL. bundled
// backs the "bundled://" scheme and may be nil when that scheme is unused.
// Postgres providers own their pool and must be released with Close.
func (c *Config) BuildProvider(ctx context.Context, bundled iofs.FS) (embedfile.ContentProvider, error) {
	u, err := url.Parse(c.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider URL %q: %w", c.ProviderURL, err)
	}

	switch u.Scheme {
	case SchemeBundled:
		if bundled == nil {
			return nil, errors.New("no bundled assets available")
		}
		return fsprovider.NewFromFS(bundled), nil

	case SchemeMemory:
		return memory.New(), nil

	case SchemeFile:
		return fsprovider.NewDir(fsprovider.Config{BaseDir: u.Path})

	case SchemeS3:
		return s3provider.New(s3Config(u))

	case SchemePostgres, SchemePostgreSQL:
		pool, err := pgxpool.New(ctx, c.ProviderURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		provider := postgres.NewWithPool(pool)
		if c.SchemaSetup {
			if err := provider.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported provider URL format: %s", c.ProviderURL)
	}
}

// s3Config maps s3://bucket?region=..&prefix=..&endpoint=..&path_style=true
// onto the provider config. Credentials come from the AWS environment.
func s3Config(u *url.URL) s3provider.Config {
	q := u.Query()
	cfg := s3provider.Config{
		Bucket:   u.Host,
		Region:   q.Get("region"),
		Prefix:   strings.Trim(q.Get("prefix"), "/"),
		Endpoint: q.Get("endpoint"),
	}
	if b, err := strconv.ParseBool(q.Get("path_style")); err == nil {
		cfg.UsePathStyle = b
	}

	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
	}
	if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
		cfg.AccessKeyID = accessKey
	}
	if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
		cfg.SecretAccessKey = secretKey
	}
	return cfg
}
