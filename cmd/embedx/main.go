package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-embed/pkg/embedfile"
	"github.com/tendant/simple-embed/pkg/embedfile/config"
	"github.com/tendant/simple-embed/pkg/embedfile/manifest"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "embedx",
		Short: "Inspect and extract bundled files",
		Long: `embedx lists, prints, extracts and serves the files registered in a manifest.

Payloads come from the assets compiled into the binary unless EMBED_PROVIDER_URL
(or --provider) points at a directory, an S3 bucket or a Postgres table.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("provider", "", "provider URL (overrides EMBED_PROVIDER_URL)")
	rootCmd.PersistentFlags().String("manifest", "", "manifest file (default: bundled manifest)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewCatCommand())
	rootCmd.AddCommand(NewExtractCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}

// runtime is what every subcommand works against
type runtime struct {
	config   *config.Config
	logger   *slog.Logger
	registry *embedfile.Registry
	provider embedfile.ContentProvider
}

// Close releases provider resources such as a postgres pool
func (rt *runtime) Close() {
	if c, ok := rt.provider.(interface{ Close() }); ok {
		c.Close()
	}
}

// newRuntime loads configuration, builds the provider and registers the
// manifest. Callers must Close the returned runtime.
func newRuntime(cmd *cobra.Command, extra ...config.Option) (*runtime, error) {
	env, err := readEnv()
	if err != nil {
		return nil, err
	}

	opts := []config.Option{config.WithEnv(envPrefix)}
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		opts = append(opts, config.WithProviderURL(v))
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		opts = append(opts, config.WithLogLevel(v))
	}
	opts = append(opts, extra...)

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	provider, err := cfg.BuildProvider(cmd.Context(), bundledFiles())
	if err != nil {
		return nil, fmt.Errorf("failed to build provider: %w", err)
	}
	rt := &runtime{config: cfg, logger: logger, provider: provider}

	registry, err := loadRegistry(cmd, env, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.registry = registry

	logger.Debug("Registry ready", "provider", cfg.ProviderURL, "files", registry.Len())
	return rt, nil
}

func loadRegistry(cmd *cobra.Command, env Env, rt *runtime) (*embedfile.Registry, error) {
	manifestPath := env.Manifest
	if v, _ := cmd.Flags().GetString("manifest"); v != "" {
		manifestPath = v
	}
	r, err := openManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer r.Close()

	m, err := manifest.Parse(r)
	if err != nil {
		return nil, err
	}

	registry := embedfile.NewRegistry(
		embedfile.WithHooks(embedfile.LoggingHooks(rt.logger)),
		embedfile.WithRegistryLogger(rt.logger),
	)
	if err := m.Register(cmd.Context(), registry, rt.provider, embedfile.WithLogger(rt.logger)); err != nil {
		return nil, err
	}
	return registry, nil
}
