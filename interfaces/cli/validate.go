package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dealgrid/freshness/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a freshness configuration file for correctness.

Examples:
  # Validate a configuration file
  freshness validate -c freshness.yaml

  # Strict validation (fail on missing env vars)
  freshness validate -c freshness.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if a.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loaderOpts := []config.LoaderOption{
		config.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, config.WithStrictEnv(true))
	}

	loader := config.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	if cfg.Name != "" {
		fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	}

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Cache max age: %s\n", cfg.Cache.MaxAge.Duration())
	if cfg.Cache.MirrorDir != "" {
		fmt.Fprintf(a.stdout, "  Durable mirror: %s\n", cfg.Cache.MirrorDir)
	} else if cfg.Cache.MirrorInMemory {
		fmt.Fprintf(a.stdout, "  Durable mirror: in-memory\n")
	} else {
		fmt.Fprintf(a.stdout, "  Durable mirror: disabled\n")
	}
	fmt.Fprintf(a.stdout, "  Retry budget: %d\n", cfg.Retry.MaxRetries)
	fmt.Fprintf(a.stdout, "  Refresh interval: %s\n", cfg.Refresh.Interval.Duration())
	if cfg.Connectivity.ProbeURL != "" {
		fmt.Fprintf(a.stdout, "  Reachability probe: %s every %s\n",
			cfg.Connectivity.ProbeURL, cfg.Connectivity.ProbeInterval.Duration())
	}

	return nil
}
