// Package cli provides a command-line interface for operating the
// freshness subsystem: inspecting and purging the durable mirror,
// validating configuration, and watching reachability.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dealgrid/freshness"
	domainconfig "github.com/dealgrid/freshness/domain/config"
	"github.com/dealgrid/freshness/infrastructure/config"
)

// App represents the CLI application.
type App struct {
	root       *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	configPath string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "freshness",
		Short: "Client-side data freshness and resilience toolkit",
		Long: `freshness keeps marketplace views honest about their data: it tracks
reachability, ages cached query results, mirrors them durably across
restarts, and recovers stalled retries when connectivity returns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newStatsCmd(),
		app.newClearCmd(),
		app.newWatchCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig loads the configured file, or defaults when none is given.
func (a *App) loadConfig() (*domainconfig.Config, error) {
	if a.configPath == "" {
		cfg := domainconfig.Default()
		return &cfg, nil
	}
	return config.NewLoader().LoadFile(a.configPath)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "freshness version %s\n", freshness.Version)
		},
	}
}
