package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealgrid/freshness/infrastructure/connectivity"
)

// watchOptions holds options for the watch command.
type watchOptions struct {
	url      string
	interval time.Duration
	timeout  time.Duration
}

// newWatchCmd creates the watch command.
func (a *App) newWatchCmd() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Probe reachability and print transitions",
		Long: `Probe a URL periodically and print every reachability transition
until interrupted.

Examples:
  freshness watch --url https://status.example.com/ping
  freshness watch --url https://status.example.com/ping --interval 5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.url == "" {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				opts.url = cfg.Connectivity.ProbeURL
				if !cmd.Flags().Changed("interval") {
					opts.interval = cfg.Connectivity.ProbeInterval.Duration()
				}
				if !cmd.Flags().Changed("timeout") {
					opts.timeout = cfg.Connectivity.ProbeTimeout.Duration()
				}
			}
			if opts.url == "" {
				return fmt.Errorf("probe URL is required (--url flag or connectivity.probe_url)")
			}

			monitor := connectivity.NewMonitor()
			unsub := monitor.Subscribe(func(online bool) {
				state := "offline"
				if online {
					state = "online"
				}
				fmt.Fprintf(a.stdout, "%s  %s\n", time.Now().Format(time.RFC3339), state)
			})
			defer unsub()

			watcher := connectivity.NewWatcher(monitor,
				connectivity.WithInterval(opts.interval),
				connectivity.WithCheck(connectivity.HTTPCheck(opts.url, opts.timeout)),
			)

			ctx := cmd.Context()
			fmt.Fprintf(a.stdout, "Probing %s every %s (Ctrl-C to stop)\n", opts.url, opts.interval)
			watcher.Start(ctx)
			<-ctx.Done()
			watcher.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "URL to probe with HEAD requests")
	cmd.Flags().DurationVar(&opts.interval, "interval", 30*time.Second, "Probe interval")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Per-probe timeout")

	return cmd
}
