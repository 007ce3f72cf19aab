package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	badgerstore "github.com/dealgrid/freshness/infrastructure/storage/badger"
)

// openMirror opens the durable mirror named by the loaded configuration.
func (a *App) openMirror() (*badgerstore.Mirror, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.MirrorDir == "" {
		return nil, fmt.Errorf("no durable mirror configured (set cache.mirror_dir)")
	}

	mirrorCfg := badgerstore.DefaultConfig()
	mirrorCfg.Dir = cfg.Cache.MirrorDir
	return badgerstore.NewMirror(mirrorCfg)
}

// newStatsCmd creates the stats command.
func (a *App) newStatsCmd() *cobra.Command {
	var showKeys bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show durable mirror statistics",
		Long: `Show how many entries the durable mirror holds.

Examples:
  # Entry count
  freshness stats -c freshness.yaml

  # Entry count plus every mirrored key
  freshness stats -c freshness.yaml --keys`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, err := a.openMirror()
			if err != nil {
				return err
			}
			defer mirror.Close()

			keys, err := mirror.Keys(cmd.Context(), "")
			if err != nil {
				return fmt.Errorf("failed to list mirror keys: %w", err)
			}

			fmt.Fprintf(a.stdout, "Mirrored entries: %d\n", len(keys))
			if showKeys {
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintf(a.stdout, "  %s\n", key)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showKeys, "keys", false, "List every mirrored key")

	return cmd
}

// newClearCmd creates the clear command.
func (a *App) newClearCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Purge the durable mirror",
		Long: `Purge entries from the durable mirror. Without --prefix every
entry is dropped.

Examples:
  # Drop everything
  freshness clear -c freshness.yaml

  # Drop one key family
  freshness clear -c freshness.yaml --prefix deals/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, err := a.openMirror()
			if err != nil {
				return err
			}
			defer mirror.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if prefix != "" {
				if err := mirror.DeletePrefix(ctx, prefix); err != nil {
					return fmt.Errorf("failed to purge prefix: %w", err)
				}
				fmt.Fprintf(a.stdout, "Purged mirrored entries under %q\n", prefix)
				return nil
			}

			if err := mirror.Clear(ctx); err != nil {
				return fmt.Errorf("failed to purge mirror: %w", err)
			}
			fmt.Fprintln(a.stdout, "Durable mirror purged")
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Purge only keys with this prefix")

	return cmd
}
