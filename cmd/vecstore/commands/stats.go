package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewStatsCmd constructs the `vecstore stats` command, which prints index
// statistics reported by the configured backend.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics from the vector database",
		Long: `Report the backend index's embedding dimension, total vector count, and
per-namespace vector counts as JSON on stdout.

Example:
  vecstore stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			store, err := newStoreFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer store.Close()

			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
