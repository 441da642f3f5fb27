package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewLogCmd constructs the `vecstore log` command, which prints recent entries
// from the local operations journal.
func NewLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent upsert and delete operations from the local journal",
		Long: `Print the most recent mutations recorded in the local operations journal
(newest first). The journal is written on every upsert and delete; disable it
with VECSTORE_LEDGER_DB=disabled.

Example:
  vecstore log --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			journal, err := newJournalFromEnv()
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			if journal == nil {
				return fmt.Errorf("log: the operations journal is disabled (VECSTORE_LEDGER_DB=disabled)")
			}
			defer journal.Close()

			entries, err := journal.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("no operations recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOP\tNAMESPACE\tDOCUMENT\tCHUNKS\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					e.CreatedAt.Format(time.RFC3339), e.Op, orDash(e.Namespace),
					orDash(e.DocumentID), e.ChunkCount, orDash(e.Detail))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")

	return cmd
}

// orDash substitutes "-" for empty strings in tabular output.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
