package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vvault/vecstore-go/internal/datastore"
	"github.com/vvault/vecstore-go/internal/ledger"
)

// NewDeleteCmd constructs the `vecstore delete` command, which removes vectors
// from the configured backend by id, metadata filter, or wholesale.
func NewDeleteCmd() *cobra.Command {
	var namespace string
	var ids []string
	var all bool
	var docID, source, sourceID, author string
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete vectors from the vector database",
		Long: `Remove stored chunks by explicit chunk id, by metadata filter, or wipe the
whole namespace with --all.

Selectors combine: --all short-circuits everything else, otherwise the filter
is applied first and then the listed ids. An empty filter never deletes
anything — wiping a namespace requires the explicit --all flag.

Examples:
  vecstore delete --id doc-1_0 --id doc-1_1
  vecstore delete --document-id doc-1 --namespace reports
  vecstore delete --source chat --end-date 2023-12-31
  vecstore delete --all --namespace scratch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			filter := &datastore.DocumentMetadataFilter{
				DocumentID: docID,
				Source:     datastore.Source(source),
				SourceID:   sourceID,
				Author:     author,
				StartDate:  startDate,
				EndDate:    endDate,
			}
			if source != "" && !datastore.Source(source).Valid() {
				return fmt.Errorf("delete: invalid --source %q — valid values: email, file, chat", source)
			}
			if filter.IsZero() {
				filter = nil
			}

			if len(ids) == 0 && filter == nil && !all {
				return fmt.Errorf("delete: nothing selected — provide --id, a metadata filter, or --all")
			}

			store, err := newStoreFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			defer store.Close()

			req := datastore.DeleteRequest{
				IDs:       ids,
				Filter:    filter,
				DeleteAll: all,
				Namespace: namespace,
			}
			if err := store.Delete(ctx, req); err != nil {
				return fmt.Errorf("delete: %w", err)
			}

			detail := fmt.Sprintf("ids=%d filter=%t all=%t", len(ids), filter != nil, all)
			recordOperation(ctx, log, ledger.Entry{
				Op:         ledger.OpDelete,
				Namespace:  namespace,
				DocumentID: docID,
				Detail:     detail,
			})

			log.Info("delete complete",
				slog.String("namespace", namespace),
				slog.String("selectors", detail),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Backend namespace to delete from")
	cmd.Flags().StringArrayVar(&ids, "id", nil, "Chunk id to delete (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every vector in the namespace")
	cmd.Flags().StringVar(&docID, "document-id", "", "Delete all chunks of one document")
	cmd.Flags().StringVar(&source, "source", "", "Delete chunks by source kind (email, file, chat)")
	cmd.Flags().StringVar(&sourceID, "source-id", "", "Delete chunks by source-system identifier")
	cmd.Flags().StringVar(&author, "author", "", "Delete chunks by author")
	cmd.Flags().StringVar(&startDate, "start-date", "", "Delete chunks created at or after this time")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Delete chunks created at or before this time")

	return cmd
}
