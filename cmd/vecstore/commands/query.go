package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvault/vecstore-go/internal/datastore"
)

// NewQueryCmd constructs the `vecstore query` command, which runs similarity
// searches against the configured backend.
func NewQueryCmd() *cobra.Command {
	var namespace string
	var topK int
	var docID, source, sourceID, author string
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "query [text]...",
		Short: "Run similarity queries against the vector database",
		Long: `Embed one or more query strings and search the configured backend for the
most similar document chunks. Multiple queries are searched concurrently;
results are returned in input order as JSON on stdout.

Metadata flags narrow the search: equality flags (--document-id, --source,
--source-id, --author) must all match, and --start-date / --end-date bound
the stored creation timestamp (RFC 3339 or YYYY-MM-DD).

Examples:
  vecstore query "quarterly revenue guidance"
  vecstore query --namespace reports --top-k 5 "budget overruns" "hiring plans"
  vecstore query --source email --start-date 2024-01-01 "contract renewal"`,
		Args: cobra.MinimumNArgs(1),
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
				return fmt.Errorf("query: invalid --source %q — valid values: email, file, chat", source)
			}
			if filter.IsZero() {
				filter = nil
			}

			queries := make([]datastore.Query, len(args))
			for i, text := range args {
				queries[i] = datastore.Query{Query: text, Filter: filter, TopK: topK}
			}

			store, err := newStoreFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer store.Close()

			resp, err := store.Query(ctx, queries, namespace)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			log.Info("query complete",
				slog.Int("queries", len(queries)),
				slog.Int("prompt_tokens", resp.Usage.PromptTokens),
			)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Backend namespace to search")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results per query (default: 3)")
	cmd.Flags().StringVar(&docID, "document-id", "", "Restrict matches to one document")
	cmd.Flags().StringVar(&source, "source", "", "Restrict matches by source kind (email, file, chat)")
	cmd.Flags().StringVar(&sourceID, "source-id", "", "Restrict matches by source-system identifier")
	cmd.Flags().StringVar(&author, "author", "", "Restrict matches by author")
	cmd.Flags().StringVar(&startDate, "start-date", "", "Match chunks created at or after this time")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Match chunks created at or before this time")

	return cmd
}
