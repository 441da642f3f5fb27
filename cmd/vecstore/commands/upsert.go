package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvault/vecstore-go/internal/datastore"
	"github.com/vvault/vecstore-go/internal/ledger"
)

// NewUpsertCmd constructs the `vecstore upsert` command, which chunks, embeds,
// and writes documents to the configured backend.
func NewUpsertCmd() *cobra.Command {
	var files []string
	var namespace string
	var chunkSize int
	var replace bool

	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Chunk, embed, and store documents in the vector database",
		Long: `Read documents from JSON files (or stdin), split them into token-bounded
chunks, embed each chunk, and write the vectors to the configured backend.

Input is a JSON array of documents:
  [{"id": "doc-1", "text": "...", "metadata": {"source": "file", "author": "..."}}]

Document ids are optional — missing ids are generated. With --replace, any
vectors already stored for each supplied document id are deleted before the
new chunks are written, so re-upserting replaces instead of duplicating.

Examples:
  vecstore upsert --file docs.json
  vecstore upsert --file docs.json --namespace reports --replace
  cat docs.json | vecstore upsert --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			if len(files) == 0 {
				return fmt.Errorf("upsert: at least one --file is required")
			}

			var docs []datastore.Document
			for _, f := range files {
				batch, err := readDocuments(f)
				if err != nil {
					return fmt.Errorf("upsert: %w", err)
				}
				docs = append(docs, batch...)
			}
			if len(docs) == 0 {
				return fmt.Errorf("upsert: no documents found in input")
			}

			store, err := newStoreFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("upsert: %w", err)
			}
			defer store.Close()

			ids, err := store.Upsert(ctx, docs, datastore.UpsertOptions{
				Namespace:       namespace,
				ChunkTokenSize:  chunkSize,
				ReplaceExisting: replace,
			})
			if err != nil {
				return fmt.Errorf("upsert: %w", err)
			}

			recordOperation(ctx, log, ledger.Entry{
				Op:         ledger.OpUpsert,
				Namespace:  namespace,
				ChunkCount: len(ids),
				Detail:     fmt.Sprintf("documents=%d replace=%t", len(docs), replace),
			})

			log.Info("upsert complete",
				slog.Int("documents", len(docs)),
				slog.Int("chunks", len(ids)),
				slog.String("namespace", namespace),
			)
			return json.NewEncoder(os.Stdout).Encode(map[string]any{"ids": ids})
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "JSON file of documents to upsert, or '-' for stdin (repeatable)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Backend namespace to write into")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Target tokens per chunk (default: 200)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete existing vectors for each document id before writing")

	return cmd
}

// readDocuments parses a JSON array of documents from the given path, or from
// stdin when path is "-".
func readDocuments(path string) ([]datastore.Document, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var docs []datastore.Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return docs, nil
}

// recordOperation writes a journal entry, logging a warning instead of
// failing the command when the ledger is unavailable. A disabled ledger is
// silently skipped.
func recordOperation(ctx context.Context, log *slog.Logger, e ledger.Entry) {
	journal, err := newJournalFromEnv()
	if err != nil {
		log.Warn("ledger unavailable, operation not journaled", slog.String("error", err.Error()))
		return
	}
	if journal == nil {
		return
	}
	defer journal.Close()

	if err := journal.Record(ctx, e); err != nil {
		log.Warn("failed to journal operation", slog.String("error", err.Error()))
	}
}
