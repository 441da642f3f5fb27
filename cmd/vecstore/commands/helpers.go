package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/vvault/vecstore-go/internal/chunker"
	"github.com/vvault/vecstore-go/internal/datastore"
	"github.com/vvault/vecstore-go/internal/datastore/pinecone"
	"github.com/vvault/vecstore-go/internal/datastore/qdrant"
	"github.com/vvault/vecstore-go/internal/embedder"
	"github.com/vvault/vecstore-go/internal/ledger"
)

// newBackendFromEnv constructs the vector database backend selected by
// DATASTORE_PROVIDER (pinecone or qdrant).
func newBackendFromEnv(ctx context.Context, log *slog.Logger) (datastore.Backend, error) {
	provider := getEnvOrDefault("DATASTORE_PROVIDER", "pinecone")

	switch provider {
	case "pinecone":
		return pinecone.New(&pinecone.Config{
			IndexHost:         os.Getenv("PINECONE_INDEX_HOST"),
			APIKey:            os.Getenv("PINECONE_API_KEY"),
			BatchSize:         getEnvInt("PINECONE_BATCH_SIZE", 0),
			RequestsPerSecond: getEnvFloat("PINECONE_REQUESTS_PER_SECOND", 0),
			Logger:            log,
		})

	case "qdrant":
		embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "openai")
		vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded
		return qdrant.New(ctx, &qdrant.Config{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "vecstore-docs"),
			VectorSize: vectorSize,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			Logger:     log,
		})

	default:
		return nil, fmt.Errorf("unknown DATASTORE_PROVIDER %q — valid values: pinecone, qdrant", provider)
	}
}

// newStoreFromEnv wires the embedding provider, chunker, and backend into a
// ready-to-use datastore.Store. The caller owns the returned store and must
// Close it.
func newStoreFromEnv(ctx context.Context, log *slog.Logger) (*datastore.Store, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	chunks, err := chunker.New(emb)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise chunker: %w", err)
	}

	backend, err := newBackendFromEnv(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise backend: %w", err)
	}

	store, err := datastore.New(backend, chunks, emb, datastore.WithLogger(log))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}

// newJournalFromEnv opens the operations journal. Returns nil (no error) when
// the ledger is disabled via VECSTORE_LEDGER_DB=disabled; journal failures are
// reported so they can be surfaced as warnings rather than aborting commands.
func newJournalFromEnv() (ledger.Journal, error) {
	path := os.Getenv("VECSTORE_LEDGER_DB")
	if path == "disabled" {
		return nil, nil
	}
	if path == "" {
		var err error
		path, err = ledger.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return ledger.Open(path)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
