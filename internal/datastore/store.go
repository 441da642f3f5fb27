package datastore

import (
	"context"
	"fmt"
	"log/slog"
)

// defaultTopK is the result count used when a query does not specify one.
const defaultTopK = 3

// UpsertOptions controls a single Upsert call.
type UpsertOptions struct {
	// Namespace scopes the write. Empty means the default namespace.
	Namespace string

	// ChunkTokenSize is a hint for the maximum tokens per chunk.
	// Zero selects the ChunkProvider's default.
	ChunkTokenSize int

	// ReplaceExisting deletes any vectors already stored for each input
	// document id (via a document-id filter) before inserting the new
	// chunks. When false, re-upserting a document id creates duplicate
	// chunk records rather than replacing them.
	ReplaceExisting bool
}

// Store binds a Backend to its chunking and embedding collaborators and
// exposes the namespace-scoped data-store operations. Construct it with
// [New]; there is no package-level instance. Store is safe for concurrent
// use if its collaborators are.
type Store struct {
	// backend is the concrete vector database adapter.
	backend Backend
	// chunks splits documents into embedded chunks.
	chunks ChunkProvider
	// embedder resolves query strings to embedding vectors.
	embedder EmbeddingProvider
	// log is the structured logger for store operations.
	log *slog.Logger
}

// Option customizes a Store at construction time.
type Option func(*Store)

// WithLogger sets the structured logger used by the store.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New constructs a Store from its three collaborators.
func New(backend Backend, chunks ChunkProvider, embedder EmbeddingProvider, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("datastore: backend must not be nil")
	}
	if chunks == nil {
		return nil, fmt.Errorf("datastore: chunk provider must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("datastore: embedding provider must not be nil")
	}
	s := &Store{
		backend:  backend,
		chunks:   chunks,
		embedder: embedder,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upsert chunks the documents and writes the resulting vectors to the
// backend. It returns the ids of all chunk records written. Chunking and
// backend failures propagate unwrapped beyond added context; there is no
// retry at this layer for collaborator failures.
func (s *Store) Upsert(ctx context.Context, docs []Document, opts UpsertOptions) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	if opts.ReplaceExisting {
		for _, doc := range docs {
			if doc.ID == "" {
				continue
			}
			req := DeleteRequest{
				Filter:    &DocumentMetadataFilter{DocumentID: doc.ID},
				Namespace: opts.Namespace,
			}
			if err := s.backend.Delete(ctx, req); err != nil {
				return nil, fmt.Errorf("datastore: replacing document %s: %w", doc.ID, err)
			}
		}
	}

	chunks, err := s.chunks.GetDocumentChunks(ctx, docs, opts.ChunkTokenSize)
	if err != nil {
		return nil, fmt.Errorf("datastore: chunking documents: %w", err)
	}

	ids, err := s.backend.UpsertChunks(ctx, chunks, opts.Namespace)
	if err != nil {
		return nil, err
	}

	s.log.Debug("datastore: upsert complete",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(ids)),
		slog.String("namespace", opts.Namespace),
	)
	return ids, nil
}

// Query resolves all query strings to embeddings in one batched call, then
// delegates the searches to the backend. An embedding failure fails the whole
// call. The provider's usage accounting is passed through unchanged.
func (s *Store) Query(ctx context.Context, queries []Query, namespace string) (*QueryResponse, error) {
	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Query
	}

	embedded, err := s.embedder.GetEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("datastore: embedding queries: %w", err)
	}
	if len(embedded.Embeddings) != len(queries) {
		return nil, fmt.Errorf("datastore: embedding provider returned %d vectors for %d queries",
			len(embedded.Embeddings), len(queries))
	}

	withEmbeddings := make([]QueryWithEmbedding, len(queries))
	for i, q := range queries {
		if q.TopK <= 0 {
			q.TopK = defaultTopK
		}
		withEmbeddings[i] = QueryWithEmbedding{Query: q, Embedding: embedded.Embeddings[i]}
	}

	results, err := s.backend.Query(ctx, withEmbeddings, namespace)
	if err != nil {
		return nil, err
	}

	return &QueryResponse{Results: results, Usage: embedded.Usage}, nil
}

// Delete removes vectors per the request's selectors. Failures propagate as
// errors; a nil return means every issued backend call completed.
func (s *Store) Delete(ctx context.Context, req DeleteRequest) error {
	return s.backend.Delete(ctx, req)
}

// Stats returns backend-reported index statistics.
func (s *Store) Stats(ctx context.Context) (*IndexStats, error) {
	return s.backend.Stats(ctx)
}

// Close releases the backend connection.
func (s *Store) Close() error {
	return s.backend.Close()
}
