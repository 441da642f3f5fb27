// Package pinecone implements the datastore.Backend contract against the
// Pinecone data-plane REST API. Upserts are written sequentially in fixed-size
// batches; similarity searches fan out concurrently, one request per query;
// every network call passes through the shared retry policy and rate limiter.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/vvault/vecstore-go/internal/datastore"
	"github.com/vvault/vecstore-go/internal/metrics"
	"github.com/vvault/vecstore-go/internal/retry"
)

// DefaultBatchSize is the number of vector records per upsert request.
const DefaultBatchSize = 100

// defaultRequestTimeout bounds a single request attempt; retries are governed
// separately by the retry policy.
const defaultRequestTimeout = 30 * time.Second

// Config holds connection parameters for a Pinecone index. All state is
// explicit — there is no environment-derived package-level client.
type Config struct {
	// IndexHost is the index host URL (e.g. "https://idx-abc123.svc.us-east-1-aws.pinecone.io").
	IndexHost string

	// APIKey authenticates data-plane requests.
	APIKey string

	// BatchSize is the number of records per upsert request (default 100).
	BatchSize int

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64

	// RequestTimeout bounds a single request attempt (default 30s).
	RequestTimeout time.Duration

	// Retry is the policy wrapped around every backend call. The zero value
	// retries transient failures up to 3 attempts with 1s–20s randomized
	// exponential backoff.
	Retry retry.Policy

	// Registry receives the backend's Prometheus metrics.
	// Defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Store implements datastore.Backend over the Pinecone REST API.
type Store struct {
	// client is the shared data-plane HTTP client.
	client *client
	// batchSize is the upsert batch size.
	batchSize int
	// log is the structured logger.
	log *slog.Logger
}

var _ datastore.Backend = (*Store)(nil)

// New constructs a Store from the given config.
func New(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone: index host must be set")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key must be set")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Store{
		client: &client{
			host:    strings.TrimSuffix(cfg.IndexHost, "/"),
			apiKey:  cfg.APIKey,
			http:    &http.Client{Timeout: timeout},
			limiter: limiter,
			retry:   cfg.Retry,
			metrics: metrics.NewBackendMetrics(registry, "pinecone"),
			log:     log,
		},
		batchSize: batchSize,
		log:       log,
	}, nil
}

// Wire shapes for the Pinecone data-plane API.
type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []upsertVector `json:"vectors"`
	Namespace string         `json:"namespace,omitempty"`
}

type queryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	TopK            int            `json:"topK"`
	Vector          []float32      `json:"vector"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

type deleteRequest struct {
	IDs       []string       `json:"ids,omitempty"`
	DeleteAll bool           `json:"deleteAll,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

type statsResponse struct {
	Namespaces map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int   `json:"dimension"`
	TotalVectorCount int64 `json:"totalVectorCount"`
}

// UpsertChunks writes one vector record per chunk, carrying the chunk text
// and owning document id inside the metadata, in sequential batches of the
// configured size. Batch i is fully acknowledged before batch i+1 is sent; a
// failed batch aborts the remaining ones with earlier batches left committed
// (no rollback). Returns the ids of all chunks written.
func (s *Store) UpsertChunks(ctx context.Context, chunks map[string][]datastore.DocumentChunk, namespace string) ([]string, error) {
	// Document ids are iterated in sorted order so batch composition is
	// deterministic across runs.
	docIDs := slices.Sorted(maps.Keys(chunks))

	var vectors []upsertVector
	var chunkIDs []string
	for _, docID := range docIDs {
		for _, chunk := range chunks[docID] {
			meta, err := encodeMetadata(chunk.Metadata)
			if err != nil {
				return nil, fmt.Errorf("pinecone: chunk %s: %w", chunk.ID, err)
			}
			meta[metadataKeyText] = chunk.Text
			meta[metadataKeyDocumentID] = docID

			vectors = append(vectors, upsertVector{
				ID:       chunk.ID,
				Values:   chunk.Embedding,
				Metadata: meta,
			})
			chunkIDs = append(chunkIDs, chunk.ID)
		}
	}

	for start := 0; start < len(vectors); start += s.batchSize {
		end := min(start+s.batchSize, len(vectors))
		batch := vectors[start:end]
		s.client.metrics.UpsertBatchSize.Observe(float64(len(batch)))

		req := upsertRequest{Vectors: batch, Namespace: namespace}
		if err := s.client.post(ctx, "/vectors/upsert", "upsert", req, nil); err != nil {
			return nil, fmt.Errorf("pinecone: upserting batch of %d: %w", len(batch), err)
		}
		s.log.Debug("pinecone: upserted batch",
			slog.Int("size", len(batch)),
			slog.String("namespace", namespace),
		)
	}

	return chunkIDs, nil
}

// Query issues one top-k similarity search per input query, all concurrently,
// and waits for every search to finish before returning. Results mirror input
// order. A failure in any single search fails the whole call — there is no
// partial-results mode.
func (s *Store) Query(ctx context.Context, queries []datastore.QueryWithEmbedding, namespace string) ([]datastore.QueryResult, error) {
	results := make([]datastore.QueryResult, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.singleQuery(ctx, q, namespace)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// singleQuery performs one similarity search and normalizes its matches.
func (s *Store) singleQuery(ctx context.Context, q datastore.QueryWithEmbedding, namespace string) (datastore.QueryResult, error) {
	filter, err := translateFilter(q.Query.Filter)
	if err != nil {
		return datastore.QueryResult{}, err
	}

	req := queryRequest{
		Namespace:       namespace,
		TopK:            q.Query.TopK,
		Vector:          q.Embedding,
		Filter:          filter,
		IncludeMetadata: true,
	}
	if len(filter) == 0 {
		req.Filter = nil
	}

	var resp queryResponse
	if err := s.client.post(ctx, "/query", "query", req, &resp); err != nil {
		return datastore.QueryResult{}, fmt.Errorf("pinecone: query %q: %w", q.Query.Query, err)
	}

	chunks := make([]datastore.DocumentChunkWithScore, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		text, meta := decodeMetadata(m.Metadata)
		chunks = append(chunks, datastore.DocumentChunkWithScore{
			ID:       m.ID,
			Score:    m.Score,
			Text:     text,
			Metadata: meta,
		})
	}
	return datastore.QueryResult{Query: q.Query.Query, Results: chunks}, nil
}

// Delete evaluates the request's selectors in fixed order. DeleteAll wipes
// the namespace and returns immediately, ignoring the other selectors. A
// supplied filter is issued only when it translates to a non-empty expression
// — an empty expression means match-all and must never become an accidental
// namespace wipe. An explicit id list is issued last. Each selector is a
// separate backend call and any failure propagates.
func (s *Store) Delete(ctx context.Context, req datastore.DeleteRequest) error {
	if req.DeleteAll {
		wipe := deleteRequest{DeleteAll: true, Namespace: req.Namespace}
		if err := s.client.post(ctx, "/vectors/delete", "delete", wipe, nil); err != nil {
			return fmt.Errorf("pinecone: deleting all vectors: %w", err)
		}
		s.log.Debug("pinecone: deleted all vectors", slog.String("namespace", req.Namespace))
		return nil
	}

	filter, err := translateFilter(req.Filter)
	if err != nil {
		return err
	}
	if len(filter) > 0 {
		byFilter := deleteRequest{Filter: filter, Namespace: req.Namespace}
		if err := s.client.post(ctx, "/vectors/delete", "delete", byFilter, nil); err != nil {
			return fmt.Errorf("pinecone: deleting by filter: %w", err)
		}
	}

	if len(req.IDs) > 0 {
		byIDs := deleteRequest{IDs: req.IDs, Namespace: req.Namespace}
		if err := s.client.post(ctx, "/vectors/delete", "delete", byIDs, nil); err != nil {
			return fmt.Errorf("pinecone: deleting %d ids: %w", len(req.IDs), err)
		}
	}

	return nil
}

// Stats returns the index statistics reported by describe_index_stats.
func (s *Store) Stats(ctx context.Context) (*datastore.IndexStats, error) {
	var resp statsResponse
	if err := s.client.post(ctx, "/describe_index_stats", "stats", struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("pinecone: describing index stats: %w", err)
	}

	stats := &datastore.IndexStats{
		Dimension:        resp.Dimension,
		TotalVectorCount: resp.TotalVectorCount,
		Namespaces:       make(map[string]int64, len(resp.Namespaces)),
	}
	for ns, n := range resp.Namespaces {
		stats.Namespaces[ns] = n.VectorCount
	}
	return stats, nil
}

// Close releases idle HTTP connections.
func (s *Store) Close() error {
	s.client.http.CloseIdleConnections()
	return nil
}
