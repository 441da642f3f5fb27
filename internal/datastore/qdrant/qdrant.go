// Package qdrant implements the datastore.Backend contract over a Qdrant
// instance via its gRPC client. All namespaces share one collection and are
// isolated by a reserved payload key carried on every point and enforced as
// a mandatory filter condition on every search and delete.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/vvault/vecstore-go/internal/datastore"
	"github.com/vvault/vecstore-go/internal/retry"
)

// Config holds connection parameters for a Qdrant instance.
type Config struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection name backing all namespaces.
	Collection string

	// VectorSize is the embedding dimensionality stored in the collection.
	VectorSize uint64

	// APIKey is the optional API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Retry is the policy wrapped around every backend call.
	Retry retry.Policy

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Store implements datastore.Backend backed by a Qdrant collection.
type Store struct {
	// client is the underlying gRPC client, shared for the process lifetime.
	client *qdrant.Client
	// cfg holds the resolved configuration.
	cfg *Config
	// retry is the policy applied to each backend call.
	retry retry.Policy
	// log is the structured logger.
	log *slog.Logger
}

var _ datastore.Backend = (*Store)(nil)

// New connects to Qdrant, ensures the target collection exists (creating it
// with cosine distance if necessary), and returns a ready-to-use Store.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection must be set")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	s := &Store{client: client, cfg: cfg, retry: cfg.Retry, log: log}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureCollection creates the collection if it does not already exist.
func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// pointID maps a chunk id to a deterministic UUIDv5 point id, namespaced so
// the same chunk id in two namespaces never collides within the collection.
func pointID(namespace, chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(namespace+"/"+chunkID)).String()
}

// UpsertChunks writes one point per chunk and returns the chunk ids written.
// The whole write is a single upsert request; Qdrant handles server-side
// batching internally.
func (s *Store) UpsertChunks(ctx context.Context, chunks map[string][]datastore.DocumentChunk, namespace string) ([]string, error) {
	docIDs := slices.Sorted(maps.Keys(chunks))

	var points []*qdrant.PointStruct
	var chunkIDs []string
	for _, docID := range docIDs {
		for _, chunk := range chunks[docID] {
			payload, err := encodePayload(chunk, docID, namespace)
			if err != nil {
				return nil, fmt.Errorf("qdrant: chunk %s: %w", chunk.ID, err)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(namespace, chunk.ID)),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			})
			chunkIDs = append(chunkIDs, chunk.ID)
		}
	}
	if len(points) == 0 {
		return nil, nil
	}

	err := s.retry.Do(ctx, func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.cfg.Collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: upserting %d points: %w", len(points), err)
	}

	s.log.Debug("qdrant: upserted points",
		slog.Int("count", len(points)),
		slog.String("namespace", namespace),
	)
	return chunkIDs, nil
}

// Query fans out one similarity search per input query concurrently and
// returns results in input order; any single failure fails the whole call.
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

// singleQuery performs one scored search and normalizes its hits.
func (s *Store) singleQuery(ctx context.Context, q datastore.QueryWithEmbedding, namespace string) (datastore.QueryResult, error) {
	conds, err := translateConditions(q.Query.Filter)
	if err != nil {
		return datastore.QueryResult{}, err
	}

	limit := uint64(q.Query.TopK)

	var points []*qdrant.ScoredPoint
	err = s.retry.Do(ctx, func() error {
		var qerr error
		points, qerr = s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.cfg.Collection,
			Query:          qdrant.NewQuery(q.Embedding...),
			Limit:          &limit,
			Filter:         namespaceFilter(namespace, conds),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		return qerr
	})
	if err != nil {
		return datastore.QueryResult{}, fmt.Errorf("qdrant: query %q: %w", q.Query.Query, err)
	}

	chunks := make([]datastore.DocumentChunkWithScore, 0, len(points))
	for _, p := range points {
		chunkID, text, meta := decodePayload(p.Payload)
		if chunkID == "" {
			chunkID = p.Id.GetUuid()
		}
		chunks = append(chunks, datastore.DocumentChunkWithScore{
			ID:       chunkID,
			Score:    p.Score,
			Text:     text,
			Metadata: meta,
		})
	}
	return datastore.QueryResult{Query: q.Query.Query, Results: chunks}, nil
}

// Delete evaluates the request's selectors in fixed order: namespace wipe
// first (short-circuits), then metadata filter when it yields at least one
// condition, then explicit ids. Every path is constrained to the request's
// namespace.
func (s *Store) Delete(ctx context.Context, req datastore.DeleteRequest) error {
	if req.DeleteAll {
		if err := s.deleteByFilter(ctx, namespaceFilter(req.Namespace, nil)); err != nil {
			return fmt.Errorf("qdrant: deleting all vectors: %w", err)
		}
		s.log.Debug("qdrant: deleted all vectors", slog.String("namespace", req.Namespace))
		return nil
	}

	conds, err := translateConditions(req.Filter)
	if err != nil {
		return err
	}
	if len(conds) > 0 {
		if err := s.deleteByFilter(ctx, namespaceFilter(req.Namespace, conds)); err != nil {
			return fmt.Errorf("qdrant: deleting by filter: %w", err)
		}
	}

	if len(req.IDs) > 0 {
		pointIDs := make([]*qdrant.PointId, 0, len(req.IDs))
		for _, id := range req.IDs {
			pointIDs = append(pointIDs, qdrant.NewIDUUID(pointID(req.Namespace, id)))
		}
		err := s.retry.Do(ctx, func() error {
			_, derr := s.client.Delete(ctx, &qdrant.DeletePoints{
				CollectionName: s.cfg.Collection,
				Points:         qdrant.NewPointsSelector(pointIDs...),
				Wait:           qdrant.PtrOf(true),
			})
			return derr
		})
		if err != nil {
			return fmt.Errorf("qdrant: deleting %d ids: %w", len(req.IDs), err)
		}
	}

	return nil
}

// deleteByFilter removes every point matching the filter.
func (s *Store) deleteByFilter(ctx context.Context, filter *qdrant.Filter) error {
	return s.retry.Do(ctx, func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.cfg.Collection,
			Points:         qdrant.NewPointsSelectorFilter(filter),
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
}

// Stats reports the collection's vector counts: the total via an exact
// count, per-namespace counts via a facet over the namespace payload key.
func (s *Store) Stats(ctx context.Context) (*datastore.IndexStats, error) {
	stats := &datastore.IndexStats{
		Dimension:  int(s.cfg.VectorSize),
		Namespaces: map[string]int64{},
	}

	err := s.retry.Do(ctx, func() error {
		total, cerr := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.cfg.Collection,
			Exact:          qdrant.PtrOf(true),
		})
		if cerr != nil {
			return cerr
		}
		stats.TotalVectorCount = int64(total)

		hits, ferr := s.client.Facet(ctx, &qdrant.FacetCounts{
			CollectionName: s.cfg.Collection,
			Key:            namespaceKey,
			Exact:          qdrant.PtrOf(true),
		})
		if ferr != nil {
			return ferr
		}
		for _, hit := range hits {
			stats.Namespaces[hit.GetValue().GetStringValue()] = int64(hit.GetCount())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: collecting index stats: %w", err)
	}
	return stats, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
