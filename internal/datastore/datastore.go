// Package datastore defines the backend-agnostic contract for storing and
// searching embedded document chunks. Callers interact with [Store], which
// binds a chunking collaborator, an embedding collaborator, and a concrete
// [Backend] (Pinecone, Qdrant, ...). Swapping the backend never changes a
// call site.
package datastore

import (
	"context"
)

// Source identifies the origin kind of a document. Values outside this
// enumeration are treated as unset when read back from a backend, so
// malformed or legacy records never break deserialization on the caller side.
type Source string

const (
	// SourceEmail marks documents extracted from email messages.
	SourceEmail Source = "email"
	// SourceFile marks documents extracted from files.
	SourceFile Source = "file"
	// SourceChat marks documents extracted from chat transcripts.
	SourceChat Source = "chat"
)

// Valid reports whether s is one of the known source enumerators.
func (s Source) Valid() bool {
	switch s {
	case SourceEmail, SourceFile, SourceChat:
		return true
	}
	return false
}

// DocumentMetadata describes a document's provenance. All fields are optional;
// unset fields are omitted from backend records entirely (never written as
// explicit nulls, since backend filter equality must not match against nulls).
type DocumentMetadata struct {
	// Source is the origin kind of the document.
	Source Source `json:"source,omitempty"`
	// SourceID is the identifier of the document within its source system.
	SourceID string `json:"source_id,omitempty"`
	// URL is the location the document was fetched from.
	URL string `json:"url,omitempty"`
	// CreatedAt is the document creation timestamp, RFC 3339 or YYYY-MM-DD.
	// It is stored backend-side as Unix epoch seconds (see ParseUnixTimestamp).
	CreatedAt string `json:"created_at,omitempty"`
	// Author is the document author.
	Author string `json:"author,omitempty"`
}

// Document is a caller-supplied unit of text to be chunked and stored.
// Documents are consumed once by the ChunkProvider and never stored directly.
type Document struct {
	// ID identifies the document. If empty, the ChunkProvider assigns one.
	ID string `json:"id,omitempty"`
	// Text is the raw document text.
	Text string `json:"text"`
	// Metadata carries the document's provenance fields.
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}

// DocumentChunkMetadata is chunk-level metadata: the parent document's
// metadata plus a back-reference to the owning document.
type DocumentChunkMetadata struct {
	DocumentMetadata
	// DocumentID is the identifier of the document this chunk belongs to.
	DocumentID string `json:"document_id,omitempty"`
}

// DocumentChunk is the unit of storage: one chunk maps to exactly one vector
// record in the backend. Chunk identifiers must be unique within a namespace.
type DocumentChunk struct {
	// ID is the chunk identifier, derived from the parent document id plus a
	// sequence index (e.g. "doc1_0").
	ID string `json:"id"`
	// Text is the chunk's text fragment.
	Text string `json:"text"`
	// Metadata is the chunk metadata inherited from the parent document.
	Metadata *DocumentChunkMetadata `json:"metadata,omitempty"`
	// Embedding is the chunk's pre-computed embedding vector.
	Embedding []float32 `json:"embedding,omitempty"`
}

// DocumentChunkWithScore is a chunk returned from a similarity search,
// annotated with the backend's relevance score.
type DocumentChunkWithScore struct {
	// ID is the chunk identifier.
	ID string `json:"id"`
	// Text is the chunk text, surfaced separately from the metadata payload.
	Text string `json:"text"`
	// Metadata is the chunk metadata with the internal text field stripped.
	Metadata *DocumentChunkMetadata `json:"metadata,omitempty"`
	// Score is the backend-assigned relevance score.
	Score float32 `json:"score"`
}

// DocumentMetadataFilter is an optional predicate over chunk metadata fields.
// Set (non-empty) fields become equality expressions, except StartDate and
// EndDate which become a range over the stored creation timestamp. A filter
// with every field unset translates to "match all" and must never be used
// for a filter-based delete.
type DocumentMetadataFilter struct {
	// DocumentID restricts matches to chunks of a single document.
	DocumentID string `json:"document_id,omitempty"`
	// Source restricts matches to a single source kind.
	Source Source `json:"source,omitempty"`
	// SourceID restricts matches by source-system identifier.
	SourceID string `json:"source_id,omitempty"`
	// Author restricts matches by author.
	Author string `json:"author,omitempty"`
	// StartDate restricts matches to chunks created at or after this time.
	StartDate string `json:"start_date,omitempty"`
	// EndDate restricts matches to chunks created at or before this time.
	EndDate string `json:"end_date,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f *DocumentMetadataFilter) IsZero() bool {
	return f == nil || *f == DocumentMetadataFilter{}
}

// Query is a single free-text similarity query.
type Query struct {
	// Query is the free-text query string.
	Query string `json:"query"`
	// Filter optionally narrows the search scope.
	Filter *DocumentMetadataFilter `json:"filter,omitempty"`
	// TopK is the number of results requested. Zero selects the default.
	TopK int `json:"top_k,omitempty"`
}

// QueryWithEmbedding is a Query whose text has been resolved to an embedding
// vector. It is an internal, derived shape handed to backends only.
type QueryWithEmbedding struct {
	// Query is the original query.
	Query Query `json:"query"`
	// Embedding is the resolved embedding vector for the query text.
	Embedding []float32 `json:"embedding"`
}

// QueryResult pairs an input query string with its ordered search results.
// Ordering is backend relevance order (typically descending score).
type QueryResult struct {
	// Query is the original free-text query string.
	Query string `json:"query"`
	// Results are the matching chunks in backend relevance order.
	Results []DocumentChunkWithScore `json:"results"`
}

// EmbeddingUsage is the token accounting reported by the embedding provider.
// It is passed through to callers unchanged.
type EmbeddingUsage struct {
	// PromptTokens is the number of input tokens consumed.
	PromptTokens int `json:"prompt_tokens"`
	// TotalTokens is the total number of tokens billed.
	TotalTokens int `json:"total_tokens"`
}

// EmbeddingResult is the outcome of one batched embedding call.
type EmbeddingResult struct {
	// Embeddings is parallel to the input text slice: Embeddings[i] is the
	// vector for input i.
	Embeddings [][]float32 `json:"embeddings"`
	// Usage is the provider-reported token accounting for the batch.
	Usage EmbeddingUsage `json:"usage"`
}

// QueryResponse is the result of [Store.Query]: one QueryResult per input
// query, in input order, plus the embedding usage for the batch.
type QueryResponse struct {
	// Results holds one entry per input query, in input order.
	Results []QueryResult `json:"results"`
	// Usage is the embedding usage accounting, passed through unchanged.
	Usage EmbeddingUsage `json:"usage"`
}

// IndexStats reports backend index statistics.
type IndexStats struct {
	// Dimension is the embedding dimensionality of the index.
	Dimension int `json:"dimension"`
	// TotalVectorCount is the number of vectors across all namespaces.
	TotalVectorCount int64 `json:"total_vector_count"`
	// Namespaces maps namespace name to its vector count.
	Namespaces map[string]int64 `json:"namespaces"`
}

// DeleteRequest selects vectors to remove. The three selectors are
// independent and combinable; backends evaluate them in a fixed order:
// DeleteAll first (short-circuits), then Filter (only if it translates to a
// non-empty expression), then IDs (only if non-empty).
type DeleteRequest struct {
	// IDs lists explicit chunk identifiers to delete.
	IDs []string `json:"ids,omitempty"`
	// Filter selects chunks by metadata predicate.
	Filter *DocumentMetadataFilter `json:"filter,omitempty"`
	// DeleteAll wipes the whole namespace, ignoring the other selectors.
	DeleteAll bool `json:"delete_all,omitempty"`
	// Namespace scopes the delete. Empty means the default namespace.
	Namespace string `json:"namespace,omitempty"`
}

// ChunkProvider splits documents into embeddings-ready chunks. The returned
// map is keyed by document id (assigned when a document arrives without one)
// and each value holds that document's chunks in order, every chunk already
// carrying its embedding vector. Chunk ids must be unique within and across
// documents in one call.
type ChunkProvider interface {
	GetDocumentChunks(ctx context.Context, docs []Document, chunkTokenSize int) (map[string][]DocumentChunk, error)
}

// EmbeddingProvider converts a batch of texts into embedding vectors.
// Implementations must fail the whole batch on any per-text failure — the
// returned embeddings slice is always parallel to the input.
type EmbeddingProvider interface {
	GetEmbeddings(ctx context.Context, texts []string) (*EmbeddingResult, error)
}

// Backend is the capability set a concrete vector database must implement.
// Additional backends are added as new implementers of this interface, never
// by wrapping an existing concrete one. Implementations must be safe for
// concurrent use; the connection handle is initialized once at startup and
// shared for the lifetime of the process.
type Backend interface {
	// UpsertChunks writes every chunk as one vector record, batching
	// backend-side writes, and returns the chunk ids written.
	UpsertChunks(ctx context.Context, chunks map[string][]DocumentChunk, namespace string) ([]string, error)

	// Query runs one similarity search per input query concurrently and
	// returns results in input order. Any single search failure fails the
	// whole call; there is no partial-results mode.
	Query(ctx context.Context, queries []QueryWithEmbedding, namespace string) ([]QueryResult, error)

	// Delete removes vectors per the request's selectors.
	Delete(ctx context.Context, req DeleteRequest) error

	// Stats returns backend-reported index statistics.
	Stats(ctx context.Context) (*IndexStats, error)

	// Close releases the backend connection.
	Close() error
}
