package datastore

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeChunker splits each document into a fixed number of single-word chunks.
type fakeChunker struct {
	chunksPerDoc int
	err          error
}

func (f *fakeChunker) GetDocumentChunks(_ context.Context, docs []Document, _ int) (map[string][]DocumentChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]DocumentChunk, len(docs))
	for _, doc := range docs {
		chunks := make([]DocumentChunk, f.chunksPerDoc)
		for i := range chunks {
			chunks[i] = DocumentChunk{
				ID:        fmt.Sprintf("%s_%d", doc.ID, i),
				Text:      doc.Text,
				Metadata:  &DocumentChunkMetadata{DocumentID: doc.ID},
				Embedding: []float32{1, 2, 3},
			}
		}
		out[doc.ID] = chunks
	}
	return out, nil
}

// fakeEmbedder returns a deterministic vector per input text.
type fakeEmbedder struct {
	err   error
	usage EmbeddingUsage
	calls int
}

func (f *fakeEmbedder) GetEmbeddings(_ context.Context, texts []string) (*EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	result := &EmbeddingResult{Usage: f.usage}
	for i := range texts {
		result.Embeddings = append(result.Embeddings, []float32{float32(i)})
	}
	return result, nil
}

// fakeBackend records every call made against it.
type fakeBackend struct {
	upserted    []map[string][]DocumentChunk
	queried     [][]QueryWithEmbedding
	deleted     []DeleteRequest
	upsertErr   error
	queryErr    error
	deleteErr   error
	statsResult *IndexStats
}

func (f *fakeBackend) UpsertChunks(_ context.Context, chunks map[string][]DocumentChunk, _ string) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserted = append(f.upserted, chunks)
	var ids []string
	for _, list := range chunks {
		for _, c := range list {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (f *fakeBackend) Query(_ context.Context, queries []QueryWithEmbedding, _ string) ([]QueryResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.queried = append(f.queried, queries)
	results := make([]QueryResult, len(queries))
	for i, q := range queries {
		results[i] = QueryResult{Query: q.Query.Query}
	}
	return results, nil
}

func (f *fakeBackend) Delete(_ context.Context, req DeleteRequest) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, req)
	return nil
}

func (f *fakeBackend) Stats(_ context.Context) (*IndexStats, error) {
	return f.statsResult, nil
}

func (f *fakeBackend) Close() error { return nil }

func newTestStore(t *testing.T, backend *fakeBackend, chunker *fakeChunker, embedder *fakeEmbedder) *Store {
	t.Helper()
	s, err := New(backend, chunker, embedder)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func Test_New_RejectsNilCollaborators(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	chunker := &fakeChunker{chunksPerDoc: 1}
	embedder := &fakeEmbedder{}

	if _, err := New(nil, chunker, embedder); err == nil {
		t.Error("want error for nil backend")
	}
	if _, err := New(backend, nil, embedder); err == nil {
		t.Error("want error for nil chunk provider")
	}
	if _, err := New(backend, chunker, nil); err == nil {
		t.Error("want error for nil embedding provider")
	}
}

func Test_Upsert_ReturnsIDForEveryChunk(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 3}, &fakeEmbedder{})

	docs := []Document{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}}
	ids, err := s.Upsert(context.Background(), docs, UpsertOptions{Namespace: "ns"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(ids) != 6 {
		t.Errorf("want 6 chunk ids, got %d", len(ids))
	}
	if len(backend.upserted) != 1 {
		t.Errorf("want 1 backend upsert, got %d", len(backend.upserted))
	}
}

func Test_Upsert_EmptyInputIsNoop(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 1}, &fakeEmbedder{})

	ids, err := s.Upsert(context.Background(), nil, UpsertOptions{})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(ids) != 0 || len(backend.upserted) != 0 {
		t.Errorf("want no writes for empty input, got ids=%v upserts=%d", ids, len(backend.upserted))
	}
}

func Test_Upsert_ReplaceExistingDeletesByDocumentID(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 1}, &fakeEmbedder{})

	docs := []Document{{ID: "doc1", Text: "x"}, {Text: "anonymous"}}
	if _, err := s.Upsert(context.Background(), docs, UpsertOptions{Namespace: "ns", ReplaceExisting: true}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Only the document with an id triggers a pre-delete.
	if len(backend.deleted) != 1 {
		t.Fatalf("want 1 delete call, got %d", len(backend.deleted))
	}
	req := backend.deleted[0]
	if req.Filter == nil || req.Filter.DocumentID != "doc1" {
		t.Errorf("want document-id filter for doc1, got %+v", req.Filter)
	}
	if req.DeleteAll || len(req.IDs) != 0 {
		t.Errorf("replace must use the filter selector only, got %+v", req)
	}
	if req.Namespace != "ns" {
		t.Errorf("want namespace ns, got %q", req.Namespace)
	}
}

func Test_Upsert_WithoutReplaceDoesNotDelete(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 1}, &fakeEmbedder{})

	if _, err := s.Upsert(context.Background(), []Document{{ID: "doc1", Text: "x"}}, UpsertOptions{}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(backend.deleted) != 0 {
		t.Errorf("want no delete calls, got %d", len(backend.deleted))
	}
}

func Test_Upsert_ChunkerFailurePropagates(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{err: fmt.Errorf("token limit exceeded")}, &fakeEmbedder{})

	_, err := s.Upsert(context.Background(), []Document{{ID: "a", Text: "x"}}, UpsertOptions{})
	if err == nil || !strings.Contains(err.Error(), "token limit exceeded") {
		t.Errorf("want chunker error surfaced, got %v", err)
	}
	if len(backend.upserted) != 0 {
		t.Errorf("backend must not be written after chunker failure")
	}
}

func Test_Query_SingleBatchedEmbeddingCall(t *testing.T) {
	t.Parallel()
	embedder := &fakeEmbedder{usage: EmbeddingUsage{PromptTokens: 7, TotalTokens: 7}}
	s := newTestStore(t, &fakeBackend{}, &fakeChunker{chunksPerDoc: 1}, embedder)

	queries := []Query{{Query: "first"}, {Query: "second"}, {Query: "third"}}
	resp, err := s.Query(context.Background(), queries, "ns")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if embedder.calls != 1 {
		t.Errorf("want exactly one embedding call, got %d", embedder.calls)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("want 3 results, got %d", len(resp.Results))
	}
	for i, q := range queries {
		if resp.Results[i].Query != q.Query {
			t.Errorf("result %d: want query %q, got %q", i, q.Query, resp.Results[i].Query)
		}
	}
	if resp.Usage != embedder.usage {
		t.Errorf("usage must pass through unchanged: want %+v, got %+v", embedder.usage, resp.Usage)
	}
}

func Test_Query_DefaultTopKApplied(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 1}, &fakeEmbedder{})

	if _, err := s.Query(context.Background(), []Query{{Query: "q"}, {Query: "q2", TopK: 10}}, ""); err != nil {
		t.Fatalf("Query: %v", err)
	}
	got := backend.queried[0]
	if got[0].Query.TopK != defaultTopK {
		t.Errorf("want default top_k %d, got %d", defaultTopK, got[0].Query.TopK)
	}
	if got[1].Query.TopK != 10 {
		t.Errorf("explicit top_k must be kept, got %d", got[1].Query.TopK)
	}
}

func Test_Query_EmbeddingFailureFailsWholeCall(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	embedder := &fakeEmbedder{err: fmt.Errorf("rate limited")}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 1}, embedder)

	_, err := s.Query(context.Background(), []Query{{Query: "a"}, {Query: "b"}}, "")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("want embedding error surfaced, got %v", err)
	}
	if len(backend.queried) != 0 {
		t.Errorf("backend must not be queried after embedding failure")
	}
}

func Test_Delete_DelegatesToBackend(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{}
	s := newTestStore(t, backend, &fakeChunker{chunksPerDoc: 1}, &fakeEmbedder{})

	req := DeleteRequest{IDs: []string{"a", "b"}, Namespace: "ns"}
	if err := s.Delete(context.Background(), req); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(backend.deleted) != 1 || backend.deleted[0].IDs[0] != "a" {
		t.Errorf("delete request not delegated: %+v", backend.deleted)
	}
}

func Test_Filter_IsZero(t *testing.T) {
	t.Parallel()
	var nilFilter *DocumentMetadataFilter
	if !nilFilter.IsZero() {
		t.Error("nil filter must be zero")
	}
	if !(&DocumentMetadataFilter{}).IsZero() {
		t.Error("empty filter must be zero")
	}
	if (&DocumentMetadataFilter{Author: "x"}).IsZero() {
		t.Error("set filter must not be zero")
	}
}
