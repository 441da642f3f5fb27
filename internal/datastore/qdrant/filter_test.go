package qdrant

import (
	"testing"

	"github.com/vvault/vecstore-go/internal/datastore"
)

func Test_TranslateConditions_NilAndEmpty(t *testing.T) {
	t.Parallel()
	for _, f := range []*datastore.DocumentMetadataFilter{nil, {}} {
		conds, err := translateConditions(f)
		if err != nil {
			t.Fatalf("translateConditions(%v): %v", f, err)
		}
		if len(conds) != 0 {
			t.Errorf("translateConditions(%v): want no conditions, got %d", f, len(conds))
		}
	}
}

func Test_TranslateConditions_EqualityFields(t *testing.T) {
	t.Parallel()
	conds, err := translateConditions(&datastore.DocumentMetadataFilter{
		DocumentID: "doc1",
		Source:     datastore.SourceFile,
		SourceID:   "s1",
		Author:     "alice",
	})
	if err != nil {
		t.Fatalf("translateConditions: %v", err)
	}
	if len(conds) != 4 {
		t.Errorf("want 4 conditions, got %d", len(conds))
	}
}

func Test_TranslateConditions_DateRangeSharesOneCondition(t *testing.T) {
	t.Parallel()
	conds, err := translateConditions(&datastore.DocumentMetadataFilter{
		StartDate: "2024-01-01",
		EndDate:   "2024-06-01",
	})
	if err != nil {
		t.Fatalf("translateConditions: %v", err)
	}
	if len(conds) != 1 {
		t.Fatalf("date range must produce one range condition, got %d", len(conds))
	}
	r := conds[0].GetField().GetRange()
	if r == nil {
		t.Fatal("want a range condition on created_at")
	}
	if r.Gte == nil || *r.Gte != 1704067200 {
		t.Errorf("gte = %v, want 1704067200", r.Gte)
	}
	if r.Lte == nil || *r.Lte != 1717200000 {
		t.Errorf("lte = %v, want 1717200000", r.Lte)
	}
}

func Test_TranslateConditions_BadDate(t *testing.T) {
	t.Parallel()
	if _, err := translateConditions(&datastore.DocumentMetadataFilter{EndDate: "06/01/2024"}); err == nil {
		t.Error("want error for unparseable end_date")
	}
}

func Test_NamespaceFilter_AlwaysCarriesNamespaceCondition(t *testing.T) {
	t.Parallel()
	f := namespaceFilter("tenant-a", nil)
	if len(f.Must) != 1 {
		t.Fatalf("want exactly the namespace condition, got %d", len(f.Must))
	}

	conds, _ := translateConditions(&datastore.DocumentMetadataFilter{Author: "alice"})
	f = namespaceFilter("tenant-a", conds)
	if len(f.Must) != 2 {
		t.Errorf("want namespace + author conditions, got %d", len(f.Must))
	}
}

func Test_EncodePayload_CarriesReservedKeys(t *testing.T) {
	t.Parallel()
	chunk := datastore.DocumentChunk{
		ID:   "doc1_0",
		Text: "body",
		Metadata: &datastore.DocumentChunkMetadata{
			DocumentMetadata: datastore.DocumentMetadata{
				Source:    datastore.SourceEmail,
				CreatedAt: "2024-01-01",
			},
		},
	}
	payload, err := encodePayload(chunk, "doc1", "ns")
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	if payload[namespaceKey] != "ns" || payload[chunkIDKey] != "doc1_0" {
		t.Errorf("reserved keys missing: %v", payload)
	}
	if payload["text"] != "body" || payload["document_id"] != "doc1" {
		t.Errorf("text/document_id missing: %v", payload)
	}
	if payload["created_at"] != int64(1704067200) {
		t.Errorf("created_at = %v", payload["created_at"])
	}
	if _, present := payload["author"]; present {
		t.Error("unset metadata fields must be omitted")
	}
}

func Test_PointID_DeterministicAndNamespaceScoped(t *testing.T) {
	t.Parallel()
	if pointID("ns", "c1") != pointID("ns", "c1") {
		t.Error("point id must be deterministic")
	}
	if pointID("ns-a", "c1") == pointID("ns-b", "c1") {
		t.Error("same chunk id in different namespaces must map to distinct points")
	}
}
