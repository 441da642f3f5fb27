package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/vvault/vecstore-go/internal/datastore"
)

// Reserved payload keys. namespaceKey partitions the single collection into
// isolated namespaces; chunkIDKey preserves the caller's chunk id, since
// Qdrant point ids must be UUIDs.
const (
	namespaceKey = "_namespace"
	chunkIDKey   = "chunk_id"
)

// translateConditions converts a metadata filter into Qdrant match/range
// conditions, excluding the namespace condition. The returned slice is empty
// for a nil or all-unset filter — callers deciding whether to issue a
// filter delete must check that, not the full filter (which always carries
// the namespace condition).
func translateConditions(f *datastore.DocumentMetadataFilter) ([]*qdrant.Condition, error) {
	var conds []*qdrant.Condition
	if f == nil {
		return conds, nil
	}

	if f.DocumentID != "" {
		conds = append(conds, qdrant.NewMatch("document_id", f.DocumentID))
	}
	if f.Source != "" {
		conds = append(conds, qdrant.NewMatch("source", string(f.Source)))
	}
	if f.SourceID != "" {
		conds = append(conds, qdrant.NewMatch("source_id", f.SourceID))
	}
	if f.Author != "" {
		conds = append(conds, qdrant.NewMatch("author", f.Author))
	}

	if f.StartDate != "" || f.EndDate != "" {
		r := &qdrant.Range{}
		if f.StartDate != "" {
			ts, err := datastore.ParseUnixTimestamp(f.StartDate)
			if err != nil {
				return nil, fmt.Errorf("qdrant: filter start_date: %w", err)
			}
			r.Gte = qdrant.PtrOf(float64(ts))
		}
		if f.EndDate != "" {
			ts, err := datastore.ParseUnixTimestamp(f.EndDate)
			if err != nil {
				return nil, fmt.Errorf("qdrant: filter end_date: %w", err)
			}
			r.Lte = qdrant.PtrOf(float64(ts))
		}
		conds = append(conds, qdrant.NewRange("created_at", r))
	}

	return conds, nil
}

// namespaceFilter builds a filter matching only the given namespace, with
// extra metadata conditions appended.
func namespaceFilter(namespace string, conds []*qdrant.Condition) *qdrant.Filter {
	must := make([]*qdrant.Condition, 0, len(conds)+1)
	must = append(must, qdrant.NewMatch(namespaceKey, namespace))
	must = append(must, conds...)
	return &qdrant.Filter{Must: must}
}

// encodePayload builds the point payload for a chunk. Unset metadata fields
// are omitted; created_at is stored as epoch seconds so range filters work.
func encodePayload(chunk datastore.DocumentChunk, docID, namespace string) (map[string]any, error) {
	payload := map[string]any{
		namespaceKey:  namespace,
		chunkIDKey:    chunk.ID,
		"text":        chunk.Text,
		"document_id": docID,
	}

	meta := chunk.Metadata
	if meta == nil {
		return payload, nil
	}
	if meta.Source != "" {
		payload["source"] = string(meta.Source)
	}
	if meta.SourceID != "" {
		payload["source_id"] = meta.SourceID
	}
	if meta.URL != "" {
		payload["url"] = meta.URL
	}
	if meta.Author != "" {
		payload["author"] = meta.Author
	}
	if meta.CreatedAt != "" {
		ts, err := datastore.ParseUnixTimestamp(meta.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("qdrant: metadata created_at: %w", err)
		}
		payload["created_at"] = ts
	}
	return payload, nil
}

// decodePayload normalizes a scored point's payload into the typed chunk
// shape: chunk id and text surfaced separately, internal keys stripped, and
// unknown source values normalized to unset.
func decodePayload(payload map[string]*qdrant.Value) (chunkID, text string, meta *datastore.DocumentChunkMetadata) {
	if payload == nil {
		return "", "", nil
	}

	if v, ok := payload[chunkIDKey]; ok {
		chunkID = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		text = v.GetStringValue()
	}

	meta = &datastore.DocumentChunkMetadata{}
	if v, ok := payload["source"]; ok {
		if src := datastore.Source(v.GetStringValue()); src.Valid() {
			meta.Source = src
		}
	}
	if v, ok := payload["source_id"]; ok {
		meta.SourceID = v.GetStringValue()
	}
	if v, ok := payload["url"]; ok {
		meta.URL = v.GetStringValue()
	}
	if v, ok := payload["author"]; ok {
		meta.Author = v.GetStringValue()
	}
	if v, ok := payload["document_id"]; ok {
		meta.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["created_at"]; ok {
		if epoch := v.GetIntegerValue(); epoch != 0 {
			meta.CreatedAt = datastore.FormatUnixTimestamp(epoch)
		}
	}
	return chunkID, text, meta
}
