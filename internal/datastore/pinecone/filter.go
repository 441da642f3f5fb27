package pinecone

import (
	"fmt"

	"github.com/vvault/vecstore-go/internal/datastore"
)

// Reserved metadata keys written alongside the caller's fields. "text" holds
// the chunk text so results carry it without a second lookup; "document_id"
// lets deletion by document id be reconstructed from metadata alone.
const (
	metadataKeyText       = "text"
	metadataKeyDocumentID = "document_id"
	metadataKeyCreatedAt  = "created_at"
)

// translateFilter converts a backend-agnostic metadata filter into a Pinecone
// filter expression. Set fields become equality expressions; StartDate and
// EndDate become $gte/$lte range expressions on the stored created_at epoch.
// A nil or all-unset filter yields an empty map, which means "match all" —
// deletion paths must check for that before issuing a filter delete.
func translateFilter(f *datastore.DocumentMetadataFilter) (map[string]any, error) {
	out := map[string]any{}
	if f == nil {
		return out, nil
	}

	if f.DocumentID != "" {
		out[metadataKeyDocumentID] = f.DocumentID
	}
	if f.Source != "" {
		out["source"] = string(f.Source)
	}
	if f.SourceID != "" {
		out["source_id"] = f.SourceID
	}
	if f.Author != "" {
		out["author"] = f.Author
	}
	if f.StartDate != "" {
		ts, err := datastore.ParseUnixTimestamp(f.StartDate)
		if err != nil {
			return nil, fmt.Errorf("pinecone: filter start_date: %w", err)
		}
		createdAtRange(out)["$gte"] = ts
	}
	if f.EndDate != "" {
		ts, err := datastore.ParseUnixTimestamp(f.EndDate)
		if err != nil {
			return nil, fmt.Errorf("pinecone: filter end_date: %w", err)
		}
		createdAtRange(out)["$lte"] = ts
	}
	return out, nil
}

// createdAtRange returns the created_at range expression in out, creating it
// on first use so start and end dates share one expression.
func createdAtRange(out map[string]any) map[string]any {
	r, ok := out[metadataKeyCreatedAt].(map[string]any)
	if !ok {
		r = map[string]any{}
		out[metadataKeyCreatedAt] = r
	}
	return r
}

// encodeMetadata converts chunk metadata into the backend's key/value
// representation. Unset fields are omitted entirely — never written as
// explicit nulls, since filter equality must not match against nulls.
// CreatedAt is stored as Unix epoch seconds so date-range filters work.
func encodeMetadata(meta *datastore.DocumentChunkMetadata) (map[string]any, error) {
	out := map[string]any{}
	if meta == nil {
		return out, nil
	}

	if meta.Source != "" {
		out["source"] = string(meta.Source)
	}
	if meta.SourceID != "" {
		out["source_id"] = meta.SourceID
	}
	if meta.URL != "" {
		out["url"] = meta.URL
	}
	if meta.Author != "" {
		out["author"] = meta.Author
	}
	if meta.CreatedAt != "" {
		ts, err := datastore.ParseUnixTimestamp(meta.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("pinecone: metadata created_at: %w", err)
		}
		out[metadataKeyCreatedAt] = ts
	}
	if meta.DocumentID != "" {
		out[metadataKeyDocumentID] = meta.DocumentID
	}
	return out, nil
}

// decodeMetadata normalizes a match's raw metadata back into the typed chunk
// shape. The internal "text" value is surfaced separately (empty string when
// absent) and stripped from the returned metadata. A "source" value outside
// the known enumerators is normalized to unset so malformed or legacy records
// never break caller-side deserialization.
func decodeMetadata(raw map[string]any) (text string, meta *datastore.DocumentChunkMetadata) {
	if raw == nil {
		return "", nil
	}

	text, _ = raw[metadataKeyText].(string)

	meta = &datastore.DocumentChunkMetadata{}
	if v, ok := raw["source"].(string); ok {
		if src := datastore.Source(v); src.Valid() {
			meta.Source = src
		}
	}
	meta.SourceID, _ = raw["source_id"].(string)
	meta.URL, _ = raw["url"].(string)
	meta.Author, _ = raw["author"].(string)
	meta.DocumentID, _ = raw[metadataKeyDocumentID].(string)

	switch ts := raw[metadataKeyCreatedAt].(type) {
	case float64: // JSON numbers decode as float64
		meta.CreatedAt = datastore.FormatUnixTimestamp(int64(ts))
	case string:
		meta.CreatedAt = ts
	}
	return text, meta
}
