// Package chunker splits documents into token-bounded chunks suitable for
// embedding and vector storage. Chunk boundaries prefer sentence-ending
// punctuation so retrieved passages read naturally, and every chunk carries
// its parent document's metadata plus a stable "<docID>_<index>" identifier.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/vvault/vecstore-go/internal/datastore"
)

const (
	// DefaultChunkTokenSize is the target number of tokens per chunk.
	DefaultChunkTokenSize = 200
	// minChunkSizeChars is the minimum chunk length before we bother
	// truncating at a sentence boundary.
	minChunkSizeChars = 350
	// minChunkLengthToEmbed — chunks shorter than this are discarded.
	minChunkLengthToEmbed = 5
	// maxNumChunks caps runaway documents.
	maxNumChunks = 10000
	// embeddingBatchSize is how many chunk texts are sent to the embedding
	// provider per request.
	embeddingBatchSize = 128

	// encodingName is the BPE encoding used for token counting.
	encodingName = "cl100k_base"
)

// Tokenizer converts text to token IDs and back. The production
// implementation wraps tiktoken; tests substitute a deterministic fake.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Chunker implements datastore.ChunkProvider. It is safe for concurrent use.
type Chunker struct {
	tok      Tokenizer
	embedder datastore.EmbeddingProvider
}

// Option customizes a Chunker.
type Option func(*Chunker)

// WithTokenizer overrides the default tiktoken tokenizer.
func WithTokenizer(tok Tokenizer) Option {
	return func(c *Chunker) { c.tok = tok }
}

// New constructs a Chunker that embeds chunk texts via the given provider.
func New(embedder datastore.EmbeddingProvider, opts ...Option) (*Chunker, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chunker: embedder is required")
	}
	c := &Chunker{embedder: embedder}
	for _, opt := range opts {
		opt(c)
	}
	if c.tok == nil {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("chunker: load encoding %s: %w", encodingName, err)
		}
		c.tok = &tiktokenTokenizer{enc: enc}
	}
	return c, nil
}

// splitText breaks text into chunks of roughly chunkTokenSize tokens,
// preferring to end each chunk at sentence-final punctuation or a newline
// once the chunk has reached a readable length.
func (c *Chunker) splitText(text string, chunkTokenSize int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := c.tok.Encode(text)
	var chunks []string

	for len(tokens) > 0 && len(chunks) < maxNumChunks {
		take := min(chunkTokenSize, len(tokens))
		chunkText := c.tok.Decode(tokens[:take])
		if strings.TrimSpace(chunkText) == "" {
			tokens = tokens[take:]
			continue
		}

		// Truncate at the last sentence boundary, but only when the chunk
		// is already long enough to stand alone.
		lastPunct := max(
			strings.LastIndex(chunkText, "."),
			strings.LastIndex(chunkText, "?"),
			strings.LastIndex(chunkText, "!"),
			strings.LastIndex(chunkText, "\n"),
		)
		if lastPunct != -1 && lastPunct > minChunkSizeChars {
			chunkText = chunkText[:lastPunct+1]
		}

		trimmed := strings.TrimSpace(strings.ReplaceAll(chunkText, "\n", " "))
		if len(trimmed) > minChunkLengthToEmbed {
			chunks = append(chunks, trimmed)
		}

		// Advance by the tokens actually consumed, not the raw slice size.
		tokens = tokens[len(c.tok.Encode(chunkText)):]
	}

	return chunks
}

// chunkDocument converts a single document into DocumentChunks (without
// embeddings). It returns the resolved document ID, generating one when the
// document has none.
func (c *Chunker) chunkDocument(doc datastore.Document, chunkTokenSize int) (string, []datastore.DocumentChunk) {
	docID := doc.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	texts := c.splitText(doc.Text, chunkTokenSize)
	chunks := make([]datastore.DocumentChunk, 0, len(texts))
	for i, text := range texts {
		meta := &datastore.DocumentChunkMetadata{DocumentID: docID}
		if doc.Metadata != nil {
			meta.DocumentMetadata = *doc.Metadata
		}
		chunks = append(chunks, datastore.DocumentChunk{
			ID:       fmt.Sprintf("%s_%d", docID, i),
			Text:     text,
			Metadata: meta,
		})
	}
	return docID, chunks
}

// GetDocumentChunks splits each document into chunks, computes embeddings for
// every chunk text, and returns the chunks keyed by document ID. Documents
// with no usable text map to empty slices. The whole batch fails if any
// embedding request fails.
func (c *Chunker) GetDocumentChunks(ctx context.Context, docs []datastore.Document, chunkTokenSize int) (map[string][]datastore.DocumentChunk, error) {
	if chunkTokenSize <= 0 {
		chunkTokenSize = DefaultChunkTokenSize
	}

	result := make(map[string][]datastore.DocumentChunk, len(docs))
	var all []*datastore.DocumentChunk
	for _, doc := range docs {
		docID, chunks := c.chunkDocument(doc, chunkTokenSize)
		result[docID] = chunks
		for i := range chunks {
			all = append(all, &result[docID][i])
		}
	}

	for start := 0; start < len(all); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(all))
		texts := make([]string, 0, end-start)
		for _, chunk := range all[start:end] {
			texts = append(texts, chunk.Text)
		}
		res, err := c.embedder.GetEmbeddings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("chunker: embed batch: %w", err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("chunker: expected %d embeddings, got %d", len(texts), len(res.Embeddings))
		}
		for i, chunk := range all[start:end] {
			chunk.Embedding = res.Embeddings[i]
		}
	}

	return result, nil
}
