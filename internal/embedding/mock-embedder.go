package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/bunrui/internal/models"
)

// MockTokenEmbedder is a deterministic MaskedTokenEmbedder for tests and
// local runs. Every token id, padding included, maps to a fixed row, so the
// same text always yields the same encoding.
type MockTokenEmbedder struct {
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	cache      *EncodingCache
}

// NewMockTokenEmbedder returns an embedder with the given row width, token
// budget (including [CLS] and [SEP]) and cache capacity.
func NewMockTokenEmbedder(dimensions, maxTokens, cacheSize int) *MockTokenEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	if maxTokens < 2 {
		maxTokens = defaultMaxTokens
	}
	return &MockTokenEmbedder{
		dimensions: dimensions,
		maxTokens:  maxTokens,
		tokenizer:  &SimpleTokenizer{},
		cache:      NewEncodingCache(cacheSize),
	}
}

// EmbedTokensMasked returns maxTokens rows for text and the attention mask
// that marks which of them belong to the text.
func (e *MockTokenEmbedder) EmbedTokensMasked(ctx context.Context, text string) (models.Matrix, []int64, error) {
	enc, err := e.encode(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	return enc.Matrix, enc.Mask, nil
}

// EmbedTokens returns one row per attended token of text.
func (e *MockTokenEmbedder) EmbedTokens(ctx context.Context, text string) (models.Matrix, error) {
	enc, err := e.encode(ctx, text)
	if err != nil {
		return nil, err
	}
	return enc.Attended(), nil
}

// EmbedTokensBatch calls EmbedTokens for each text.
func (e *MockTokenEmbedder) EmbedTokensBatch(ctx context.Context, texts []string) ([]models.Matrix, error) {
	out := make([]models.Matrix, len(texts))
	for i, text := range texts {
		m, err := e.EmbedTokens(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Dimensions returns the row width.
func (e *MockTokenEmbedder) Dimensions() int {
	return e.dimensions
}

// CacheStats reports the encoding cache counters.
func (e *MockTokenEmbedder) CacheStats() CacheStats {
	return e.cache.Stats()
}

// Close is a no-op for MockTokenEmbedder.
func (e *MockTokenEmbedder) Close() error {
	return nil
}

func (e *MockTokenEmbedder) encode(ctx context.Context, text string) (*Encoding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if enc, ok := e.cache.Lookup(text); ok {
		return enc, nil
	}

	ids, mask := e.tokenizer.Tokenize(text, e.maxTokens)
	m := make(models.Matrix, len(ids))
	for t, id := range ids {
		m[t] = make(models.Vector, e.dimensions)
		for j := range m[t] {
			m[t][j] = math.Sin(float64(id)*float64(j+1))*0.1 + 0.01
		}
	}
	return e.cache.Store(text, &Encoding{Matrix: m, Mask: mask}), nil
}
