// Package embedding defines the upstream contract that turns cleaned document
// text into token-embedding matrices, plus a deterministic in-process
// implementation and an LRU cache for its padded encodings.
package embedding

import (
	"context"

	"github.com/hyperjump/bunrui/internal/models"
)

// TokenEmbedder produces one embedding row per attended token of a text.
// Returned matrices are shared with the cache and must be treated as read-only.
type TokenEmbedder interface {
	EmbedTokens(ctx context.Context, text string) (models.Matrix, error)
	EmbedTokensBatch(ctx context.Context, texts []string) ([]models.Matrix, error)
	Dimensions() int
	Close() error
}

// MaskedTokenEmbedder also exposes the padded encoding: one row for every
// token slot up to the model's budget, and a mask marking the attended slots.
type MaskedTokenEmbedder interface {
	TokenEmbedder
	EmbedTokensMasked(ctx context.Context, text string) (models.Matrix, []int64, error)
}

// Encoding is a padded token matrix with its attention mask.
type Encoding struct {
	Matrix models.Matrix
	Mask   []int64
}

// Attended returns the rows whose mask entry is non-zero. Rows are shared
// with the encoding.
func (enc *Encoding) Attended() models.Matrix {
	out := make(models.Matrix, 0, len(enc.Matrix))
	for t, row := range enc.Matrix {
		if t < len(enc.Mask) && enc.Mask[t] != 0 {
			out = append(out, row)
		}
	}
	return out
}
