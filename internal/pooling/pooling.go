// Package pooling reduces variable-length token-embedding matrices to one
// fixed-dimension vector per document.
//
// Both reductions are columnar folds over the token axis: the first token row
// seeds the accumulator and every following row is folded into it. Inputs are
// never modified.
package pooling

import (
	"fmt"
	"strings"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/vector"
	"gonum.org/v1/gonum/floats"
)

// Strategy selects the per-dimension reduction.
type Strategy string

const (
	// StrategyMax keeps the largest component per dimension.
	StrategyMax Strategy = "max"
	// StrategyMean keeps the arithmetic mean per dimension.
	StrategyMean Strategy = "mean"
)

// ParseStrategy maps a configured name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "max", "max_pool", "max_polling":
		return StrategyMax, nil
	case "mean", "mean_pool", "mean_polling":
		return StrategyMean, nil
	default:
		return "", fmt.Errorf("unknown pooling strategy: %q (supported: max, mean)", name)
	}
}

func (s Strategy) op() string {
	return string(s) + "_pool"
}

// Reduce pools a single matrix with s.
func (s Strategy) Reduce(m models.Matrix) (models.Vector, error) {
	return reduce(m, s)
}

// Max returns, for each dimension, the largest component across all token rows.
func Max(m models.Matrix) (models.Vector, error) {
	return reduce(m, StrategyMax)
}

// Mean returns, for each dimension, the arithmetic mean across all token rows.
func Mean(m models.Matrix) (models.Vector, error) {
	return reduce(m, StrategyMean)
}

// MaxPool max-pools every matrix. Errors carry the offending document index.
func MaxPool(ms []models.Matrix) ([]models.Vector, error) {
	return Pool(ms, StrategyMax)
}

// MeanPool mean-pools every matrix. Errors carry the offending document index.
func MeanPool(ms []models.Matrix) ([]models.Vector, error) {
	return Pool(ms, StrategyMean)
}

// Pool reduces every matrix with s. All pooled vectors must share the
// dimension of the first one.
func Pool(ms []models.Matrix, s Strategy) ([]models.Vector, error) {
	out := make([]models.Vector, len(ms))
	for i, m := range ms {
		v, err := reduce(m, s)
		if err != nil {
			return nil, models.AtIndex(err, i)
		}
		if i > 0 && len(v) != len(out[0]) {
			err := models.NewShapeMismatch(s.op(), "dimension", len(out[0]), len(v))
			err.Index = i
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Masked pools only the token rows whose mask entry is non-zero, the way an
// attention mask marks real tokens against padding.
func Masked(m models.Matrix, mask []int64, s Strategy) (models.Vector, error) {
	if len(mask) != m.Tokens() {
		return nil, models.NewShapeMismatch(s.op(), "mask", m.Tokens(), len(mask))
	}
	kept := make(models.Matrix, 0, m.Tokens())
	for t, row := range m {
		if mask[t] != 0 {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 && m.Tokens() > 0 {
		return nil, models.NewDegenerateInput(s.op(), "attention mask selects no tokens")
	}
	return reduce(kept, s)
}

func reduce(m models.Matrix, s Strategy) (models.Vector, error) {
	if s != StrategyMax && s != StrategyMean {
		return nil, fmt.Errorf("unknown pooling strategy: %q", string(s))
	}
	op := s.op()
	if m.Tokens() == 0 {
		return nil, models.NewDegenerateInput(op, "matrix has no token vectors")
	}
	width := m.Width()
	if width == 0 {
		return nil, models.NewDegenerateInput(op, "token vectors have zero dimension")
	}
	for t, row := range m {
		if len(row) != width {
			err := models.NewShapeMismatch(op, "token", width, len(row))
			err.Position = t
			return nil, err
		}
		if p := vector.CheckFinite(row); p >= 0 {
			return nil, models.NewDegenerateInput(op, fmt.Sprintf("non-finite component at token %d dimension %d", t, p))
		}
	}

	acc := m[0].Clone()
	if m.Tokens() == 1 {
		return acc, nil
	}
	if s == StrategyMax {
		for _, row := range m[1:] {
			for k, x := range row {
				if x > acc[k] {
					acc[k] = x
				}
			}
		}
		return acc, nil
	}

	for _, row := range m[1:] {
		floats.Add(acc, row)
	}
	n := float64(m.Tokens())
	for k := range acc {
		acc[k] /= n
	}
	if vector.CheckFinite(acc) < 0 {
		return acc, nil
	}
	// The plain sum overflowed; summing pre-divided rows stays within the
	// magnitude of the largest component.
	for k := range acc {
		acc[k] = 0
	}
	for _, row := range m {
		for k, x := range row {
			acc[k] += x / n
		}
	}
	if p := vector.CheckFinite(acc); p >= 0 {
		return nil, models.NewDegenerateInput(op, fmt.Sprintf("mean overflows at dimension %d", p))
	}
	return acc, nil
}
