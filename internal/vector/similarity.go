// Package vector provides distance and similarity helpers for feature vectors.
package vector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, 2), nil
}

// CheckFinite returns the position of the first NaN or infinite component, or -1.
func CheckFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
