package cluster

import (
	"fmt"
	"math"

	"github.com/hyperjump/bunrui/internal/models"
	"gonum.org/v1/gonum/floats"
)

const opOptimalK = "optimal_k"

// Gaps returns silhouettes[i] - vp[i] for every candidate.
func Gaps(silhouettes, vp []float64) ([]float64, error) {
	if len(vp) != len(silhouettes) {
		return nil, models.NewShapeMismatch(opOptimalK, "vp", len(silhouettes), len(vp))
	}
	if len(silhouettes) == 0 {
		return nil, models.NewDegenerateInput(opOptimalK, "no candidates")
	}
	for i := range silhouettes {
		if !finite(silhouettes[i]) || !finite(vp[i]) {
			err := models.NewDegenerateInput(opOptimalK, "non-finite score")
			err.Index = i
			return nil, err
		}
	}
	gaps := make([]float64, len(silhouettes))
	floats.SubTo(gaps, silhouettes, vp)
	for i, g := range gaps {
		if !finite(g) {
			err := models.NewDegenerateInput(opOptimalK, "gap overflows")
			err.Index = i
			return nil, err
		}
	}
	return gaps, nil
}

// OptimalK returns the index of the candidate with the largest gap between
// its silhouette score and its reference score. Ties go to the first index.
func OptimalK(silhouettes, vp []float64) (int, error) {
	gaps, err := Gaps(silhouettes, vp)
	if err != nil {
		return 0, err
	}
	return argmax(gaps), nil
}

// SelectK picks the winning candidate and maps it to its cluster count.
// candidates[i] is the k that produced silhouettes[i]; when candidates is
// nil the index itself is reported as K.
func SelectK(candidates []int, silhouettes, vp []float64) (*models.Selection, error) {
	if candidates != nil && len(candidates) != len(silhouettes) {
		return nil, models.NewShapeMismatch(opOptimalK, "candidates", len(silhouettes), len(candidates))
	}
	gaps, err := Gaps(silhouettes, vp)
	if err != nil {
		return nil, err
	}
	idx := argmax(gaps)
	k := idx
	if candidates != nil {
		k = candidates[idx]
	}
	return &models.Selection{Index: idx, K: k, Gap: gaps[idx], Gaps: gaps}, nil
}

// CandidateRange returns the consecutive cluster counts kMin, kMin+1, ... for n candidates.
func CandidateRange(kMin, n int) ([]int, error) {
	if kMin < 1 {
		return nil, fmt.Errorf("minimum cluster count must be at least 1, got %d", kMin)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = kMin + i
	}
	return out, nil
}

// argmax keeps the first index on ties.
func argmax(s []float64) int {
	best := 0
	for i := 1; i < len(s); i++ {
		if s[i] > s[best] {
			best = i
		}
	}
	return best
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
