// Package cluster scores the output of an external clustering run: the
// dispersion of each cluster around its center, and the choice of cluster
// count from a silhouette curve and a reference curve.
package cluster

import (
	"fmt"
	"math"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/vector"
	"gonum.org/v1/gonum/stat"
)

const opVariance = "cluster_variance"

// Variance returns the dispersion of cluster k: the sample variance of the
// Euclidean distances from its members to centers[k]. A singleton cluster
// scores its single distance instead of zero.
func Variance(vs []models.Vector, labels []int, centers []models.Vector, k int) (float64, error) {
	if err := validateAssignment(vs, labels, centers); err != nil {
		return 0, err
	}
	if k < 0 || k >= len(centers) {
		return 0, models.NewShapeMismatch(opVariance, "centers", len(centers), k+1)
	}
	return variance(vs, labels, centers[k], k)
}

// Variances returns the variance of every cluster id in [0, len(centers)).
// It fails on the first cluster that has no members.
func Variances(vs []models.Vector, labels []int, centers []models.Vector) ([]float64, error) {
	if err := validateAssignment(vs, labels, centers); err != nil {
		return nil, err
	}
	out := make([]float64, len(centers))
	for k, c := range centers {
		v, err := variance(vs, labels, c, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func validateAssignment(vs []models.Vector, labels []int, centers []models.Vector) error {
	if len(labels) != len(vs) {
		return models.NewShapeMismatch(opVariance, "labels", len(vs), len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= len(centers) {
			err := models.NewShapeMismatch(opVariance, "centers", len(centers), l+1)
			err.Index = i
			return err
		}
	}
	return nil
}

func variance(vs []models.Vector, labels []int, center models.Vector, k int) (float64, error) {
	if p := vector.CheckFinite(center); p >= 0 {
		err := models.NewDegenerateInput(opVariance, fmt.Sprintf("non-finite center component at position %d", p))
		err.Cluster = k
		return 0, err
	}
	var distances []float64
	for i, v := range vs {
		if labels[i] != k {
			continue
		}
		if len(v) != len(center) {
			err := models.NewShapeMismatch(opVariance, "dimension", len(center), len(v))
			err.Index = i
			return 0, err
		}
		if p := vector.CheckFinite(v); p >= 0 {
			err := models.NewDegenerateInput(opVariance, fmt.Sprintf("non-finite component at position %d", p))
			err.Index, err.Cluster = i, k
			return 0, err
		}
		d, err := vector.Euclidean(v, center)
		if err != nil {
			return 0, err
		}
		if math.IsInf(d, 1) {
			err := models.NewDegenerateInput(opVariance, "distance to center overflows")
			err.Index, err.Cluster = i, k
			return 0, err
		}
		distances = append(distances, d)
	}

	switch len(distances) {
	case 0:
		err := models.NewDegenerateInput(opVariance, "cluster has no members")
		err.Cluster = k
		return 0, err
	case 1:
		return distances[0], nil
	default:
		v := stat.Variance(distances, nil)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			err := models.NewDegenerateInput(opVariance, "variance overflows")
			err.Cluster = k
			return 0, err
		}
		return v, nil
	}
}
