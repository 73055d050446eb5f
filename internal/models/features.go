package models

import "fmt"

// FeatureSet is the output of the feature pipeline: one normalized vector
// per input document, in input order.
type FeatureSet struct {
	BatchID       string    `json:"batch_id"`
	Pooling       string    `json:"pooling"`
	Normalization string    `json:"normalization"`
	Dimensions    int       `json:"dimensions"`
	Vectors       []Vector  `json:"vectors"`
	Divisors      []float64 `json:"divisors,omitempty"` // decimal scaling only
	ElapsedMillis int64     `json:"elapsed_ms"`
}

// FeatureRequest carries either token matrices or texts to embed. Masks, when
// present, hold one attention mask per matrix for padded input.
type FeatureRequest struct {
	Matrices []Matrix  `json:"matrices,omitempty"`
	Masks    [][]int64 `json:"masks,omitempty"`
	Texts    []string  `json:"texts,omitempty"`
}

// Validate ensures exactly one input kind is supplied.
func (r *FeatureRequest) Validate() error {
	switch {
	case len(r.Matrices) > 0 && len(r.Texts) > 0:
		return fmt.Errorf("matrices and texts are mutually exclusive")
	case len(r.Matrices) == 0 && len(r.Texts) == 0:
		return fmt.Errorf("matrices or texts required")
	case r.Masks != nil && len(r.Masks) != len(r.Matrices):
		return fmt.Errorf("masks must match matrices: %d masks for %d matrices", len(r.Masks), len(r.Matrices))
	}
	return nil
}

// PoolRequest asks for one pooled vector per matrix.
type PoolRequest struct {
	Strategy string   `json:"strategy"`
	Matrices []Matrix `json:"matrices"`
}

// NormalizeRequest asks for a collection to be rescaled under one law.
// NewMin and NewMax only apply to min-max and default to 0 and 1.
type NormalizeRequest struct {
	Law     string   `json:"law"`
	Vectors []Vector `json:"vectors"`
	NewMin  *float64 `json:"new_min,omitempty"`
	NewMax  *float64 `json:"new_max,omitempty"`
}

// VectorsResponse returns a vector collection, with divisors for decimal scaling.
type VectorsResponse struct {
	Vectors  []Vector  `json:"vectors"`
	Divisors []float64 `json:"divisors,omitempty"`
}

// VarianceRequest carries an external clustering result. When Cluster is nil
// the variance of every cluster id is returned.
type VarianceRequest struct {
	Vectors []Vector `json:"vectors"`
	Labels  []int    `json:"labels"`
	Centers []Vector `json:"centers"`
	Cluster *int     `json:"cluster,omitempty"`
}

// VarianceResponse holds either one cluster's variance or every cluster's
// variance indexed by cluster id.
type VarianceResponse struct {
	Cluster   *int      `json:"cluster,omitempty"`
	Variance  *float64  `json:"variance,omitempty"`
	Variances []float64 `json:"variances,omitempty"`
}

// OptimalKRequest carries the per-candidate silhouette and reference curves.
type OptimalKRequest struct {
	Silhouettes []float64 `json:"silhouettes"`
	VP          []float64 `json:"vp"`
	Candidates  []int     `json:"candidates,omitempty"`
}

// Selection is the chosen candidate and the gap curve it was chosen from.
type Selection struct {
	Index int       `json:"index"`
	K     int       `json:"k"`
	Gap   float64   `json:"gap"`
	Gaps  []float64 `json:"gaps"`
}
