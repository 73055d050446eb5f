package cluster

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariance_Singleton(t *testing.T) {
	vs := []models.Vector{{3, 4}, {10, 10}, {11, 10}}
	labels := []int{0, 1, 1}
	centers := []models.Vector{{0, 0}, {10.5, 10}}

	got, err := Variance(vs, labels, centers, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-12, "singleton scores its raw distance, not zero")
}

func TestVariance_SampleVarianceOfDistances(t *testing.T) {
	// distances to the origin: 1, 2, 3 -> mean 2, sample variance 1
	vs := []models.Vector{{1, 0}, {0, 2}, {-3, 0}, {50, 50}}
	labels := []int{0, 0, 0, 1}
	centers := []models.Vector{{0, 0}, {50, 50}}

	got, err := Variance(vs, labels, centers, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestVariance_EqualDistancesIsZero(t *testing.T) {
	vs := []models.Vector{{1, 0}, {0, 1}, {-1, 0}}
	got, err := Variance(vs, []int{0, 0, 0}, []models.Vector{{0, 0}}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-12)
}

func TestVariance_EmptyCluster(t *testing.T) {
	vs := []models.Vector{{1, 1}}
	_, err := Variance(vs, []int{0}, []models.Vector{{0, 0}, {5, 5}}, 1)
	var de *models.DegenerateInputError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Cluster)
}

func TestVariance_ShapeErrors(t *testing.T) {
	vs := []models.Vector{{1, 1}, {2, 2}}
	centers := []models.Vector{{0, 0}}

	tests := []struct {
		name   string
		labels []int
		k      int
		vs     []models.Vector
		field  string
	}{
		{"labels shorter than vectors", []int{0}, 0, vs, "labels"},
		{"cluster id outside centers", []int{0, 0}, 3, vs, "centers"},
		{"label outside centers", []int{0, 4}, 0, vs, "centers"},
		{"member width differs from center", []int{0, 0}, 0, []models.Vector{{1, 1}, {2, 2, 2}}, "dimension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Variance(tt.vs, tt.labels, centers, tt.k)
			var se *models.ShapeMismatchError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}

func TestVariances(t *testing.T) {
	vs := []models.Vector{{3, 4}, {1, 0}, {0, 2}, {-3, 0}}
	labels := []int{0, 1, 1, 1}
	centers := []models.Vector{{0, 0}, {0, 0}}

	got, err := Variances(vs, labels, centers)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 1}, got, 1e-12)

	_, err = Variances(vs, []int{0, 0, 0, 0}, centers)
	assert.True(t, errors.Is(err, models.ErrDegenerateInput))
}

func TestVariance_NonNegative(t *testing.T) {
	vs := []models.Vector{{0.3, -2}, {1.7, 4.1}, {-0.2, 0.9}, {8, 8}}
	labels := []int{0, 0, 0, 1}
	centers := []models.Vector{{0.5, 1}, {7, 7}}
	got, err := Variances(vs, labels, centers)
	require.NoError(t, err)
	for k, v := range got {
		assert.GreaterOrEqual(t, v, 0.0, "cluster %d", k)
	}
}

func TestOptimalK(t *testing.T) {
	idx, err := OptimalK([]float64{0.2, 0.5, 0.3}, []float64{0.1, 0.1, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestOptimalK_FirstOnTies(t *testing.T) {
	idx, err := OptimalK([]float64{0.3, 0.6, 0.6}, []float64{0.0, 0.1, 0.1})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestOptimalK_AllNegativeGaps(t *testing.T) {
	idx, err := OptimalK([]float64{0.1, 0.2}, []float64{0.5, 0.3})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestGaps(t *testing.T) {
	gaps, err := Gaps([]float64{0.2, 0.5, 0.3}, []float64{0.1, 0.1, 0.4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.4, -0.1}, gaps, 1e-12)
}

func TestGaps_Errors(t *testing.T) {
	_, err := Gaps([]float64{0.1, 0.2}, []float64{0.1})
	var se *models.ShapeMismatchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "vp", se.Field)

	_, err = Gaps(nil, nil)
	assert.True(t, errors.Is(err, models.ErrDegenerateInput))

	_, err = Gaps([]float64{0.1, math.NaN()}, []float64{0, 0})
	var de *models.DegenerateInputError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Index)
}

func TestVariance_NonFiniteMembers(t *testing.T) {
	_, err := Variance([]models.Vector{{math.NaN(), 0}, {1, 1}}, []int{0, 0}, []models.Vector{{0, 0}}, 0)
	var de *models.DegenerateInputError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0, de.Index)
	assert.Equal(t, 0, de.Cluster)

	_, err = Variance([]models.Vector{{1, 1}, {2, 2}}, []int{0, 0}, []models.Vector{{math.Inf(-1), 0}}, 0)
	assert.True(t, errors.Is(err, models.ErrDegenerateInput))

	_, err = Variance([]models.Vector{{1e308, 1e308}, {0, 0}}, []int{0, 0}, []models.Vector{{-1e308, -1e308}}, 0)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0, de.Index)
}

func TestGaps_NonFiniteScores(t *testing.T) {
	_, err := SelectK(nil, []float64{math.Inf(1), 0.2}, []float64{math.Inf(1), 0.1})
	var de *models.DegenerateInputError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0, de.Index)

	_, err = Gaps([]float64{0.1, 1e308}, []float64{0, -1e308})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Index)
}

func TestSelectK(t *testing.T) {
	candidates, err := CandidateRange(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, candidates)

	sel, err := SelectK(candidates, []float64{0.2, 0.5, 0.3}, []float64{0.1, 0.1, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 1, sel.Index)
	assert.Equal(t, 3, sel.K)
	assert.InDelta(t, 0.4, sel.Gap, 1e-12)
	assert.Len(t, sel.Gaps, 3)

	sel, err = SelectK(nil, []float64{0.9, 0.5}, []float64{0.1, 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0, sel.K)

	_, err = SelectK([]int{2}, []float64{0.9, 0.5}, []float64{0.1, 0.1})
	assert.True(t, errors.Is(err, models.ErrShapeMismatch))
}

func TestCandidateRange_Invalid(t *testing.T) {
	_, err := CandidateRange(0, 3)
	assert.Error(t, err)
}
