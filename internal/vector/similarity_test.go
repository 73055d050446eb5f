package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuclidean(t *testing.T) {
	d, err := Euclidean([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-12)

	d, err = Euclidean(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = Euclidean([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestCheckFinite(t *testing.T) {
	assert.Equal(t, -1, CheckFinite([]float64{1, -2, 0}))
	assert.Equal(t, 1, CheckFinite([]float64{1, math.NaN(), math.Inf(1)}))
	assert.Equal(t, 0, CheckFinite([]float64{math.Inf(-1)}))
	assert.Equal(t, -1, CheckFinite(nil))
}
