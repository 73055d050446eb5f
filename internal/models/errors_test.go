package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDegenerateInputError(t *testing.T) {
	err := NewDegenerateInput("zscore", "zero standard deviation")
	assert.True(t, errors.Is(err, ErrDegenerateInput))
	assert.False(t, errors.Is(err, ErrShapeMismatch))
	assert.Equal(t, "zscore: degenerate input: zero standard deviation", err.Error())

	err.Cluster = 3
	assert.Contains(t, err.Error(), "in cluster 3")
}

func TestShapeMismatchError(t *testing.T) {
	err := NewShapeMismatch("optimal_k", "vp", 3, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Equal(t, "optimal_k: shape mismatch in vp: expected 3, got 2", err.Error())

	err.Index = 1
	err.Position = 4
	assert.Contains(t, err.Error(), "at index 1 position 4")
}

func TestScalingBoundsExceededError(t *testing.T) {
	err := &ScalingBoundsExceededError{Index: NoIndex, Max: 0, Limit: 308, Reason: "maximum is not positive"}
	assert.True(t, errors.Is(err, ErrScalingBounds))
	assert.Contains(t, err.Error(), "limit 10^308")
	assert.Contains(t, err.Error(), "maximum is not positive")
}

func TestAtIndex(t *testing.T) {
	t.Run("degenerate", func(t *testing.T) {
		orig := NewDegenerateInput("max_pool", "empty matrix")
		got := AtIndex(orig, 7)
		var de *DegenerateInputError
		require.ErrorAs(t, got, &de)
		assert.Equal(t, 7, de.Index)
		assert.Equal(t, NoIndex, orig.Index, "original must not be modified")
	})

	t.Run("wrapped shape mismatch", func(t *testing.T) {
		wrapped := fmt.Errorf("batch: %w", NewShapeMismatch("mean_pool", "token", 4, 3))
		got := AtIndex(wrapped, 2)
		var se *ShapeMismatchError
		require.ErrorAs(t, got, &se)
		assert.Equal(t, 2, se.Index)
	})

	t.Run("scaling bounds", func(t *testing.T) {
		got := AtIndex(&ScalingBoundsExceededError{Index: NoIndex}, 5)
		var be *ScalingBoundsExceededError
		require.ErrorAs(t, got, &be)
		assert.Equal(t, 5, be.Index)
	})

	t.Run("other errors unchanged", func(t *testing.T) {
		plain := errors.New("boom")
		assert.Same(t, plain, AtIndex(plain, 1))
	})
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(NewDegenerateInput("l1", "")))
	assert.True(t, IsInputError(fmt.Errorf("wrap: %w", NewShapeMismatch("x", "y", 1, 2))))
	assert.True(t, IsInputError(&ScalingBoundsExceededError{}))
	assert.False(t, IsInputError(errors.New("io failure")))
}
