package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateInput is the sentinel behind every DegenerateInputError.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrShapeMismatch is the sentinel behind every ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrScalingBounds is the sentinel behind every ScalingBoundsExceededError.
	ErrScalingBounds = errors.New("scaling bounds exceeded")
)

// NoIndex marks an error field that does not apply.
const NoIndex = -1

// DegenerateInputError reports input for which a routine has no meaningful
// result: an empty token matrix, a zero-sum or constant vector, an empty
// cluster, or a non-finite component.
type DegenerateInputError struct {
	Op      string
	Index   int
	Cluster int
	Reason  string
}

// NewDegenerateInput returns a DegenerateInputError with no index or cluster set.
func NewDegenerateInput(op, reason string) *DegenerateInputError {
	return &DegenerateInputError{Op: op, Index: NoIndex, Cluster: NoIndex, Reason: reason}
}

func (e *DegenerateInputError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, ErrDegenerateInput)
	if e.Index != NoIndex {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	if e.Cluster != NoIndex {
		msg += fmt.Sprintf(" in cluster %d", e.Cluster)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DegenerateInputError) Unwrap() error { return ErrDegenerateInput }

// ShapeMismatchError reports inputs whose lengths or widths disagree.
// Field names the argument that disagrees (e.g. "vp", "labels", "token").
type ShapeMismatchError struct {
	Op       string
	Field    string
	Index    int
	Position int
	Expected int
	Actual   int
}

// NewShapeMismatch returns a ShapeMismatchError with no index or position set.
func NewShapeMismatch(op, field string, expected, actual int) *ShapeMismatchError {
	return &ShapeMismatchError{
		Op:       op,
		Field:    field,
		Index:    NoIndex,
		Position: NoIndex,
		Expected: expected,
		Actual:   actual,
	}
}

func (e *ShapeMismatchError) Error() string {
	msg := fmt.Sprintf("%s: %s in %s: expected %d, got %d", e.Op, ErrShapeMismatch, e.Field, e.Expected, e.Actual)
	if e.Index != NoIndex {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	if e.Position != NoIndex {
		msg += fmt.Sprintf(" position %d", e.Position)
	}
	return msg
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// ScalingBoundsExceededError reports a decimal-scaling search that found no
// power of ten within Limit, or input the search cannot converge on.
type ScalingBoundsExceededError struct {
	Index  int
	Max    float64
	Limit  int
	Reason string
}

func (e *ScalingBoundsExceededError) Error() string {
	msg := fmt.Sprintf("decimal_scaling: %s (max %g, limit 10^%d)", ErrScalingBounds, e.Max, e.Limit)
	if e.Index != NoIndex {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ScalingBoundsExceededError) Unwrap() error { return ErrScalingBounds }

// AtIndex returns a copy of err with its index set to i when err is one of
// the taxonomy errors. Any other error is returned unchanged.
func AtIndex(err error, i int) error {
	var de *DegenerateInputError
	if errors.As(err, &de) {
		c := *de
		c.Index = i
		return &c
	}
	var se *ShapeMismatchError
	if errors.As(err, &se) {
		c := *se
		c.Index = i
		return &c
	}
	var be *ScalingBoundsExceededError
	if errors.As(err, &be) {
		c := *be
		c.Index = i
		return &c
	}
	return err
}

// IsInputError reports whether err belongs to the input error taxonomy.
func IsInputError(err error) bool {
	return errors.Is(err, ErrDegenerateInput) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrScalingBounds)
}
