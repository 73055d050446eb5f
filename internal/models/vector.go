// Package models defines the vector types, request and response payloads,
// and the input error taxonomy shared by the feature pipeline.
package models

// Vector is a fixed-dimension numeric vector.
type Vector []float64

// Matrix is an ordered sequence of token vectors for one document.
type Matrix []Vector

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Floats returns v as a plain float64 slice without copying.
func (v Vector) Floats() []float64 {
	return []float64(v)
}

// Tokens returns the number of token rows in m.
func (m Matrix) Tokens() int {
	return len(m)
}

// Width returns the width of the first token row, or 0 for an empty matrix.
func (m Matrix) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}
