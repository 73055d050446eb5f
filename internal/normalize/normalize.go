// Package normalize rescales feature vectors under one of four laws.
//
// Every law works on each vector independently, using only that vector's own
// statistics (sum of magnitudes, mean and population standard deviation,
// extrema, or maximum). No statistic is ever computed across the collection.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/vector"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Law names a normalization rule.
type Law string

const (
	// LawL1 divides by the sum of absolute values.
	LawL1 Law = "l1"
	// LawZScore subtracts the mean and divides by the population standard deviation.
	LawZScore Law = "zscore"
	// LawMinMax maps the vector's own minimum and maximum onto [NewMin, NewMax].
	LawMinMax Law = "minmax"
	// LawDecimal divides by the smallest power of ten that brings the maximum to at most 1.
	LawDecimal Law = "decimal"
)

// DefaultMaxExponent is the largest i for which 10^i is a finite float64.
const DefaultMaxExponent = 308

// ParseLaw maps a configured name to a Law.
func ParseLaw(name string) (Law, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "l1", "std":
		return LawL1, nil
	case "zscore", "z_score", "z-score":
		return LawZScore, nil
	case "minmax", "min_max", "min-max":
		return LawMinMax, nil
	case "decimal", "decimal_scaling":
		return LawDecimal, nil
	default:
		return "", fmt.Errorf("unknown normalization law: %q (supported: l1, zscore, minmax, decimal)", name)
	}
}

// Options tunes the laws that take parameters.
type Options struct {
	NewMin      float64
	NewMax      float64
	MaxExponent int
	// AllowNonFinite lets NaN and Inf components through L1, z-score and
	// min-max instead of rejecting them. Decimal scaling always rejects them.
	AllowNonFinite bool
}

// DefaultOptions returns a [0, 1] min-max range and the full float64 exponent range.
func DefaultOptions() Options {
	return Options{NewMin: 0, NewMax: 1, MaxExponent: DefaultMaxExponent}
}

// Result is a normalized collection. Divisors is set for decimal scaling only,
// one power of ten per vector.
type Result struct {
	Law      Law
	Vectors  []models.Vector
	Divisors []float64
}

// L1 divides every vector by the sum of its absolute values.
func L1(vs []models.Vector) ([]models.Vector, error) {
	return each(vs, func(v models.Vector) (models.Vector, error) { return l1(v, false) })
}

// ZScore standardizes every vector with its own mean and population standard deviation.
func ZScore(vs []models.Vector) ([]models.Vector, error) {
	return each(vs, func(v models.Vector) (models.Vector, error) { return zscore(v, false) })
}

// MinMax rescales every vector so its minimum maps to newMin and its maximum to newMax.
func MinMax(vs []models.Vector, newMin, newMax float64) ([]models.Vector, error) {
	if err := checkRange(newMin, newMax); err != nil {
		return nil, err
	}
	return each(vs, func(v models.Vector) (models.Vector, error) { return minMax(v, newMin, newMax, false) })
}

// DecimalScaling returns v divided by p = 10^i for the smallest i in
// [0, maxExponent] such that the result's maximum is at most 1, together with p.
// Input with a non-positive or non-finite maximum has no such p and fails
// with a ScalingBoundsExceededError, as does exhausting the bound.
func DecimalScaling(v models.Vector, maxExponent int) (models.Vector, float64, error) {
	if len(v) == 0 {
		return nil, 0, models.NewDegenerateInput(string(LawDecimal), "empty vector")
	}
	if maxExponent < 0 {
		return nil, 0, fmt.Errorf("max exponent must not be negative: %d", maxExponent)
	}
	if maxExponent > DefaultMaxExponent {
		maxExponent = DefaultMaxExponent
	}
	if p := vector.CheckFinite(v); p >= 0 {
		return nil, 0, &models.ScalingBoundsExceededError{
			Index:  models.NoIndex,
			Max:    v[p],
			Limit:  maxExponent,
			Reason: fmt.Sprintf("non-finite component at position %d", p),
		}
	}
	vmax := floats.Max(v)
	if vmax <= 0 {
		return nil, 0, &models.ScalingBoundsExceededError{
			Index:  models.NoIndex,
			Max:    vmax,
			Limit:  maxExponent,
			Reason: "maximum is not positive",
		}
	}
	// Division by a positive p is monotonic, so max(v/p) == max(v)/p.
	for i := 0; i <= maxExponent; i++ {
		p := math.Pow10(i)
		if vmax/p <= 1.0 {
			return divide(v, p), p, nil
		}
	}
	return nil, 0, &models.ScalingBoundsExceededError{
		Index:  models.NoIndex,
		Max:    vmax,
		Limit:  maxExponent,
		Reason: "no power of ten within limit",
	}
}

// Vector normalizes a single vector under law. The divisor is only meaningful
// for decimal scaling and is 0 otherwise.
func Vector(v models.Vector, law Law, opts Options) (models.Vector, float64, error) {
	switch law {
	case LawL1:
		out, err := l1(v, opts.AllowNonFinite)
		return out, 0, err
	case LawZScore:
		out, err := zscore(v, opts.AllowNonFinite)
		return out, 0, err
	case LawMinMax:
		if err := checkRange(opts.NewMin, opts.NewMax); err != nil {
			return nil, 0, err
		}
		out, err := minMax(v, opts.NewMin, opts.NewMax, opts.AllowNonFinite)
		return out, 0, err
	case LawDecimal:
		return DecimalScaling(v, opts.MaxExponent)
	default:
		return nil, 0, fmt.Errorf("unknown normalization law: %q", string(law))
	}
}

// Apply normalizes every vector of vs under law, preserving order. Errors
// carry the index of the offending vector.
func Apply(vs []models.Vector, law Law, opts Options) (*Result, error) {
	res := &Result{Law: law, Vectors: make([]models.Vector, len(vs))}
	if law == LawDecimal {
		res.Divisors = make([]float64, len(vs))
	}
	for i, v := range vs {
		out, p, err := Vector(v, law, opts)
		if err != nil {
			return nil, models.AtIndex(err, i)
		}
		res.Vectors[i] = out
		if res.Divisors != nil {
			res.Divisors[i] = p
		}
	}
	return res, nil
}

func each(vs []models.Vector, fn func(models.Vector) (models.Vector, error)) ([]models.Vector, error) {
	out := make([]models.Vector, len(vs))
	for i, v := range vs {
		n, err := fn(v)
		if err != nil {
			return nil, models.AtIndex(err, i)
		}
		out[i] = n
	}
	return out, nil
}

func l1(v models.Vector, allowNonFinite bool) (models.Vector, error) {
	if err := validate(v, LawL1, allowNonFinite); err != nil {
		return nil, err
	}
	norm := floats.Norm(v, 1)
	if norm == 0 {
		return nil, models.NewDegenerateInput(string(LawL1), "sum of absolute values is zero")
	}
	if math.IsInf(norm, 1) && isFinite(v) {
		// The sum overflowed; the law is scale invariant, so divide out the
		// largest magnitude first.
		v = divide(v, maxAbs(v))
		norm = floats.Norm(v, 1)
	}
	return checkResult(divide(v, norm), LawL1, allowNonFinite)
}

func zscore(v models.Vector, allowNonFinite bool) (models.Vector, error) {
	if err := validate(v, LawZScore, allowNonFinite); err != nil {
		return nil, err
	}
	// A constant vector can still produce a tiny non-zero variance from rounding.
	if floats.Max(v) == floats.Min(v) {
		return nil, models.NewDegenerateInput(string(LawZScore), "constant vector has zero standard deviation")
	}
	mean, variance := stat.PopMeanVariance(v, nil)
	if isFinite(v) && (variance == 0 || math.IsInf(mean, 0) || math.IsInf(variance, 0) || math.IsNaN(variance)) {
		// Squares overflowed or underflowed; rescale into [-1, 1] and retry.
		v = divide(v, maxAbs(v))
		mean, variance = stat.PopMeanVariance(v, nil)
	}
	std := math.Sqrt(variance)
	if std == 0 {
		return nil, models.NewDegenerateInput(string(LawZScore), "zero standard deviation")
	}
	out := make(models.Vector, len(v))
	for i, x := range v {
		out[i] = (x - mean) / std
	}
	return checkResult(out, LawZScore, allowNonFinite)
}

func minMax(v models.Vector, newMin, newMax float64, allowNonFinite bool) (models.Vector, error) {
	if err := validate(v, LawMinMax, allowNonFinite); err != nil {
		return nil, err
	}
	lo, hi := floats.Min(v), floats.Max(v)
	if hi == lo {
		return nil, models.NewDegenerateInput(string(LawMinMax), "constant vector (min == max)")
	}
	span := hi - lo
	scale := newMax - newMin
	out := make(models.Vector, len(v))
	if math.IsInf(span, 1) && isFinite(v) {
		// hi - lo overflowed; halving every term keeps the ratios.
		lo, span = lo/2, hi/2-lo/2
		for i, x := range v {
			out[i] = ((x/2-lo)/span)*scale + newMin
		}
		return checkResult(out, LawMinMax, allowNonFinite)
	}
	for i, x := range v {
		out[i] = ((x-lo)/span)*scale + newMin
	}
	return checkResult(out, LawMinMax, allowNonFinite)
}

func validate(v models.Vector, law Law, allowNonFinite bool) error {
	if len(v) == 0 {
		return models.NewDegenerateInput(string(law), "empty vector")
	}
	if allowNonFinite {
		return nil
	}
	if p := vector.CheckFinite(v); p >= 0 {
		return models.NewDegenerateInput(string(law), fmt.Sprintf("non-finite component at position %d", p))
	}
	return nil
}

func checkRange(newMin, newMax float64) error {
	if math.IsNaN(newMin) || math.IsInf(newMin, 0) || math.IsNaN(newMax) || math.IsInf(newMax, 0) {
		return fmt.Errorf("min-max range must be finite: [%g, %g]", newMin, newMax)
	}
	if math.IsInf(newMax-newMin, 0) {
		return fmt.Errorf("min-max range is too wide: [%g, %g]", newMin, newMax)
	}
	return nil
}

// checkResult rejects a non-finite output unless non-finite values were
// explicitly allowed.
func checkResult(out models.Vector, law Law, allowNonFinite bool) (models.Vector, error) {
	if allowNonFinite {
		return out, nil
	}
	if p := vector.CheckFinite(out); p >= 0 {
		return nil, models.NewDegenerateInput(string(law), fmt.Sprintf("result is not finite at position %d", p))
	}
	return out, nil
}

func isFinite(v models.Vector) bool {
	return vector.CheckFinite(v) < 0
}

// maxAbs returns the largest magnitude in v.
func maxAbs(v models.Vector) float64 {
	return math.Max(floats.Max(v), -floats.Min(v))
}

func divide(v models.Vector, d float64) models.Vector {
	out := make(models.Vector, len(v))
	for i, x := range v {
		out[i] = x / d
	}
	return out
}
