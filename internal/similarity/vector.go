// Package similarity implements exact cosine similarity over unit-normalized
// vectors and the shape-driven dispatch used by the comparison API.
package similarity

import (
	"errors"
	"math"
)

// Vector is a dense embedding.
type Vector []float64

// VectorSet is a non-empty list of vectors sharing one dimension.
type VectorSet []Vector

// FromFloat32 converts a provider embedding to a Vector.
func FromFloat32(x []float32) Vector {
	v := make(Vector, len(x))
	for i, f := range x {
		v[i] = float64(f)
	}
	return v
}

// SetFromFloat32 converts a batch of provider embeddings to a VectorSet.
func SetFromFloat32(xs [][]float32) VectorSet {
	set := make(VectorSet, len(xs))
	for i, x := range xs {
		set[i] = FromFloat32(x)
	}
	return set
}

// L2Norm returns the Euclidean length of v. Components are scaled by the
// largest magnitude first so large inputs do not overflow to +Inf.
func L2Norm(v Vector) float64 {
	scale := maxAbs(v)
	if scale == 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return scale
	}
	var sum float64
	for _, x := range v {
		r := x / scale
		sum += r * r
	}
	return scale * math.Sqrt(sum)
}

func maxAbs(v Vector) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}

// Dot returns the inner product of a and b. Callers must check lengths.
func Dot(a, b Vector) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// Normalize returns a unit-length copy of v. The zero vector, or one with a
// non-finite component, yields ErrDegenerateVector. Any other vector, however
// small, normalizes: components are divided by the largest magnitude before
// the norm is taken, so tiny and subnormal inputs neither underflow to zero
// nor overflow to +Inf.
func Normalize(v Vector) (Vector, error) {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, degenerateErr("Normalize", "component %d is not finite", i)
		}
	}
	scale := maxAbs(v)
	if scale == 0 {
		return nil, degenerateErr("Normalize", "vector has zero norm")
	}
	out := make(Vector, len(v))
	var sum float64
	for i, x := range v {
		out[i] = x / scale
		sum += out[i] * out[i]
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] /= norm
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, normalizing each before the
// dot product.
func Cosine(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionErr("Cosine", "lengths %d and %d differ", len(a), len(b))
	}
	ua, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	ub, err := Normalize(b)
	if err != nil {
		return 0, err
	}
	return clamp(Dot(ua, ub)), nil
}

// normalizeSet normalizes every vector of set, reporting the offending index
// and side on failure.
func normalizeSet(op, side string, set VectorSet) (VectorSet, error) {
	out := make(VectorSet, len(set))
	for i, v := range set {
		u, err := Normalize(v)
		if err != nil {
			detail := err.Error()
			var se *Error
			if errors.As(err, &se) {
				detail = se.Detail
			}
			return nil, degenerateErr(op, "%s[%d]: %s", side, i, detail)
		}
		out[i] = u
	}
	return out, nil
}

// clamp bounds rounding drift of unit dot products to [-1, 1].
func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
