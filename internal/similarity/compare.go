package similarity

import (
	"encoding/json"
	"math"
)

// Mode selects how two vector sets are compared.
type Mode string

const (
	// ModeAuto picks a mode from the input shapes (see Resolve).
	ModeAuto Mode = "auto"
	// ModeOneToMany compares the single vector of A against every vector of B.
	ModeOneToMany Mode = "one_to_many"
	// ModeManyToOne compares every vector of A against the single vector of B.
	ModeManyToOne Mode = "many_to_one"
	// ModePairwise compares A[i] with B[i].
	ModePairwise Mode = "pairwise"
	// ModeCross compares every A[i] with every B[j].
	ModeCross Mode = "cross"
)

// ParseMode converts a wire value to a Mode. The empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeOneToMany, ModeManyToOne, ModePairwise, ModeCross:
		return m, nil
	default:
		return "", Validationf("ParseMode", "unknown mode %q (supported: auto, one_to_many, many_to_one, pairwise, cross)", s)
	}
}

// Resolve returns the mode implied by the set sizes. Precedence is fixed:
// one-to-many, many-to-one, pairwise, cross. Two single-vector sets resolve
// to one-to-many and yield a single score.
func Resolve(lenA, lenB int) Mode {
	switch {
	case lenA == 1:
		return ModeOneToMany
	case lenB == 1:
		return ModeManyToOne
	case lenA == lenB:
		return ModePairwise
	default:
		return ModeCross
	}
}

// Result holds either a flat list of scores or a matrix, depending on Mode.
type Result struct {
	Mode   Mode
	Flat   []float64
	Matrix [][]float64
}

// IsMatrix reports whether the result is a full cross matrix.
func (r *Result) IsMatrix() bool { return r.Matrix != nil }

// Values returns the scores in their wire shape: []float64 or [][]float64.
func (r *Result) Values() any {
	if r.IsMatrix() {
		return r.Matrix
	}
	return r.Flat
}

// MarshalJSON encodes the result as its bare scores.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values())
}

// UnmarshalJSON accepts a flat array or a matrix. Mode is left unchanged.
func (r *Result) UnmarshalJSON(data []byte) error {
	var m [][]float64
	if err := json.Unmarshal(data, &m); err == nil {
		r.Flat, r.Matrix = nil, m
		return nil
	}
	var f []float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.Flat, r.Matrix = f, nil
	return nil
}

// Compare computes cosine similarities between a and b using the implicit
// shape dispatch.
func Compare(a, b VectorSet) (*Result, error) {
	return CompareMode(a, b, ModeAuto)
}

// CompareMode computes cosine similarities between a and b with an explicit
// mode. Explicit modes must agree with the set sizes.
func CompareMode(a, b VectorSet, mode Mode) (*Result, error) {
	const op = "Compare"
	if err := validateSets(op, a, b); err != nil {
		return nil, err
	}
	if mode == "" || mode == ModeAuto {
		mode = Resolve(len(a), len(b))
	}
	if err := checkShape(op, mode, len(a), len(b)); err != nil {
		return nil, err
	}

	na, err := normalizeSet(op, "vectors_a", a)
	if err != nil {
		return nil, err
	}
	nb, err := normalizeSet(op, "vectors_b", b)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: mode}
	switch mode {
	case ModeOneToMany:
		res.Flat = make([]float64, len(nb))
		for j, v := range nb {
			res.Flat[j] = clamp(Dot(na[0], v))
		}
	case ModeManyToOne:
		res.Flat = make([]float64, len(na))
		for i, v := range na {
			res.Flat[i] = clamp(Dot(v, nb[0]))
		}
	case ModePairwise:
		res.Flat = make([]float64, len(na))
		for i := range na {
			res.Flat[i] = clamp(Dot(na[i], nb[i]))
		}
	case ModeCross:
		res.Matrix = make([][]float64, len(na))
		for i, u := range na {
			row := make([]float64, len(nb))
			for j, v := range nb {
				row[j] = clamp(Dot(u, v))
			}
			res.Matrix[i] = row
		}
	}
	return res, nil
}

func checkShape(op string, mode Mode, lenA, lenB int) error {
	switch mode {
	case ModeOneToMany:
		if lenA != 1 {
			return Validationf(op, "mode %s requires exactly one vector in vectors_a, got %d", mode, lenA)
		}
	case ModeManyToOne:
		if lenB != 1 {
			return Validationf(op, "mode %s requires exactly one vector in vectors_b, got %d", mode, lenB)
		}
	case ModePairwise:
		if lenA != lenB {
			return Validationf(op, "mode %s requires equal set sizes, got %d and %d", mode, lenA, lenB)
		}
	case ModeCross:
	default:
		return Validationf(op, "unknown mode %q", mode)
	}
	return nil
}

// validateSets checks that both sets are non-empty, finite and share one
// dimension across A and B.
func validateSets(op string, a, b VectorSet) error {
	if len(a) == 0 {
		return Validationf(op, "vectors_a must contain at least one vector")
	}
	if len(b) == 0 {
		return Validationf(op, "vectors_b must contain at least one vector")
	}
	dim := len(a[0])
	if dim == 0 {
		return Validationf(op, "vectors_a[0] is empty")
	}
	check := func(side string, set VectorSet) error {
		for i, v := range set {
			if len(v) != dim {
				return dimensionErr(op, "%s[%d] has dimension %d, expected %d", side, i, len(v), dim)
			}
			for k, x := range v {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					return Validationf(op, "%s[%d][%d] is not a finite number", side, i, k)
				}
			}
		}
		return nil
	}
	if err := check("vectors_a", a); err != nil {
		return err
	}
	return check("vectors_b", b)
}

func (m Mode) String() string { return string(m) }
