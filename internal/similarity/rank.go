package similarity

import "sort"

// Scored is one candidate's similarity to a query, with its position in the
// input.
type Scored struct {
	Index int
	Score float64
}

// Rank scores every candidate against query and returns them ordered by score
// descending. Equal scores keep their input order.
func Rank(query Vector, candidates VectorSet) ([]Scored, error) {
	const op = "Rank"
	if len(query) == 0 {
		return nil, Validationf(op, "query vector is empty")
	}
	if len(candidates) == 0 {
		return nil, Validationf(op, "at least one candidate is required")
	}
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, dimensionErr(op, "candidate %d has dimension %d, expected %d", i, len(c), len(query))
		}
	}

	uq, err := Normalize(query)
	if err != nil {
		return nil, degenerateErr(op, "query vector cannot be normalized")
	}
	nc, err := normalizeSet(op, "chunks", candidates)
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, len(nc))
	for i, c := range nc {
		scored[i] = Scored{Index: i, Score: clamp(Dot(uq, c))}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}
