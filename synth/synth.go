package synth

import (
	"errors"
	"fmt"
)

const (
	// GroupSize is the number of consecutive corpus vectors sharing one group identifier.
	GroupSize = 100

	// MaxPredicateSize is the largest predicate set drawn for a query.
	MaxPredicateSize = 5
)

var (
	// ErrInvalidParams is returned when n, p or x is not positive.
	ErrInvalidParams = errors.New("invalid generation parameters")
)

// Params are the shape parameters of a generated dataset.
type Params struct {
	N int // corpus size
	P int // dimensionality
	X int // query count
}

// Validate reports a configuration error for non-positive values.
func (p Params) Validate() error {
	switch {
	case p.N <= 0:
		return fmt.Errorf("%w: corpus size n must be positive, got %d", ErrInvalidParams, p.N)
	case p.P <= 0:
		return fmt.Errorf("%w: dimension p must be positive, got %d", ErrInvalidParams, p.P)
	case p.X <= 0:
		return fmt.Errorf("%w: query count x must be positive, got %d", ErrInvalidParams, p.X)
	}
	return nil
}

// GroupCount returns the number of group identifiers for a corpus of n vectors.
//
// When n is not a multiple of GroupSize the trailing n%GroupSize vectors form
// one extra, partial group, so the result is ceil(n/GroupSize).
func GroupCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + GroupSize - 1) / GroupSize
}

// GroupOf returns the group identifier of corpus position i.
func GroupOf(i int) int64 {
	return int64(i/GroupSize) + 1
}

// Corpus is the ordered set of training vectors with their group labels.
// Position in the corpus is the global index used in neighbor results and
// must not change after generation.
type Corpus struct {
	Dim      int
	Vectors  [][]float32
	GroupIDs []int64
}

// Len returns the number of corpus vectors.
func (c *Corpus) Len() int {
	return len(c.Vectors)
}

// Groups returns the largest group identifier in the corpus. Predicate
// identifiers range over 1..Groups(); a generated corpus uses every one of
// them, a corpus built by NewCorpus may leave gaps.
func (c *Corpus) Groups() int {
	var hi int64
	for _, g := range c.GroupIDs {
		hi = max(hi, g)
	}
	return int(hi)
}

// NewCorpus wraps existing vectors and group identifiers.
// It is used when a corpus is reloaded rather than generated. Identifiers
// must be positive; they need not follow the contiguous GroupSize layout.
func NewCorpus(dim int, vectors [][]float32, groupIDs []int64) (*Corpus, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension p must be positive, got %d", ErrInvalidParams, dim)
	}
	if len(vectors) != len(groupIDs) {
		return nil, fmt.Errorf("%w: %d vectors but %d group ids", ErrInvalidParams, len(vectors), len(groupIDs))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrInvalidParams, i, len(v), dim)
		}
	}
	for i, g := range groupIDs {
		if g < 1 {
			return nil, fmt.Errorf("%w: vector %d has group %d, identifiers start at 1", ErrInvalidParams, i, g)
		}
	}
	return &Corpus{Dim: dim, Vectors: vectors, GroupIDs: groupIDs}, nil
}

// Query is a query vector paired with its predicate set.
// Predicate is duplicate-free; its order carries no meaning.
type Query struct {
	Vector    []float32
	Predicate []int64
}

// GenerateCorpus draws n vectors of dimension p with components uniform in
// [0, 1) and assigns contiguous groups of GroupSize.
func GenerateCorpus(rng *RNG, n, p int) (*Corpus, error) {
	if err := (Params{N: n, P: p, X: 1}).Validate(); err != nil {
		return nil, err
	}

	vectors, _ := rng.UniformVectors(n, p)

	groupIDs := make([]int64, n)
	for i := range groupIDs {
		groupIDs[i] = GroupOf(i)
	}

	return &Corpus{
		Dim:      p,
		Vectors:  vectors,
		GroupIDs: groupIDs,
	}, nil
}

// GenerateQueries draws x query vectors of dimension p with components
// uniform in [0, 1). Each query gets a predicate set whose size is uniform in
// {1..MaxPredicateSize} (capped at groups), sampled without replacement from
// 1..groups.
func GenerateQueries(rng *RNG, x, p, groups int) ([]Query, error) {
	if err := (Params{N: 1, P: p, X: x}).Validate(); err != nil {
		return nil, err
	}
	if groups <= 0 {
		return nil, fmt.Errorf("%w: group count must be positive, got %d", ErrInvalidParams, groups)
	}

	vectors, _ := rng.UniformVectors(x, p)

	maxSize := min(MaxPredicateSize, groups)
	queries := make([]Query, x)
	for i := range queries {
		size := rng.Intn(maxSize) + 1
		picks := rng.Sample(groups, size)

		predicate := make([]int64, len(picks))
		for j, g := range picks {
			predicate[j] = int64(g) + 1
		}

		queries[i] = Query{
			Vector:    vectors[i],
			Predicate: predicate,
		}
	}

	return queries, nil
}

// Generate produces the corpus and the query set for params.
// The corpus is drawn first, then the queries, both from rng.
func Generate(rng *RNG, params Params) (*Corpus, []Query, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	corpus, err := GenerateCorpus(rng, params.N, params.P)
	if err != nil {
		return nil, nil, err
	}

	queries, err := GenerateQueries(rng, params.X, params.P, GroupCount(params.N))
	if err != nil {
		return nil, nil, err
	}

	return corpus, queries, nil
}
