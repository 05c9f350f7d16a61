package search

import (
	"errors"
	"fmt"

	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/filter"
	"github.com/hupe1980/predgt/internal/topk"
	"github.com/hupe1980/predgt/synth"
)

const (
	// DefaultK is the neighbor row width.
	DefaultK = 100

	// Sentinel marks a row slot without a neighbor.
	Sentinel int32 = -1
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrUnsupportedMetric is returned for metrics without a scorer.
	ErrUnsupportedMetric = errors.New("unsupported metric")

	// ErrEmptyCorpus is returned when searching over a corpus without vectors.
	ErrEmptyCorpus = errors.New("corpus is empty")
)

// Row is the fixed-width neighbor row of one query.
type Row struct {
	// IDs holds exactly k corpus-global indices, best first, padded with Sentinel.
	IDs []int32
	// Count is the number of valid entries: min(k, matching candidates).
	Count int
}

// Valid returns the non-sentinel prefix of the row.
func (r Row) Valid() []int32 {
	return r.IDs[:r.Count]
}

// Degenerate reports whether no candidate matched the predicate.
func (r Row) Degenerate() bool {
	return len(r.Valid()) == 0
}

func sentinelRow(k int) Row {
	ids := make([]int32, k)
	for i := range ids {
		ids[i] = Sentinel
	}
	return Row{IDs: ids}
}

// Searcher computes the predicate-constrained top-k neighbors of one query.
// Implementations must be safe for concurrent use.
type Searcher interface {
	Metric() distance.Metric
	K() int
	Search(q synth.Query) Row
}

// Scorer ranks corpus vectors against a query. It is the only part that
// differs between distance semantics.
type Scorer interface {
	Metric() distance.Metric
	// Key returns a ranking function for query over corpus-global indices.
	// Smaller keys rank first.
	Key(query []float32) func(global int) float32
}

// Restricted is the shared predicate-constrained searcher. It filters the
// corpus by predicate, ranks the survivors with its Scorer and remaps the
// selection back to corpus-global indices.
type Restricted struct {
	index  *filter.GroupIndex
	scorer Scorer
	k      int
}

// NewRestricted builds a searcher over corpus using scorer.
func NewRestricted(corpus *synth.Corpus, scorer Scorer, k int) (*Restricted, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if corpus == nil || corpus.Len() == 0 {
		return nil, ErrEmptyCorpus
	}
	return &Restricted{
		index:  filter.NewGroupIndex(corpus.GroupIDs),
		scorer: scorer,
		k:      k,
	}, nil
}

// New returns the searcher for metric over corpus.
func New(metric distance.Metric, corpus *synth.Corpus, k int) (*Restricted, error) {
	if corpus == nil || corpus.Len() == 0 {
		return nil, ErrEmptyCorpus
	}
	var scorer Scorer
	switch metric {
	case distance.MetricL2:
		scorer = NewL2Scorer(corpus)
	case distance.MetricCosine:
		scorer = NewCosineScorer(corpus)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMetric, metric)
	}
	return NewRestricted(corpus, scorer, k)
}

// Metric returns the scorer's metric.
func (s *Restricted) Metric() distance.Metric {
	return s.scorer.Metric()
}

// K returns the row width.
func (s *Restricted) K() int {
	return s.k
}

// Members returns the number of corpus vectors labeled with group g.
func (s *Restricted) Members(g int64) int {
	return s.index.Members(g)
}

// Search returns the k nearest candidates of q among the corpus vectors whose
// group is in q.Predicate.
func (s *Restricted) Search(q synth.Query) Row {
	row := sentinelRow(s.k)

	cands := s.index.Restrict(q.Predicate)
	if cands.Empty() {
		return row
	}

	key := s.scorer.Key(q.Vector)
	h := topk.New(s.k)
	cands.Each(func(local int, global uint32) {
		// Ranked in the reduced space; local order equals corpus order,
		// so the index tie-break is the corpus-index tie-break.
		h.Push(topk.Item{Index: int32(local), Key: key(int(global))})
	})

	best := h.Sorted()
	for i, it := range best {
		row.IDs[i] = cands.Global(int(it.Index))
	}
	row.Count = len(best)

	return row
}
