package search

import (
	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/synth"
)

// L2Scorer ranks by squared Euclidean distance.
type L2Scorer struct {
	vectors [][]float32
}

// NewL2Scorer creates an L2Scorer over the corpus vectors.
func NewL2Scorer(corpus *synth.Corpus) *L2Scorer {
	return &L2Scorer{vectors: corpus.Vectors}
}

func (s *L2Scorer) Metric() distance.Metric { return distance.MetricL2 }

func (s *L2Scorer) Key(query []float32) func(global int) float32 {
	return func(global int) float32 {
		return distance.SquaredL2(query, s.vectors[global])
	}
}

// CosineScorer ranks by cosine similarity. Corpus vectors are normalized once
// at construction; the query is normalized per call. A zero vector has
// similarity 0 with everything.
type CosineScorer struct {
	unit [][]float32
}

// NewCosineScorer creates a CosineScorer holding a normalized copy of the corpus.
func NewCosineScorer(corpus *synth.Corpus) *CosineScorer {
	data := make([]float32, corpus.Len()*corpus.Dim)
	unit := make([][]float32, corpus.Len())
	for i, v := range corpus.Vectors {
		u := data[i*corpus.Dim : (i+1)*corpus.Dim : (i+1)*corpus.Dim]
		copy(u, v)
		// Zero vectors stay zero.
		distance.NormalizeL2InPlace(u)
		unit[i] = u
	}
	return &CosineScorer{unit: unit}
}

func (s *CosineScorer) Metric() distance.Metric { return distance.MetricCosine }

// Key negates the similarity so that the largest similarity ranks first.
func (s *CosineScorer) Key(query []float32) func(global int) float32 {
	q, ok := distance.NormalizeL2Copy(query)
	if !ok {
		q = make([]float32, len(query))
	}
	return func(global int) float32 {
		return -distance.Dot(q, s.unit[global])
	}
}
