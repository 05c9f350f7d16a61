package search

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	corpus, queries := generate(t, 42, synth.Params{N: 1000, P: 8, X: 40})

	s, err := New(distance.MetricL2, corpus, DefaultK)
	require.NoError(t, err)

	var observed atomic.Int64
	nb, err := Run(context.Background(), s, queries,
		WithWorkers(4),
		WithObserver(func(st QueryStats) {
			observed.Add(1)
			assert.False(t, st.Degenerate)
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, DefaultK, nb.K)
	assert.Len(t, nb.Rows, len(queries))
	assert.Equal(t, 0, nb.Degenerate)
	assert.Equal(t, int64(len(queries)), observed.Load())

	for i, q := range queries {
		assert.Equal(t, s.Search(q), nb.Rows[i], "query %d", i)
	}

	m := nb.Matrix()
	require.Len(t, m, len(queries))
	for _, r := range m {
		assert.Len(t, r, DefaultK)
	}
}

func TestRun_WorkerCountIndependent(t *testing.T) {
	corpus, queries := generate(t, 7, synth.Params{N: 500, P: 4, X: 30})

	s, err := New(distance.MetricCosine, corpus, 20)
	require.NoError(t, err)

	serial, err := Run(context.Background(), s, queries, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := Run(context.Background(), s, queries, WithWorkers(8))
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestRun_CountsDegenerateQueries(t *testing.T) {
	corpus, queries := generate(t, 3, synth.Params{N: 300, P: 4, X: 4})
	queries[1].Predicate = []int64{77}
	queries[3].Predicate = []int64{78, 79}

	s, err := New(distance.MetricCosine, corpus, DefaultK)
	require.NoError(t, err)

	nb, err := Run(context.Background(), s, queries)
	require.NoError(t, err)

	assert.Equal(t, 2, nb.Degenerate)
	assert.True(t, nb.Rows[1].Degenerate())
	assert.True(t, nb.Rows[3].Degenerate())
	assert.False(t, nb.Rows[0].Degenerate())
}

func TestRun_Cancelled(t *testing.T) {
	corpus, queries := generate(t, 3, synth.Params{N: 300, P: 4, X: 10})

	s, err := New(distance.MetricL2, corpus, DefaultK)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, s, queries)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoQueries(t *testing.T) {
	corpus, _ := generate(t, 3, synth.Params{N: 100, P: 2, X: 1})
	s, err := New(distance.MetricL2, corpus, 5)
	require.NoError(t, err)

	nb, err := Run(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Empty(t, nb.Rows)
	assert.Equal(t, 5, nb.K)
}
