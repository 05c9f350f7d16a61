package predgt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/hupe1980/predgt/blobstore"
	"github.com/hupe1980/predgt/dataset"
	"github.com/hupe1980/predgt/distance"
	"github.com/hupe1980/predgt/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Euclidean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.pgt")
	params := Params{N: 1000, P: 8, X: 5}

	res, err := Run(context.Background(), params, path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Positive(t, res.Bytes)
	assert.Empty(t, res.Location)

	ds, err := dataset.Open(path)
	require.NoError(t, err)
	assert.Equal(t, res.Dataset.ID, ds.ID)
	assert.Equal(t, distance.MetricL2, ds.Metric)
	assert.Equal(t, 8, ds.Dimension())
	assert.Equal(t, 1000, ds.NumTrainVectors())
	require.Len(t, ds.TestVectors(), 5)
	require.Len(t, ds.NeighborRows(), 5)

	// 10 groups of exactly 100 members each.
	counts := map[int64]int{}
	for _, g := range ds.TrainFilters() {
		counts[g]++
	}
	assert.Len(t, counts, 10)
	for g := int64(1); g <= 10; g++ {
		assert.Equal(t, 100, counts[g])
	}

	for i, pred := range ds.TestFilters() {
		require.GreaterOrEqual(t, len(pred), 1)
		require.LessOrEqual(t, len(pred), 5)
		for _, g := range pred {
			assert.GreaterOrEqual(t, g, int32(1))
			assert.LessOrEqual(t, g, int32(10))
		}

		row := ds.NeighborRows()[i]
		require.Len(t, row, 100)
		// Every predicate matches at least 100 vectors, so rows are full.
		for _, idx := range row {
			require.NotEqual(t, dataset.Sentinel, idx)
			group := int32(ds.TrainFilters()[idx])
			assert.True(t, slices.Contains(pred, group), "query %d: neighbor %d in group %d not in %v", i, idx, group, pred)
		}

		// Best first.
		q := ds.TestVectors()[i]
		for j := 1; j < len(row); j++ {
			prev := distance.SquaredL2(q, ds.TrainVectors()[row[j-1]])
			cur := distance.SquaredL2(q, ds.TrainVectors()[row[j]])
			assert.LessOrEqual(t, prev, cur)
		}
	}
}

func TestGenerate_Cosine(t *testing.T) {
	res, err := Generate(context.Background(), Params{N: 500, P: 16, X: 10}, WithMetric(distance.MetricCosine))
	require.NoError(t, err)
	require.NoError(t, res.Dataset.Validate())
	assert.Equal(t, distance.MetricCosine, res.Dataset.Metric)

	for i, row := range res.Dataset.Neighbors {
		q := res.Dataset.Test[i]
		prev := float32(2)
		for _, idx := range row {
			sim := cosine(q, res.Dataset.Train[idx])
			assert.LessOrEqual(t, sim, prev+1e-6)
			prev = sim
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()
	params := Params{N: 800, P: 6, X: 20}

	a, err := Generate(ctx, params, WithSeed(99), WithWorkers(1))
	require.NoError(t, err)
	b, err := Generate(ctx, params, WithSeed(99), WithWorkers(8))
	require.NoError(t, err)

	assert.Equal(t, a.Dataset.Train, b.Dataset.Train)
	assert.Equal(t, a.Dataset.TrainIDs, b.Dataset.TrainIDs)
	assert.Equal(t, a.Dataset.Test, b.Dataset.Test)
	assert.Equal(t, a.Dataset.TestIDs, b.Dataset.TestIDs)
	assert.Equal(t, a.Dataset.Neighbors, b.Dataset.Neighbors)

	c, err := Generate(ctx, params, WithSeed(100))
	require.NoError(t, err)
	assert.NotEqual(t, a.Dataset.Train, c.Dataset.Train)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		params Params
		path   string
		opts   []Option
		cause  error
	}{
		{"zero n", Params{N: 0, P: 8, X: 5}, filepath.Join(dir, "a.pgt"), nil, ErrInvalidParams},
		{"negative p", Params{N: 100, P: -1, X: 5}, filepath.Join(dir, "b.pgt"), nil, ErrInvalidParams},
		{"zero x", Params{N: 100, P: 8, X: 0}, filepath.Join(dir, "c.pgt"), nil, ErrInvalidParams},
		{"zero k", Params{N: 100, P: 8, X: 5}, filepath.Join(dir, "d.pgt"), []Option{WithK(0)}, ErrInvalidK},
		{"bad metric", Params{N: 100, P: 8, X: 5}, filepath.Join(dir, "e.pgt"), []Option{WithMetric(distance.Metric(42))}, ErrUnsupportedMetric},
		{"bad compression", Params{N: 100, P: 8, X: 5}, filepath.Join(dir, "f.pgt"), []Option{WithCompression(dataset.Compression(9))}, ErrUnsupportedCompression},
		{"missing directory", Params{N: 100, P: 8, X: 5}, filepath.Join(dir, "nope", "g.pgt"), nil, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.params, tt.path, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.ErrorIs(t, err, tt.cause)

			_, statErr := os.Stat(tt.path)
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "no output may be written")
		})
	}
}

func TestFromCorpus_OutOfRangePredicate(t *testing.T) {
	rng := synth.NewRNG(1)
	corpus, err := synth.GenerateCorpus(rng, 300, 4)
	require.NoError(t, err)

	queries := []synth.Query{
		{Vector: []float32{0.1, 0.2, 0.3, 0.4}, Predicate: []int64{1}},
		{Vector: []float32{0.5, 0.5, 0.5, 0.5}, Predicate: []int64{999}},
	}

	_, err = FromCorpus(context.Background(), corpus, queries, WithMetric(distance.MetricCosine))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	var pe *synth.PredicateError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Query)
	assert.Equal(t, int64(999), pe.Group)
}

func TestFromCorpus_PartialGroup(t *testing.T) {
	rng := synth.NewRNG(3)
	corpus, err := synth.GenerateCorpus(rng, 250, 4)
	require.NoError(t, err)
	require.Equal(t, 3, corpus.Groups())

	queries := []synth.Query{
		{Vector: []float32{0.5, 0.5, 0.5, 0.5}, Predicate: []int64{3}},
		{Vector: []float32{0.1, 0.9, 0.1, 0.9}, Predicate: []int64{1, 3}},
	}

	for _, m := range []distance.Metric{distance.MetricL2, distance.MetricCosine} {
		t.Run(m.String(), func(t *testing.T) {
			res, err := FromCorpus(context.Background(), corpus, queries, WithMetric(m))
			require.NoError(t, err)
			require.NoError(t, res.Dataset.Validate())

			row := res.Neighbors.Rows[0]
			assert.Equal(t, 50, row.Count)
			require.Len(t, row.IDs, 100)
			for _, idx := range row.Valid() {
				assert.GreaterOrEqual(t, idx, int32(200))
			}
			for _, idx := range row.IDs[50:] {
				assert.Equal(t, dataset.Sentinel, idx)
			}

			assert.Equal(t, 100, res.Neighbors.Rows[1].Count)
			assert.Zero(t, res.Neighbors.Degenerate)
		})
	}
}

func TestFromCorpus_ReloadedLabels(t *testing.T) {
	ctx := context.Background()
	vectors := [][]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}}

	t.Run("Interleaved", func(t *testing.T) {
		corpus, err := synth.NewCorpus(2, vectors, []int64{1, 2, 1, 2, 3})
		require.NoError(t, err)

		res, err := FromCorpus(ctx, corpus, []synth.Query{
			{Vector: []float32{2.9, 2.9}, Predicate: []int64{2}},
			// Unsorted predicates select the same candidates.
			{Vector: []float32{0, 0}, Predicate: []int64{3, 1}},
		}, WithK(2))
		require.NoError(t, err)

		assert.Equal(t, []int32{3, 1}, res.Neighbors.Rows[0].IDs)
		assert.Equal(t, []int32{0, 2}, res.Neighbors.Rows[1].IDs)
		assert.Zero(t, res.Neighbors.Degenerate)
	})

	t.Run("GroupWithoutMembers", func(t *testing.T) {
		corpus, err := synth.NewCorpus(2, vectors[:4], []int64{7, 7, 7, 7})
		require.NoError(t, err)

		_, err = FromCorpus(ctx, corpus, []synth.Query{
			{Vector: []float32{0, 0}, Predicate: []int64{7}},
			{Vector: []float32{0, 0}, Predicate: []int64{1}},
		}, WithK(2))
		require.ErrorIs(t, err, ErrConfiguration)

		var pe *synth.PredicateError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 1, pe.Query)
		assert.Equal(t, int64(1), pe.Group)
	})

	t.Run("AboveLargestLabel", func(t *testing.T) {
		corpus, err := synth.NewCorpus(2, vectors[:4], []int64{7, 7, 7, 7})
		require.NoError(t, err)

		_, err = FromCorpus(ctx, corpus, []synth.Query{
			{Vector: []float32{0, 0}, Predicate: []int64{8}},
		})
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestFromCorpus_DimensionMismatch(t *testing.T) {
	corpus, err := synth.GenerateCorpus(synth.NewRNG(1), 100, 4)
	require.NoError(t, err)

	_, err = FromCorpus(context.Background(), corpus, []synth.Query{
		{Vector: []float32{1, 2}, Predicate: []int64{1}},
	})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRun_Publish(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gt.pgt")
	store := blobstore.NewMemoryStore()
	catalog := blobstore.NewMemoryCatalog()
	metrics := &BasicMetricsCollector{}

	res, err := Run(ctx, Params{N: 300, P: 4, X: 7}, path,
		WithCompression(dataset.CompressionZSTD),
		WithPublisher(store, ""),
		WithCatalog(catalog),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)
	assert.Equal(t, "mem://gt.pgt", res.Location)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	published, err := store.Get(ctx, "gt.pgt")
	require.NoError(t, err)
	assert.Equal(t, onDisk, published)

	ds, err := dataset.Decode(published)
	require.NoError(t, err)
	assert.Equal(t, res.Dataset.Neighbors, ds.Neighbors)

	pub, err := catalog.Lookup(ctx, res.Dataset.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "mem://gt.pgt", pub.URI)
	assert.Equal(t, "l2", pub.Metric)
	assert.Equal(t, 300, pub.N)
	assert.Equal(t, 100, pub.K)
	assert.Equal(t, int64(len(onDisk)), pub.Size)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.GenerateCount)
	assert.Equal(t, int64(7), stats.QueryCount)
	assert.Equal(t, int64(1), stats.WriteCount)
	assert.Equal(t, res.Bytes, stats.BytesWritten)
	assert.Equal(t, int64(1), stats.PublishCount)
	assert.Zero(t, stats.PublishErrors)
}

func TestPublish(t *testing.T) {
	store := blobstore.NewLocalStore(t.TempDir())
	uri, err := Publish(context.Background(), store, "runs/x.pgt", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, store.URI("runs/x.pgt"), uri)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, Params{N: 1000, P: 8, X: 50})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrConfiguration)
}

func TestRun_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(context.Background(), Params{N: 200, P: 4, X: 3}, filepath.Join(t.TempDir(), "gt.pgt"),
		WithLogger(logger),
	)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"generate completed"`)
	assert.Contains(t, out, `"msg":"search completed"`)
	assert.Contains(t, out, `"msg":"dataset written"`)
	assert.Contains(t, out, `"dataset_id"`)
}

func cosine(a, b []float32) float32 {
	na, _ := distance.NormalizeL2Copy(a)
	nb, _ := distance.NormalizeL2Copy(b)
	return distance.Dot(na, nb)
}
