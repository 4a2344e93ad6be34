package aggo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aggo"
	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/blobstore"
	"github.com/hupe1980/aggo/bucket"
	"github.com/hupe1980/aggo/metrics"
	"github.com/hupe1980/aggo/pipeline"
	"github.com/hupe1980/aggo/query"
	"github.com/hupe1980/aggo/resource"
	"github.com/hupe1980/aggo/segment"
	"github.com/hupe1980/aggo/testutil"
	"github.com/hupe1980/aggo/transport"
)

func priceDoc(values ...float64) segment.MemDoc {
	return segment.MemDoc{Numeric: map[string][]float64{"price": values}}
}

func TestRunnerEndToEnd(t *testing.T) {
	idx := segment.NewMemIndex(
		segment.NewMemSegment(1, []segment.MemDoc{
			priceDoc(1), priceDoc(2), priceDoc(12),
		}),
		segment.NewMemSegment(2, []segment.MemDoc{
			priceDoc(14), priceDoc(25),
			{Numeric: map[string][]float64{"price": {99}}, Deleted: true},
		}),
	)

	runner := aggo.NewRunner(idx)

	sum, err := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
	require.NoError(t, err)
	histo, err := bucket.HistogramBuilder{Name: "by_price", Field: "price", Interval: 10}.
		Build(runner.Arrays(), sum)
	require.NoError(t, err)
	deriv, err := pipeline.DerivativeBuilder{Name: "delta", BucketsPaths: []string{"by_price>total"}}.Build()
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), segment.MatchAll{},
		[]aggregate.Aggregator{histo}, deriv)
	require.NoError(t, err)

	internal, ok := results.Get("by_price")
	require.True(t, ok)
	hist := internal.(*bucket.InternalHistogram)

	require.Len(t, hist.BucketSlice, 3)
	assert.Equal(t, []float64{0, 10, 20},
		[]float64{hist.BucketSlice[0].BucketKey, hist.BucketSlice[1].BucketKey, hist.BucketSlice[2].BucketKey})
	assert.Equal(t, int64(2), hist.BucketSlice[0].Count)
	assert.Equal(t, int64(2), hist.BucketSlice[1].Count)
	assert.Equal(t, int64(1), hist.BucketSlice[2].Count)

	// The deleted document never reaches a bucket.
	total, ok := hist.BucketSlice[2].Aggs.Get("total")
	require.True(t, ok)
	v, _ := total.Metric("")
	assert.Equal(t, 25.0, v)

	// Derivative attached from the second bucket on: 26-3 and 25-26.
	_, ok = hist.BucketSlice[0].Aggs.Get("delta")
	assert.False(t, ok)

	delta, ok := hist.BucketSlice[1].Aggs.Get("delta")
	require.True(t, ok)
	v, _ = delta.Metric("")
	assert.Equal(t, 23.0, v)

	delta, ok = hist.BucketSlice[2].Aggs.Get("delta")
	require.True(t, ok)
	v, _ = delta.Metric("")
	assert.Equal(t, -1.0, v)
}

func TestRunnerClosesAggregators(t *testing.T) {
	idx := segment.NewMemIndex(
		segment.NewMemSegment(1, []segment.MemDoc{priceDoc(1)}),
	)

	runner := aggo.NewRunner(idx)
	sum, err := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), segment.MatchAll{}, []aggregate.Aggregator{sum})
	require.NoError(t, err)

	// Run released the aggregator state; closing again is a defect.
	assert.Error(t, sum.Close())
}

type failingQuery struct{}

func (failingQuery) Evaluate(segment.Reader) (*roaring.Bitmap, error) {
	return nil, errors.New("boom")
}

func TestRunnerStillClosesOnCollectError(t *testing.T) {
	idx := segment.NewMemIndex(
		segment.NewMemSegment(1, []segment.MemDoc{priceDoc(1)}),
	)

	runner := aggo.NewRunner(idx)
	sum, err := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), failingQuery{}, []aggregate.Aggregator{sum})
	require.ErrorContains(t, err, "boom")
	assert.Error(t, sum.Close())
}

// matchAllRewriter exercises the fixed-point rewrite before collection.
type matchAllRewriter struct {
	rounds int
}

func (q *matchAllRewriter) Rewrite(context.Context) (query.Rewriter, error) {
	if q.rounds == 0 {
		return q, nil
	}
	return &matchAllRewriter{rounds: q.rounds - 1}, nil
}

func (q *matchAllRewriter) Evaluate(r segment.Reader) (*roaring.Bitmap, error) {
	return segment.MatchAll{}.Evaluate(r)
}

func TestRunnerRewritesQuery(t *testing.T) {
	idx := segment.NewMemIndex(
		segment.NewMemSegment(1, []segment.MemDoc{priceDoc(3), priceDoc(4)}),
	)

	runner := aggo.NewRunner(idx)
	sum, err := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), &matchAllRewriter{rounds: 2},
		[]aggregate.Aggregator{sum})
	require.NoError(t, err)

	total, ok := results.Get("total")
	require.True(t, ok)
	v, _ := total.Metric("")
	assert.Equal(t, 7.0, v)
}

func runPartition(t *testing.T, docs []segment.MemDoc) aggregate.Internals {
	t.Helper()

	idx := segment.NewMemIndex(segment.NewMemSegment(1, docs))
	runner := aggo.NewRunner(idx)

	sum, err := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
	require.NoError(t, err)
	mx, err := metrics.MaxBuilder{Name: "top", Field: "price"}.Build(runner.Arrays())
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), segment.MatchAll{},
		[]aggregate.Aggregator{sum, mx})
	require.NoError(t, err)
	return results
}

func TestReduceMatchesSingleRun(t *testing.T) {
	rng := testutil.NewRNG(42)
	docs := rng.NumericDocs("price", 300, 0, 1000)

	partitions := make([]aggregate.Internals, 0, 3)
	for i := 0; i < 3; i++ {
		partitions = append(partitions, runPartition(t, docs[i*100:(i+1)*100]))
	}

	merged, err := aggo.Reduce(context.Background(), partitions)
	require.NoError(t, err)

	total, ok := merged.Get("total")
	require.True(t, ok)
	v, _ := total.Metric("")
	assert.InDelta(t, testutil.SumOf(docs, "price"), v, 1e-6)

	top, ok := merged.Get("top")
	require.True(t, ok)
	v, _ = top.Metric("")
	assert.Equal(t, testutil.MaxOf(docs, "price"), v)
}

func TestReduceRunsFinalSteps(t *testing.T) {
	docsA := []segment.MemDoc{priceDoc(1), priceDoc(12)}
	docsB := []segment.MemDoc{priceDoc(3), priceDoc(25)}

	runHisto := func(docs []segment.MemDoc) aggregate.Internals {
		idx := segment.NewMemIndex(segment.NewMemSegment(1, docs))
		runner := aggo.NewRunner(idx)
		sum, err := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
		require.NoError(t, err)
		histo, err := bucket.HistogramBuilder{Name: "by_price", Field: "price", Interval: 10}.
			Build(runner.Arrays(), sum)
		require.NoError(t, err)
		results, err := runner.Run(context.Background(), segment.MatchAll{},
			[]aggregate.Aggregator{histo})
		require.NoError(t, err)
		return results
	}

	avg, err := pipeline.AvgBucketBuilder{Name: "avg_total", BucketsPaths: []string{"by_price>total"}}.Build()
	require.NoError(t, err)

	merged, err := aggo.Reduce(context.Background(),
		[]aggregate.Internals{runHisto(docsA), runHisto(docsB)}, avg)
	require.NoError(t, err)

	// Buckets 0, 10, 20 with sums 4, 12, 25.
	result, ok := merged.Get("avg_total")
	require.True(t, ok)
	v, _ := result.Metric("")
	assert.InDelta(t, (4.0+12.0+25.0)/3, v, 1e-9)
}

func TestArchiverRoundTrip(t *testing.T) {
	docs := testutil.NewRNG(7).NumericDocs("price", 50, 0, 100)
	results := runPartition(t, docs)

	store := blobstore.NewMemory()
	archiver := aggo.NewArchiver(store,
		aggo.WithTransportOptions(transport.WithCompression(transport.CompressionZSTD)))

	require.NoError(t, archiver.Archive(context.Background(), "results/v1", results))

	loaded, err := archiver.Load(context.Background(), "results/v1")
	require.NoError(t, err)
	require.Equal(t, results.Names(), loaded.Names())

	for _, name := range []string{"total", "top"} {
		want, _ := results.Get(name)
		got, ok := loaded.Get(name)
		require.True(t, ok)
		wv, _ := want.Metric("")
		gv, _ := got.Metric("")
		assert.Equal(t, wv, gv)
	}

	_, err = archiver.Load(context.Background(), "results/v2")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestArchiverHonorsWorkerSlots(t *testing.T) {
	docs := testutil.NewRNG(11).NumericDocs("price", 10, 0, 100)
	results := runPartition(t, docs)

	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 1})
	archiver := aggo.NewArchiver(blobstore.NewMemory(), aggo.WithArchiveController(rc))

	require.NoError(t, archiver.Archive(context.Background(), "results/v1", results))

	// With the only slot taken, archive work waits on the context.
	require.NoError(t, rc.AcquireBackground(context.Background()))
	defer rc.ReleaseBackground()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, archiver.Archive(ctx, "results/v2", results), context.Canceled)
	_, err := archiver.Load(ctx, "results/v1")
	require.ErrorIs(t, err, context.Canceled)
}
