package bucket

import (
	"context"
	"math"
	"slices"
	"sort"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// HistogramBuilder configures a fixed-interval numeric histogram.
type HistogramBuilder struct {
	Name        string  `json:"name"`
	Field       string  `json:"field"`
	Interval    float64 `json:"interval"`
	Offset      float64 `json:"offset,omitempty"`
	MinDocCount int64   `json:"min_doc_count"`
}

// Validate checks the configuration.
func (b HistogramBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if b.Field == "" {
		return aggregate.NewConfigError(b.Name, "[field] must not be empty")
	}
	if b.Interval <= 0 {
		return aggregate.NewConfigError(b.Name, "[interval] must be a positive number, got %v", b.Interval)
	}
	if math.Abs(b.Offset) >= b.Interval {
		return aggregate.NewConfigError(b.Name, "[offset] must be smaller than [interval], got %v", b.Offset)
	}
	if b.MinDocCount < 0 {
		return aggregate.NewConfigError(b.Name, "[min_doc_count] must not be negative, got %d", b.MinDocCount)
	}
	return nil
}

// Build constructs the aggregator with the given sub-aggregators.
func (b HistogramBuilder) Build(arrays *bigarray.BigArrays, subs ...aggregate.Aggregator) (*Histogram, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	base, err := aggregate.NewBucketed(b.Name, false, arrays, subs)
	if err != nil {
		return nil, err
	}
	return &Histogram{
		Bucketed:    base,
		field:       b.Field,
		interval:    b.Interval,
		offset:      b.Offset,
		minDocCount: b.MinDocCount,
		ords:        make(map[float64]model.BucketOrd),
	}, nil
}

// Histogram buckets a numeric field into fixed-width intervals. Bucket
// ordinals are issued densely in first-seen order and remapped to key
// order when the result is built.
type Histogram struct {
	aggregate.Bucketed

	field       string
	interval    float64
	offset      float64
	minDocCount int64

	ords map[float64]model.BucketOrd
	keys []float64
}

func (h *Histogram) key(value float64) float64 {
	return math.Floor((value-h.offset)/h.interval)*h.interval + h.offset
}

func (h *Histogram) ordFor(key float64) model.BucketOrd {
	if ord, ok := h.ords[key]; ok {
		return ord
	}
	ord := model.BucketOrd(len(h.keys))
	h.ords[key] = ord
	h.keys = append(h.keys, key)
	return ord
}

// Leaf implements aggregate.Aggregator.
func (h *Histogram) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := h.RequireCollecting(); err != nil {
		return nil, err
	}
	values, ok := r.NumericValues(h.field)
	if !ok {
		return aggregate.NoOp, nil
	}
	sub, err := h.SubLeaf(r)
	if err != nil {
		return nil, err
	}

	var seen []float64

	return aggregate.LeafCollectorFunc(func(doc uint32, _ model.BucketOrd) error {
		n := values.SetDocument(doc)
		seen = seen[:0]
		for i := 0; i < n; i++ {
			key := h.key(values.Value(i))
			// A document lands in each bucket at most once even when
			// several of its values share an interval. Values are not
			// required to arrive sorted, so every key of the current
			// document is remembered.
			if slices.Contains(seen, key) {
				continue
			}
			seen = append(seen, key)
			if err := h.CollectBucket(sub, doc, h.ordFor(key)); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

// PostCollect implements aggregate.Aggregator.
func (h *Histogram) PostCollect(ctx context.Context, idx segment.Index) error {
	if err := h.StartPostCollect(); err != nil {
		return err
	}
	return h.PostCollectSub(ctx, idx)
}

// Build implements aggregate.Aggregator. The whole bucket series is
// materialized in ascending key order; when MinDocCount is zero the
// series also covers every empty interval between the observed keys.
func (h *Histogram) Build(model.BucketOrd) (aggregate.Internal, error) {
	if err := h.StartBuild(); err != nil {
		return nil, err
	}

	sorted := make([]float64, len(h.keys))
	copy(sorted, h.keys)
	sort.Float64s(sorted)

	var buckets []HistogramBucket
	for i, key := range sorted {
		if h.minDocCount == 0 && i > 0 {
			// Materialize the gap between consecutive observed keys.
			for k := sorted[i-1] + h.interval; k < key-h.interval/2; k += h.interval {
				buckets = append(buckets, HistogramBucket{
					BucketKey: k,
					Aggs:      h.BuildEmptySub(),
				})
			}
		}
		ord := h.ords[key]
		count := h.BucketDocCount(ord)
		if count < h.minDocCount {
			continue
		}
		aggs, err := h.BuildSub(ord)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, HistogramBucket{
			BucketKey: key,
			Count:     count,
			Aggs:      aggs,
		})
	}

	return &InternalHistogram{
		AggName:     h.Name(),
		Interval:    h.interval,
		MinDocs:     h.minDocCount,
		BucketSlice: buckets,
	}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (h *Histogram) BuildEmpty() aggregate.Internal {
	return &InternalHistogram{
		AggName:  h.Name(),
		Interval: h.interval,
		MinDocs:  h.minDocCount,
	}
}

// HistogramBucket is one interval of a histogram result.
type HistogramBucket struct {
	BucketKey float64             `json:"key"`
	Count     int64               `json:"doc_count"`
	Aggs      aggregate.Internals `json:"aggregations,omitempty"`
}

// Key implements aggregate.Bucket.
func (b HistogramBucket) Key() any { return b.BucketKey }

// DocCount implements aggregate.Bucket.
func (b HistogramBucket) DocCount() int64 { return b.Count }

// Aggregations implements aggregate.Bucket.
func (b HistogramBucket) Aggregations() aggregate.Internals { return b.Aggs }

// WithAggregations implements aggregate.Bucket.
func (b HistogramBucket) WithAggregations(aggs aggregate.Internals) aggregate.Bucket {
	b.Aggs = aggs
	return b
}

// InternalHistogram is the immutable histogram result with buckets in
// ascending key order.
type InternalHistogram struct {
	AggName     string            `json:"name"`
	Interval    float64           `json:"interval"`
	MinDocs     int64             `json:"min_doc_count"`
	BucketSlice []HistogramBucket `json:"buckets"`
}

// Name implements aggregate.Internal.
func (h *InternalHistogram) Name() string { return h.AggName }

// Type implements aggregate.Internal.
func (h *InternalHistogram) Type() string { return "histogram" }

// Metric implements aggregate.Internal.
func (h *InternalHistogram) Metric(string) (float64, bool) { return 0, false }

// Buckets implements aggregate.MultiBucket.
func (h *InternalHistogram) Buckets() []aggregate.Bucket {
	out := make([]aggregate.Bucket, len(h.BucketSlice))
	for i, b := range h.BucketSlice {
		out[i] = b
	}
	return out
}

// WithBuckets implements aggregate.MultiBucket.
func (h *InternalHistogram) WithBuckets(buckets []aggregate.Bucket) aggregate.MultiBucket {
	out := *h
	out.BucketSlice = make([]HistogramBucket, len(buckets))
	for i, b := range buckets {
		hb, ok := b.(HistogramBucket)
		if !ok {
			hb = HistogramBucket{BucketKey: b.Key().(float64), Count: b.DocCount(), Aggs: b.Aggregations()}
		}
		out.BucketSlice[i] = hb
	}
	return &out
}

// MinDocCount implements aggregate.MultiBucket.
func (h *InternalHistogram) MinDocCount() int64 { return h.MinDocs }

// Reduce implements aggregate.Internal. Buckets merge by key, doc
// counts add, and sub-aggregations reduce pairwise; empty intervals are
// re-materialized over the combined key range when MinDocCount is zero.
func (h *InternalHistogram) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	byKey := make(map[float64][]HistogramBucket)
	add := func(hist *InternalHistogram) {
		for _, b := range hist.BucketSlice {
			byKey[b.BucketKey] = append(byKey[b.BucketKey], b)
		}
	}
	add(h)
	for _, o := range others {
		peer, ok := o.(*InternalHistogram)
		if !ok {
			return nil, aggregate.NewExecError(h.AggName, "cannot reduce histogram with %s", o.Type())
		}
		add(peer)
	}

	keys := make([]float64, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	var buckets []HistogramBucket
	for i, key := range keys {
		if h.MinDocs == 0 && i > 0 {
			for k := keys[i-1] + h.Interval; k < key-h.Interval/2; k += h.Interval {
				buckets = append(buckets, HistogramBucket{BucketKey: k})
			}
		}
		group := byKey[key]
		var count int64
		subGroups := make([]aggregate.Internals, 0, len(group))
		for _, b := range group {
			count += b.Count
			subGroups = append(subGroups, b.Aggs)
		}
		if count < h.MinDocs {
			continue
		}
		aggs, err := aggregate.ReduceSub(subGroups)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, HistogramBucket{BucketKey: key, Count: count, Aggs: aggs})
	}

	return &InternalHistogram{
		AggName:     h.AggName,
		Interval:    h.Interval,
		MinDocs:     h.MinDocs,
		BucketSlice: buckets,
	}, nil
}
