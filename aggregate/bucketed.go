package aggregate

import (
	"context"
	"errors"

	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// Bucketed is the base for aggregators that own buckets: it tracks
// per-bucket document counts and dispatches into sub-aggregators.
type Bucketed struct {
	Base

	arrays    *bigarray.BigArrays
	docCounts *bigarray.Int64Array
	subs      []Aggregator
}

// NewBucketed creates the bucketed base with one initial bucket slot.
func NewBucketed(name string, needsScores bool, arrays *bigarray.BigArrays, subs []Aggregator) (Bucketed, error) {
	docCounts, err := arrays.NewInt64(1)
	if err != nil {
		return Bucketed{}, err
	}
	return Bucketed{
		Base:      NewBase(name, needsScores),
		arrays:    arrays,
		docCounts: docCounts,
		subs:      subs,
	}, nil
}

// Arrays returns the allocator shared by this aggregator tree.
func (b *Bucketed) Arrays() *bigarray.BigArrays { return b.arrays }

// SubAggregators returns the sub-aggregator tree.
func (b *Bucketed) SubAggregators() []Aggregator { return b.subs }

// SubLeaf obtains the combined sub-collector for one segment.
func (b *Bucketed) SubLeaf(r segment.Reader) (LeafCollector, error) {
	return LeafAll(r, b.subs)
}

// CollectBucket counts doc into the bucket and forwards it to sub.
func (b *Bucketed) CollectBucket(sub LeafCollector, doc uint32, ord model.BucketOrd) error {
	if _, err := b.docCounts.Grow(int64(ord) + 1); err != nil {
		return err
	}
	b.docCounts.Increment(int64(ord), 1)
	return sub.Collect(doc, ord)
}

// BucketDocCount returns the number of documents collected into ord.
func (b *Bucketed) BucketDocCount(ord model.BucketOrd) int64 {
	if int64(ord) >= b.docCounts.Size() {
		return 0
	}
	return b.docCounts.Get(int64(ord))
}

// PostCollectSub forwards post-collection to the sub-aggregators.
func (b *Bucketed) PostCollectSub(ctx context.Context, idx segment.Index) error {
	for _, sub := range b.subs {
		if err := sub.PostCollect(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// BuildSub materializes the sub-aggregation results for one bucket.
func (b *Bucketed) BuildSub(ord model.BucketOrd) (Internals, error) {
	out := make(Internals, 0, len(b.subs))
	for _, sub := range b.subs {
		agg, err := sub.Build(ord)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}

// BuildEmptySub fabricates empty sub-aggregation results.
func (b *Bucketed) BuildEmptySub() Internals {
	out := make(Internals, 0, len(b.subs))
	for _, sub := range b.subs {
		out = append(out, sub.BuildEmpty())
	}
	return out
}

// Close releases the doc-count array and closes the sub-aggregators.
func (b *Bucketed) Close() error {
	if err := b.MarkClosed(); err != nil {
		return err
	}
	b.docCounts.Release()

	var errs error
	for _, sub := range b.subs {
		errs = errors.Join(errs, sub.Close())
	}
	return errs
}
