package join

import (
	"context"
	"slices"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// ChildrenBuilder configures a children aggregation.
type ChildrenBuilder struct {
	Name      string `json:"name"`
	ChildType string `json:"type"`
}

// Validate checks the configuration.
func (b ChildrenBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if b.ChildType == "" {
		return aggregate.NewConfigError(b.Name, "[type] must not be empty")
	}
	return nil
}

// Build constructs the aggregator. The child type must resolve to a
// mapped document type with an active parent reference.
func (b ChildrenBuilder) Build(arrays *bigarray.BigArrays, mappings segment.Mappings, subs ...aggregate.Aggregator) (*Children, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	join, ok := mappings.ParentJoin(b.ChildType)
	if !ok {
		return nil, aggregate.NewConfigError(b.Name, "type [%s] has no active parent reference", b.ChildType)
	}

	base, err := aggregate.NewBucketed(b.Name, false, arrays, subs)
	if err != nil {
		return nil, err
	}
	parentOrds, err := arrays.NewInt64(1)
	if err != nil {
		return nil, err
	}
	parentOrds.Fill(0, parentOrds.Size(), int64(model.NoBucket))

	return &Children{
		Bucketed:    base,
		join:        join,
		parentQuery: mappings.TypeQuery(join.ParentType),
		childQuery:  mappings.TypeQuery(b.ChildType),
		parentOrds:  parentOrds,
		overflow:    make(map[model.Ordinal][]model.BucketOrd),
	}, nil
}

// Children aggregates child documents under the buckets of their
// parents. Collection records the bucket of every parent join key;
// post-collection replays the child documents of every segment against
// that mapping and dispatches them into the sub-aggregators.
type Children struct {
	aggregate.Bucketed

	join        segment.ParentJoin
	parentQuery segment.Query
	childQuery  segment.Query

	// parentOrds maps a join-key ordinal to its first bucket. Additional
	// buckets land in overflow, never duplicated between the two.
	parentOrds *bigarray.Int64Array
	overflow   map[model.Ordinal][]model.BucketOrd
	multiple   bool
}

// Leaf implements aggregate.Aggregator. It records parent documents
// only; child documents are picked up during post-collection.
func (c *Children) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := c.RequireCollecting(); err != nil {
		return nil, err
	}
	ords, ok := r.OrdinalValues(c.join.Field)
	if !ok {
		return aggregate.NoOp, nil
	}
	parents, err := c.parentQuery.Evaluate(r)
	if err != nil {
		return nil, err
	}

	return aggregate.LeafCollectorFunc(func(doc uint32, bucket model.BucketOrd) error {
		if !parents.Contains(doc) {
			return nil
		}
		ord := ords.Ord(doc)
		if ord == model.NoOrdinal {
			return nil
		}
		return c.recordParent(ord, bucket)
	}), nil
}

func (c *Children) recordParent(ord model.Ordinal, bucket model.BucketOrd) error {
	from := c.parentOrds.Size()
	grew, err := c.parentOrds.Grow(int64(ord) + 1)
	if err != nil {
		return err
	}
	if grew {
		c.parentOrds.Fill(from, c.parentOrds.Size(), int64(model.NoBucket))
	}

	primary := model.BucketOrd(c.parentOrds.Get(int64(ord)))
	switch {
	case primary == model.NoBucket:
		c.parentOrds.Set(int64(ord), int64(bucket))
	case primary != bucket && !slices.Contains(c.overflow[ord], bucket):
		c.overflow[ord] = append(c.overflow[ord], bucket)
		c.multiple = true
	}
	return nil
}

// PostCollect implements aggregate.Aggregator. It replays every live
// child document of every segment against the recorded parent buckets,
// then forwards post-collection to the sub-aggregators.
func (c *Children) PostCollect(ctx context.Context, idx segment.Index) error {
	if err := c.StartPostCollect(); err != nil {
		return err
	}

	for _, r := range idx.Segments() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.replaySegment(r); err != nil {
			return err
		}
	}
	return c.PostCollectSub(ctx, idx)
}

func (c *Children) replaySegment(r segment.Reader) error {
	ords, ok := r.OrdinalValues(c.join.Field)
	if !ok {
		return nil
	}
	children, err := c.childQuery.Evaluate(r)
	if err != nil {
		return err
	}
	sub, err := c.SubLeaf(r)
	if err != nil {
		return err
	}

	live := r.LiveDocs()
	var it segment.DocIterator = children.Iterator()
	for it.HasNext() {
		doc := it.Next()
		if live != nil && !live.Contains(doc) {
			continue
		}
		ord := ords.Ord(doc)
		if ord == model.NoOrdinal || int64(ord) >= c.parentOrds.Size() {
			continue
		}
		bucket := model.BucketOrd(c.parentOrds.Get(int64(ord)))
		if bucket == model.NoBucket {
			continue
		}
		if err := c.CollectBucket(sub, doc, bucket); err != nil {
			return err
		}
		if !c.multiple {
			continue
		}
		for _, extra := range c.overflow[ord] {
			if err := c.CollectBucket(sub, doc, extra); err != nil {
				return err
			}
		}
	}
	return nil
}

// Build implements aggregate.Aggregator.
func (c *Children) Build(ord model.BucketOrd) (aggregate.Internal, error) {
	if err := c.StartBuild(); err != nil {
		return nil, err
	}
	aggs, err := c.BuildSub(ord)
	if err != nil {
		return nil, err
	}
	return &InternalChildren{
		AggName: c.Name(),
		Count:   c.BucketDocCount(ord),
		Aggs:    aggs,
	}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (c *Children) BuildEmpty() aggregate.Internal {
	return &InternalChildren{AggName: c.Name(), Aggs: c.BuildEmptySub()}
}

// Close implements aggregate.Aggregator.
func (c *Children) Close() error {
	if err := c.Bucketed.Close(); err != nil {
		return err
	}
	c.parentOrds.Release()
	c.overflow = nil
	return nil
}

// InternalChildren is the immutable children result for one parent
// bucket.
type InternalChildren struct {
	AggName string              `json:"name"`
	Count   int64               `json:"doc_count"`
	Aggs    aggregate.Internals `json:"aggregations,omitempty"`
}

// Name implements aggregate.Internal.
func (c *InternalChildren) Name() string { return c.AggName }

// Type implements aggregate.Internal.
func (c *InternalChildren) Type() string { return "children" }

// Metric implements aggregate.Internal.
func (c *InternalChildren) Metric(name string) (float64, bool) {
	if name == "count" || name == "_count" {
		return float64(c.Count), true
	}
	return 0, false
}

// Aggregations returns the sub-aggregation results of the bucket.
func (c *InternalChildren) Aggregations() aggregate.Internals { return c.Aggs }

// Reduce implements aggregate.Internal.
func (c *InternalChildren) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	count := c.Count
	groups := []aggregate.Internals{c.Aggs}
	for _, o := range others {
		peer, ok := o.(*InternalChildren)
		if !ok {
			return nil, aggregate.NewExecError(c.AggName, "cannot reduce children with %s", o.Type())
		}
		count += peer.Count
		groups = append(groups, peer.Aggs)
	}
	aggs, err := aggregate.ReduceSub(groups)
	if err != nil {
		return nil, err
	}
	return &InternalChildren{AggName: c.AggName, Count: count, Aggs: aggs}, nil
}
