package bucket

import (
	"context"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// GlobalBuilder configures a global aggregation.
type GlobalBuilder struct {
	Name string `json:"name"`
}

// Validate checks the configuration.
func (b GlobalBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	return nil
}

// Build constructs the aggregator with the given sub-aggregators.
func (b GlobalBuilder) Build(arrays *bigarray.BigArrays, subs ...aggregate.Aggregator) (*Global, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	base, err := aggregate.NewBucketed(b.Name, false, arrays, subs)
	if err != nil {
		return nil, err
	}
	return &Global{Bucketed: base}, nil
}

// Global collects every document it sees into a single bucket at
// ordinal zero. It only makes sense at the root of an aggregator tree.
type Global struct {
	aggregate.Bucketed
}

// Leaf implements aggregate.Aggregator.
func (g *Global) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := g.RequireCollecting(); err != nil {
		return nil, err
	}
	sub, err := g.SubLeaf(r)
	if err != nil {
		return nil, err
	}
	return aggregate.LeafCollectorFunc(func(doc uint32, _ model.BucketOrd) error {
		return g.CollectBucket(sub, doc, 0)
	}), nil
}

// PostCollect implements aggregate.Aggregator.
func (g *Global) PostCollect(ctx context.Context, idx segment.Index) error {
	if err := g.StartPostCollect(); err != nil {
		return err
	}
	return g.PostCollectSub(ctx, idx)
}

// Build implements aggregate.Aggregator.
func (g *Global) Build(model.BucketOrd) (aggregate.Internal, error) {
	if err := g.StartBuild(); err != nil {
		return nil, err
	}
	aggs, err := g.BuildSub(0)
	if err != nil {
		return nil, err
	}
	return &InternalGlobal{
		AggName: g.Name(),
		Count:   g.BucketDocCount(0),
		Aggs:    aggs,
	}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (g *Global) BuildEmpty() aggregate.Internal {
	return &InternalGlobal{AggName: g.Name(), Aggs: g.BuildEmptySub()}
}

// InternalGlobal is the immutable global result: one bucket spanning
// every collected document.
type InternalGlobal struct {
	AggName string              `json:"name"`
	Count   int64               `json:"doc_count"`
	Aggs    aggregate.Internals `json:"aggregations,omitempty"`
}

// Name implements aggregate.Internal.
func (g *InternalGlobal) Name() string { return g.AggName }

// Type implements aggregate.Internal.
func (g *InternalGlobal) Type() string { return "global" }

// Metric implements aggregate.Internal.
func (g *InternalGlobal) Metric(name string) (float64, bool) {
	if name == "count" || name == "_count" {
		return float64(g.Count), true
	}
	return 0, false
}

// Aggregations returns the sub-aggregation results of the bucket.
func (g *InternalGlobal) Aggregations() aggregate.Internals { return g.Aggs }

// Reduce implements aggregate.Internal.
func (g *InternalGlobal) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	count := g.Count
	groups := []aggregate.Internals{g.Aggs}
	for _, o := range others {
		peer, ok := o.(*InternalGlobal)
		if !ok {
			return nil, aggregate.NewExecError(g.AggName, "cannot reduce global with %s", o.Type())
		}
		count += peer.Count
		groups = append(groups, peer.Aggs)
	}
	aggs, err := aggregate.ReduceSub(groups)
	if err != nil {
		return nil, err
	}
	return &InternalGlobal{AggName: g.AggName, Count: count, Aggs: aggs}, nil
}
