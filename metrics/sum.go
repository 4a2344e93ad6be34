package metrics

import (
	"context"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// SumBuilder configures a sum aggregation.
type SumBuilder struct {
	Name   string `json:"name"`
	Field  string `json:"field"`
	Format string `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b SumBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if b.Field == "" {
		return aggregate.NewConfigError(b.Name, "[field] must not be empty")
	}
	return nil
}

// Build constructs the aggregator.
func (b SumBuilder) Build(arrays *bigarray.BigArrays) (*Sum, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	sums, err := arrays.NewFloat64(1)
	if err != nil {
		return nil, err
	}
	return &Sum{
		Base:   aggregate.NewBase(b.Name, false),
		field:  b.Field,
		format: b.Format,
		sums:   sums,
	}, nil
}

// Sum accumulates the per-bucket sum of a numeric field.
type Sum struct {
	aggregate.Base

	field  string
	format string
	sums   *bigarray.Float64Array
}

// Leaf implements aggregate.Aggregator.
func (s *Sum) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := s.RequireCollecting(); err != nil {
		return nil, err
	}
	values, ok := r.NumericValues(s.field)
	if !ok {
		return aggregate.NoOp, nil
	}

	return aggregate.LeafCollectorFunc(func(doc uint32, bucket model.BucketOrd) error {
		if _, err := s.sums.Grow(int64(bucket) + 1); err != nil {
			return err
		}

		n := values.SetDocument(doc)
		var sum float64
		for i := 0; i < n; i++ {
			sum += values.Value(i)
		}
		s.sums.Increment(int64(bucket), sum)
		return nil
	}), nil
}

// PostCollect implements aggregate.Aggregator.
func (s *Sum) PostCollect(context.Context, segment.Index) error {
	return s.StartPostCollect()
}

// Build implements aggregate.Aggregator.
func (s *Sum) Build(ord model.BucketOrd) (aggregate.Internal, error) {
	if err := s.StartBuild(); err != nil {
		return nil, err
	}
	var v float64
	if int64(ord) < s.sums.Size() {
		v = s.sums.Get(int64(ord))
	}
	return &InternalSum{AggName: s.Name(), Sum: v, Format: s.format}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (s *Sum) BuildEmpty() aggregate.Internal {
	return &InternalSum{AggName: s.Name(), Format: s.format}
}

// Close implements aggregate.Aggregator.
func (s *Sum) Close() error {
	if err := s.MarkClosed(); err != nil {
		return err
	}
	s.sums.Release()
	return nil
}

// InternalSum is the immutable sum result.
type InternalSum struct {
	AggName string  `json:"name"`
	Sum     float64 `json:"sum"`
	Format  string  `json:"format,omitempty"`
}

// Name implements aggregate.Internal.
func (s *InternalSum) Name() string { return s.AggName }

// Type implements aggregate.Internal.
func (s *InternalSum) Type() string { return "sum" }

// Metric implements aggregate.Internal.
func (s *InternalSum) Metric(name string) (float64, bool) {
	if name == "" || name == "value" {
		return s.Sum, true
	}
	return 0, false
}

// Reduce implements aggregate.Internal. Sums add.
func (s *InternalSum) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	total := s.Sum
	for _, o := range others {
		peer, ok := o.(*InternalSum)
		if !ok {
			return nil, aggregate.NewExecError(s.AggName, "cannot reduce sum with %s", o.Type())
		}
		total += peer.Sum
	}
	return &InternalSum{AggName: s.AggName, Sum: total, Format: s.Format}, nil
}
