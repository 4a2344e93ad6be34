package metrics

import (
	"context"
	"math"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// MaxBuilder configures a max aggregation.
type MaxBuilder struct {
	Name   string `json:"name"`
	Field  string `json:"field"`
	Format string `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b MaxBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if b.Field == "" {
		return aggregate.NewConfigError(b.Name, "[field] must not be empty")
	}
	return nil
}

// Build constructs the aggregator.
func (b MaxBuilder) Build(arrays *bigarray.BigArrays) (*Max, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	maxes, err := arrays.NewFloat64(1)
	if err != nil {
		return nil, err
	}
	maxes.Fill(0, maxes.Size(), math.Inf(-1))
	return &Max{
		Base:   aggregate.NewBase(b.Name, false),
		field:  b.Field,
		format: b.Format,
		maxes:  maxes,
	}, nil
}

// Max accumulates the per-bucket maximum of a numeric field. Multi-valued
// fields are pre-reduced to one value per document by selecting the
// maximum across values before folding into the bucket.
type Max struct {
	aggregate.Base

	field  string
	format string
	maxes  *bigarray.Float64Array
}

// Leaf implements aggregate.Aggregator.
func (m *Max) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := m.RequireCollecting(); err != nil {
		return nil, err
	}
	values, ok := r.NumericValues(m.field)
	if !ok {
		return aggregate.NoOp, nil
	}

	return aggregate.LeafCollectorFunc(func(doc uint32, bucket model.BucketOrd) error {
		from := m.maxes.Size()
		grew, err := m.maxes.Grow(int64(bucket) + 1)
		if err != nil {
			return err
		}
		if grew {
			m.maxes.Fill(from, m.maxes.Size(), math.Inf(-1))
		}

		n := values.SetDocument(doc)
		if n == 0 {
			return nil
		}
		docMax := math.Inf(-1)
		for i := 0; i < n; i++ {
			docMax = math.Max(docMax, values.Value(i))
		}
		m.maxes.Set(int64(bucket), math.Max(m.maxes.Get(int64(bucket)), docMax))
		return nil
	}), nil
}

// PostCollect implements aggregate.Aggregator.
func (m *Max) PostCollect(context.Context, segment.Index) error {
	return m.StartPostCollect()
}

// Build implements aggregate.Aggregator.
func (m *Max) Build(ord model.BucketOrd) (aggregate.Internal, error) {
	if err := m.StartBuild(); err != nil {
		return nil, err
	}
	v := math.Inf(-1)
	if int64(ord) < m.maxes.Size() {
		v = m.maxes.Get(int64(ord))
	}
	return &InternalMax{AggName: m.Name(), Max: aggregate.Float(v), Format: m.format}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (m *Max) BuildEmpty() aggregate.Internal {
	return &InternalMax{AggName: m.Name(), Max: aggregate.Float(math.Inf(-1)), Format: m.format}
}

// Close implements aggregate.Aggregator.
func (m *Max) Close() error {
	if err := m.MarkClosed(); err != nil {
		return err
	}
	m.maxes.Release()
	return nil
}

// InternalMax is the immutable max result. An empty bucket reports -Inf.
type InternalMax struct {
	AggName string          `json:"name"`
	Max     aggregate.Float `json:"max"`
	Format  string          `json:"format,omitempty"`
}

// Name implements aggregate.Internal.
func (m *InternalMax) Name() string { return m.AggName }

// Type implements aggregate.Internal.
func (m *InternalMax) Type() string { return "max" }

// Metric implements aggregate.Internal.
func (m *InternalMax) Metric(name string) (float64, bool) {
	if name == "" || name == "value" {
		return float64(m.Max), true
	}
	return 0, false
}

// Reduce implements aggregate.Internal. Maxima take the pointwise max.
func (m *InternalMax) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	v := float64(m.Max)
	for _, o := range others {
		peer, ok := o.(*InternalMax)
		if !ok {
			return nil, aggregate.NewExecError(m.AggName, "cannot reduce max with %s", o.Type())
		}
		v = math.Max(v, float64(peer.Max))
	}
	return &InternalMax{AggName: m.AggName, Max: aggregate.Float(v), Format: m.Format}, nil
}
