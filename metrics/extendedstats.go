package metrics

import (
	"context"
	"math"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// DefaultSigma is the number of standard deviations spanned by the
// std_upper and std_lower bounds when the builder does not set one.
const DefaultSigma = 2.0

// ExtendedStatsBuilder configures an extended_stats aggregation. A nil
// Sigma means DefaultSigma; an explicit zero is legal and collapses the
// bounds onto the mean.
type ExtendedStatsBuilder struct {
	Name   string   `json:"name"`
	Field  string   `json:"field"`
	Sigma  *float64 `json:"sigma,omitempty"`
	Format string   `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b ExtendedStatsBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if b.Field == "" {
		return aggregate.NewConfigError(b.Name, "[field] must not be empty")
	}
	if b.Sigma != nil && *b.Sigma < 0 {
		return aggregate.NewConfigError(b.Name, "[sigma] must be a non-negative number, got %v", *b.Sigma)
	}
	return nil
}

// Build constructs the aggregator.
func (b ExtendedStatsBuilder) Build(arrays *bigarray.BigArrays) (*ExtendedStats, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	sigma := DefaultSigma
	if b.Sigma != nil {
		sigma = *b.Sigma
	}

	es := &ExtendedStats{
		Base:   aggregate.NewBase(b.Name, false),
		field:  b.Field,
		format: b.Format,
		sigma:  sigma,
	}
	var err error
	if es.counts, err = arrays.NewInt64(1); err != nil {
		return nil, err
	}
	if es.sums, err = arrays.NewFloat64(1); err != nil {
		es.release()
		return nil, err
	}
	if es.mins, err = arrays.NewFloat64(1); err != nil {
		es.release()
		return nil, err
	}
	if es.maxes, err = arrays.NewFloat64(1); err != nil {
		es.release()
		return nil, err
	}
	if es.sumOfSqrs, err = arrays.NewFloat64(1); err != nil {
		es.release()
		return nil, err
	}
	es.mins.Fill(0, es.mins.Size(), math.Inf(1))
	es.maxes.Fill(0, es.maxes.Size(), math.Inf(-1))
	return es, nil
}

// ExtendedStats accumulates count, sum, min, max and sum of squares per
// bucket, and derives variance and standard deviation bounds at build
// time.
type ExtendedStats struct {
	aggregate.Base

	field  string
	format string
	sigma  float64

	counts    *bigarray.Int64Array
	sums      *bigarray.Float64Array
	mins      *bigarray.Float64Array
	maxes     *bigarray.Float64Array
	sumOfSqrs *bigarray.Float64Array
}

func (e *ExtendedStats) release() {
	for _, a := range []*bigarray.Float64Array{e.sums, e.mins, e.maxes, e.sumOfSqrs} {
		if a != nil {
			a.Release()
		}
	}
	if e.counts != nil {
		e.counts.Release()
	}
}

func (e *ExtendedStats) grow(bucket model.BucketOrd) error {
	if int64(bucket) < e.counts.Size() {
		return nil
	}
	from := e.counts.Size()
	if _, err := e.counts.Grow(int64(bucket) + 1); err != nil {
		return err
	}
	if _, err := e.sums.Grow(int64(bucket) + 1); err != nil {
		return err
	}
	if _, err := e.mins.Grow(int64(bucket) + 1); err != nil {
		return err
	}
	if _, err := e.maxes.Grow(int64(bucket) + 1); err != nil {
		return err
	}
	if _, err := e.sumOfSqrs.Grow(int64(bucket) + 1); err != nil {
		return err
	}
	e.mins.Fill(from, e.mins.Size(), math.Inf(1))
	e.maxes.Fill(from, e.maxes.Size(), math.Inf(-1))
	return nil
}

// Leaf implements aggregate.Aggregator.
func (e *ExtendedStats) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := e.RequireCollecting(); err != nil {
		return nil, err
	}
	values, ok := r.NumericValues(e.field)
	if !ok {
		return aggregate.NoOp, nil
	}

	return aggregate.LeafCollectorFunc(func(doc uint32, bucket model.BucketOrd) error {
		if err := e.grow(bucket); err != nil {
			return err
		}
		n := values.SetDocument(doc)
		if n == 0 {
			return nil
		}
		ord := int64(bucket)
		e.counts.Increment(ord, int64(n))
		var sum, sumSqr float64
		min := e.mins.Get(ord)
		max := e.maxes.Get(ord)
		for i := 0; i < n; i++ {
			v := values.Value(i)
			sum += v
			sumSqr += v * v
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
		e.sums.Increment(ord, sum)
		e.sumOfSqrs.Increment(ord, sumSqr)
		e.mins.Set(ord, min)
		e.maxes.Set(ord, max)
		return nil
	}), nil
}

// PostCollect implements aggregate.Aggregator.
func (e *ExtendedStats) PostCollect(context.Context, segment.Index) error {
	return e.StartPostCollect()
}

// Build implements aggregate.Aggregator.
func (e *ExtendedStats) Build(ord model.BucketOrd) (aggregate.Internal, error) {
	if err := e.StartBuild(); err != nil {
		return nil, err
	}
	if int64(ord) >= e.counts.Size() {
		return e.BuildEmpty(), nil
	}
	i := int64(ord)
	return &InternalExtendedStats{
		AggName:   e.Name(),
		Count:     e.counts.Get(i),
		Sum:       e.sums.Get(i),
		Min:       aggregate.Float(e.mins.Get(i)),
		Max:       aggregate.Float(e.maxes.Get(i)),
		SumOfSqrs: e.sumOfSqrs.Get(i),
		Sigma:     e.sigma,
		Format:    e.format,
	}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (e *ExtendedStats) BuildEmpty() aggregate.Internal {
	return &InternalExtendedStats{
		AggName: e.Name(),
		Min:     aggregate.Float(math.Inf(1)),
		Max:     aggregate.Float(math.Inf(-1)),
		Sigma:   e.sigma,
		Format:  e.format,
	}
}

// Close implements aggregate.Aggregator.
func (e *ExtendedStats) Close() error {
	if err := e.MarkClosed(); err != nil {
		return err
	}
	e.release()
	return nil
}

// InternalExtendedStats is the immutable extended_stats result. Derived
// metrics are computed on demand from the accumulated moments so that
// reduction stays a plain fold over the raw fields.
type InternalExtendedStats struct {
	AggName   string          `json:"name"`
	Count     int64           `json:"count"`
	Sum       float64         `json:"sum"`
	Min       aggregate.Float `json:"min"`
	Max       aggregate.Float `json:"max"`
	SumOfSqrs float64         `json:"sum_of_squares"`
	Sigma     float64         `json:"sigma"`
	Format    string          `json:"format,omitempty"`
}

// Name implements aggregate.Internal.
func (s *InternalExtendedStats) Name() string { return s.AggName }

// Type implements aggregate.Internal.
func (s *InternalExtendedStats) Type() string { return "extended_stats" }

// Avg returns the arithmetic mean, NaN for an empty bucket.
func (s *InternalExtendedStats) Avg() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}

// Variance returns the population variance, clamped to zero to absorb
// the negative values the sum-of-squares formulation can produce under
// cancellation.
func (s *InternalExtendedStats) Variance() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	n := float64(s.Count)
	v := (s.SumOfSqrs - (s.Sum*s.Sum)/n) / n
	return math.Max(v, 0)
}

// StdDeviation returns the population standard deviation.
func (s *InternalExtendedStats) StdDeviation() float64 {
	return math.Sqrt(s.Variance())
}

// StdDeviationBound returns mean + sigma * stddev when upper is true,
// mean - sigma * stddev otherwise.
func (s *InternalExtendedStats) StdDeviationBound(upper bool) float64 {
	if upper {
		return s.Avg() + s.Sigma*s.StdDeviation()
	}
	return s.Avg() - s.Sigma*s.StdDeviation()
}

// Metric implements aggregate.Internal.
func (s *InternalExtendedStats) Metric(name string) (float64, bool) {
	switch name {
	case "count":
		return float64(s.Count), true
	case "sum":
		return s.Sum, true
	case "min":
		return float64(s.Min), true
	case "max":
		return float64(s.Max), true
	case "avg":
		return s.Avg(), true
	case "sum_of_squares":
		return s.SumOfSqrs, true
	case "variance":
		return s.Variance(), true
	case "std_deviation":
		return s.StdDeviation(), true
	case "std_upper":
		return s.StdDeviationBound(true), true
	case "std_lower":
		return s.StdDeviationBound(false), true
	}
	return 0, false
}

// Reduce implements aggregate.Internal. Counts, sums and sums of
// squares add; min and max take the pointwise extreme. Sigma comes from
// the first partition.
func (s *InternalExtendedStats) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	out := &InternalExtendedStats{
		AggName:   s.AggName,
		Count:     s.Count,
		Sum:       s.Sum,
		Min:       s.Min,
		Max:       s.Max,
		SumOfSqrs: s.SumOfSqrs,
		Sigma:     s.Sigma,
		Format:    s.Format,
	}
	for _, o := range others {
		peer, ok := o.(*InternalExtendedStats)
		if !ok {
			return nil, aggregate.NewExecError(s.AggName, "cannot reduce extended_stats with %s", o.Type())
		}
		out.Count += peer.Count
		out.Sum += peer.Sum
		out.SumOfSqrs += peer.SumOfSqrs
		out.Min = aggregate.Float(math.Min(float64(out.Min), float64(peer.Min)))
		out.Max = aggregate.Float(math.Max(float64(out.Max), float64(peer.Max)))
	}
	return out, nil
}
