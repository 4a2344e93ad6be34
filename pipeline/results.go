package pipeline

import (
	"math"

	"github.com/hupe1980/aggo/aggregate"
)

// InternalSimpleValue is a single derived value produced by a pipeline
// step, either attached to a bucket or to the top-level result set.
type InternalSimpleValue struct {
	AggName string          `json:"name"`
	Value   aggregate.Float `json:"value"`
	Format  string          `json:"format,omitempty"`
}

// Name implements aggregate.Internal.
func (s *InternalSimpleValue) Name() string { return s.AggName }

// Type implements aggregate.Internal.
func (s *InternalSimpleValue) Type() string { return "simple_value" }

// Metric implements aggregate.Internal.
func (s *InternalSimpleValue) Metric(name string) (float64, bool) {
	if name == "" || name == "value" {
		return float64(s.Value), true
	}
	return 0, false
}

// Reduce implements aggregate.Internal. Pipeline values are computed
// after cross-partition reduction, so peers are already identical.
func (s *InternalSimpleValue) Reduce([]aggregate.Internal) (aggregate.Internal, error) {
	return s, nil
}

// InternalDerivative is the synthetic sub-aggregation a derivative step
// attaches to each qualifying bucket. NormalizedValue is set only when
// the step was configured with an x-axis unit.
type InternalDerivative struct {
	AggName         string          `json:"name"`
	Value           aggregate.Float `json:"value"`
	NormalizedValue *float64        `json:"normalized_value,omitempty"`
	Format          string          `json:"format,omitempty"`
}

// Name implements aggregate.Internal.
func (d *InternalDerivative) Name() string { return d.AggName }

// Type implements aggregate.Internal.
func (d *InternalDerivative) Type() string { return "derivative" }

// Metric implements aggregate.Internal.
func (d *InternalDerivative) Metric(name string) (float64, bool) {
	switch name {
	case "", "value":
		return float64(d.Value), true
	case "normalized_value":
		if d.NormalizedValue == nil {
			return 0, false
		}
		return *d.NormalizedValue, true
	}
	return 0, false
}

// Reduce implements aggregate.Internal.
func (d *InternalDerivative) Reduce([]aggregate.Internal) (aggregate.Internal, error) {
	return d, nil
}

// InternalStatsBucket is the multi-value scalar result of a stats_bucket
// step.
type InternalStatsBucket struct {
	AggName string          `json:"name"`
	Count   int64           `json:"count"`
	Sum     float64         `json:"sum"`
	Min     aggregate.Float `json:"min"`
	Max     aggregate.Float `json:"max"`
	Format  string          `json:"format,omitempty"`
}

// Name implements aggregate.Internal.
func (s *InternalStatsBucket) Name() string { return s.AggName }

// Type implements aggregate.Internal.
func (s *InternalStatsBucket) Type() string { return "stats_bucket" }

// Avg returns the mean of the folded values, NaN when none survived.
func (s *InternalStatsBucket) Avg() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}

// Metric implements aggregate.Internal.
func (s *InternalStatsBucket) Metric(name string) (float64, bool) {
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
	}
	return 0, false
}

// Reduce implements aggregate.Internal.
func (s *InternalStatsBucket) Reduce([]aggregate.Internal) (aggregate.Internal, error) {
	return s, nil
}
