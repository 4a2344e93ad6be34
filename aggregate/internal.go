package aggregate

import (
	"fmt"
)

// Internal is one immutable per-bucket aggregation result.
type Internal interface {
	Name() string

	// Type is the stable type tag of the result ("sum", "histogram", ...)
	// used by the transport envelope.
	Type() string

	// Metric extracts a named metric value. Single-value results answer
	// the empty name; multi-value results answer their metric names
	// ("avg", "std_deviation", ...). The second result is false when the
	// metric does not exist.
	Metric(name string) (float64, bool)

	// Reduce merges this result with same-named results from other
	// partitions. Implementations are associative and commutative.
	Reduce(others []Internal) (Internal, error)
}

// Bucket is one bucket of a multi-bucket result.
type Bucket interface {
	// Key is the bucket's natural sort key, typically a float64 or a
	// time.Time.
	Key() any
	DocCount() int64
	Aggregations() Internals

	// WithAggregations returns a copy of the bucket with its aggregation
	// list replaced. Pipeline steps use it to attach derived results.
	WithAggregations(aggs Internals) Bucket
}

// MultiBucket is a result holding an ordered bucket series. Pipeline
// aggregations iterate the buckets in their existing order.
type MultiBucket interface {
	Internal
	Buckets() []Bucket

	// WithBuckets returns a copy of the aggregation with its bucket
	// series replaced.
	WithBuckets(buckets []Bucket) MultiBucket

	// MinDocCount returns the configured minimum per-bucket document
	// count. Derivative-style pipelines require 0 so no bucket of the
	// series was pruned.
	MinDocCount() int64
}

// Internals is an ordered set of sibling aggregation results.
type Internals []Internal

// Get returns the result with the given name.
func (in Internals) Get(name string) (Internal, bool) {
	for _, a := range in {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Replace swaps the result with the same name for agg.
func (in Internals) Replace(agg Internal) error {
	for i, a := range in {
		if a.Name() == agg.Name() {
			in[i] = agg
			return nil
		}
	}
	return fmt.Errorf("no aggregation named [%s]", agg.Name())
}

// Names returns the result names in order.
func (in Internals) Names() []string {
	names := make([]string, len(in))
	for i, a := range in {
		names[i] = a.Name()
	}
	return names
}
