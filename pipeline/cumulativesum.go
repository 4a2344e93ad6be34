package pipeline

import (
	"github.com/hupe1980/aggo/aggregate"
)

// CumulativeSumBuilder configures a cumulative_sum step.
type CumulativeSumBuilder struct {
	Name         string    `json:"name"`
	BucketsPaths []string  `json:"buckets_path"`
	GapPolicy    GapPolicy `json:"gap_policy"`
	Format       string    `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b CumulativeSumBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	return requireOnePath(b.Name, b.BucketsPaths)
}

// Build constructs the step.
func (b CumulativeSumBuilder) Build() (*CumulativeSum, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	path, err := parseBucketsPath(b.Name, b.BucketsPaths[0])
	if err != nil {
		return nil, err
	}
	return &CumulativeSum{name: b.Name, path: path, gapPolicy: b.GapPolicy, format: b.Format}, nil
}

// CumulativeSum injects the running total of one metric into every
// bucket of a sibling multi-bucket aggregation, from the first bucket
// onward.
type CumulativeSum struct {
	name      string
	path      bucketsPath
	gapPolicy GapPolicy
	format    string
}

// Name implements Step.
func (c *CumulativeSum) Name() string { return c.name }

// Touches implements Step.
func (c *CumulativeSum) Touches() []string { return []string{c.path.host} }

// Validate implements Step.
func (c *CumulativeSum) Validate(aggs aggregate.Internals) error {
	_, err := c.path.resolveHost(c.name, aggs)
	return err
}

// Apply implements Step.
func (c *CumulativeSum) Apply(aggs aggregate.Internals) (aggregate.Internal, error) {
	host, err := c.path.resolveHost(c.name, aggs)
	if err != nil {
		return nil, err
	}

	buckets := host.Buckets()
	out := make([]aggregate.Bucket, len(buckets))
	copy(out, buckets)

	var total float64
	for i, b := range buckets {
		v, ok := c.path.resolveValue(b, c.gapPolicy)
		if !ok {
			continue
		}
		total += v
		sum := &InternalSimpleValue{AggName: c.name, Value: aggregate.Float(total), Format: c.format}
		out[i] = b.WithAggregations(append(b.Aggregations(), sum))
	}
	return host.WithBuckets(out), nil
}
