package pipeline

import (
	"github.com/hupe1980/aggo/aggregate"
)

// SerialDiffBuilder configures a serial_diff step. Lag is the number of
// buckets to look back; zero defaults to 1 at build time, negative
// values are rejected.
type SerialDiffBuilder struct {
	Name         string    `json:"name"`
	BucketsPaths []string  `json:"buckets_path"`
	GapPolicy    GapPolicy `json:"gap_policy"`
	Lag          int       `json:"lag,omitempty"`
	Format       string    `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b SerialDiffBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if err := requireOnePath(b.Name, b.BucketsPaths); err != nil {
		return err
	}
	if b.Lag < 0 {
		return aggregate.NewConfigError(b.Name, "[lag] must be a positive integer, got %d", b.Lag)
	}
	return nil
}

// Build constructs the step.
func (b SerialDiffBuilder) Build() (*SerialDiff, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	path, err := parseBucketsPath(b.Name, b.BucketsPaths[0])
	if err != nil {
		return nil, err
	}
	lag := b.Lag
	if lag == 0 {
		lag = 1
	}
	return &SerialDiff{name: b.Name, path: path, gapPolicy: b.GapPolicy, lag: lag, format: b.Format}, nil
}

// SerialDiff subtracts the metric value lag buckets earlier from the
// current one. Buckets with insufficient history emit nothing.
type SerialDiff struct {
	name      string
	path      bucketsPath
	gapPolicy GapPolicy
	lag       int
	format    string
}

// Name implements Step.
func (s *SerialDiff) Name() string { return s.name }

// Touches implements Step.
func (s *SerialDiff) Touches() []string { return []string{s.path.host} }

// Validate implements Step.
func (s *SerialDiff) Validate(aggs aggregate.Internals) error {
	_, err := s.path.resolveHost(s.name, aggs)
	return err
}

// Apply implements Step.
func (s *SerialDiff) Apply(aggs aggregate.Internals) (aggregate.Internal, error) {
	host, err := s.path.resolveHost(s.name, aggs)
	if err != nil {
		return nil, err
	}

	buckets := host.Buckets()
	out := make([]aggregate.Bucket, len(buckets))
	copy(out, buckets)

	// window holds the last lag surviving values, oldest first.
	window := make([]float64, 0, s.lag)
	for i, b := range buckets {
		v, ok := s.path.resolveValue(b, s.gapPolicy)
		if !ok {
			continue
		}
		if len(window) == s.lag {
			diff := &InternalSimpleValue{
				AggName: s.name,
				Value:   aggregate.Float(v - window[0]),
				Format:  s.format,
			}
			out[i] = b.WithAggregations(append(b.Aggregations(), diff))
			window = window[1:]
		}
		window = append(window, v)
	}
	return host.WithBuckets(out), nil
}
