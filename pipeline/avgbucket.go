package pipeline

import (
	"math"

	"github.com/hupe1980/aggo/aggregate"
)

// AvgBucketBuilder configures an avg_bucket step.
type AvgBucketBuilder struct {
	Name         string    `json:"name"`
	BucketsPaths []string  `json:"buckets_path"`
	GapPolicy    GapPolicy `json:"gap_policy"`
	Format       string    `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b AvgBucketBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	return requireOnePath(b.Name, b.BucketsPaths)
}

// Build constructs the step.
func (b AvgBucketBuilder) Build() (*AvgBucket, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	path, err := parseBucketsPath(b.Name, b.BucketsPaths[0])
	if err != nil {
		return nil, err
	}
	return &AvgBucket{name: b.Name, path: path, gapPolicy: b.GapPolicy, format: b.Format}, nil
}

// AvgBucket averages one metric across every bucket of a sibling
// multi-bucket aggregation and attaches the scalar to the top-level
// result set.
type AvgBucket struct {
	name      string
	path      bucketsPath
	gapPolicy GapPolicy
	format    string
}

// Name implements Step.
func (a *AvgBucket) Name() string { return a.name }

// Touches implements Step.
func (a *AvgBucket) Touches() []string { return []string{a.path.host, a.name} }

// Validate implements Step.
func (a *AvgBucket) Validate(aggs aggregate.Internals) error {
	_, err := a.path.resolveHost(a.name, aggs)
	return err
}

// Apply implements Step.
func (a *AvgBucket) Apply(aggs aggregate.Internals) (aggregate.Internal, error) {
	host, err := a.path.resolveHost(a.name, aggs)
	if err != nil {
		return nil, err
	}

	var count int64
	var sum float64
	for _, b := range host.Buckets() {
		v, ok := a.path.resolveValue(b, a.gapPolicy)
		if !ok {
			continue
		}
		count++
		sum += v
	}

	avg := math.NaN()
	if count > 0 {
		avg = sum / float64(count)
	}
	return &InternalSimpleValue{AggName: a.name, Value: aggregate.Float(avg), Format: a.format}, nil
}
