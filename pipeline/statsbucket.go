package pipeline

import (
	"math"

	"github.com/hupe1980/aggo/aggregate"
)

// StatsBucketBuilder configures a stats_bucket step.
type StatsBucketBuilder struct {
	Name         string    `json:"name"`
	BucketsPaths []string  `json:"buckets_path"`
	GapPolicy    GapPolicy `json:"gap_policy"`
	Format       string    `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b StatsBucketBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	return requireOnePath(b.Name, b.BucketsPaths)
}

// Build constructs the step.
func (b StatsBucketBuilder) Build() (*StatsBucket, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	path, err := parseBucketsPath(b.Name, b.BucketsPaths[0])
	if err != nil {
		return nil, err
	}
	return &StatsBucket{name: b.Name, path: path, gapPolicy: b.GapPolicy, format: b.Format}, nil
}

// StatsBucket folds count, sum, min and max of one metric across every
// bucket of a sibling multi-bucket aggregation.
type StatsBucket struct {
	name      string
	path      bucketsPath
	gapPolicy GapPolicy
	format    string
}

// Name implements Step.
func (s *StatsBucket) Name() string { return s.name }

// Touches implements Step.
func (s *StatsBucket) Touches() []string { return []string{s.path.host, s.name} }

// Validate implements Step.
func (s *StatsBucket) Validate(aggs aggregate.Internals) error {
	_, err := s.path.resolveHost(s.name, aggs)
	return err
}

// Apply implements Step.
func (s *StatsBucket) Apply(aggs aggregate.Internals) (aggregate.Internal, error) {
	host, err := s.path.resolveHost(s.name, aggs)
	if err != nil {
		return nil, err
	}

	out := &InternalStatsBucket{
		AggName: s.name,
		Min:     aggregate.Float(math.Inf(1)),
		Max:     aggregate.Float(math.Inf(-1)),
		Format:  s.format,
	}
	for _, b := range host.Buckets() {
		v, ok := s.path.resolveValue(b, s.gapPolicy)
		if !ok {
			continue
		}
		out.Count++
		out.Sum += v
		out.Min = aggregate.Float(math.Min(float64(out.Min), v))
		out.Max = aggregate.Float(math.Max(float64(out.Max), v))
	}
	return out, nil
}
