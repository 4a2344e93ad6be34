package pipeline

import (
	"time"

	"github.com/hupe1980/aggo/aggregate"
)

// DerivativeBuilder configures a derivative step. A non-zero Unit turns
// on the normalized gradient: the value delta divided by the key delta
// expressed in units.
type DerivativeBuilder struct {
	Name         string        `json:"name"`
	BucketsPaths []string      `json:"buckets_path"`
	GapPolicy    GapPolicy     `json:"gap_policy"`
	Unit         time.Duration `json:"unit,omitempty"`
	Format       string        `json:"format,omitempty"`
}

// Validate checks the configuration.
func (b DerivativeBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if err := requireOnePath(b.Name, b.BucketsPaths); err != nil {
		return err
	}
	if b.Unit < 0 {
		return aggregate.NewConfigError(b.Name, "[unit] must not be negative")
	}
	return nil
}

// Build constructs the step.
func (b DerivativeBuilder) Build() (*Derivative, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	path, err := parseBucketsPath(b.Name, b.BucketsPaths[0])
	if err != nil {
		return nil, err
	}
	return &Derivative{
		name:       b.Name,
		path:       path,
		gapPolicy:  b.GapPolicy,
		unitMillis: b.Unit.Milliseconds(),
		format:     b.Format,
	}, nil
}

// Derivative rewrites a sibling multi-bucket aggregation so that every
// bucket with both a current and a previous valid value gains a
// synthetic sub-aggregation holding the difference. The first bucket of
// the series never does.
type Derivative struct {
	name       string
	path       bucketsPath
	gapPolicy  GapPolicy
	unitMillis int64
	format     string
}

// Name implements Step.
func (d *Derivative) Name() string { return d.name }

// Touches implements Step.
func (d *Derivative) Touches() []string { return []string{d.path.host} }

// Validate implements Step. The host must not prune buckets, otherwise
// neighboring buckets are not adjacent intervals and the gradient is
// meaningless.
func (d *Derivative) Validate(aggs aggregate.Internals) error {
	internal, ok := aggs.Get(d.path.host)
	if !ok {
		return aggregate.NewConfigError(d.name, "no aggregation named [%s]", d.path.host)
	}
	host, ok := internal.(aggregate.MultiBucket)
	if !ok {
		return aggregate.NewConfigError(d.name, "aggregation [%s] is not a multi-bucket aggregation", d.path.host)
	}
	if host.MinDocCount() != 0 {
		return aggregate.NewConfigError(d.name,
			"parent aggregation [%s] must have min_doc_count of 0", d.path.host)
	}
	return nil
}

// keyValue interprets a bucket key as a point on the x axis.
func (d *Derivative) keyValue(key any) (float64, error) {
	switch k := key.(type) {
	case float64:
		return k, nil
	case int64:
		return float64(k), nil
	case time.Time:
		return float64(k.UnixMilli()), nil
	default:
		return 0, aggregate.NewExecError(d.name, "unsupported bucket key of type %T", key)
	}
}

// Apply implements Step.
func (d *Derivative) Apply(aggs aggregate.Internals) (aggregate.Internal, error) {
	host, err := d.path.resolveHost(d.name, aggs)
	if err != nil {
		return nil, err
	}

	buckets := host.Buckets()
	out := make([]aggregate.Bucket, len(buckets))
	copy(out, buckets)

	var prevValue, prevKey float64
	havePrev := false
	for i, b := range buckets {
		v, ok := d.path.resolveValue(b, d.gapPolicy)
		if !ok {
			continue
		}
		key, err := d.keyValue(b.Key())
		if err != nil {
			return nil, err
		}
		if havePrev {
			deriv := &InternalDerivative{
				AggName: d.name,
				Value:   aggregate.Float(v - prevValue),
				Format:  d.format,
			}
			if d.unitMillis > 0 {
				normalized := (v - prevValue) / ((key - prevKey) / float64(d.unitMillis))
				deriv.NormalizedValue = &normalized
			}
			out[i] = b.WithAggregations(append(b.Aggregations(), deriv))
		}
		prevValue, prevKey = v, key
		havePrev = true
	}
	return host.WithBuckets(out), nil
}
