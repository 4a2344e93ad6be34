package pipeline

import (
	"math"
	"strings"

	"github.com/hupe1980/aggo/aggregate"
)

// CountPath selects a bucket's document count instead of a metric.
const CountPath = "_count"

// bucketsPath is one parsed buckets_path entry: the sibling multi-bucket
// aggregation to iterate and the metric to extract from each bucket.
// "histo>price.avg" reads metric "avg" from sub-aggregation "price" of
// every bucket of "histo"; "histo>_count" reads the document count.
type bucketsPath struct {
	host   string
	metric string
}

func parseBucketsPath(agg, path string) (bucketsPath, error) {
	host, metric, found := strings.Cut(path, ">")
	if !found || host == "" || metric == "" || strings.Contains(metric, ">") {
		return bucketsPath{}, aggregate.NewConfigError(agg,
			"buckets_path [%s] must be of the form <multi-bucket>-><metric>", path)
	}
	return bucketsPath{host: host, metric: metric}, nil
}

// requireOnePath enforces the single buckets_path contract shared by
// every pipeline variant here.
func requireOnePath(agg string, paths []string) error {
	if len(paths) != 1 {
		return aggregate.NewConfigError(agg,
			"[buckets_path] must contain a single entry, expected [1] but found [%d]", len(paths))
	}
	return nil
}

// resolveHost finds the multi-bucket aggregation a path points at.
func (p bucketsPath) resolveHost(agg string, aggs aggregate.Internals) (aggregate.MultiBucket, error) {
	internal, ok := aggs.Get(p.host)
	if !ok {
		return nil, aggregate.NewExecError(agg, "no aggregation named [%s]", p.host)
	}
	multi, ok := internal.(aggregate.MultiBucket)
	if !ok {
		return nil, aggregate.NewExecError(agg, "aggregation [%s] is not a multi-bucket aggregation", p.host)
	}
	return multi, nil
}

// resolveValue extracts the path's metric from one bucket. The second
// result is false when the value is absent or non-finite under the Skip
// policy.
func (p bucketsPath) resolveValue(b aggregate.Bucket, policy GapPolicy) (float64, bool) {
	v, ok := p.rawValue(b)
	if ok && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v, true
	}
	if policy == InsertZero {
		return 0, true
	}
	return math.NaN(), false
}

func (p bucketsPath) rawValue(b aggregate.Bucket) (float64, bool) {
	if p.metric == CountPath {
		return float64(b.DocCount()), true
	}
	name, metric, _ := strings.Cut(p.metric, ".")
	sub, ok := b.Aggregations().Get(name)
	if !ok {
		return 0, false
	}
	return sub.Metric(metric)
}
