package aggregate

import (
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// LeafCollector is the per-segment callback invoked once per
// (matching document, owning bucket ordinal) pair.
type LeafCollector interface {
	Collect(doc uint32, bucket model.BucketOrd) error
}

// LeafCollectorFunc adapts a function to the LeafCollector interface.
type LeafCollectorFunc func(doc uint32, bucket model.BucketOrd) error

// Collect implements LeafCollector.
func (f LeafCollectorFunc) Collect(doc uint32, bucket model.BucketOrd) error {
	return f(doc, bucket)
}

type noOpCollector struct{}

func (noOpCollector) Collect(uint32, model.BucketOrd) error { return nil }

// NoOp is the ignore collector returned by aggregators whose source field
// is unmapped in a segment.
var NoOp LeafCollector = noOpCollector{}

// IsNoOp reports whether c is the ignore collector.
func IsNoOp(c LeafCollector) bool {
	_, ok := c.(noOpCollector)
	return ok
}

type multiCollector struct {
	collectors []LeafCollector
}

func (m *multiCollector) Collect(doc uint32, bucket model.BucketOrd) error {
	for _, c := range m.collectors {
		if err := c.Collect(doc, bucket); err != nil {
			return err
		}
	}
	return nil
}

// Multi combines leaf collectors, dropping ignore collectors up front.
func Multi(collectors ...LeafCollector) LeafCollector {
	kept := collectors[:0:len(collectors)]
	for _, c := range collectors {
		if !IsNoOp(c) {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return NoOp
	case 1:
		return kept[0]
	default:
		return &multiCollector{collectors: kept}
	}
}

// LeafAll obtains one combined leaf collector over several aggregators.
func LeafAll(r segment.Reader, aggs []Aggregator) (LeafCollector, error) {
	collectors := make([]LeafCollector, 0, len(aggs))
	for _, a := range aggs {
		c, err := a.Leaf(r)
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, c)
	}
	return Multi(collectors...), nil
}
