package metrics

import (
	"context"
	"math"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/bigarray"
	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// GeoCentroidBuilder configures a geo_centroid aggregation.
type GeoCentroidBuilder struct {
	Name  string `json:"name"`
	Field string `json:"field"`
}

// Validate checks the configuration.
func (b GeoCentroidBuilder) Validate() error {
	if b.Name == "" {
		return aggregate.NewConfigError("", "[name] must not be empty")
	}
	if b.Field == "" {
		return aggregate.NewConfigError(b.Name, "[field] must not be empty")
	}
	return nil
}

// Build constructs the aggregator.
func (b GeoCentroidBuilder) Build(arrays *bigarray.BigArrays) (*GeoCentroid, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	counts, err := arrays.NewInt64(1)
	if err != nil {
		return nil, err
	}
	centroids, err := arrays.NewInt64(1)
	if err != nil {
		counts.Release()
		return nil, err
	}
	return &GeoCentroid{
		Base:      aggregate.NewBase(b.Name, false),
		field:     b.Field,
		counts:    counts,
		centroids: centroids,
	}, nil
}

// packPoint stores a point in a single slot, longitude in the high 32
// bits and latitude in the low 32 bits, each as a float32.
func packPoint(p model.GeoPoint) int64 {
	lon := uint64(math.Float32bits(float32(p.Lon)))
	lat := uint64(math.Float32bits(float32(p.Lat)))
	return int64(lon<<32 | lat)
}

func unpackPoint(v int64) model.GeoPoint {
	return model.GeoPoint{
		Lon: float64(math.Float32frombits(uint32(uint64(v) >> 32))),
		Lat: float64(math.Float32frombits(uint32(uint64(v)))),
	}
}

// GeoCentroid accumulates an incremental mean of geo point values per
// bucket. Each centroid occupies one packed slot, so memory stays one
// word per bucket at the cost of float32 precision.
type GeoCentroid struct {
	aggregate.Base

	field     string
	counts    *bigarray.Int64Array
	centroids *bigarray.Int64Array
}

// Leaf implements aggregate.Aggregator.
func (g *GeoCentroid) Leaf(r segment.Reader) (aggregate.LeafCollector, error) {
	if err := g.RequireCollecting(); err != nil {
		return nil, err
	}
	values, ok := r.GeoPointValues(g.field)
	if !ok {
		return aggregate.NoOp, nil
	}

	return aggregate.LeafCollectorFunc(func(doc uint32, bucket model.BucketOrd) error {
		if _, err := g.counts.Grow(int64(bucket) + 1); err != nil {
			return err
		}
		if _, err := g.centroids.Grow(int64(bucket) + 1); err != nil {
			return err
		}
		n := values.SetDocument(doc)
		if n == 0 {
			return nil
		}
		ord := int64(bucket)
		count := g.counts.Get(ord)
		centroid := unpackPoint(g.centroids.Get(ord))
		if count == 0 {
			centroid = model.GeoPoint{}
		}
		for i := 0; i < n; i++ {
			p := values.Value(i)
			count++
			centroid.Lat += (p.Lat - centroid.Lat) / float64(count)
			centroid.Lon += (p.Lon - centroid.Lon) / float64(count)
		}
		g.counts.Set(ord, count)
		g.centroids.Set(ord, packPoint(centroid))
		return nil
	}), nil
}

// PostCollect implements aggregate.Aggregator.
func (g *GeoCentroid) PostCollect(context.Context, segment.Index) error {
	return g.StartPostCollect()
}

// Build implements aggregate.Aggregator.
func (g *GeoCentroid) Build(ord model.BucketOrd) (aggregate.Internal, error) {
	if err := g.StartBuild(); err != nil {
		return nil, err
	}
	if int64(ord) >= g.counts.Size() || g.counts.Get(int64(ord)) == 0 {
		return g.BuildEmpty(), nil
	}
	return &InternalGeoCentroid{
		AggName:  g.Name(),
		Count:    g.counts.Get(int64(ord)),
		Centroid: unpackPoint(g.centroids.Get(int64(ord))),
	}, nil
}

// BuildEmpty implements aggregate.Aggregator.
func (g *GeoCentroid) BuildEmpty() aggregate.Internal {
	return &InternalGeoCentroid{AggName: g.Name(), Centroid: model.UndefinedPoint()}
}

// Close implements aggregate.Aggregator.
func (g *GeoCentroid) Close() error {
	if err := g.MarkClosed(); err != nil {
		return err
	}
	g.counts.Release()
	g.centroids.Release()
	return nil
}

// InternalGeoCentroid is the immutable geo_centroid result. A zero
// count leaves the centroid undefined.
type InternalGeoCentroid struct {
	AggName  string         `json:"name"`
	Count    int64          `json:"count"`
	Centroid model.GeoPoint `json:"location"`
}

// Name implements aggregate.Internal.
func (g *InternalGeoCentroid) Name() string { return g.AggName }

// Type implements aggregate.Internal.
func (g *InternalGeoCentroid) Type() string { return "geo_centroid" }

// Metric implements aggregate.Internal.
func (g *InternalGeoCentroid) Metric(name string) (float64, bool) {
	switch name {
	case "count":
		return float64(g.Count), true
	case "lat":
		return g.Centroid.Lat, true
	case "lon":
		return g.Centroid.Lon, true
	}
	return 0, false
}

// Reduce implements aggregate.Internal. Centroids combine as a
// count-weighted mean; empty partitions contribute nothing.
func (g *InternalGeoCentroid) Reduce(others []aggregate.Internal) (aggregate.Internal, error) {
	count := g.Count
	var lat, lon float64
	if count > 0 {
		lat, lon = g.Centroid.Lat, g.Centroid.Lon
	}
	for _, o := range others {
		peer, ok := o.(*InternalGeoCentroid)
		if !ok {
			return nil, aggregate.NewExecError(g.AggName, "cannot reduce geo_centroid with %s", o.Type())
		}
		if peer.Count == 0 {
			continue
		}
		total := count + peer.Count
		w := float64(peer.Count) / float64(total)
		lat += (peer.Centroid.Lat - lat) * w
		lon += (peer.Centroid.Lon - lon) * w
		count = total
	}
	out := &InternalGeoCentroid{AggName: g.AggName, Count: count}
	if count == 0 {
		out.Centroid = model.UndefinedPoint()
	} else {
		out.Centroid = model.GeoPoint{Lat: lat, Lon: lon}
	}
	return out, nil
}
