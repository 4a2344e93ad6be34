package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/aggo/model"
	"github.com/hupe1980/aggo/segment"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Uniform returns a pseudo-random number in [minVal,maxVal).
func (r *RNG) Uniform(minVal, maxVal float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return minVal + r.rand.Float64()*(maxVal-minVal)
}

// Gaussian returns a value drawn from N(mean, stddev).
func (r *RNG) Gaussian(mean, stddev float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return mean + r.rand.NormFloat64()*stddev
}

// NumericDocs generates documents with a single-valued numeric field
// drawn uniformly from [minVal, maxVal).
func (r *RNG) NumericDocs(field string, num int, minVal, maxVal float64) []segment.MemDoc {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]segment.MemDoc, num)
	span := maxVal - minVal

	for i := range docs {
		docs[i] = segment.MemDoc{
			Numeric: map[string][]float64{
				field: {minVal + r.rand.Float64()*span},
			},
		}
	}

	return docs
}

// GeoDocs generates documents with a single-valued geo field. Points
// are drawn uniformly from the given bounding box.
func (r *RNG) GeoDocs(field string, num int, minLat, maxLat, minLon, maxLon float64) []segment.MemDoc {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]segment.MemDoc, num)

	for i := range docs {
		docs[i] = segment.MemDoc{
			Geo: map[string][]model.GeoPoint{
				field: {{
					Lat: minLat + r.rand.Float64()*(maxLat-minLat),
					Lon: minLon + r.rand.Float64()*(maxLon-minLon),
				}},
			},
		}
	}

	return docs
}

// Partition splits docs into n segments of roughly equal size. Useful
// for verifying that per-segment collection plus reduce matches a
// single-segment run.
func Partition(docs []segment.MemDoc, n int) []*segment.MemSegment {
	if n < 1 {
		n = 1
	}

	segs := make([]*segment.MemSegment, 0, n)
	chunk := (len(docs) + n - 1) / n

	for i := 0; i < len(docs); i += chunk {
		end := min(i+chunk, len(docs))
		segs = append(segs, segment.NewMemSegment(model.SegmentID(len(segs)+1), docs[i:end]))
	}

	return segs
}

// SumOf computes the exact sum of all live values of a numeric field.
func SumOf(docs []segment.MemDoc, field string) float64 {
	var sum float64
	for _, d := range docs {
		if d.Deleted {
			continue
		}
		for _, v := range d.Numeric[field] {
			sum += v
		}
	}
	return sum
}

// MaxOf computes the exact maximum of all live values of a numeric
// field. Returns -Inf when no document carries the field.
func MaxOf(docs []segment.MemDoc, field string) float64 {
	maxVal := math.Inf(-1)
	for _, d := range docs {
		if d.Deleted {
			continue
		}
		for _, v := range d.Numeric[field] {
			maxVal = math.Max(maxVal, v)
		}
	}
	return maxVal
}

// CentroidOf computes the exact arithmetic mean of all live points of
// a geo field. The second result is the number of points folded in.
func CentroidOf(docs []segment.MemDoc, field string) (model.GeoPoint, int64) {
	var (
		sumLat, sumLon float64
		count          int64
	)

	for _, d := range docs {
		if d.Deleted {
			continue
		}
		for _, p := range d.Geo[field] {
			sumLat += p.Lat
			sumLon += p.Lon
			count++
		}
	}

	if count == 0 {
		return model.UndefinedPoint(), 0
	}
	return model.GeoPoint{Lat: sumLat / float64(count), Lon: sumLon / float64(count)}, count
}
