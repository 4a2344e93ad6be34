package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// SegmentID is the unique identifier for a segment within a shard.
type SegmentID uint64

// DocID is a dense, segment-local identifier for a document.
// It is transient and may change during segment merges.
type DocID uint32

// BucketOrd is a dense, non-negative bucket ordinal issued by an owning
// aggregator. It identifies one bucket within one aggregator instance and
// is not globally unique.
type BucketOrd int64

// NoBucket is the sentinel for an unassigned bucket slot.
const NoBucket BucketOrd = -1

// Ordinal is a dense join-key ordinal supplied by the join-key dictionary.
// A negative ordinal means the document carries no join key.
type Ordinal int64

// NoOrdinal is the sentinel for a missing join-key ordinal.
const NoOrdinal Ordinal = -1

// GeoPoint is a geographic coordinate.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Valid reports whether both ordinates are finite.
func (p GeoPoint) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// String returns a string representation of the point.
func (p GeoPoint) String() string {
	return fmt.Sprintf("(%f, %f)", p.Lat, p.Lon)
}

type geoPointJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MarshalJSON implements json.Marshaler. An undefined point encodes as
// null since JSON has no representation for NaN.
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(geoPointJSON{Lat: p.Lat, Lon: p.Lon})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = UndefinedPoint()
		return nil
	}
	var v geoPointJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = GeoPoint{Lat: v.Lat, Lon: v.Lon}
	return nil
}

// UndefinedPoint is the result of a centroid over zero observed points.
// It is never a zero coordinate.
func UndefinedPoint() GeoPoint {
	return GeoPoint{Lat: math.NaN(), Lon: math.NaN()}
}
