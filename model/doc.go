// Package model defines core types used throughout Aggo.
//
// # Identity Types
//
//   - SegmentID: Unique identifier for an index segment (uint64)
//   - DocID: Segment-local document identifier (uint32)
//   - BucketOrd: Dense bucket ordinal issued by an owning aggregator (int64)
//   - Ordinal: Join-key ordinal issued by the join-key dictionary (int64)
//
// # Value Types
//
//   - GeoPoint: A latitude/longitude pair accumulated by geo metrics
//
// Bucket ordinals are local to one aggregator instance and are never
// globally unique. Join-key ordinals are stable only for the duration of
// one collection pass.
package model
