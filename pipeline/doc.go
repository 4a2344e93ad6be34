// Package pipeline computes aggregations over the buckets of already
// built aggregations. Steps run strictly after the bucket tree for one
// result set is complete and never touch per-document state.
package pipeline
