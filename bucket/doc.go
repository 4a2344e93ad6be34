// Package bucket provides the bucketing aggregators: Global collects
// every matching document into one bucket, Histogram partitions a
// numeric field into fixed-width intervals and dispatches sub
// aggregations per bucket.
package bucket
