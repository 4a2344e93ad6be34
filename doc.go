// Package aggo provides an embeddable bucket-aggregation engine for Go.
//
// Aggo computes metric, bucket, join, and pipeline aggregations over
// segmented document indexes. Collection is a two-phase pass: per-segment
// leaf collection followed by index-wide post-collection, after which
// immutable result trees are built, reduced across partitions, and fed
// through pipeline aggregations.
//
// # Quick Start
//
//	runner := aggo.NewRunner(idx)
//	sum, _ := metrics.SumBuilder{Name: "total", Field: "price"}.Build(runner.Arrays())
//	histo, _ := bucket.HistogramBuilder{Name: "by_price", Field: "price", Interval: 10}.
//	    Build(runner.Arrays(), sum)
//	deriv, _ := pipeline.DerivativeBuilder{Name: "delta", BucketsPaths: []string{"by_price>total"}}.Build()
//
//	results, _ := runner.Run(ctx, segment.MatchAll{}, []aggregate.Aggregator{histo}, deriv)
//
// # Distributed Reduce
//
// Each partition runs its own pass; the coordinating node merges the
// partition trees and applies final pipeline steps:
//
//	merged, _ := aggo.Reduce(ctx, partitions, finalSteps...)
//
// # Archiving
//
// Built result trees can be archived to any blobstore.Store through the
// transport envelope (optionally compressed, checksummed):
//
//	archiver := aggo.NewArchiver(store)
//	_ = archiver.Archive(ctx, "results/v1", merged)
//	loaded, _ := archiver.Load(ctx, "results/v1")
//
// # Key Features
//
//   - Growable off-heap-style bucket state with memory accounting
//   - Metric aggregations (sum, max, extended stats, geo centroid)
//   - Histogram and global buckets with sub-aggregations
//   - Parent/child join aggregation with two-phase replay
//   - Pipeline aggregations (avg_bucket, stats_bucket, derivative,
//     cumulative_sum, serial_diff) with gap policies
//   - Wire transport with LZ4/zstd compression and CRC32C integrity
//   - Archival to local, in-memory, S3, or MinIO object stores
package aggo
