// Package aggregate defines the contracts shared by all bucket
// aggregators.
//
// # Collection Protocol
//
// For each index segment an Aggregator produces a LeafCollector bound to
// that segment's value readers. Collect(doc, bucket) is invoked once per
// (matching document, owning bucket ordinal) pair, strictly sequentially
// within a segment. Aggregators with an unmapped source field return the
// NoOp collector instead of failing.
//
// # Phases
//
// Every aggregator moves through Collecting -> PostCollecting -> Built ->
// Closed. The split between collection and post-collection is an ordering
// contract: post-collection for any aggregator must not start until
// collection for the entire index has finished, because join-style
// aggregators resolve buckets recorded while visiting other segments. The
// execution driver enforces the order; the Base type rejects misordered
// calls.
//
// # Results
//
// Build materializes one immutable Internal result per bucket ordinal.
// Same-named results from independent partitions merge through Reduce,
// which every implementation keeps associative and commutative.
package aggregate
