// Package metrics implements the numeric metric accumulators: sum, max,
// extended stats, and geo centroid.
//
// Every accumulator owns a fixed set of bigarray instances indexed by
// bucket ordinal, grows them before each write, and releases them exactly
// once on Close. Min/max style arrays re-apply their +/-Inf sentinel to
// newly grown slots, so an empty bucket always reports the neutral
// element. Unmapped source fields degrade to the ignore collector and
// produce structurally valid empty results.
package metrics
