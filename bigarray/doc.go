// Package bigarray provides growable, bucket-ordinal-indexed arrays with
// centralized memory accounting.
//
// Every metric accumulator owns a fixed set of Int64Array/Float64Array
// instances obtained from one BigArrays allocator. Arrays grow with an
// amortized power-of-two policy (grow before write, never truncate) and
// are released exactly once when the accumulator is torn down.
//
// # Memory Management
//
// Arrays above a small threshold are backed by anonymous off-heap
// mappings so that large per-bucket state stays outside the garbage
// collector. All bytes, heap or off-heap, are acquired from and returned
// to the allocator's MemoryAccountant so accounting stays centralized.
//
// # Failure Discipline
//
// Out-of-range access and use-after-release are programming-invariant
// violations, not user errors: both panic. Callers must grow an array to
// cover a bucket ordinal before touching it.
package bigarray
