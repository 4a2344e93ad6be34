package bigarray

import (
	"math/bits"
)

// DefaultOffHeapThreshold is the array byte size at which backing storage
// switches from the Go heap to an anonymous mapping.
const DefaultOffHeapThreshold = 256 << 10

// MemoryAccountant tracks bytes held by live arrays.
// *resource.Controller satisfies this interface.
type MemoryAccountant interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

// BigArrays allocates growable primitive arrays.
// The zero value is not usable; create one with New.
type BigArrays struct {
	accountant       MemoryAccountant // nil means no accounting
	offHeapThreshold int
}

// Option configures a BigArrays allocator.
type Option func(*BigArrays)

// WithAccountant routes all allocations through the given accountant.
func WithAccountant(a MemoryAccountant) Option {
	return func(b *BigArrays) {
		b.accountant = a
	}
}

// WithOffHeapThreshold overrides the byte size at which arrays move off-heap.
// A negative threshold keeps every array on the heap.
func WithOffHeapThreshold(bytes int) Option {
	return func(b *BigArrays) {
		b.offHeapThreshold = bytes
	}
}

// New creates a BigArrays allocator.
func New(opts ...Option) *BigArrays {
	b := &BigArrays{
		offHeapThreshold: DefaultOffHeapThreshold,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewInt64 allocates a zero-initialized int64 array of the given size.
func (b *BigArrays) NewInt64(size int64) (*Int64Array, error) {
	return newArray[int64](b, size)
}

// NewFloat64 allocates a zero-initialized float64 array of the given size.
func (b *BigArrays) NewFloat64(size int64) (*Float64Array, error) {
	return newArray[float64](b, size)
}

// OverSize returns the size to grow to for a minimum target, using a
// power-of-two step so that repeated single-ordinal growth is amortized
// O(1) per access. The result is never below 8 slots.
func OverSize(minTarget int64) int64 {
	if minTarget <= 8 {
		return 8
	}
	return 1 << bits.Len64(uint64(minTarget-1))
}
