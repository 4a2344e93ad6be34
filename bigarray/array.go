package bigarray

import (
	"fmt"
	"unsafe"

	"github.com/hupe1980/aggo/internal/mmap"
)

// Int64Array is a growable array of int64 slots.
type Int64Array = Array[int64]

// Float64Array is a growable array of float64 slots.
type Float64Array = Array[float64]

type element interface {
	~int64 | ~float64
}

// Array is a growable, densely indexed array of 8-byte primitive slots.
// It is not safe for concurrent use; collection is single-threaded per
// accumulator by contract.
type Array[T element] struct {
	ba       *BigArrays
	data     []T
	mapping  *mmap.Mapping // nil when heap-backed
	released bool
}

const slotBytes = 8

func newArray[T element](b *BigArrays, size int64) (*Array[T], error) {
	a := &Array[T]{ba: b}
	if size < 0 {
		size = 0
	}
	if size > 0 {
		data, mapping, err := allocSlots[T](b, size)
		if err != nil {
			return nil, err
		}
		a.data, a.mapping = data, mapping
	}
	return a, nil
}

func allocSlots[T element](b *BigArrays, size int64) ([]T, *mmap.Mapping, error) {
	byteSize := size * slotBytes
	if b.accountant != nil {
		if err := b.accountant.AcquireMemory(byteSize); err != nil {
			return nil, nil, fmt.Errorf("bigarray: allocating %d slots: %w", size, err)
		}
	}

	if b.offHeapThreshold >= 0 && byteSize >= int64(b.offHeapThreshold) {
		m, err := mmap.MapAnon(int(byteSize))
		if err != nil {
			if b.accountant != nil {
				b.accountant.ReleaseMemory(byteSize)
			}
			return nil, nil, fmt.Errorf("bigarray: mapping %d bytes: %w", byteSize, err)
		}
		raw := m.Bytes()
		data := unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), size) //nolint:gosec // off-heap backing requires unsafe
		return data, m, nil
	}

	return make([]T, size), nil, nil
}

func (a *Array[T]) freeSlots(data []T, mapping *mmap.Mapping) {
	byteSize := int64(len(data)) * slotBytes
	if mapping != nil {
		_ = mapping.Close()
	}
	if a.ba.accountant != nil {
		a.ba.accountant.ReleaseMemory(byteSize)
	}
}

func (a *Array[T]) check(i int64) {
	if a.released {
		panic("bigarray: use after release")
	}
	if i < 0 || i >= int64(len(a.data)) {
		panic(fmt.Sprintf("bigarray: index %d out of range [0, %d)", i, len(a.data)))
	}
}

// Size returns the number of slots.
func (a *Array[T]) Size() int64 {
	return int64(len(a.data))
}

// Get returns the value at ordinal i. Panics if i is out of range; callers
// must grow the array before reading a new ordinal.
func (a *Array[T]) Get(i int64) T {
	a.check(i)
	return a.data[i]
}

// Set stores v at ordinal i.
func (a *Array[T]) Set(i int64, v T) {
	a.check(i)
	a.data[i] = v
}

// Increment adds delta to the value at ordinal i and returns the result.
func (a *Array[T]) Increment(i int64, delta T) T {
	a.check(i)
	a.data[i] += delta
	return a.data[i]
}

// Fill sets every slot in [from, to) to v.
func (a *Array[T]) Fill(from, to int64, v T) {
	if a.released {
		panic("bigarray: use after release")
	}
	if from < 0 || to > int64(len(a.data)) || from > to {
		panic(fmt.Sprintf("bigarray: fill range [%d, %d) out of range [0, %d)", from, to, len(a.data)))
	}
	for i := from; i < to; i++ {
		a.data[i] = v
	}
}

// Grow ensures the array covers at least minSize slots, over-allocating to
// OverSize(minSize). Existing data is preserved; new slots are zero. It
// returns true if the array actually grew, so callers can re-apply
// sentinel fills to the newly exposed slots.
func (a *Array[T]) Grow(minSize int64) (bool, error) {
	if a.released {
		panic("bigarray: use after release")
	}
	if minSize <= int64(len(a.data)) {
		return false, nil
	}

	newSize := OverSize(minSize)
	data, mapping, err := allocSlots[T](a.ba, newSize)
	if err != nil {
		return false, err
	}
	copy(data, a.data)

	old, oldMapping := a.data, a.mapping
	a.data, a.mapping = data, mapping
	a.freeSlots(old, oldMapping)
	return true, nil
}

// Release returns the backing storage to the allocator.
// Releasing twice is a defect and panics.
func (a *Array[T]) Release() {
	if a.released {
		panic("bigarray: double release")
	}
	a.released = true
	a.freeSlots(a.data, a.mapping)
	a.data, a.mapping = nil, nil
}

// Released reports whether Release has been called.
func (a *Array[T]) Released() bool {
	return a.released
}
