package bigarray

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aggo/resource"
)

func TestOverSize(t *testing.T) {
	tests := []struct {
		minTarget int64
		want      int64
	}{
		{0, 8},
		{1, 8},
		{8, 8},
		{9, 16},
		{17, 32},
		{1000, 1024},
		{1025, 2048},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OverSize(tt.minTarget), "OverSize(%d)", tt.minTarget)
	}
}

func TestGrowPreservesAndZeroes(t *testing.T) {
	ba := New()
	a, err := ba.NewFloat64(1)
	require.NoError(t, err)
	defer a.Release()

	a.Set(0, 42)

	grew, err := a.Grow(100)
	require.NoError(t, err)
	require.True(t, grew)
	require.GreaterOrEqual(t, a.Size(), int64(100))

	assert.Equal(t, 42.0, a.Get(0))
	for i := int64(1); i < a.Size(); i++ {
		assert.Zero(t, a.Get(i))
	}

	// Growing to a covered size is a no-op.
	grew, err = a.Grow(10)
	require.NoError(t, err)
	assert.False(t, grew)
}

func TestSentinelFillAfterGrow(t *testing.T) {
	// Min/max arrays must carry their sentinel in newly grown slots,
	// not zero.
	ba := New()
	maxes, err := ba.NewFloat64(1)
	require.NoError(t, err)
	defer maxes.Release()

	maxes.Fill(0, maxes.Size(), math.Inf(-1))
	maxes.Set(0, 7)

	from := maxes.Size()
	grew, err := maxes.Grow(33)
	require.NoError(t, err)
	require.True(t, grew)
	maxes.Fill(from, maxes.Size(), math.Inf(-1))

	assert.Equal(t, 7.0, maxes.Get(0))
	for i := from; i < maxes.Size(); i++ {
		assert.True(t, math.IsInf(maxes.Get(i), -1), "slot %d must carry the -Inf sentinel", i)
	}
}

func TestIncrement(t *testing.T) {
	ba := New()
	a, err := ba.NewInt64(4)
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, int64(3), a.Increment(2, 3))
	assert.Equal(t, int64(5), a.Increment(2, 2))
	assert.Equal(t, int64(5), a.Get(2))
}

func TestOutOfRangePanics(t *testing.T) {
	ba := New()
	a, err := ba.NewInt64(2)
	require.NoError(t, err)
	defer a.Release()

	assert.Panics(t, func() { a.Get(2) })
	assert.Panics(t, func() { a.Set(-1, 0) })
}

func TestDoubleReleasePanics(t *testing.T) {
	ba := New()
	a, err := ba.NewInt64(2)
	require.NoError(t, err)

	a.Release()
	assert.Panics(t, func() { a.Release() })
	assert.Panics(t, func() { a.Get(0) })
}

func TestMemoryAccounting(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	ba := New(WithAccountant(rc))

	a, err := ba.NewInt64(16)
	require.NoError(t, err)
	assert.Equal(t, int64(16*8), rc.MemoryUsage())

	_, err = a.Grow(32)
	require.NoError(t, err)
	assert.Equal(t, int64(32*8), rc.MemoryUsage())

	a.Release()
	assert.Zero(t, rc.MemoryUsage())
}

func TestMemoryLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	ba := New(WithAccountant(rc))

	a, err := ba.NewInt64(8)
	require.NoError(t, err)
	defer a.Release()

	_, err = a.Grow(1024)
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	// The array is still usable at its old size after a failed grow.
	assert.Equal(t, int64(8), a.Size())
}

func TestOffHeapBacking(t *testing.T) {
	ba := New(WithOffHeapThreshold(64))

	a, err := ba.NewFloat64(1024) // 8KiB, off-heap
	require.NoError(t, err)
	defer a.Release()

	for i := int64(0); i < a.Size(); i++ {
		a.Set(i, float64(i))
	}
	for i := int64(0); i < a.Size(); i++ {
		require.Equal(t, float64(i), a.Get(i))
	}
}
