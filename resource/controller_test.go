package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccounting(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 1024})

	require.NoError(t, c.AcquireMemory(512))
	assert.Equal(t, int64(512), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(512))
	assert.Equal(t, int64(1024), c.MemoryUsage())

	// Limit reached.
	err := c.AcquireMemory(1)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)

	c.ReleaseMemory(1024)
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireMemory(1024))
	c.ReleaseMemory(1024)
}

func TestMemoryTrackingOnly(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1<<40)) // no limit configured
	assert.Equal(t, int64(1<<40), c.MemoryUsage())
	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.MemoryUsage())
}

func TestNilController(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(1024))
	c.ReleaseMemory(1024)
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireBackground(context.Background()))
	c.ReleaseBackground()
	require.NoError(t, c.AcquireIO(context.Background(), 4096))
}

func TestBackgroundWorkers(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(context.Background()))
	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.False(t, c.TryAcquireBackground())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()
	c.ReleaseBackground()
}
