package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon(t *testing.T) {
	m, err := MapAnon(1 << 16)
	require.NoError(t, err)
	defer m.Close()

	b := m.Bytes()
	require.Len(t, b, 1<<16)

	// Anonymous memory is zero-filled.
	for _, v := range b[:128] {
		require.Zero(t, v)
	}

	b[0] = 0xAB
	assert.Equal(t, byte(0xAB), m.Bytes()[0])
	assert.Equal(t, 1<<16, m.Size())
}

func TestMapAnonInvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCloseIdempotent(t *testing.T) {
	m, err := MapAnon(4096)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
}
