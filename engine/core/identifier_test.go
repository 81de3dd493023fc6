package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierRegistry(t *testing.T) {
	r := NewIdentifierRegistry()
	a := r.AcquireNewID("a")
	b := r.AcquireNewID("b")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Live())

	owner, ok := r.Owner(b)
	require.True(t, ok)
	assert.Equal(t, "b", owner)

	require.NoError(t, r.ReleaseID(a))
	assert.ErrorIs(t, r.ReleaseID(a), ErrResourceReleased)
	assert.Equal(t, 1, r.Live())
}
