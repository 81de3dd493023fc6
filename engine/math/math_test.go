package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignedArea2DWinding(t *testing.T) {
	top := NewVec2(0, 0.5)
	right := NewVec2(0.5, -0.5)
	left := NewVec2(-0.5, -0.5)

	assert.Greater(t, SignedArea2D(left, right, top), float32(0))
	assert.Less(t, SignedArea2D(top, right, left), float32(0))
	assert.InDelta(t, 1.0, SignedArea2D(left, right, top), 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(2), Clamp(uint32(1), 2, 8))
	assert.Equal(t, uint32(8), Clamp(uint32(9), 2, 8))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

func TestVec2(t *testing.T) {
	v := NewVec2(0.01, -0.02).Add(NewVec2(0.01, 0.02))
	assert.True(t, v.Compare(NewVec2(0.02, 0), K_FLOAT_EPSILON))
	assert.Equal(t, NewVec2(1, 2), NewVec3(1, 2, 3).XY())
}
