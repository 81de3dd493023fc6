package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	// 64 frames of 1/64s add up to exactly one second, the 65th crosses it
	for i := 0; i < 64; i++ {
		assert.False(t, m.Update(1.0/64.0))
	}
	assert.True(t, m.Update(1.0/64.0))
	assert.InDelta(t, 65, m.FPS(), 0.001)
	assert.InDelta(t, 15.625, m.FrameTime(), 0.001)
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	assert.Zero(t, c.Elapsed())

	c.Start()
	now = now.Add(1500 * time.Millisecond)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.InDelta(t, 1.5, c.Elapsed(), 1e-9)
}

func TestSetLogLevel(t *testing.T) {
	assert.NoError(t, SetLogLevel("debug"))
	assert.Error(t, SetLogLevel("loud"))
	assert.NoError(t, SetLogLevel("info"))
}
