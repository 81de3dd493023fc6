package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainKeys(es *EventSystem) []EventContext {
	var out []EventContext
	fn := func(ctx EventContext) bool {
		out = append(out, ctx)
		return true
	}
	es.Register(EVENT_CODE_KEY_PRESSED, "probe", fn)
	es.Register(EVENT_CODE_KEY_RELEASED, "probe", fn)
	es.Drain()
	return out
}

func TestInputProcessKeyQueuesRepeats(t *testing.T) {
	es := NewEventSystem()
	in := NewInputState(es)

	in.ProcessKey(KEY_RIGHT, true)
	in.ProcessKey(KEY_RIGHT, true)
	in.ProcessKey(KEY_RIGHT, false)
	in.ProcessKey(KEY_RIGHT, false)

	got := drainKeys(es)
	require.Len(t, got, 3)
	assert.Equal(t, EVENT_CODE_KEY_PRESSED, got[0].Type)
	assert.False(t, got[0].Data.(*KeyEvent).Repeat)
	assert.Equal(t, EVENT_CODE_KEY_PRESSED, got[1].Type)
	assert.True(t, got[1].Data.(*KeyEvent).Repeat)
	assert.Equal(t, EVENT_CODE_KEY_RELEASED, got[2].Type)
}

func TestInputStateHistory(t *testing.T) {
	in := NewInputState(NewEventSystem())

	in.ProcessKey(KEY_ESCAPE, true)
	assert.True(t, in.IsKeyDown(KEY_ESCAPE))
	assert.True(t, in.WasKeyUp(KEY_ESCAPE))

	in.Update()
	in.ProcessKey(KEY_ESCAPE, false)
	assert.True(t, in.IsKeyUp(KEY_ESCAPE))
	assert.True(t, in.WasKeyDown(KEY_ESCAPE))
}
