package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireStopsAtFirstHandler(t *testing.T) {
	es := NewEventSystem()
	var calls []string

	first, second := &struct{ a int }{}, &struct{ b int }{}
	require.True(t, es.Register(EVENT_CODE_APPLICATION_QUIT, first, func(EventContext) bool {
		calls = append(calls, "first")
		return true
	}))
	require.True(t, es.Register(EVENT_CODE_APPLICATION_QUIT, second, func(EventContext) bool {
		calls = append(calls, "second")
		return false
	}))
	assert.False(t, es.Register(EVENT_CODE_APPLICATION_QUIT, first, func(EventContext) bool { return false }))

	assert.True(t, es.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.Equal(t, []string{"first"}, calls)

	require.True(t, es.Unregister(EVENT_CODE_APPLICATION_QUIT, first))
	assert.False(t, es.Unregister(EVENT_CODE_APPLICATION_QUIT, first))
	assert.False(t, es.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestEventDrainIsFIFO(t *testing.T) {
	es := NewEventSystem()
	var keys []KeyCode
	es.Register(EVENT_CODE_KEY_PRESSED, es, func(ctx EventContext) bool {
		keys = append(keys, ctx.Data.(*KeyEvent).KeyCode)
		return true
	})

	for _, k := range []KeyCode{KEY_LEFT, KEY_UP, KEY_RIGHT, KEY_DOWN} {
		es.Enqueue(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: k}})
	}
	assert.Equal(t, 4, es.Pending())
	assert.Equal(t, 4, es.Drain())
	assert.Equal(t, []KeyCode{KEY_LEFT, KEY_UP, KEY_RIGHT, KEY_DOWN}, keys)
	assert.Equal(t, 0, es.Drain())
}

func TestEventEnqueueFromManyGoroutines(t *testing.T) {
	es := NewEventSystem()
	count := 0
	es.Register(EVENT_CODE_ASSET_CHANGED, es, func(EventContext) bool {
		count++
		return true
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				es.Enqueue(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetEvent{Path: "x"}})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, es.Drain())
	assert.Equal(t, 800, count)
}
