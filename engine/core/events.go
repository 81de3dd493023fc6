package core

import (
	"sync"

	"github.com/spaghettifunk/trigon/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Resized/resolution changed from the OS. Data: *SystemEvent
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A watched asset was written on disk. Data: *AssetEvent
	EVENT_CODE_ASSET_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
	// Repeat is set for OS auto-repeat of a held key.
	Repeat bool
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path string
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

const defaultEventQueueSize = 64

// EventSystem dispatches events to registered listeners. Events fired with
// Fire are delivered immediately on the calling goroutine; events posted with
// Enqueue are delivered in FIFO order by the next call to Drain. Enqueue is the
// only method that is safe to call from other goroutines.
type EventSystem struct {
	registered map[SystemEventCode][]*registeredEvent

	mu    sync.Mutex
	queue *containers.RingQueue[EventContext]
}

func NewEventSystem() *EventSystem {
	return &EventSystem{
		registered: make(map[SystemEventCode][]*registeredEvent),
		queue:      containers.NewGrowableRingQueue[EventContext](defaultEventQueueSize),
	}
}

func (es *EventSystem) Shutdown() error {
	es.registered = make(map[SystemEventCode][]*registeredEvent)
	es.mu.Lock()
	es.queue = containers.NewGrowableRingQueue[EventContext](defaultEventQueueSize)
	es.mu.Unlock()
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 */
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	for _, e := range es.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister returns false when no registration for the listener exists.
func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func (es *EventSystem) Fire(context EventContext) bool {
	for _, e := range es.registered[context.Type] {
		if e.callback(context) {
			return true
		}
	}
	return false
}

func (es *EventSystem) Enqueue(context EventContext) {
	es.mu.Lock()
	defer es.mu.Unlock()
	// the queue grows, so this cannot fail
	_ = es.queue.Enqueue(context)
}

func (es *EventSystem) Pending() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.queue.Len()
}

// Drain fires every event queued so far and returns how many were delivered.
// Events enqueued by the handlers themselves are delivered in the same call.
func (es *EventSystem) Drain() int {
	n := 0
	for {
		es.mu.Lock()
		context, err := es.queue.Dequeue()
		es.mu.Unlock()
		if err != nil {
			return n
		}
		es.Fire(context)
		n++
	}
}
