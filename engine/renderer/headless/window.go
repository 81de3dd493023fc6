package headless

import (
	"sync"

	"github.com/spaghettifunk/trigon/engine/core"
)

// Window is an offscreen stand-in for the OS window. Its client size only
// changes through SetSize.
type Window struct {
	mu     sync.Mutex
	events *core.EventSystem
	name   string
	width  uint32
	height uint32
	open   bool
}

func NewWindow(events *core.EventSystem) *Window {
	return &Window{events: events}
}

func (w *Window) Startup(applicationName string, x, y, width, height uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name = applicationName
	w.width, w.height = width, height
	w.open = true
	core.LogDebug("headless window '%s' %dx%d", applicationName, width, height)
	return nil
}

func (w *Window) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
	return nil
}

func (w *Window) PumpMessages() {}

// SetSize changes the client area and reports it like an OS resize.
func (w *Window) SetSize(width, height uint32) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	w.events.Enqueue(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: width, WindowHeight: height},
	})
}

func (w *Window) RequiredInstanceExtensions() []string {
	return nil
}

func (w *Window) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return 0, nil
}

func (w *Window) FramebufferSize() (uint32, uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return 0, 0
	}
	return w.width, w.height
}
