package engine

import (
	"github.com/spaghettifunk/trigon/engine/core"
)

// Nudger moves the rendered geometry.
type Nudger interface {
	Nudge(dx, dy float32)
}

// InputController turns key-down events into offset changes and quit
// requests. Every key-down counts, including OS auto-repeat.
type InputController struct {
	events *core.EventSystem
	step   float32
	target Nudger
}

func NewInputController(events *core.EventSystem, step float32, target Nudger) *InputController {
	return &InputController{
		events: events,
		step:   step,
		target: target,
	}
}

func (c *InputController) Register() bool {
	return c.events.Register(core.EVENT_CODE_KEY_PRESSED, c, c.onKeyPressed)
}

func (c *InputController) Unregister() bool {
	return c.events.Unregister(core.EVENT_CODE_KEY_PRESSED, c)
}

func (c *InputController) onKeyPressed(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return false
	}
	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		c.events.Enqueue(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	case core.KEY_RIGHT:
		c.target.Nudge(c.step, 0)
	case core.KEY_LEFT:
		c.target.Nudge(-c.step, 0)
	case core.KEY_UP:
		c.target.Nudge(0, c.step)
	case core.KEY_DOWN:
		c.target.Nudge(0, -c.step)
	default:
		return false
	}
	return true
}
