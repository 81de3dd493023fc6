package engine

import (
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/headless"
	"github.com/spaghettifunk/trigon/engine/renderer/vulkan"
)

func NewRendererBackend(t renderer.RendererType, validation bool) renderer.RendererBackend {
	switch t {
	case renderer.Headless:
		return headless.New()
	default:
		return vulkan.New(validation)
	}
}
