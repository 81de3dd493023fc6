package systems

import (
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type SurfaceSystem struct {
	Surface renderer.Surface
	backend renderer.RendererBackend
}

func NewSurfaceSystem(backend renderer.RendererBackend) *SurfaceSystem {
	return &SurfaceSystem{backend: backend}
}

func (ss *SurfaceSystem) Create(desc metadata.SurfaceDesc) error {
	s, err := ss.backend.CreateSurface(desc)
	if err != nil {
		core.LogError("failed to create presentation surface: %s", err.Error())
		return err
	}
	ss.Surface = s
	return nil
}

// Fit resizes the swapchain when the client area changed. Zero sizes are ignored.
func (ss *SurfaceSystem) Fit(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if w, h := ss.Surface.Size(); w == width && h == height {
		return nil
	}
	core.LogDebug("resizing surface to %dx%d", width, height)
	return ss.Surface.Resize(width, height)
}

func (ss *SurfaceSystem) Shutdown() error {
	if ss.Surface == nil {
		return nil
	}
	if err := ss.backend.Release(ss.Surface); err != nil {
		return err
	}
	ss.Surface = nil
	return nil
}
