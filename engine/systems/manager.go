package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// Build stages, in creation order.
const (
	StageDevice     = "device"
	StageSurface    = "surface"
	StageShader     = "shader"
	StageGeometry   = "geometry"
	StageFrameState = "framestate"
	StageRasterizer = "rasterizer"
	StageRenderer   = "renderer"
)

type SystemManagerConfig struct {
	AppName  string
	Window   renderer.Window
	Surface  metadata.SurfaceDesc
	Shader   ShaderSystemConfig
	Vertices []metadata.Vertex
	Indices  []uint16
	// InitialFrameState seeds the constant buffer.
	InitialFrameState metadata.FrameState
	Rasterizer        metadata.RasterizerDesc
	Render            RenderSystemConfig
}

type stage struct {
	name     string
	shutdown func() error
}

type SystemManager struct {
	SurfaceSystem    *SurfaceSystem
	ShaderSystem     *ShaderSystem
	GeometrySystem   *GeometrySystem
	FrameStateSystem *FrameStateSystem
	RasterizerSystem *RasterizerSystem
	RenderSystem     *RenderSystem

	backend      renderer.RendererBackend
	assetManager *assets.AssetManager
	built        []stage
}

func NewSystemManager(backend renderer.RendererBackend, am *assets.AssetManager) *SystemManager {
	return &SystemManager{
		backend:      backend,
		assetManager: am,
	}
}

// Initialize creates every system in dependency order. If a stage fails,
// the stages already built are shut down in reverse order before the
// error is returned.
func (sm *SystemManager) Initialize(config SystemManagerConfig) error {
	steps := []struct {
		name  string
		build func() (func() error, error)
	}{
		{StageDevice, func() (func() error, error) {
			if err := sm.backend.Initialize(config.AppName, config.Window); err != nil {
				return nil, err
			}
			core.LogInfo("graphics device ready: %s", sm.backend.AdapterName())
			return sm.backend.Shutdown, nil
		}},
		{StageSurface, func() (func() error, error) {
			sm.SurfaceSystem = NewSurfaceSystem(sm.backend)
			return sm.SurfaceSystem.Shutdown, sm.SurfaceSystem.Create(config.Surface)
		}},
		{StageShader, func() (func() error, error) {
			s, err := NewShaderSystem(config.Shader, sm.backend, sm.assetManager)
			if err != nil {
				return nil, err
			}
			sm.ShaderSystem = s
			return s.Shutdown, s.CompileAndLink()
		}},
		{StageGeometry, func() (func() error, error) {
			sm.GeometrySystem = NewGeometrySystem(sm.backend)
			return sm.GeometrySystem.Shutdown, sm.GeometrySystem.Create(config.Vertices, config.Indices)
		}},
		{StageFrameState, func() (func() error, error) {
			sm.FrameStateSystem = NewFrameStateSystem(sm.backend)
			return sm.FrameStateSystem.Shutdown, sm.FrameStateSystem.Create(config.InitialFrameState)
		}},
		{StageRasterizer, func() (func() error, error) {
			sm.RasterizerSystem = NewRasterizerSystem(sm.backend)
			return sm.RasterizerSystem.Shutdown, sm.RasterizerSystem.Create(config.Rasterizer)
		}},
		{StageRenderer, func() (func() error, error) {
			sm.RenderSystem = NewRenderSystem(config.Render, sm.backend, sm.SurfaceSystem, sm.ShaderSystem, sm.GeometrySystem, sm.FrameStateSystem, sm.RasterizerSystem)
			return func() error { return nil }, nil
		}},
	}

	for _, s := range steps {
		shutdown, err := s.build()
		if err != nil {
			core.LogError("initialization failed at stage '%s': %s", s.name, err.Error())
			// a failed stage may still hold partial resources
			if shutdown != nil && s.name != StageDevice {
				sm.built = append(sm.built, stage{name: s.name, shutdown: shutdown})
			}
			if uerr := sm.Shutdown(); uerr != nil {
				err = errors.Join(err, uerr)
			}
			return fmt.Errorf("stage %s: %w", s.name, err)
		}
		sm.built = append(sm.built, stage{name: s.name, shutdown: shutdown})
		core.LogDebug("stage '%s' ready", s.name)
	}
	return nil
}

// Stages returns the names of the systems currently built, in creation order.
func (sm *SystemManager) Stages() []string {
	out := make([]string, len(sm.built))
	for i, s := range sm.built {
		out[i] = s.name
	}
	return out
}

// Shutdown releases every built system in reverse creation order. It keeps
// going after a failure and returns all errors joined.
func (sm *SystemManager) Shutdown() error {
	var errs []error
	for i := len(sm.built) - 1; i >= 0; i-- {
		if err := sm.built[i].shutdown(); err != nil {
			core.LogError("shutdown of '%s' failed: %s", sm.built[i].name, err.Error())
			errs = append(errs, err)
		}
	}
	sm.built = nil
	return errors.Join(errs...)
}

func (sm *SystemManager) DrawFrame(width, height uint32) error {
	return sm.RenderSystem.DrawFrame(width, height)
}

func (sm *SystemManager) OnResize(width, height uint32) error {
	return sm.SurfaceSystem.Fit(width, height)
}

func (sm *SystemManager) ReloadShaders() error {
	return sm.ShaderSystem.Reload()
}
