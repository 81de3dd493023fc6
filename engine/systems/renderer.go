package systems

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type RenderSystemConfig struct {
	ClearColor   metadata.Color
	SyncInterval uint32
}

// RenderSystem records one frame: clear, viewport, bind, draw, present.
type RenderSystem struct {
	Config RenderSystemConfig

	backend    renderer.RendererBackend
	surface    *SurfaceSystem
	shader     *ShaderSystem
	geometry   *GeometrySystem
	frameState *FrameStateSystem
	rasterizer *RasterizerSystem

	FrameNumber uint64
}

func NewRenderSystem(config RenderSystemConfig, backend renderer.RendererBackend, surface *SurfaceSystem, shader *ShaderSystem, geometry *GeometrySystem, frameState *FrameStateSystem, rasterizer *RasterizerSystem) *RenderSystem {
	return &RenderSystem{
		Config:     config,
		backend:    backend,
		surface:    surface,
		shader:     shader,
		geometry:   geometry,
		frameState: frameState,
		rasterizer: rasterizer,
	}
}

// DrawFrame renders and presents one frame for a client area of width x height.
func (r *RenderSystem) DrawFrame(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.surface.Fit(width, height); err != nil {
		return err
	}
	if err := r.frameState.Update(); err != nil {
		return err
	}

	rtv, err := r.surface.Surface.CurrentRenderTargetView()
	if err != nil {
		core.LogError("failed to acquire the back buffer: %s", err.Error())
		return err
	}
	if err := r.backend.ClearRenderTarget(rtv, r.Config.ClearColor); err != nil {
		return err
	}
	if err := r.backend.SetViewport(metadata.NewViewport(width, height)); err != nil {
		return err
	}
	if err := r.bind(rtv); err != nil {
		return err
	}

	g := r.geometry.Geometry
	if err := r.backend.DrawIndexed(g.IndexCount, 0, 0); err != nil {
		core.LogError("draw failed: %s", err.Error())
		return err
	}
	if err := r.surface.Surface.Present(r.Config.SyncInterval); err != nil {
		core.LogError("present failed: %s", err.Error())
		return err
	}
	r.FrameNumber++
	return nil
}

func (r *RenderSystem) bind(rtv *metadata.RenderTargetView) error {
	g := r.geometry.Geometry
	steps := []struct {
		name string
		fn   func() error
	}{
		{"render target", func() error { return r.backend.BindRenderTarget(rtv) }},
		{"rasterizer state", func() error { return r.backend.BindRasterizerState(r.rasterizer.State) }},
		{"constant buffer", func() error {
			return r.backend.BindConstantBuffer(metadata.ShaderStageVertex, 0, r.frameState.Buffer)
		}},
		{"primitive topology", func() error { return r.backend.SetPrimitiveTopology(metadata.PrimitiveTopologyTriangleList) }},
		{"input layout", func() error { return r.backend.BindInputLayout(r.shader.InputLayout) }},
		{"vertex shader", func() error { return r.backend.BindVertexShader(r.shader.VertexShader) }},
		{"pixel shader", func() error { return r.backend.BindPixelShader(r.shader.PixelShader) }},
		{"vertex buffer", func() error {
			return r.backend.BindVertexBuffer(g.VertexBuffer, metadata.VertexStride, 0)
		}},
		{"index buffer", func() error { return r.backend.BindIndexBuffer(g.IndexBuffer, g.IndexFormat) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("bind %s: %w", s.name, err)
		}
	}
	return nil
}
