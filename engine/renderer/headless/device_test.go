package headless

import (
	"image/color"
	"testing"
	"time"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}

var positionElement = metadata.InputElement{SemanticName: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float}

type scene struct {
	dev     *Device
	surface *Surface
	vs, ps  *metadata.ShaderModule
	layout  *metadata.InputLayout
	vb, ib  *metadata.Buffer
	cb      *metadata.Buffer
	rs      *metadata.RasterizerState
}

func newScene(t *testing.T, indices []uint16, cull metadata.FaceCullMode) *scene {
	t.Helper()
	s := &scene{dev: New()}
	require.NoError(t, s.dev.Initialize("test", nil))

	surf, err := s.dev.CreateSurface(metadata.SurfaceDesc{Width: 64, Height: 64, BufferCount: 2, SyncInterval: 1})
	require.NoError(t, err)
	s.surface = surf.(*Surface)

	s.vs, err = s.dev.CreateShader(metadata.ShaderStageVertex, "vs_main", spirvHeader)
	require.NoError(t, err)
	s.vs.Signature = []metadata.InputElement{positionElement}
	s.vs.Uniforms = []metadata.UniformBinding{{Name: "frame", Binding: 0, Size: 16}}
	s.ps, err = s.dev.CreateShader(metadata.ShaderStagePixel, "ps_main", spirvHeader)
	require.NoError(t, err)
	s.layout, err = s.dev.CreateInputLayout([]metadata.InputElement{positionElement}, s.vs)
	require.NoError(t, err)

	vertices := []metadata.Vertex{
		metadata.NewVertex(0, 0.5, 0),
		metadata.NewVertex(0.5, -0.5, 0),
		metadata.NewVertex(-0.5, -0.5, 0),
	}
	vdata := metadata.VerticesBytes(vertices)
	s.vb, err = s.dev.CreateBuffer(metadata.BufferDesc{ByteWidth: uint32(len(vdata)), Usage: metadata.UsageImmutable, BindFlags: metadata.BindVertexBuffer}, vdata)
	require.NoError(t, err)
	idata := metadata.IndicesBytes(indices)
	s.ib, err = s.dev.CreateBuffer(metadata.BufferDesc{ByteWidth: uint32(len(idata)), Usage: metadata.UsageDefault, BindFlags: metadata.BindIndexBuffer}, idata)
	require.NoError(t, err)
	s.cb, err = s.dev.CreateBuffer(metadata.BufferDesc{ByteWidth: 16, Usage: metadata.UsageDynamic, BindFlags: metadata.BindConstantBuffer, CPUAccess: metadata.CPUAccessWrite}, nil)
	require.NoError(t, err)
	s.rs, err = s.dev.CreateRasterizerState(metadata.RasterizerDesc{FillMode: metadata.FillModeSolid, CullMode: cull, FrontCounterClockwise: true})
	require.NoError(t, err)
	return s
}

func (s *scene) frame(t *testing.T, offset metadata.FrameState) {
	t.Helper()
	d := s.dev
	mapped, err := d.Map(s.cb, metadata.MapWriteDiscard)
	require.NoError(t, err)
	offset.Put(mapped)
	require.NoError(t, d.Unmap(s.cb))

	rtv, err := s.surface.CurrentRenderTargetView()
	require.NoError(t, err)
	require.NoError(t, d.ClearRenderTarget(rtv, metadata.Color{0, 0, 0, 0.8}))
	require.NoError(t, d.SetViewport(metadata.NewViewport(rtv.Width, rtv.Height)))
	require.NoError(t, d.BindRenderTarget(rtv))
	require.NoError(t, d.BindRasterizerState(s.rs))
	require.NoError(t, d.BindConstantBuffer(metadata.ShaderStageVertex, 0, s.cb))
	require.NoError(t, d.SetPrimitiveTopology(metadata.PrimitiveTopologyTriangleList))
	require.NoError(t, d.BindInputLayout(s.layout))
	require.NoError(t, d.BindVertexShader(s.vs))
	require.NoError(t, d.BindPixelShader(s.ps))
	require.NoError(t, d.BindVertexBuffer(s.vb, metadata.VertexStride, 0))
	require.NoError(t, d.BindIndexBuffer(s.ib, metadata.IndexFormatUint16))
	require.NoError(t, d.DrawIndexed(3, 0, 0))
	require.NoError(t, s.surface.Present(1))
}

func (s *scene) release(t *testing.T) {
	t.Helper()
	for _, r := range []interface{}{s.rs, s.cb, s.ib, s.vb, s.layout, s.ps, s.vs, s.surface} {
		require.NoError(t, s.dev.Release(r))
	}
	require.NoError(t, s.dev.Shutdown())
}

func TestCounterClockwiseTriangleIsVisible(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.frame(t, metadata.FrameState{})

	assert.Equal(t, DrawStats{Drawn: 1}, s.dev.Stats())
	img := s.surface.LastFrame()
	require.NotNil(t, img)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(32, 32))
	// corners keep the clear colour
	assert.Equal(t, color.RGBA{0, 0, 0, 204}, img.RGBAAt(1, 1))
	s.release(t)
	assert.Zero(t, s.dev.LiveResources())
}

func TestClockwiseTriangleIsCulled(t *testing.T) {
	s := newScene(t, []uint16{0, 1, 2}, metadata.FaceCullModeBack)
	s.frame(t, metadata.FrameState{})

	assert.Equal(t, DrawStats{Culled: 1}, s.dev.Stats())
	assert.Equal(t, color.RGBA{0, 0, 0, 204}, s.surface.LastFrame().RGBAAt(32, 32))
	s.release(t)
}

func TestConstantBufferOffsetMovesTriangle(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.frame(t, metadata.FrameState{XOffset: 1.5})

	img := s.surface.LastFrame()
	// the triangle now sits right of the viewport
	assert.Equal(t, color.RGBA{0, 0, 0, 204}, img.RGBAAt(32, 32))
	assert.Equal(t, DrawStats{Drawn: 1}, s.dev.Stats())

	draws := 0
	for _, c := range s.dev.Commands() {
		if c.Op == OpDrawIndexed {
			draws++
			assert.Equal(t, metadata.FrameState{XOffset: 1.5}.Bytes(), c.Data)
		}
	}
	assert.Equal(t, 1, draws)
	s.release(t)
}

func TestDrawWithIncompleteBindings(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	require.NoError(t, s.dev.BindVertexShader(s.vs))

	err := s.dev.DrawIndexed(3, 0, 0)
	require.ErrorIs(t, err, core.ErrIncompleteBindings)
	assert.Contains(t, err.Error(), "constant buffer (slot 0)")
	assert.Contains(t, err.Error(), "render target")
	s.release(t)
}

func TestPresentResetsRenderTarget(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.frame(t, metadata.FrameState{})

	// everything but the render target is still bound after a present
	err := s.dev.DrawIndexed(3, 0, 0)
	require.ErrorIs(t, err, core.ErrIncompleteBindings)
	assert.Contains(t, err.Error(), "render target")
	assert.Equal(t, 1, s.dev.Presents())
	s.release(t)
}

func TestMapContracts(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)

	_, err := s.dev.Map(s.vb, metadata.MapWriteDiscard)
	assert.ErrorIs(t, err, core.ErrBufferNotMappable)
	_, err = s.dev.Map(s.ib, metadata.MapWriteDiscard)
	assert.ErrorIs(t, err, core.ErrBufferNotMappable)

	s.dev.LimitMappedRegion(8)
	mapped, err := s.dev.Map(s.cb, metadata.MapWriteDiscard)
	require.NoError(t, err)
	assert.Len(t, mapped, 8)
	require.NoError(t, s.dev.Unmap(s.cb))
	assert.Error(t, s.dev.Unmap(s.cb))
	s.release(t)
}

func TestReleaseTwice(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.release(t)
	assert.ErrorIs(t, s.dev.Release(s.cb), core.ErrResourceReleased)
}

func TestInjectedFailure(t *testing.T) {
	d := New()
	d.FailOn(OpInitialize, core.ErrDeviceUnavailable)
	assert.ErrorIs(t, d.Initialize("test", nil), core.ErrDeviceUnavailable)
}

func TestCreateShaderRejectsNonSPIRV(t *testing.T) {
	d := New()
	require.NoError(t, d.Initialize("test", nil))
	_, err := d.CreateShader(metadata.ShaderStageVertex, "vs_main", []byte("float4"))
	assert.ErrorIs(t, err, core.ErrResourceCreation)
}

func TestCommandHistoryStaysBounded(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.dev.SetRefreshInterval(0)
	s.dev.SetCommandHistory(4)

	s.frame(t, metadata.FrameState{})
	perFrame := len(s.dev.FrameCommands(1)) + len(s.dev.FrameCommands(0))
	for i := 0; i < 500; i++ {
		s.frame(t, metadata.FrameState{XOffset: float32(i) * 0.001})
	}

	assert.Equal(t, 501, s.dev.Presents())
	assert.LessOrEqual(t, len(s.dev.Commands()), 5*perFrame)
	assert.Empty(t, s.dev.FrameCommands(0))
	assert.Empty(t, s.dev.FrameCommands(496))
	assert.Equal(t, OpPresent, s.dev.FrameCommands(500)[len(s.dev.FrameCommands(500))-1].Op)
	assert.NotEmpty(t, s.dev.FrameCommands(497))
	s.release(t)
}

func TestLastFrameIsReused(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.dev.SetRefreshInterval(0)
	s.frame(t, metadata.FrameState{})
	first := s.surface.LastFrame()
	s.frame(t, metadata.FrameState{XOffset: 1.5})

	assert.Same(t, first, s.surface.LastFrame())
	assert.Equal(t, color.RGBA{0, 0, 0, 204}, first.RGBAAt(32, 32))
	s.release(t)
}

func TestPresentWaitsForSyncInterval(t *testing.T) {
	s := newScene(t, []uint16{2, 1, 0}, metadata.FaceCullModeBack)
	s.dev.SetRefreshInterval(5 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.surface.Present(2))
	}
	// the first present has nothing to wait for, the next two wait 2 blanks each
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	s.dev.SetRefreshInterval(time.Hour)
	start = time.Now()
	require.NoError(t, s.surface.Present(0))
	assert.Less(t, time.Since(start), time.Minute)
	s.release(t)
}
