package systems

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/headless"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleWGSL = `
struct FrameState {
    offset: vec2<f32>,
    pad: vec2<f32>,
}

@group(0) @binding(0)
var<uniform> frame_state: FrameState;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position.xy + frame_state.offset, position.z, 1.0);
}

@fragment
fn ps_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

const brokenWGSL = `
@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position.xy +, 1.0);
}
`

func writeShader(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triangle.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func testConfig(shaderPath string) SystemManagerConfig {
	return SystemManagerConfig{
		AppName: "test",
		Surface: metadata.SurfaceDesc{Width: 64, Height: 48, BufferCount: 2, SyncInterval: 1},
		Shader: ShaderSystemConfig{
			Path:        shaderPath,
			VertexEntry: "vs_main",
			PixelEntry:  "ps_main",
			InputLayout: []metadata.InputElement{
				{SemanticName: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float},
			},
		},
		Vertices: []metadata.Vertex{
			metadata.NewVertex(0, 0.5, 0),
			metadata.NewVertex(0.5, -0.5, 0),
			metadata.NewVertex(-0.5, -0.5, 0),
		},
		Indices: []uint16{2, 1, 0},
		Rasterizer: metadata.RasterizerDesc{
			FillMode:              metadata.FillModeSolid,
			CullMode:              metadata.FaceCullModeBack,
			FrontCounterClockwise: true,
		},
		Render: RenderSystemConfig{ClearColor: metadata.Color{0, 0, 0, 0.8}, SyncInterval: 1},
	}
}

func newManager(t *testing.T, src string) (*SystemManager, *headless.Device) {
	t.Helper()
	dev := headless.New()
	sm := NewSystemManager(dev, assets.NewAssetManager(core.NewEventSystem()))
	require.NoError(t, sm.Initialize(testConfig(writeShader(t, src))))
	return sm, dev
}

func TestCompileShaderReflection(t *testing.T) {
	compiled, err := CompileShader(triangleWGSL, "vs_main", "ps_main")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(compiled.Code), 20)
	assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, compiled.Code[:4])
	assert.Equal(t, []metadata.InputElement{
		{SemanticName: "position", Location: 0, Format: metadata.FormatR32G32B32Float},
	}, compiled.Signature)
	require.Len(t, compiled.Uniforms, 1)
	assert.Equal(t, "frame_state", compiled.Uniforms[0].Name)
	assert.Equal(t, uint32(0), compiled.Uniforms[0].Binding)
	assert.Equal(t, uint32(16), compiled.Uniforms[0].Size)
}

func TestCompileShaderFailures(t *testing.T) {
	_, err := CompileShader(brokenWGSL, "vs_main", "ps_main")
	assert.ErrorIs(t, err, core.ErrShaderCompile)

	_, err = CompileShader(triangleWGSL, "vs_main", "fs_main")
	require.ErrorIs(t, err, core.ErrShaderCompile)
	assert.Contains(t, err.Error(), "fs_main")

	// stage mismatch
	_, err = CompileShader(triangleWGSL, "ps_main", "ps_main")
	assert.ErrorIs(t, err, core.ErrShaderCompile)
}

func TestInitializeCreationOrder(t *testing.T) {
	sm, dev := newManager(t, triangleWGSL)

	assert.Equal(t, []string{
		StageDevice, StageSurface, StageShader, StageGeometry, StageFrameState, StageRasterizer, StageRenderer,
	}, sm.Stages())
	assert.Equal(t, []headless.Op{
		headless.OpCreateSurface,
		headless.OpCreateShader,
		headless.OpCreateShader,
		headless.OpCreateInputLayout,
		headless.OpCreateBuffer,
		headless.OpCreateBuffer,
		headless.OpCreateBuffer,
		headless.OpCreateRasterizerState,
	}, headless.Ops(dev.Commands()))

	require.NoError(t, sm.Shutdown())
	assert.Zero(t, dev.LiveResources())
	assert.Empty(t, sm.Stages())
}

func TestInitializeMissingShaderUnwinds(t *testing.T) {
	dev := headless.New()
	sm := NewSystemManager(dev, assets.NewAssetManager(core.NewEventSystem()))

	err := sm.Initialize(testConfig(filepath.Join(t.TempDir(), "missing.wgsl")))
	require.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Zero(t, dev.LiveResources())
	assert.Empty(t, sm.Stages())
}

func TestInitializeMalformedShaderUnwinds(t *testing.T) {
	dev := headless.New()
	sm := NewSystemManager(dev, assets.NewAssetManager(core.NewEventSystem()))

	err := sm.Initialize(testConfig(writeShader(t, brokenWGSL)))
	require.ErrorIs(t, err, core.ErrShaderCompile)
	assert.NotErrorIs(t, err, core.ErrShaderNotFound)
	assert.Zero(t, dev.LiveResources())
}

func TestInitializeDeviceUnavailable(t *testing.T) {
	dev := headless.New()
	dev.FailOn(headless.OpInitialize, core.ErrDeviceUnavailable)
	sm := NewSystemManager(dev, assets.NewAssetManager(core.NewEventSystem()))

	err := sm.Initialize(testConfig(writeShader(t, triangleWGSL)))
	require.ErrorIs(t, err, core.ErrDeviceUnavailable)
	assert.Empty(t, dev.Commands())
}

func TestInitializeLateFailureReleasesEarlierStages(t *testing.T) {
	dev := headless.New()
	dev.FailOn(headless.OpCreateRasterizerState, core.ErrResourceCreation)
	sm := NewSystemManager(dev, assets.NewAssetManager(core.NewEventSystem()))

	err := sm.Initialize(testConfig(writeShader(t, triangleWGSL)))
	require.ErrorIs(t, err, core.ErrResourceCreation)
	assert.Zero(t, dev.LiveResources())
}

func TestDrawFrameProtocol(t *testing.T) {
	sm, dev := newManager(t, triangleWGSL)
	defer sm.Shutdown()

	require.NoError(t, sm.DrawFrame(64, 48))

	assert.Equal(t, []headless.Op{
		headless.OpMap,
		headless.OpUnmap,
		headless.OpClearRenderTarget,
		headless.OpSetViewport,
		headless.OpBindRenderTarget,
		headless.OpBindRasterizerState,
		headless.OpBindConstantBuffer,
		headless.OpSetPrimitiveTopology,
		headless.OpBindInputLayout,
		headless.OpBindVertexShader,
		headless.OpBindPixelShader,
		headless.OpBindVertexBuffer,
		headless.OpBindIndexBuffer,
		headless.OpDrawIndexed,
		headless.OpPresent,
	}, headless.Ops(dev.FrameCommands(0)[8:]))

	frame := dev.FrameCommands(0)[8:]
	assert.Equal(t, metadata.Color{0, 0, 0, 0.8}, frame[2].Color)
	assert.Equal(t, metadata.NewViewport(64, 48), frame[3].Viewport)
	assert.Equal(t, uint32(0), frame[6].Slot)
	assert.Equal(t, metadata.VertexStride, frame[11].Stride)
	assert.Equal(t, uint32(0), frame[11].Offset)
	assert.Equal(t, uint32(3), frame[13].Count)
	assert.Equal(t, uint32(1), frame[14].Count)
	assert.Equal(t, 1, dev.Presents())
	assert.Equal(t, headless.DrawStats{Drawn: 1}, dev.Stats())
}

func TestConstantBufferMatchesHostEveryFrame(t *testing.T) {
	sm, dev := newManager(t, triangleWGSL)
	defer sm.Shutdown()

	nudges := [][2]float32{{0.01, 0}, {0, -0.01}, {-0.01, 0}, {0.01, 0.01}}
	for i, n := range nudges {
		sm.FrameStateSystem.Nudge(n[0], n[1])
		require.NoError(t, sm.DrawFrame(64, 48))

		want := sm.FrameStateSystem.State().Bytes()
		assert.Equal(t, want, dev.BufferContents(sm.FrameStateSystem.Buffer))
		for _, c := range dev.FrameCommands(uint64(i)) {
			if c.Op == headless.OpDrawIndexed || c.Op == headless.OpUnmap {
				assert.Equal(t, want, c.Data)
			}
		}
	}
	assert.Equal(t, len(nudges), dev.Presents())
}

func TestFrameStatePartialWrite(t *testing.T) {
	sm, dev := newManager(t, triangleWGSL)
	defer sm.Shutdown()

	dev.LimitMappedRegion(8)
	assert.ErrorIs(t, sm.DrawFrame(64, 48), core.ErrPartialWrite)
	assert.Zero(t, dev.Presents())
}

func TestViewportFollowsClientSize(t *testing.T) {
	sm, dev := newManager(t, triangleWGSL)
	defer sm.Shutdown()

	require.NoError(t, sm.DrawFrame(64, 48))
	require.NoError(t, sm.DrawFrame(100, 20))

	var viewports []metadata.Viewport
	resized := false
	for _, c := range dev.FrameCommands(1) {
		switch c.Op {
		case headless.OpSetViewport:
			viewports = append(viewports, c.Viewport)
		case headless.OpResize:
			resized = true
		}
	}
	assert.True(t, resized)
	assert.Equal(t, []metadata.Viewport{metadata.NewViewport(100, 20)}, viewports)
	w, h := sm.SurfaceSystem.Surface.Size()
	assert.Equal(t, []uint32{100, 20}, []uint32{w, h})
}

func TestMinimizedWindowSkipsFrame(t *testing.T) {
	sm, dev := newManager(t, triangleWGSL)
	defer sm.Shutdown()

	require.NoError(t, sm.DrawFrame(0, 0))
	assert.Zero(t, dev.Presents())
}

func TestShaderReloadKeepsPreviousOnFailure(t *testing.T) {
	dev := headless.New()
	sm := NewSystemManager(dev, assets.NewAssetManager(core.NewEventSystem()))
	path := writeShader(t, triangleWGSL)
	require.NoError(t, sm.Initialize(testConfig(path)))
	defer sm.Shutdown()

	live := dev.LiveResources()
	vs := sm.ShaderSystem.VertexShader

	require.NoError(t, os.WriteFile(path, []byte(brokenWGSL), 0o644))
	assert.ErrorIs(t, sm.ReloadShaders(), core.ErrShaderCompile)
	assert.Same(t, vs, sm.ShaderSystem.VertexShader)
	assert.Equal(t, live, dev.LiveResources())
	require.NoError(t, sm.DrawFrame(64, 48))

	require.NoError(t, os.WriteFile(path, []byte(triangleWGSL), 0o644))
	require.NoError(t, sm.ReloadShaders())
	assert.NotSame(t, vs, sm.ShaderSystem.VertexShader)
	assert.Equal(t, live, dev.LiveResources())
	require.NoError(t, sm.DrawFrame(64, 48))
}

func TestGeometryRejectsBadIndices(t *testing.T) {
	dev := headless.New()
	gs := NewGeometrySystem(dev)
	verts := []metadata.Vertex{metadata.NewVertex(0, 0, 0)}

	assert.ErrorIs(t, gs.Create(verts, []uint16{0, 0}), core.ErrResourceCreation)
	assert.ErrorIs(t, gs.Create(verts, []uint16{0, 1, 2}), core.ErrResourceCreation)
	assert.Zero(t, dev.LiveResources())
}
