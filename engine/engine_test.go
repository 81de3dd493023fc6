package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

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

// scriptedWindow runs one scripted step per message pump.
type scriptedWindow struct {
	events *core.EventSystem
	input  *core.InputState

	width, height uint32
	pumps         int
	script        map[int]func(w *scriptedWindow)
	started       bool
	closed        bool
}

func (w *scriptedWindow) Startup(name string, x, y, width, height uint32) error {
	w.width, w.height = width, height
	w.started = true
	return nil
}

func (w *scriptedWindow) Shutdown() error {
	w.closed = true
	return nil
}

func (w *scriptedWindow) PumpMessages() {
	w.pumps++
	if fn, ok := w.script[w.pumps]; ok {
		fn(w)
	}
}

func (w *scriptedWindow) RequiredInstanceExtensions() []string { return nil }

func (w *scriptedWindow) CreateWindowSurface(instance interface{}) (uintptr, error) { return 0, nil }

func (w *scriptedWindow) FramebufferSize() (uint32, uint32) { return w.width, w.height }

func (w *scriptedWindow) press(key core.KeyCode, times int) {
	for i := 0; i < times; i++ {
		w.input.ProcessKey(key, true)
	}
	w.input.ProcessKey(key, false)
}

func (w *scriptedWindow) resize(width, height uint32) {
	w.width, w.height = width, height
	w.events.Enqueue(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: width, WindowHeight: height},
	})
}

func testScene() Scene {
	return Scene{
		Vertices: []metadata.Vertex{
			metadata.NewVertex(0, 0.5, 0),
			metadata.NewVertex(0.5, -0.5, 0),
			metadata.NewVertex(-0.5, -0.5, 0),
		},
		Indices: []uint16{2, 1, 0},
		InputLayout: []metadata.InputElement{
			{SemanticName: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float},
		},
		Rasterizer: metadata.RasterizerDesc{
			FillMode:              metadata.FillModeSolid,
			CullMode:              metadata.FaceCullModeBack,
			FrontCounterClockwise: true,
		},
	}
}

func testGameConfig(t *testing.T, shader string) *ApplicationConfig {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Renderer.Backend = "headless"
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Shader.Path = filepath.Join(t.TempDir(), "triangle.wgsl")
	require.NoError(t, os.WriteFile(cfg.Shader.Path, []byte(shader), 0o644))
	return cfg
}

func newTestEngine(t *testing.T, cfg *ApplicationConfig, script map[int]func(w *scriptedWindow)) (*Engine, *scriptedWindow, *headless.Device) {
	t.Helper()
	dev := headless.New()
	var win *scriptedWindow
	e, err := New(&Game{ApplicationConfig: cfg, Scene: testScene()},
		WithBackend(dev),
		WithWindow(func(events *core.EventSystem, input *core.InputState) Window {
			win = &scriptedWindow{events: events, input: input, script: script}
			return win
		}),
	)
	require.NoError(t, err)
	return e, win, dev
}

func TestArrowKeysAccumulateOffset(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, _, dev := newTestEngine(t, cfg, map[int]func(w *scriptedWindow){
		1: func(w *scriptedWindow) { w.press(core.KEY_RIGHT, 3) },
		2: func(w *scriptedWindow) { w.press(core.KEY_UP, 1) },
		3: func(w *scriptedWindow) { w.press(core.KEY_LEFT, 5) },
		4: func(w *scriptedWindow) { w.press(core.KEY_DOWN, 200) },
		5: func(w *scriptedWindow) { w.press(core.KEY_ESCAPE, 1) },
	})
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())

	state := e.Systems().FrameStateSystem.State()
	assert.InDelta(t, -0.02, state.XOffset, 1e-5)
	assert.InDelta(t, -1.99, state.YOffset, 1e-4)
	assert.Equal(t, uint64(4), e.FrameNumber)

	// the constant buffer holds the offset after the events of the last frame
	last, err := metadata.FrameStateFromBytes(dev.BufferContents(e.Systems().FrameStateSystem.Buffer))
	require.NoError(t, err)
	assert.Equal(t, state, last)

	require.NoError(t, e.Shutdown())
	assert.Zero(t, dev.LiveResources())
}

func TestConstantBufferMatchesOffsetPerFrame(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, _, dev := newTestEngine(t, cfg, map[int]func(w *scriptedWindow){
		2: func(w *scriptedWindow) { w.press(core.KEY_RIGHT, 1) },
		3: func(w *scriptedWindow) { w.press(core.KEY_ESCAPE, 1) },
	})
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	defer e.Shutdown()

	drawn := func(frame uint64) metadata.FrameState {
		for _, c := range dev.FrameCommands(frame) {
			if c.Op == headless.OpDrawIndexed {
				fs, err := metadata.FrameStateFromBytes(c.Data)
				require.NoError(t, err)
				return fs
			}
		}
		t.Fatalf("no draw in frame %d", frame)
		return metadata.FrameState{}
	}
	assert.Equal(t, float32(0), drawn(0).XOffset)
	assert.InDelta(t, 0.01, drawn(1).XOffset, 1e-6)
}

func TestEscapeStopsWithinOneIteration(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, win, dev := newTestEngine(t, cfg, map[int]func(w *scriptedWindow){
		1: func(w *scriptedWindow) { w.press(core.KEY_ESCAPE, 1) },
	})
	require.NoError(t, e.Initialize())

	err := e.Run()
	require.NoError(t, err)
	assert.Equal(t, ExitOK, ExitCode(err))
	assert.Equal(t, LoopStopped, e.State())
	assert.Equal(t, 1, win.pumps)
	assert.Zero(t, dev.Presents())

	require.NoError(t, e.Shutdown())
	assert.True(t, win.closed)
}

func TestOnePresentPerFrame(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	cfg.Renderer.Frames = 5
	e, _, dev := newTestEngine(t, cfg, nil)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	defer e.Shutdown()

	assert.Equal(t, 5, dev.Presents())
	for frame := uint64(0); frame < 5; frame++ {
		ops := headless.Ops(dev.FrameCommands(frame))
		presents := 0
		for _, op := range ops {
			if op == headless.OpPresent {
				presents++
			}
		}
		require.Equal(t, 1, presents, "frame %d", frame)
		assert.Equal(t, headless.OpPresent, ops[len(ops)-1])

		clear, draw := -1, -1
		for i, op := range ops {
			switch op {
			case headless.OpClearRenderTarget:
				clear = i
			case headless.OpDrawIndexed:
				draw = i
			}
		}
		assert.True(t, clear >= 0 && clear < draw, "frame %d: %v", frame, ops)
	}
	assert.Equal(t, 5, dev.Stats().Drawn)
}

func TestResizeChangesViewportNextFrame(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	cfg.Renderer.Frames = 2
	var resized []uint32
	dev := headless.New()
	g := &Game{
		ApplicationConfig: cfg,
		Scene:             testScene(),
		FnOnResize: func(width, height uint32) error {
			resized = append(resized, width, height)
			return nil
		},
	}
	e, err := New(g, WithBackend(dev), WithWindow(func(events *core.EventSystem, input *core.InputState) Window {
		return &scriptedWindow{events: events, input: input, script: map[int]func(w *scriptedWindow){
			2: func(w *scriptedWindow) { w.resize(32, 24) },
		}}
	}))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	defer e.Shutdown()

	viewport := func(frame uint64) metadata.Viewport {
		for _, c := range dev.FrameCommands(frame) {
			if c.Op == headless.OpSetViewport {
				return c.Viewport
			}
		}
		t.Fatalf("no viewport in frame %d", frame)
		return metadata.Viewport{}
	}
	assert.Equal(t, metadata.NewViewport(64, 48), viewport(0))
	assert.Equal(t, metadata.NewViewport(32, 24), viewport(1))
	assert.Equal(t, []uint32{64, 48, 32, 24}, resized)
}

func TestMinimizedWindowSuspendsRendering(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, _, dev := newTestEngine(t, cfg, map[int]func(w *scriptedWindow){
		1: func(w *scriptedWindow) { w.resize(0, 0) },
		3: func(w *scriptedWindow) { w.resize(64, 48) },
		4: func(w *scriptedWindow) { w.press(core.KEY_ESCAPE, 1) },
	})
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	defer e.Shutdown()

	assert.Equal(t, 1, dev.Presents())
}

func TestBrokenShaderFailsStartup(t *testing.T) {
	cfg := testGameConfig(t, "@vertex fn vs_main( -> {")
	e, win, dev := newTestEngine(t, cfg, nil)

	err := e.Initialize()
	require.Error(t, err)
	assert.Equal(t, ExitShader, ExitCode(err))
	assert.True(t, win.closed)
	assert.Zero(t, dev.LiveResources())
}

func TestMissingShaderFailsStartup(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	cfg.Shader.Path = filepath.Join(t.TempDir(), "missing.wgsl")
	e, win, _ := newTestEngine(t, cfg, nil)

	err := e.Initialize()
	assert.ErrorIs(t, err, core.ErrShaderNotFound)
	assert.Equal(t, ExitShader, ExitCode(err))
	assert.True(t, win.closed)
}

func TestDeviceFailureMapsToExitCode(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, win, dev := newTestEngine(t, cfg, nil)
	dev.FailOn(headless.OpInitialize, core.ErrDeviceUnavailable)

	err := e.Initialize()
	assert.Equal(t, ExitDevice, ExitCode(err))
	assert.True(t, win.closed)
}

func TestDrawFailureStopsLoop(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, _, dev := newTestEngine(t, cfg, nil)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()
	dev.FailOn(headless.OpDrawIndexed, core.ErrIncompleteBindings)

	err := e.Run()
	assert.ErrorIs(t, err, core.ErrIncompleteBindings)
	assert.Equal(t, ExitRuntime, ExitCode(err))
	assert.Zero(t, dev.Presents())
}

func TestHeadlessCapture(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	cfg.Renderer.Frames = 1
	cfg.Renderer.Capture = filepath.Join(t.TempDir(), "frame.png")
	e, _, _ := newTestEngine(t, cfg, nil)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	defer e.Shutdown()

	info, err := os.Stat(cfg.Renderer.Capture)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestShaderChangeReloads(t *testing.T) {
	cfg := testGameConfig(t, triangleWGSL)
	e, _, _ := newTestEngine(t, cfg, nil)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	before := e.Systems().ShaderSystem.VertexShader
	abs, err := filepath.Abs(cfg.Shader.Path)
	require.NoError(t, err)
	e.Events().Enqueue(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: &core.AssetEvent{Path: abs}})
	e.Events().Drain()
	assert.NotSame(t, before, e.Systems().ShaderSystem.VertexShader)

	// a broken edit keeps the previous pipeline
	require.NoError(t, os.WriteFile(cfg.Shader.Path, []byte("broken"), 0o644))
	current := e.Systems().ShaderSystem.VertexShader
	e.Events().Enqueue(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: &core.AssetEvent{Path: abs}})
	e.Events().Drain()
	assert.Same(t, current, e.Systems().ShaderSystem.VertexShader)
}

func TestNewRejectsEmptyScene(t *testing.T) {
	_, err := New(&Game{ApplicationConfig: DefaultConfig()})
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{fmt.Errorf("load: %w", core.ErrShaderNotFound), 1},
		{fmt.Errorf("compile: %w", core.ErrShaderCompile), 1},
		{fmt.Errorf("glfw: %w", core.ErrWindowCreation), 2},
		{fmt.Errorf("vulkan: %w", core.ErrDeviceUnavailable), 3},
		{fmt.Errorf("toml: %w", core.ErrConfig), 4},
		{fmt.Errorf("draw: %w", core.ErrIncompleteBindings), 5},
		{errors.New("boom"), 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, ExitCode(tt.err), "%v", tt.err)
	}
}
