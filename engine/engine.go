package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/platform"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/headless"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/spaghettifunk/trigon/engine/systems"
)

type LoopState uint8

const (
	// Loop is iterating frames
	LoopRunning LoopState = iota
	// Loop received a quit request or hit its frame budget
	LoopStopped
)

// How long a suspended (minimised) loop waits between message pumps.
const suspendedPollInterval = 16 * time.Millisecond

// Window is the OS window the engine drives.
type Window interface {
	renderer.Window
	Startup(applicationName string, x, y, width, height uint32) error
	PumpMessages()
	Shutdown() error
}

// WindowFactory builds the window once the event system exists.
type WindowFactory func(events *core.EventSystem, input *core.InputState) Window

type Option func(*Engine)

func WithWindow(factory WindowFactory) Option {
	return func(e *Engine) {
		e.window = factory(e.events, e.input)
	}
}

func WithBackend(backend renderer.RendererBackend) Option {
	return func(e *Engine) {
		e.backend = backend
	}
}

type Engine struct {
	state        LoopState
	gameInstance *Game
	config       *ApplicationConfig
	frameBudget  uint64

	events        *core.EventSystem
	input         *core.InputState
	window        Window
	backend       renderer.RendererBackend
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	controller    *InputController

	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64

	// FrameNumber counts presented frames.
	FrameNumber uint64
}

func New(g *Game, opts ...Option) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultConfig()
	}
	cfg := g.ApplicationConfig
	if err := cfg.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if len(g.Scene.Vertices) == 0 || len(g.Scene.Indices) == 0 {
		err := fmt.Errorf("game has no geometry: %w", core.ErrConfig)
		core.LogError(err.Error())
		return nil, err
	}

	events := core.NewEventSystem()
	e := &Engine{
		state:        LoopRunning,
		gameInstance: g,
		config:       cfg,
		frameBudget:  cfg.Renderer.Frames,
		events:       events,
		input:        core.NewInputState(events),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.window == nil {
		if cfg.RendererType() == renderer.Headless {
			e.window = headless.NewWindow(events)
		} else {
			e.window = platform.New(events, e.input)
		}
	}
	if e.backend == nil {
		e.backend = NewRendererBackend(cfg.RendererType(), cfg.Renderer.Validation)
	}
	e.assetManager = assets.NewAssetManager(events)
	e.systemManager = systems.NewSystemManager(e.backend, e.assetManager)
	return e, nil
}

func (e *Engine) Initialize() error {
	cfg := e.config
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%s: %w", err, core.ErrConfig)
	}

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	if err := e.window.Startup(cfg.Window.Name, cfg.Window.PosX, cfg.Window.PosY, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}

	width, height := e.window.FramebufferSize()
	if width == 0 || height == 0 {
		width, height = cfg.Window.Width, cfg.Window.Height
	}
	scene := e.gameInstance.Scene
	if err := e.systemManager.Initialize(systems.SystemManagerConfig{
		AppName: cfg.Window.Name,
		Window:  e.window,
		Surface: metadata.SurfaceDesc{
			Width:        width,
			Height:       height,
			BufferCount:  2,
			SyncInterval: cfg.Renderer.VSync,
		},
		Shader: systems.ShaderSystemConfig{
			Path:        cfg.Shader.Path,
			VertexEntry: cfg.Shader.VertexEntry,
			PixelEntry:  cfg.Shader.PixelEntry,
			InputLayout: scene.InputLayout,
		},
		Vertices:          scene.Vertices,
		Indices:           scene.Indices,
		InitialFrameState: scene.InitialFrameState,
		Rasterizer:        scene.Rasterizer,
		Render: systems.RenderSystemConfig{
			ClearColor:   metadata.Color(cfg.Renderer.ClearColor),
			SyncInterval: cfg.Renderer.VSync,
		},
	}); err != nil {
		// no window may outlive a failed startup
		_ = e.assetManager.Shutdown()
		_ = e.window.Shutdown()
		return err
	}

	e.controller = NewInputController(e.events, cfg.Input.Step, e.systemManager.FrameStateSystem)
	e.controller.Register()

	if cfg.Shader.HotReload {
		if err := e.assetManager.Watch(cfg.Shader.Path); err != nil {
			core.LogWarn("shader hot reload disabled: %s", err.Error())
		}
	}

	if err := e.initializeGame(width, height); err != nil {
		core.LogError("game initialization failed: %s", err.Error())
		_ = e.Shutdown()
		return err
	}
	core.LogInfo("engine initialized (%s backend)", cfg.RendererType())
	return nil
}

func (e *Engine) initializeGame(width, height uint32) error {
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(width, height)
	}
	return nil
}

// Run iterates frames until a quit request, the frame budget or the first
// error. A quit returns nil.
func (e *Engine) Run() error {
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.state == LoopRunning {
		e.window.PumpMessages()
		e.events.Drain()
		if e.state != LoopRunning {
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed: %s", err.Error())
				return err
			}
		}

		width, height := e.window.FramebufferSize()
		if width == 0 || height == 0 {
			e.input.Update()
			time.Sleep(suspendedPollInterval)
			continue
		}

		if err := e.systemManager.DrawFrame(width, height); err != nil {
			if !errors.Is(err, core.ErrSwapchainBooting) {
				return err
			}
			core.LogDebug("frame skipped: %s", err.Error())
		} else {
			e.FrameNumber++
		}

		if e.metrics.Update(delta) {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.3f ms/frame, offset %+v", fps, frameTime, e.systemManager.FrameStateSystem.State())
		}
		e.input.Update()

		if e.frameBudget > 0 && e.FrameNumber >= e.frameBudget {
			core.LogInfo("frame budget of %d reached", e.frameBudget)
			e.state = LoopStopped
		}
	}
	return e.capture()
}

func (e *Engine) capture() error {
	path := e.config.Renderer.Capture
	if path == "" {
		return nil
	}
	dev, ok := e.backend.(*headless.Device)
	if !ok || dev.Surface() == nil {
		core.LogWarn("capture '%s' needs the headless backend", path)
		return nil
	}
	if dev.Surface().LastFrame() == nil {
		core.LogWarn("no frame presented, skipping capture '%s'", path)
		return nil
	}
	if err := dev.Surface().SaveFrame(path); err != nil {
		core.LogError("failed to write capture '%s': %s", path, err.Error())
		return err
	}
	core.LogInfo("last frame written to '%s'", path)
	return nil
}

// Stop ends the loop after the current iteration.
func (e *Engine) Stop() {
	e.events.Enqueue(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

func (e *Engine) State() LoopState {
	return e.state
}

func (e *Engine) Events() *core.EventSystem {
	return e.events
}

func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Shutdown() error {
	var errs []error
	if e.controller != nil {
		e.controller.Unregister()
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.systemManager.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := e.assetManager.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := e.window.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := e.events.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) onQuit(context core.EventContext) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.state = LoopStopped
	return true
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		return false
	}
	core.LogDebug("window resize: %d, %d", se.WindowWidth, se.WindowHeight)
	if se.WindowWidth == 0 || se.WindowHeight == 0 {
		core.LogDebug("window minimized, suspending rendering.")
		return true
	}
	if err := e.systemManager.OnResize(se.WindowWidth, se.WindowHeight); err != nil && !errors.Is(err, core.ErrSwapchainBooting) {
		core.LogError("resize failed: %s", err.Error())
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(se.WindowWidth, se.WindowHeight); err != nil {
			core.LogError("game resize failed: %s", err.Error())
		}
	}
	return false
}

func (e *Engine) onAssetChanged(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		return false
	}
	shader, err := filepath.Abs(e.config.Shader.Path)
	if err != nil || shader != ae.Path {
		return false
	}
	core.LogInfo("shader '%s' changed, reloading", ae.Path)
	if err := e.systemManager.ReloadShaders(); err != nil {
		core.LogWarn("keeping the previous shaders: %s", err.Error())
	}
	return true
}
