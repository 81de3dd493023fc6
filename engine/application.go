package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
)

// DefaultConfigPath is read when no -config flag is given. It may be absent.
const DefaultConfigPath = "trigon.toml"

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	PosX uint32 `toml:"pos_x"`
	PosY uint32 `toml:"pos_y"`
	// Window starting size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	Backend string `toml:"backend"`
	// VSync is the present interval in vertical blanks, 0 presents immediately.
	// The vulkan backend waits at most one blank per present.
	VSync      uint32     `toml:"vsync"`
	ClearColor [4]float32 `toml:"clear_color"`
	Validation bool       `toml:"validation"`
	// Frames stops a headless run after this many frames. 0 runs until quit.
	Frames uint64 `toml:"frames"`
	// Capture is the PNG path the last headless frame is written to.
	Capture string `toml:"capture"`
}

type ShaderConfig struct {
	Path        string `toml:"path"`
	VertexEntry string `toml:"vertex_entry"`
	PixelEntry  string `toml:"pixel_entry"`
	HotReload   bool   `toml:"hot_reload"`
}

type InputConfig struct {
	// Step is the offset applied per arrow key press.
	Step float32 `toml:"step"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shader   ShaderConfig   `toml:"shader"`
	Input    InputConfig    `toml:"input"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:   "Direct 3D Triangle",
			PosX:   100,
			PosY:   100,
			Width:  1024,
			Height: 768,
		},
		Renderer: RendererConfig{
			Backend:    renderer.Vulkan.String(),
			VSync:      1,
			ClearColor: [4]float32{0, 0, 0, 0.8},
		},
		Shader: ShaderConfig{
			Path:        "assets/shaders/triangle.wgsl",
			VertexEntry: "vs_main",
			PixelEntry:  "ps_main",
		},
		Input: InputConfig{Step: 0.01},
		Log:   LogConfig{Level: "info"},
	}
}

// LoadConfig decodes path over the defaults. A missing file is only an
// error when required is set.
func LoadConfig(path string, required bool) (*ApplicationConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			core.LogDebug("no config at '%s', using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config '%s': %s: %w", path, err, core.ErrConfig)
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes TOML data into cfg, rejecting unknown keys, and
// validates the result.
func ParseConfig(data []byte, cfg *ApplicationConfig) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s: %w", strict.String(), core.ErrConfig)
		}
		return fmt.Errorf("%s: %w", err, core.ErrConfig)
	}
	return cfg.Validate()
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d must be positive: %w", c.Window.Width, c.Window.Height, core.ErrConfig)
	}
	if _, err := renderer.ParseRendererType(c.Renderer.Backend); err != nil {
		return fmt.Errorf("renderer.backend: %s: %w", err, core.ErrConfig)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("renderer.clear_color[%d] = %g is outside [0, 1]: %w", i, v, core.ErrConfig)
		}
	}
	if c.Renderer.VSync > 4 {
		return fmt.Errorf("renderer.vsync %d is above 4: %w", c.Renderer.VSync, core.ErrConfig)
	}
	if c.Shader.Path == "" || c.Shader.VertexEntry == "" || c.Shader.PixelEntry == "" {
		return fmt.Errorf("shader path and entry points are required: %w", core.ErrConfig)
	}
	if c.Input.Step <= 0 {
		return fmt.Errorf("input.step %g must be positive: %w", c.Input.Step, core.ErrConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %s: %w", err, core.ErrConfig)
	}
	return nil
}

func (c *ApplicationConfig) RendererType() renderer.RendererType {
	t, _ := renderer.ParseRendererType(c.Renderer.Backend)
	return t
}
