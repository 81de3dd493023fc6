package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Direct 3D Triangle", cfg.Window.Name)
	assert.Equal(t, uint32(1024), cfg.Window.Width)
	assert.Equal(t, uint32(768), cfg.Window.Height)
	assert.Equal(t, renderer.Vulkan, cfg.RendererType())
	assert.Equal(t, uint32(1), cfg.Renderer.VSync)
	assert.Equal(t, [4]float32{0, 0, 0, 0.8}, cfg.Renderer.ClearColor)
	assert.Equal(t, "vs_main", cfg.Shader.VertexEntry)
	assert.Equal(t, "ps_main", cfg.Shader.PixelEntry)
	assert.Equal(t, float32(0.01), cfg.Input.Step)
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigon.toml")

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = LoadConfig(path, true)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigon.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
width = 640
height = 480

[renderer]
backend = "headless"
frames = 3
clear_color = [0.1, 0.2, 0.3, 1.0]

[input]
step = 0.05
`), 0o644))

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(640), cfg.Window.Width)
	assert.Equal(t, "Direct 3D Triangle", cfg.Window.Name)
	assert.Equal(t, renderer.Headless, cfg.RendererType())
	assert.Equal(t, uint64(3), cfg.Renderer.Frames)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1.0}, cfg.Renderer.ClearColor)
	assert.Equal(t, uint32(1), cfg.Renderer.VSync)
	assert.Equal(t, float32(0.05), cfg.Input.Step)
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown key", "[window]\ntitle = \"x\"\n"},
		{"unknown table", "[audio]\nvolume = 1\n"},
		{"malformed", "[window\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"backend", "[renderer]\nbackend = \"d3d11\"\n"},
		{"clear colour", "[renderer]\nclear_color = [0, 0, 2, 1]\n"},
		{"vsync", "[renderer]\nvsync = 5\n"},
		{"entry point", "[shader]\nvertex_entry = \"\"\n"},
		{"step", "[input]\nstep = 0\n"},
		{"log level", "[log]\nlevel = \"loud\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseConfig([]byte(tt.toml), DefaultConfig())
			assert.ErrorIs(t, err, core.ErrConfig)
			assert.Equal(t, ExitConfig, ExitCode(err))
		})
	}
}
