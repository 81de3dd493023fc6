package triangle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/trigon/engine"
	"github.com/spaghettifunk/trigon/engine/renderer/headless"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedArea is positive for counter-clockwise winding in clip space.
func signedArea(vertices []metadata.Vertex, indices []uint16) float32 {
	a := vertices[indices[0]].Position
	b := vertices[indices[1]].Position
	c := vertices[indices[2]].Position
	return (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
}

func TestSceneWindsCounterClockwise(t *testing.T) {
	s := Scene()
	require.Len(t, s.Indices, 3)
	assert.Positive(t, signedArea(s.Vertices, s.Indices))
	assert.True(t, s.Rasterizer.FrontCounterClockwise)
	assert.Equal(t, metadata.FaceCullModeBack, s.Rasterizer.CullMode)
	assert.Equal(t, metadata.VertexStride, metadata.InputLayoutStride(s.InputLayout))
}

func TestShippedShaderMatchesLayout(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Shader.Path = filepath.Join("..", cfg.Shader.Path)

	signature, err := engine.CheckShader(cfg.Shader)
	require.NoError(t, err)
	require.NoError(t, metadata.ValidateInputLayout(Scene().InputLayout, signature))
}

func TestHeadlessRunDrawsTriangle(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Renderer.Backend = "headless"
	cfg.Renderer.Frames = 3
	cfg.Renderer.Capture = filepath.Join(t.TempDir(), "frame.png")
	cfg.Window.Width, cfg.Window.Height = 128, 96
	cfg.Shader.Path = filepath.Join("..", cfg.Shader.Path)

	dev := headless.New()
	g := NewGame(cfg)
	e, err := engine.New(g, engine.WithBackend(dev))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())

	assert.Equal(t, 3, dev.Presents())
	assert.Equal(t, headless.DrawStats{Drawn: 3}, dev.Stats())
	assert.Equal(t, &gameState{width: 128, height: 96}, g.State)

	// the centre of the triangle is white, a corner keeps the clear colour
	frame := dev.Surface().LastFrame()
	require.NotNil(t, frame)
	assert.Equal(t, uint8(255), frame.RGBAAt(64, 48).R)
	assert.Equal(t, uint8(0), frame.RGBAAt(1, 1).R)

	_, err = os.Stat(cfg.Renderer.Capture)
	assert.NoError(t, err)

	require.NoError(t, e.Shutdown())
	assert.Zero(t, dev.LiveResources())
}
