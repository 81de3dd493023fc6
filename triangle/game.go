// Package triangle is the single-triangle scene: one white triangle the
// arrow keys move around the window.
package triangle

import (
	"github.com/spaghettifunk/trigon/engine"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type gameState struct {
	width  uint32
	height uint32
}

// Vertices in clip space. With Indices they wind counter-clockwise.
var Vertices = []metadata.Vertex{
	metadata.NewVertex(0.0, 0.5, 0.0),
	metadata.NewVertex(0.5, -0.5, 0.0),
	metadata.NewVertex(-0.5, -0.5, 0.0),
}

var Indices = []uint16{2, 1, 0}

func Scene() engine.Scene {
	return engine.Scene{
		Vertices: Vertices,
		Indices:  Indices,
		InputLayout: []metadata.InputElement{
			{SemanticName: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float, AlignedByteOffset: 0},
		},
		Rasterizer: metadata.RasterizerDesc{
			FillMode:              metadata.FillModeSolid,
			CullMode:              metadata.FaceCullModeBack,
			FrontCounterClockwise: true,
		},
	}
}

func NewGame(config *engine.ApplicationConfig) *engine.Game {
	state := &gameState{}
	g := &engine.Game{
		ApplicationConfig: config,
		Scene:             Scene(),
		State:             state,
	}
	g.FnInitialize = func() error {
		core.LogDebug("triangle scene: %d vertices, %d indices", len(Vertices), len(Indices))
		return nil
	}
	g.FnOnResize = func(width, height uint32) error {
		state.width, state.height = width, height
		return nil
	}
	return g
}
