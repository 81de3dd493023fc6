package engine

import (
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// Scene is the static content uploaded once at startup.
type Scene struct {
	Vertices    []metadata.Vertex
	Indices     []uint16
	InputLayout []metadata.InputElement
	Rasterizer  metadata.RasterizerDesc
	// InitialFrameState seeds the per-frame constant buffer.
	InitialFrameState metadata.FrameState
}

type Game struct {
	ApplicationConfig *ApplicationConfig
	Scene             Scene
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
