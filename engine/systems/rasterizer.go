package systems

import (
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type RasterizerSystem struct {
	State   *metadata.RasterizerState
	backend renderer.RendererBackend
}

func NewRasterizerSystem(backend renderer.RendererBackend) *RasterizerSystem {
	return &RasterizerSystem{backend: backend}
}

func (rs *RasterizerSystem) Create(desc metadata.RasterizerDesc) error {
	s, err := rs.backend.CreateRasterizerState(desc)
	if err != nil {
		core.LogError("failed to create rasterizer state: %s", err.Error())
		return err
	}
	rs.State = s
	return nil
}

func (rs *RasterizerSystem) Shutdown() error {
	if rs.State == nil {
		return nil
	}
	if err := rs.backend.Release(rs.State); err != nil {
		return err
	}
	rs.State = nil
	return nil
}
