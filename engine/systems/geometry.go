package systems

import (
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type GeometrySystem struct {
	Geometry *metadata.Geometry
	backend  renderer.RendererBackend
}

func NewGeometrySystem(backend renderer.RendererBackend) *GeometrySystem {
	return &GeometrySystem{backend: backend}
}

// Create uploads the mesh. Indices must describe whole triangles and stay
// within the vertex range.
func (gs *GeometrySystem) Create(vertices []metadata.Vertex, indices []uint16) error {
	if len(vertices) == 0 || len(indices) == 0 || len(indices)%3 != 0 {
		err := fmt.Errorf("geometry needs vertices and a whole number of triangles (%d vertices, %d indices): %w", len(vertices), len(indices), core.ErrResourceCreation)
		core.LogError(err.Error())
		return err
	}
	if len(vertices) > stdmath.MaxUint16+1 {
		return fmt.Errorf("%d vertices cannot be addressed by 16-bit indices: %w", len(vertices), core.ErrResourceCreation)
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			err := fmt.Errorf("index %d out of range for %d vertices: %w", i, len(vertices), core.ErrResourceCreation)
			core.LogError(err.Error())
			return err
		}
	}

	vb, err := gs.CreateVertexBuffer(vertices)
	if err != nil {
		return err
	}
	ib, err := gs.CreateIndexBuffer(indices)
	if err != nil {
		gs.backend.Release(vb)
		return err
	}
	gs.Geometry = &metadata.Geometry{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexCount:  uint32(len(vertices)),
		IndexCount:   uint32(len(indices)),
		IndexFormat:  metadata.IndexFormatUint16,
	}
	return nil
}

// CreateVertexBuffer creates an immutable vertex buffer seeded with vertices.
func (gs *GeometrySystem) CreateVertexBuffer(vertices []metadata.Vertex) (*metadata.Buffer, error) {
	data := metadata.VerticesBytes(vertices)
	vb, err := gs.backend.CreateBuffer(metadata.BufferDesc{
		ByteWidth: uint32(len(data)),
		Usage:     metadata.UsageImmutable,
		BindFlags: metadata.BindVertexBuffer,
		CPUAccess: metadata.CPUAccessNone,
	}, data)
	if err != nil {
		core.LogError("failed to create vertex buffer: %s", err.Error())
		return nil, err
	}
	return vb, nil
}

// CreateIndexBuffer creates a GPU-resident uint16 index buffer.
func (gs *GeometrySystem) CreateIndexBuffer(indices []uint16) (*metadata.Buffer, error) {
	data := metadata.IndicesBytes(indices)
	ib, err := gs.backend.CreateBuffer(metadata.BufferDesc{
		ByteWidth: uint32(len(data)),
		Usage:     metadata.UsageDefault,
		BindFlags: metadata.BindIndexBuffer,
		CPUAccess: metadata.CPUAccessNone,
	}, data)
	if err != nil {
		core.LogError("failed to create index buffer: %s", err.Error())
		return nil, err
	}
	return ib, nil
}

func (gs *GeometrySystem) Shutdown() error {
	if gs.Geometry == nil {
		return nil
	}
	if err := gs.backend.Release(gs.Geometry.IndexBuffer); err != nil {
		return err
	}
	if err := gs.backend.Release(gs.Geometry.VertexBuffer); err != nil {
		return err
	}
	gs.Geometry = nil
	return nil
}
