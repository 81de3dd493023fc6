package metadata

import (
	"github.com/google/uuid"
)

/** @brief Determines how primitives are filled during rasterization. */
type FillMode int

const (
	FillModeSolid FillMode = iota
	FillModeWireframe
)

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

type RasterizerDesc struct {
	FillMode FillMode
	CullMode FaceCullMode
	// FrontCounterClockwise makes counter-clockwise triangles front facing.
	FrontCounterClockwise bool
}

// Culls reports whether a triangle with the given winding is discarded.
func (d RasterizerDesc) Culls(counterClockwise bool) bool {
	front := counterClockwise == d.FrontCounterClockwise
	switch d.CullMode {
	case FaceCullModeBack:
		return !front
	case FaceCullModeFront:
		return front
	case FaceCullModeFrontAndBack:
		return true
	}
	return false
}

type RasterizerState struct {
	ID   uuid.UUID
	Desc RasterizerDesc
	/** @brief Contains internal data for the renderer-API-specific state. */
	InternalData interface{}
}

type Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// NewViewport covers a whole client area with the [0, 1] depth range.
func NewViewport(width, height uint32) Viewport {
	return Viewport{
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

/** @brief An RGBA colour with float components in [0, 1]. */
type Color [4]float32

type PrimitiveTopology int

const (
	PrimitiveTopologyUndefined PrimitiveTopology = iota
	PrimitiveTopologyTriangleList
)

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

func (f IndexFormat) Size() uint32 {
	if f == IndexFormatUint32 {
		return 4
	}
	return 2
}

/** @brief A view of the swapchain image currently accepting rendering. */
type RenderTargetView struct {
	ID         uuid.UUID
	Width      uint32
	Height     uint32
	ImageIndex uint32
	/** @brief Contains internal data for the renderer-API-specific view. */
	InternalData interface{}
}

type SurfaceDesc struct {
	Width  uint32
	Height uint32
	// BufferCount is the minimum number of back buffers.
	BufferCount uint32
	// SyncInterval 0 presents immediately, 1 or more waits for vertical blank.
	SyncInterval uint32
}
