package headless

import (
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type Op string

const (
	OpInitialize            Op = "Initialize"
	OpCreateBuffer          Op = "CreateBuffer"
	OpCreateShader          Op = "CreateShader"
	OpCreateInputLayout     Op = "CreateInputLayout"
	OpCreateRasterizerState Op = "CreateRasterizerState"
	OpCreateSurface         Op = "CreateSurface"
	OpResize                Op = "Resize"
	OpMap                   Op = "Map"
	OpUnmap                 Op = "Unmap"
	OpClearRenderTarget     Op = "ClearRenderTarget"
	OpSetViewport           Op = "SetViewport"
	OpBindRenderTarget      Op = "BindRenderTarget"
	OpBindRasterizerState   Op = "BindRasterizerState"
	OpBindConstantBuffer    Op = "BindConstantBuffer"
	OpSetPrimitiveTopology  Op = "SetPrimitiveTopology"
	OpBindInputLayout       Op = "BindInputLayout"
	OpBindVertexShader      Op = "BindVertexShader"
	OpBindPixelShader       Op = "BindPixelShader"
	OpBindVertexBuffer      Op = "BindVertexBuffer"
	OpBindIndexBuffer       Op = "BindIndexBuffer"
	OpDrawIndexed           Op = "DrawIndexed"
	OpPresent               Op = "Present"
)

// Command is one recorded device call. Only the fields relevant to Op are set.
type Command struct {
	Op    Op
	Frame uint64

	Viewport metadata.Viewport
	Color    metadata.Color
	Slot     uint32
	Stride   uint32
	Offset   uint32
	// Count is the index count of a draw or the sync interval of a present.
	Count uint32
	// Data is the buffer contents after an Unmap, or constant buffer slot 0 as seen by a draw.
	Data []byte
}

type DrawStats struct {
	Drawn  int
	Culled int
}

// Ops lists the operations of commands in order.
func Ops(commands []Command) []Op {
	out := make([]Op, len(commands))
	for i, c := range commands {
		out[i] = c.Op
	}
	return out
}
