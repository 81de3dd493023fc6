package metadata

import "fmt"

// Number of constant buffer slots per shader stage.
const MaxConstantBufferSlots uint32 = 14

/**
 * @brief Everything the immediate context holds for the next draw call.
 * Backends update it on every Bind* call and consult Missing before drawing.
 */
type PipelineBindings struct {
	RenderTarget    *RenderTargetView
	Viewport        *Viewport
	Rasterizer      *RasterizerState
	ConstantBuffers [MaxConstantBufferSlots]*Buffer
	Topology        PrimitiveTopology
	InputLayout     *InputLayout
	VertexShader    *ShaderModule
	PixelShader     *ShaderModule
	VertexBuffer    *Buffer
	VertexStride    uint32
	VertexOffset    uint32
	IndexBuffer     *Buffer
	IndexFormat     IndexFormat
}

// Missing names every binding a draw call still needs, in pipeline order.
// The constant buffer slots required are the ones the bound vertex shader reads.
func (b *PipelineBindings) Missing() []string {
	var missing []string
	if b.VertexShader == nil {
		missing = append(missing, "vertex shader")
	}
	if b.PixelShader == nil {
		missing = append(missing, "pixel shader")
	}
	if b.InputLayout == nil {
		missing = append(missing, "input layout")
	}
	if b.VertexBuffer == nil {
		missing = append(missing, "vertex buffer")
	}
	if b.IndexBuffer == nil {
		missing = append(missing, "index buffer")
	}
	if b.VertexShader != nil {
		for _, u := range b.VertexShader.Uniforms {
			if u.Binding >= MaxConstantBufferSlots || b.ConstantBuffers[u.Binding] == nil {
				missing = append(missing, fmt.Sprintf("constant buffer (slot %d)", u.Binding))
			}
		}
	}
	if b.Rasterizer == nil {
		missing = append(missing, "rasterizer state")
	}
	if b.RenderTarget == nil {
		missing = append(missing, "render target")
	}
	if b.Viewport == nil {
		missing = append(missing, "viewport")
	}
	if b.Topology == PrimitiveTopologyUndefined {
		missing = append(missing, "primitive topology")
	}
	return missing
}

// Reset forgets every binding; backends call it when a frame is presented.
func (b *PipelineBindings) Reset() {
	*b = PipelineBindings{}
}
