package vulkan

import (
	"fmt"
	stdmath "math"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// pipelineKey identifies the state baked into a graphics pipeline.
type pipelineKey struct {
	vertexShader uuid.UUID
	pixelShader  uuid.UUID
	inputLayout  uuid.UUID
	rasterizer   uuid.UUID
	stride       uint32
}

func (k pipelineKey) uses(id uuid.UUID) bool {
	return k.vertexShader == id || k.pixelShader == id || k.inputLayout == id || k.rasterizer == id
}

type cachedPipeline struct {
	pipeline *VulkanPipeline
	sets     *VulkanDescriptorSets
	// constant buffers last written into each frame's descriptor set
	written [MaxFramesInFlight][metadata.MaxConstantBufferSlots]*metadata.Buffer
}

func (cp *cachedPipeline) destroy(context *VulkanContext) {
	if cp.pipeline != nil {
		cp.pipeline.Destroy(context)
	}
	if cp.sets != nil {
		cp.sets.Destroy(context)
	}
}

func (vr *VulkanRenderer) pipelineFor() (*cachedPipeline, error) {
	b := &vr.bindings
	key := pipelineKey{
		vertexShader: b.VertexShader.ID,
		pixelShader:  b.PixelShader.ID,
		inputLayout:  b.InputLayout.ID,
		rasterizer:   b.Rasterizer.ID,
		stride:       b.VertexStride,
	}
	if cp, ok := vr.pipelines[key]; ok {
		return cp, nil
	}

	vs, ok := b.VertexShader.InternalData.(*VulkanShaderStage)
	if !ok {
		return nil, fmt.Errorf("vertex shader %s was not created by this device: %w", b.VertexShader.ID, core.ErrUnknown)
	}
	ps, ok := b.PixelShader.InternalData.(*VulkanShaderStage)
	if !ok {
		return nil, fmt.Errorf("pixel shader %s was not created by this device: %w", b.PixelShader.ID, core.ErrUnknown)
	}
	attributes, _ := b.InputLayout.InternalData.([]vk.VertexInputAttributeDescription)

	sets, err := NewDescriptorSets(vr.context, uniformSlots(b.VertexShader.Uniforms, b.PixelShader.Uniforms))
	if err != nil {
		return nil, err
	}
	config := &VulkanPipelineConfig{
		Renderpass: vr.context.MainRenderpass,
		Stride:     b.VertexStride,
		Attributes: attributes,
		Stages:     []vk.PipelineShaderStageCreateInfo{vs.ShaderStageCreateInfo, ps.ShaderStageCreateInfo},
		Rasterizer: b.Rasterizer.Desc,
	}
	if sets.Layout != vk.NullDescriptorSetLayout {
		config.DescriptorSetLayouts = []vk.DescriptorSetLayout{sets.Layout}
	}
	pipeline, err := NewGraphicsPipeline(vr.context, config)
	if err != nil {
		sets.Destroy(vr.context)
		return nil, err
	}
	cp := &cachedPipeline{pipeline: pipeline, sets: sets}
	vr.pipelines[key] = cp
	return cp, nil
}

// Map waits until the GPU is done with the current frame slot and maps that
// slot's copy of the buffer.
func (vr *VulkanRenderer) Map(buffer *metadata.Buffer, mode metadata.MapMode) ([]byte, error) {
	if !buffer.Desc.Mappable() {
		return nil, fmt.Errorf("map of %s buffer: %w", buffer.Desc.Usage, core.ErrBufferNotMappable)
	}
	vb, ok := buffer.InternalData.(*VulkanBuffer)
	if !ok || vb.Handles == nil {
		return nil, fmt.Errorf("buffer %s: %w", buffer.ID, core.ErrResourceReleased)
	}
	ctx := vr.context
	if err := ctx.InFlightFences[ctx.CurrentFrame].FenceWait(ctx, stdmath.MaxUint64); err != nil {
		return nil, err
	}
	return vb.Map(ctx, ctx.CurrentFrame)
}

func (vr *VulkanRenderer) Unmap(buffer *metadata.Buffer) error {
	vb, ok := buffer.InternalData.(*VulkanBuffer)
	if !ok || vb.Handles == nil {
		return fmt.Errorf("buffer %s: %w", buffer.ID, core.ErrResourceReleased)
	}
	return vb.Unmap(vr.context)
}

func (vr *VulkanRenderer) currentView(view *metadata.RenderTargetView) (*VulkanCommandBuffer, error) {
	if view == nil {
		return nil, fmt.Errorf("nil render target: %w", core.ErrIncompleteBindings)
	}
	if !vr.frameActive || vr.surface == nil || vr.surface.view == nil || vr.surface.view.ID != view.ID {
		return nil, fmt.Errorf("render target %s is not the current back buffer: %w", view.ID, core.ErrUnknown)
	}
	return vr.context.GraphicsCommandBuffers[vr.context.CurrentFrame], nil
}

// ClearRenderTarget clears through the render pass load op when the pass
// has not started yet, and with vkCmdClearAttachments inside it.
func (vr *VulkanRenderer) ClearRenderTarget(view *metadata.RenderTargetView, color metadata.Color) error {
	cb, err := vr.currentView(view)
	if err != nil {
		return err
	}
	ctx := vr.context
	rp := ctx.MainRenderpass
	rp.R, rp.G, rp.B, rp.A = color[0], color[1], color[2], color[3]
	if cb.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		fb := view.InternalData.(*VulkanFramebuffer)
		rp.RenderpassBegin(cb, fb.Handle)
		return nil
	}
	vk.CmdClearAttachments(cb.Handle, 1, []vk.ClearAttachment{{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      vk.NewClearValue(color[:]),
	}}, 1, []vk.ClearRect{{
		Rect: vk.Rect2D{
			Extent: vk.Extent2D{Width: view.Width, Height: view.Height},
		},
		BaseArrayLayer: 0,
		LayerCount:     1,
	}})
	return nil
}

func (vr *VulkanRenderer) SetViewport(viewport metadata.Viewport) error {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return fmt.Errorf("viewport %gx%g: %w", viewport.Width, viewport.Height, core.ErrUnknown)
	}
	vr.bindings.Viewport = &viewport
	return nil
}

func (vr *VulkanRenderer) BindRenderTarget(view *metadata.RenderTargetView) error {
	if _, err := vr.currentView(view); err != nil {
		return err
	}
	vr.bindings.RenderTarget = view
	return nil
}

func (vr *VulkanRenderer) BindRasterizerState(state *metadata.RasterizerState) error {
	vr.bindings.Rasterizer = state
	return nil
}

// BindConstantBuffer binds into the single slot table shared by both stages.
func (vr *VulkanRenderer) BindConstantBuffer(stage metadata.ShaderStage, slot uint32, buffer *metadata.Buffer) error {
	if slot >= metadata.MaxConstantBufferSlots {
		return fmt.Errorf("%s constant buffer slot %d: %w", stage, slot, core.ErrInvalidSlot)
	}
	if buffer != nil && buffer.Desc.BindFlags&metadata.BindConstantBuffer == 0 {
		return fmt.Errorf("buffer %s is not a constant buffer: %w", buffer.ID, core.ErrInvalidSlot)
	}
	vr.bindings.ConstantBuffers[slot] = buffer
	return nil
}

func (vr *VulkanRenderer) SetPrimitiveTopology(topology metadata.PrimitiveTopology) error {
	if topology != metadata.PrimitiveTopologyTriangleList {
		return fmt.Errorf("unsupported primitive topology %d: %w", topology, core.ErrUnknown)
	}
	vr.bindings.Topology = topology
	return nil
}

func (vr *VulkanRenderer) BindInputLayout(layout *metadata.InputLayout) error {
	vr.bindings.InputLayout = layout
	return nil
}

func (vr *VulkanRenderer) BindVertexShader(shader *metadata.ShaderModule) error {
	if shader != nil && shader.Stage != metadata.ShaderStageVertex {
		return fmt.Errorf("%s shader bound as vertex shader: %w", shader.Stage, core.ErrUnknown)
	}
	vr.bindings.VertexShader = shader
	return nil
}

func (vr *VulkanRenderer) BindPixelShader(shader *metadata.ShaderModule) error {
	if shader != nil && shader.Stage != metadata.ShaderStagePixel {
		return fmt.Errorf("%s shader bound as pixel shader: %w", shader.Stage, core.ErrUnknown)
	}
	vr.bindings.PixelShader = shader
	return nil
}

func (vr *VulkanRenderer) BindVertexBuffer(buffer *metadata.Buffer, stride, offset uint32) error {
	if buffer != nil && buffer.Desc.BindFlags&metadata.BindVertexBuffer == 0 {
		return fmt.Errorf("buffer %s is not a vertex buffer: %w", buffer.ID, core.ErrInvalidSlot)
	}
	vr.bindings.VertexBuffer = buffer
	vr.bindings.VertexStride = stride
	vr.bindings.VertexOffset = offset
	return nil
}

func (vr *VulkanRenderer) BindIndexBuffer(buffer *metadata.Buffer, format metadata.IndexFormat) error {
	if buffer != nil && buffer.Desc.BindFlags&metadata.BindIndexBuffer == 0 {
		return fmt.Errorf("buffer %s is not an index buffer: %w", buffer.ID, core.ErrInvalidSlot)
	}
	vr.bindings.IndexBuffer = buffer
	vr.bindings.IndexFormat = format
	return nil
}

func (vr *VulkanRenderer) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	b := &vr.bindings
	if missing := b.Missing(); len(missing) > 0 {
		return fmt.Errorf("draw with unbound %s: %w", strings.Join(missing, ", "), core.ErrIncompleteBindings)
	}
	cb, err := vr.currentView(b.RenderTarget)
	if err != nil {
		return err
	}
	cp, err := vr.pipelineFor()
	if err != nil {
		core.LogError("failed to build the graphics pipeline: %s", err.Error())
		return err
	}

	ctx := vr.context
	frame := ctx.CurrentFrame
	if cp.written[frame] != b.ConstantBuffers {
		if err := cp.sets.Update(ctx, frame, &b.ConstantBuffers); err != nil {
			return err
		}
		cp.written[frame] = b.ConstantBuffers
	}

	if cb.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		ctx.MainRenderpass.RenderpassBegin(cb, b.RenderTarget.InternalData.(*VulkanFramebuffer).Handle)
	}
	if err := cp.pipeline.Bind(cb, vk.PipelineBindPointGraphics); err != nil {
		return err
	}

	// Flip Y so clip space points up as in the vertex data.
	v := b.Viewport
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{{
		X:        v.TopLeftX,
		Y:        v.TopLeftY + v.Height,
		Width:    v.Width,
		Height:   -v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{{
		Extent: vk.Extent2D{Width: b.RenderTarget.Width, Height: b.RenderTarget.Height},
	}})
	cp.sets.Bind(cb, cp.pipeline.PipelineLayout, frame)

	vb := b.VertexBuffer.InternalData.(*VulkanBuffer)
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vb.Handle(frame)}, []vk.DeviceSize{vk.DeviceSize(b.VertexOffset)})

	indexType := vk.IndexTypeUint16
	if b.IndexFormat == metadata.IndexFormatUint32 {
		indexType = vk.IndexTypeUint32
	}
	ib := b.IndexBuffer.InternalData.(*VulkanBuffer)
	vk.CmdBindIndexBuffer(cb.Handle, ib.Handle(frame), 0, indexType)

	vk.CmdDrawIndexed(cb.Handle, indexCount, 1, startIndex, baseVertex, 0)
	return nil
}
