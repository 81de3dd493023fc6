package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestRasterizationState(t *testing.T) {
	info := rasterizationState(metadata.RasterizerDesc{
		FillMode:              metadata.FillModeSolid,
		CullMode:              metadata.FaceCullModeBack,
		FrontCounterClockwise: true,
	})
	assert.Equal(t, vk.PolygonModeFill, info.PolygonMode)
	assert.Equal(t, vk.FrontFaceCounterClockwise, info.FrontFace)
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), info.CullMode)
	assert.Equal(t, float32(1), info.LineWidth)

	info = rasterizationState(metadata.RasterizerDesc{
		FillMode: metadata.FillModeWireframe,
		CullMode: metadata.FaceCullModeNone,
	})
	assert.Equal(t, vk.PolygonModeLine, info.PolygonMode)
	assert.Equal(t, vk.FrontFaceClockwise, info.FrontFace)
	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), info.CullMode)

	info = rasterizationState(metadata.RasterizerDesc{CullMode: metadata.FaceCullModeFront})
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontBit), info.CullMode)
}

func TestVertexAttributes(t *testing.T) {
	attrs := vertexAttributes([]metadata.InputElement{
		{SemanticName: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float},
	})
	assert.Equal(t, []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
	}, attrs)
}

func TestPipelineKeyUses(t *testing.T) {
	vs, ps, layout, rs := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	key := pipelineKey{vertexShader: vs, pixelShader: ps, inputLayout: layout, rasterizer: rs, stride: 12}

	for _, id := range []uuid.UUID{vs, ps, layout, rs} {
		assert.True(t, key.uses(id))
	}
	assert.False(t, key.uses(uuid.New()))
}

func TestBufferUsage(t *testing.T) {
	assert.Equal(t, vk.BufferUsageVertexBufferBit, bufferUsage(metadata.BindVertexBuffer))
	assert.Equal(t, vk.BufferUsageIndexBufferBit, bufferUsage(metadata.BindIndexBuffer))
	assert.Equal(t, vk.BufferUsageUniformBufferBit, bufferUsage(metadata.BindConstantBuffer))
	assert.Equal(t, vk.BufferUsageVertexBufferBit|vk.BufferUsageIndexBufferBit,
		bufferUsage(metadata.BindVertexBuffer|metadata.BindIndexBuffer))
}
