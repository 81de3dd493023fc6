package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief A pointer to the renderpass to associate with the pipeline. */
	Renderpass *VulkanRenderpass
	/** @brief The stride of the vertex data to be used. */
	Stride uint32
	/** @brief An array of attributes. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief An array of descriptor set layouts. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief The vertex and fragment stages. */
	Stages     []vk.PipelineShaderStageCreateInfo
	Rasterizer metadata.RasterizerDesc
}

func vertexFormat(format metadata.Format) vk.Format {
	switch format {
	case metadata.FormatR32Float:
		return vk.FormatR32Sfloat
	case metadata.FormatR32G32Float:
		return vk.FormatR32g32Sfloat
	case metadata.FormatR32G32B32Float:
		return vk.FormatR32g32b32Sfloat
	case metadata.FormatR32G32B32A32Float:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.FormatR32Uint:
		return vk.FormatR32Uint
	case metadata.FormatR32Sint:
		return vk.FormatR32Sint
	}
	return vk.FormatUndefined
}

// vertexAttributes describes the elements of an input layout fed from binding 0.
func vertexAttributes(elements []metadata.InputElement) []vk.VertexInputAttributeDescription {
	out := make([]vk.VertexInputAttributeDescription, len(elements))
	for i, e := range elements {
		out[i] = vk.VertexInputAttributeDescription{
			Location: e.Location,
			Binding:  0,
			Format:   vertexFormat(e.Format),
			Offset:   e.AlignedByteOffset,
		}
	}
	return out
}

// rasterizationState translates a rasterizer descriptor. Clockwise is the
// front face unless FrontCounterClockwise is set.
func rasterizationState(desc metadata.RasterizerDesc) vk.PipelineRasterizationStateCreateInfo {
	info := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		FrontFace:   vk.FrontFaceClockwise,
		LineWidth:   1.0,
	}
	if desc.FillMode == metadata.FillModeWireframe {
		info.PolygonMode = vk.PolygonModeLine
	}
	if desc.FrontCounterClockwise {
		info.FrontFace = vk.FrontFaceCounterClockwise
	}
	switch desc.CullMode {
	case metadata.FaceCullModeNone:
		info.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		info.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		info.CullMode = vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		info.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	return info
}

// opaqueBlendState writes all four channels without blending.
func opaqueBlendState() vk.PipelineColorBlendStateCreateInfo {
	attachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	return vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{attachment},
	}
}

// NewGraphicsPipeline builds a triangle list pipeline with a dynamic viewport
// and scissor and one per-vertex stream at binding 0.
func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	out := &VulkanPipeline{}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		var layout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); !VulkanResultIsSuccess(res) {
			return vulkanError(core.ErrResourceCreation, "vkCreatePipelineLayout", res)
		}
		out.PipelineLayout = layout
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	rasterization := rasterizationState(config.Rasterizer)
	blend := opaqueBlendState()
	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(config.Stages)),
		PStages:    config.Stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount: 1,
			PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
				Binding:   0,
				Stride:    config.Stride,
				InputRate: vk.VertexInputRateVertex,
			}},
			VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
			PVertexAttributeDescriptions:    config.Attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &rasterization,
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			MinSampleShading:     1.0,
		},
		PColorBlendState: &blend,
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		},
		Layout:             out.PipelineLayout,
		RenderPass:         config.Renderpass.Handle,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, context.Allocator, pipelines)
		if !VulkanResultIsSuccess(res) {
			return vulkanError(core.ErrResourceCreation, "vkCreateGraphicsPipelines", res)
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		out.Destroy(context)
		return nil, err
	}
	if pipelines[0] == vk.NullPipeline {
		out.Destroy(context)
		return nil, fmt.Errorf("vulkan pipeline handle is nil: %w", core.ErrResourceCreation)
	}
	out.Handle = pipelines[0]

	core.LogDebug("graphics pipeline created (stride %d, %d attributes)", config.Stride, len(config.Attributes))
	return out, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) error {
	if pipeline.Handle != vk.NullPipeline {
		if err := lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = vk.NullPipeline
			return nil
		}); err != nil {
			return err
		}
	}
	if pipeline.PipelineLayout != vk.NullPipelineLayout {
		if err := lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
			pipeline.PipelineLayout = vk.NullPipelineLayout
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) error {
	return lockPool.SafeCall(CommandBufferManagement, func() error {
		vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
		return nil
	})
}
