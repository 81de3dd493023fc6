package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func shaderStageFlag(stage metadata.ShaderStage) vk.ShaderStageFlagBits {
	if stage == metadata.ShaderStagePixel {
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageVertexBit
}

// NewShaderModule creates a shader module from little endian SPIR-V words.
func NewShaderModule(context *VulkanContext, stage metadata.ShaderStage, entryPoint string, code []byte) (*VulkanShaderStage, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%s shader code is %d bytes, not whole SPIR-V words: %w", stage, len(code), core.ErrResourceCreation)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}

	out := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &out.Handle); res != vk.Success {
		err := vulkanError(core.ErrResourceCreation, "vkCreateShaderModule", res)
		core.LogError(err.Error())
		return nil, err
	}

	// Shader stage info
	out.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  shaderStageFlag(stage),
		Module: out.Handle,
		PName:  VulkanSafeString(entryPoint),
	}
	return out, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
