package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

/**
 * @brief The uniform blocks of set 0 for one pipeline, with one descriptor
 * set per frame in flight.
 */
type VulkanDescriptorSets struct {
	/** @brief Binding slots, in the order they are written. */
	Slots  []uint32
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Sets   [MaxFramesInFlight]vk.DescriptorSet
}

// uniformSlots merges the uniform blocks of both stages, keeping the first
// occurrence of each binding.
func uniformSlots(stages ...[]metadata.UniformBinding) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for _, uniforms := range stages {
		for _, u := range uniforms {
			if !seen[u.Binding] {
				seen[u.Binding] = true
				out = append(out, u.Binding)
			}
		}
	}
	return out
}

func NewDescriptorSets(context *VulkanContext, slots []uint32) (*VulkanDescriptorSets, error) {
	out := &VulkanDescriptorSets{Slots: slots}
	if len(slots) == 0 {
		return out, nil
	}
	dev := context.Device.LogicalDevice

	bindings := make([]vk.DescriptorSetLayoutBinding, len(slots))
	for i, s := range slots {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         s,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		}
	}
	if res := vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, context.Allocator, &out.Layout); res != vk.Success {
		return nil, vulkanError(core.ErrResourceCreation, "vkCreateDescriptorSetLayout", res)
	}

	if res := vk.CreateDescriptorPool(dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       MaxFramesInFlight,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: uint32(len(slots) * MaxFramesInFlight),
		}},
	}, context.Allocator, &out.Pool); res != vk.Success {
		out.Destroy(context)
		return nil, vulkanError(core.ErrResourceCreation, "vkCreateDescriptorPool", res)
	}

	for i := range out.Sets {
		var set vk.DescriptorSet
		if res := vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     out.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{out.Layout},
		}, &set); res != vk.Success {
			out.Destroy(context)
			return nil, vulkanError(core.ErrResourceCreation, "vkAllocateDescriptorSets", res)
		}
		out.Sets[i] = set
	}
	return out, nil
}

// Update points the set of frame slot at the bound constant buffers.
func (d *VulkanDescriptorSets) Update(context *VulkanContext, frame uint32, buffers *[metadata.MaxConstantBufferSlots]*metadata.Buffer) error {
	if len(d.Slots) == 0 {
		return nil
	}
	writes := make([]vk.WriteDescriptorSet, 0, len(d.Slots))
	for _, s := range d.Slots {
		b := buffers[s]
		if b == nil {
			return fmt.Errorf("constant buffer slot %d: %w", s, core.ErrIncompleteBindings)
		}
		vb, ok := b.InternalData.(*VulkanBuffer)
		if !ok {
			return fmt.Errorf("constant buffer slot %d holds a foreign buffer: %w", s, core.ErrUnknown)
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.Sets[frame],
			DstBinding:      s,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: vb.Handle(frame),
				Offset: 0,
				Range:  vk.DeviceSize(vb.Size),
			}},
		})
	}
	return lockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}

func (d *VulkanDescriptorSets) Bind(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout, frame uint32) {
	if len(d.Slots) == 0 {
		return
	}
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{d.Sets[frame]}, 0, nil)
}

func (d *VulkanDescriptorSets) Destroy(context *VulkanContext) {
	dev := context.Device.LogicalDevice
	// sets go away with the pool
	if d.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, d.Pool, context.Allocator)
		d.Pool = vk.NullDescriptorPool
	}
	if d.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dev, d.Layout, context.Allocator)
		d.Layout = vk.NullDescriptorSetLayout
	}
}
