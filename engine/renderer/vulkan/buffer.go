package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// VulkanBuffer backs a metadata.Buffer. Dynamic buffers keep one host
// visible copy per frame in flight so the CPU never writes memory the GPU
// may still be reading. Other buffers live in device local memory and are
// filled once through a staging buffer.
type VulkanBuffer struct {
	Handles  []vk.Buffer
	Memories []vk.DeviceMemory
	Size     uint64
	Dynamic  bool

	mappedSlot int
}

func bufferUsage(flags metadata.BindFlag) vk.BufferUsageFlagBits {
	var usage vk.BufferUsageFlagBits
	if flags&metadata.BindVertexBuffer != 0 {
		usage |= vk.BufferUsageVertexBufferBit
	}
	if flags&metadata.BindIndexBuffer != 0 {
		usage |= vk.BufferUsageIndexBufferBit
	}
	if flags&metadata.BindConstantBuffer != 0 {
		usage |= vk.BufferUsageUniformBufferBit
	}
	return usage
}

func NewVulkanBuffer(context *VulkanContext, desc metadata.BufferDesc, initialData []byte) (*VulkanBuffer, error) {
	out := &VulkanBuffer{
		Size:       uint64(desc.ByteWidth),
		Dynamic:    desc.Mappable(),
		mappedSlot: -1,
	}
	usage := bufferUsage(desc.BindFlags)

	if out.Dynamic {
		props := uint32(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
		for i := 0; i < MaxFramesInFlight; i++ {
			h, m, err := createRawBuffer(context, out.Size, usage, props)
			if err != nil {
				out.Destroy(context)
				return nil, err
			}
			out.Handles = append(out.Handles, h)
			out.Memories = append(out.Memories, m)
			if err := writeMemory(context, m, initialData, out.Size); err != nil {
				out.Destroy(context)
				return nil, err
			}
		}
		return out, nil
	}

	h, m, err := createRawBuffer(context, out.Size, usage|vk.BufferUsageTransferDstBit, uint32(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	out.Handles = []vk.Buffer{h}
	out.Memories = []vk.DeviceMemory{m}
	if len(initialData) > 0 {
		if err := out.upload(context, initialData); err != nil {
			out.Destroy(context)
			return nil, err
		}
	}
	return out, nil
}

// Handle returns the buffer the GPU reads during frame slot.
func (b *VulkanBuffer) Handle(slot uint32) vk.Buffer {
	if b.Dynamic {
		return b.Handles[slot]
	}
	return b.Handles[0]
}

// Map maps the copy used by frame slot. The caller must make sure the
// GPU is done with that frame.
func (b *VulkanBuffer) Map(context *VulkanContext, slot uint32) ([]byte, error) {
	if b.mappedSlot >= 0 {
		return nil, fmt.Errorf("buffer is already mapped: %w", core.ErrUnknown)
	}
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memories[slot], 0, vk.DeviceSize(b.Size), 0, &ptr); res != vk.Success {
		return nil, vulkanError(core.ErrBufferNotMappable, "vkMapMemory", res)
	}
	b.mappedSlot = int(slot)
	return unsafe.Slice((*byte)(ptr), int(b.Size)), nil
}

func (b *VulkanBuffer) Unmap(context *VulkanContext) error {
	if b.mappedSlot < 0 {
		return fmt.Errorf("buffer is not mapped: %w", core.ErrUnknown)
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memories[b.mappedSlot])
	b.mappedSlot = -1
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.mappedSlot >= 0 {
		b.Unmap(context)
	}
	for i := range b.Handles {
		if b.Handles[i] != vk.NullBuffer {
			vk.DestroyBuffer(context.Device.LogicalDevice, b.Handles[i], context.Allocator)
			b.Handles[i] = vk.NullBuffer
		}
	}
	for i := range b.Memories {
		if b.Memories[i] != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, b.Memories[i], context.Allocator)
			b.Memories[i] = vk.NullDeviceMemory
		}
	}
	b.Handles, b.Memories = nil, nil
}

func (b *VulkanBuffer) upload(context *VulkanContext, data []byte) error {
	props := uint32(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	staging, stagingMemory, err := createRawBuffer(context, uint64(len(data)), vk.BufferUsageTransferSrcBit, props)
	if err != nil {
		return err
	}
	defer func() {
		vk.DestroyBuffer(context.Device.LogicalDevice, staging, context.Allocator)
		vk.FreeMemory(context.Device.LogicalDevice, stagingMemory, context.Allocator)
	}()
	if err := writeMemory(context, stagingMemory, data, uint64(len(data))); err != nil {
		return err
	}

	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cb.Handle, staging, b.Handles[0], 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(len(data)),
	}})
	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

func createRawBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlagBits, props uint32) (vk.Buffer, vk.DeviceMemory, error) {
	dev := context.Device.LogicalDevice

	var buffer vk.Buffer
	if res := vk.CreateBuffer(dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, context.Allocator, &buffer); res != vk.Success {
		return vk.NullBuffer, vk.NullDeviceMemory, vulkanError(core.ErrResourceCreation, "vkCreateBuffer", res)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &memReqs)
	memReqs.Deref()

	index, ok := context.FindMemoryIndex(memReqs.MemoryTypeBits, props)
	if !ok {
		vk.DestroyBuffer(dev, buffer, context.Allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, fmt.Errorf("no memory type with properties 0x%x: %w", props, core.ErrResourceCreation)
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: index,
	}, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(dev, buffer, context.Allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, vulkanError(core.ErrResourceCreation, "vkAllocateMemory", res)
	}
	if res := vk.BindBufferMemory(dev, buffer, memory, 0); res != vk.Success {
		vk.DestroyBuffer(dev, buffer, context.Allocator)
		vk.FreeMemory(dev, memory, context.Allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, vulkanError(core.ErrResourceCreation, "vkBindBufferMemory", res)
	}
	return buffer, memory, nil
}

// writeMemory fills size bytes of host visible memory, zero padding past data.
func writeMemory(context *VulkanContext, memory vk.DeviceMemory, data []byte, size uint64) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, memory, 0, vk.DeviceSize(size), 0, &ptr); res != vk.Success {
		return vulkanError(core.ErrResourceCreation, "vkMapMemory", res)
	}
	dst := unsafe.Slice((*byte)(ptr), int(size))
	n := copy(dst, data)
	clear(dst[n:])
	vk.UnmapMemory(context.Device.LogicalDevice, memory)
	return nil
}
