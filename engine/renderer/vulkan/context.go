package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
)

// Number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// VulkanContext is the state shared by every object of the backend.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// Indexed by CurrentFrame.
	GraphicsCommandBuffers   []*VulkanCommandBuffer
	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore
	InFlightFences           []*VulkanFence

	// Indexed by swapchain image. The fences are owned by InFlightFences.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32
}

// advanceFrame moves to the next frame slot after a present.
func (vc *VulkanContext) advanceFrame() {
	vc.CurrentFrame = (vc.CurrentFrame + 1) % MaxFramesInFlight
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all of propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) (uint32, bool) {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &props)
	props.Deref()

	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) == 0 {
			continue
		}
		if uint32(props.MemoryTypes[i].PropertyFlags)&propertyFlags == propertyFlags {
			return i, true
		}
	}
	core.LogWarn("no memory type matches filter 0x%x with properties 0x%x", typeFilter, propertyFlags)
	return 0, false
}
