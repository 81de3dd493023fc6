package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/trigon/engine/core"
)

// VulkanFence tracks the signaled state on the host so waits on an already
// signaled fence skip the driver call.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &info, context.Allocator, &handle); res != vk.Success {
		err := vulkanError(core.ErrResourceCreation, "vkCreateFence", res)
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: handle, IsSignaled: createSignaled}, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence is signaled or timeoutNs elapses. A lost
// device wraps core.ErrDeviceUnavailable.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	res := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch res {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.ErrorDeviceLost:
		err := vulkanError(core.ErrDeviceUnavailable, "vkWaitForFences", res)
		core.LogError(err.Error())
		return err
	default:
		err := vulkanError(core.ErrUnknown, "vkWaitForFences", res)
		core.LogError(err.Error())
		return err
	}
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		err := vulkanError(core.ErrUnknown, "vkResetFences", res)
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}
