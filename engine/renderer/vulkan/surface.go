package vulkan

import (
	"errors"
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// VulkanSurface is the swapchain of the window together with its render
// pass and framebuffers.
type VulkanSurface struct {
	ID uuid.UUID

	renderer *VulkanRenderer
	desc     metadata.SurfaceDesc
	view     *metadata.RenderTargetView
}

// build creates or recreates the swapchain at width x height.
func (s *VulkanSurface) build(width, height uint32) error {
	ctx := s.renderer.context

	var (
		sc  *VulkanSwapchain
		err error
	)
	if ctx.Swapchain == nil {
		if err := DeviceQuerySwapchainSupport(ctx.Device.PhysicalDevice, ctx.Surface, ctx.Device.SwapchainSupport); err != nil {
			return err
		}
		sc, err = SwapchainCreate(ctx, width, height, s.desc.BufferCount, s.desc.SyncInterval)
	} else {
		sc, err = ctx.Swapchain.SwapchainRecreate(ctx, width, height, s.desc.BufferCount, s.desc.SyncInterval)
	}
	if err != nil {
		ctx.Swapchain = nil
		return err
	}
	ctx.Swapchain = sc

	// The render pass survives recreation unless the image format moved.
	if ctx.MainRenderpass != nil && ctx.MainRenderpass.Format != sc.ImageFormat.Format {
		for key, cp := range s.renderer.pipelines {
			cp.destroy(ctx)
			delete(s.renderer.pipelines, key)
		}
		ctx.MainRenderpass.RenderpassDestroy(ctx)
		ctx.MainRenderpass = nil
	}
	if ctx.MainRenderpass == nil {
		rp, err := RenderpassCreate(ctx, sc.ImageFormat.Format, 0, 0, float32(sc.Extent.Width), float32(sc.Extent.Height))
		if err != nil {
			return err
		}
		ctx.MainRenderpass = rp
	}
	ctx.MainRenderpass.W = float32(sc.Extent.Width)
	ctx.MainRenderpass.H = float32(sc.Extent.Height)

	sc.Framebuffers = make([]*VulkanFramebuffer, sc.ImageCount)
	for i := range sc.Framebuffers {
		fb, err := FramebufferCreate(ctx, ctx.MainRenderpass, sc.Extent.Width, sc.Extent.Height, []vk.ImageView{sc.Views[i]})
		if err != nil {
			return err
		}
		sc.Framebuffers[i] = fb
	}

	ctx.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	s.desc.Width, s.desc.Height = sc.Extent.Width, sc.Extent.Height
	s.view = nil
	return nil
}

func (s *VulkanSurface) CurrentRenderTargetView() (*metadata.RenderTargetView, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	if err := s.renderer.beginFrame(); err != nil {
		return nil, err
	}
	return s.view, nil
}

func (s *VulkanSurface) Resize(width, height uint32) error {
	if s.renderer == nil {
		return fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	if s.renderer.frameActive {
		return fmt.Errorf("resize during a frame: %w", core.ErrUnknown)
	}
	return s.build(width, height)
}

func (s *VulkanSurface) Present(syncInterval uint32) error {
	if s.renderer == nil {
		return fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	vr := s.renderer
	if err := vr.endFrame(); err != nil {
		if !errors.Is(err, core.ErrSwapchainBooting) {
			return err
		}
		core.LogDebug("swapchain out of date, recreating")
		return s.build(s.desc.Width, s.desc.Height)
	}
	if syncInterval != s.desc.SyncInterval {
		s.desc.SyncInterval = syncInterval
		return s.build(s.desc.Width, s.desc.Height)
	}
	return nil
}

func (s *VulkanSurface) Size() (uint32, uint32) {
	return s.desc.Width, s.desc.Height
}

// Destroy releases the swapchain. Use VulkanRenderer.Release to also drop
// the surface id.
func (s *VulkanSurface) Destroy() error {
	if s.renderer == nil {
		return fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	return s.renderer.Release(s)
}

func (s *VulkanSurface) destroy() {
	if s.renderer == nil {
		return
	}
	ctx := s.renderer.context
	if ctx.Swapchain != nil {
		ctx.Swapchain.SwapchainDestroy(ctx)
		ctx.Swapchain = nil
	}
	if ctx.MainRenderpass != nil {
		for key, cp := range s.renderer.pipelines {
			cp.destroy(ctx)
			delete(s.renderer.pipelines, key)
		}
		ctx.MainRenderpass.RenderpassDestroy(ctx)
		ctx.MainRenderpass = nil
	}
	ctx.ImagesInFlight = nil
	s.renderer.frameActive = false
	s.view = nil
	s.renderer = nil
}

// beginFrame acquires the next image and starts recording into the command
// buffer of the current frame. Later calls in the same frame are no-ops.
func (vr *VulkanRenderer) beginFrame() error {
	if vr.frameActive {
		return nil
	}
	ctx := vr.context
	s := vr.surface
	if s == nil {
		return fmt.Errorf("no swapchain: %w", core.ErrSwapchainBooting)
	}
	if ctx.Swapchain == nil {
		if err := s.build(s.desc.Width, s.desc.Height); err != nil {
			return err
		}
	}

	// Wait for the GPU to finish with this frame slot.
	if err := ctx.InFlightFences[ctx.CurrentFrame].FenceWait(ctx, stdmath.MaxUint64); err != nil {
		return err
	}

	imageIndex, err := ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, stdmath.MaxUint64, ctx.ImageAvailableSemaphores[ctx.CurrentFrame], vk.NullFence)
	if errors.Is(err, core.ErrSwapchainBooting) {
		core.LogDebug("swapchain out of date on acquire, recreating")
		if err := s.build(s.desc.Width, s.desc.Height); err != nil {
			return err
		}
		imageIndex, err = ctx.Swapchain.SwapchainAcquireNextImageIndex(ctx, stdmath.MaxUint64, ctx.ImageAvailableSemaphores[ctx.CurrentFrame], vk.NullFence)
	}
	if err != nil {
		return err
	}
	ctx.ImageIndex = imageIndex

	// Make sure the previous frame is not using this image.
	if f := ctx.ImagesInFlight[imageIndex]; f != nil {
		if err := f.FenceWait(ctx, stdmath.MaxUint64); err != nil {
			return err
		}
	}
	ctx.ImagesInFlight[imageIndex] = ctx.InFlightFences[ctx.CurrentFrame]

	cb := ctx.GraphicsCommandBuffers[ctx.CurrentFrame]
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}

	s.view = &metadata.RenderTargetView{
		ID:           ctx.Swapchain.Framebuffers[imageIndex].ID,
		Width:        ctx.Swapchain.Extent.Width,
		Height:       ctx.Swapchain.Extent.Height,
		ImageIndex:   imageIndex,
		InternalData: ctx.Swapchain.Framebuffers[imageIndex],
	}
	vr.frameActive = true
	return nil
}

// endFrame closes the render pass, submits the frame and presents it.
func (vr *VulkanRenderer) endFrame() error {
	if !vr.frameActive {
		if err := vr.beginFrame(); err != nil {
			return err
		}
	}
	ctx := vr.context
	cb := ctx.GraphicsCommandBuffers[ctx.CurrentFrame]

	// An untouched image still needs the pass for its layout transition.
	if cb.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		ctx.MainRenderpass.RenderpassBegin(cb, ctx.Swapchain.Framebuffers[ctx.ImageIndex].Handle)
	}
	ctx.MainRenderpass.RenderpassEnd(cb)
	if err := cb.End(); err != nil {
		return err
	}

	fence := ctx.InFlightFences[ctx.CurrentFrame]
	if err := fence.FenceReset(ctx); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{ctx.ImageAvailableSemaphores[ctx.CurrentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ctx.QueueCompleteSemaphores[ctx.CurrentFrame]},
	}
	if err := lockPool.SafeQueueCall(uint32(ctx.Device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
			return vulkanError(core.ErrUnknown, "vkQueueSubmit", res)
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	cb.UpdateSubmitted()

	vr.frameActive = false
	vr.bindings.Reset()
	vr.surface.view = nil
	vr.FrameNumber++

	return lockPool.SafeQueueCall(uint32(ctx.Device.PresentQueueIndex), func() error {
		return ctx.Swapchain.SwapchainPresent(ctx, ctx.Device.PresentQueue, ctx.QueueCompleteSemaphores[ctx.CurrentFrame], ctx.ImageIndex)
	})
}
