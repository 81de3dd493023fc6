package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChoosePresentMode(t *testing.T) {
	all := &VulkanSwapchainSupportInfo{PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate}}
	mailbox := &VulkanSwapchainSupportInfo{PresentModes: []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo}}
	fifoOnly := &VulkanSwapchainSupportInfo{PresentModes: []vk.PresentMode{vk.PresentModeFifo}}

	tests := []struct {
		name     string
		support  *VulkanSwapchainSupportInfo
		interval uint32
		want     vk.PresentMode
	}{
		{"vsync", all, 1, vk.PresentModeFifo},
		{"vsync above one", all, 4, vk.PresentModeFifo},
		{"immediate", all, 0, vk.PresentModeImmediate},
		{"mailbox fallback", mailbox, 0, vk.PresentModeMailbox},
		{"fifo fallback", fifoOnly, 0, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, choosePresentMode(tt.support, tt.interval))
		})
	}
}

func TestPresentInterval(t *testing.T) {
	assert.Equal(t, uint32(0), presentInterval(0))
	assert.Equal(t, uint32(1), presentInterval(1))
	assert.Equal(t, uint32(1), presentInterval(2))
	assert.Equal(t, uint32(1), presentInterval(4))
}

func TestChooseSurfaceFormat(t *testing.T) {
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, srgb, chooseSurfaceFormat([]vk.SurfaceFormat{unorm, rgba, srgb}))
	assert.Equal(t, rgba, chooseSurfaceFormat([]vk.SurfaceFormat{rgba, unorm}))
}
