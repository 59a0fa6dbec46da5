package appbase

import (
	"fmt"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

// gpu is the set of device operations the surface manager, frame graph, frame
// pool and frame loop are built from. vulkanGPU is the production
// implementation.
type gpu interface {
	surfaceCapabilities(surface khr_surface.Surface) (*khr_surface.SurfaceCapabilities, error)
	surfaceFormats(surface khr_surface.Surface) ([]khr_surface.SurfaceFormat, error)
	createSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error)
	swapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error)

	createImage(info core1_0.ImageCreateInfo) (core1_0.Image, error)
	imageMemoryRequirements(image core1_0.Image) (size int, typeBits uint32)
	allocateMemory(size int, typeIndex int) (core1_0.DeviceMemory, error)
	bindImageMemory(image core1_0.Image, memory core1_0.DeviceMemory) error
	createImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error)

	createRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error)
	createFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error)

	allocateCommandBuffers(count int) ([]core1_0.CommandBuffer, error)
	createFence(info core1_0.FenceCreateInfo) (core1_0.Fence, error)
	createSemaphore() (core1_0.Semaphore, error)

	acquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, common.VkResult, error)
	waitForFence(fence core1_0.Fence) (common.VkResult, error)
	resetFence(fence core1_0.Fence) (common.VkResult, error)
	beginCommandBuffer(cmd core1_0.CommandBuffer) error
	beginRenderPass(cmd core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error
	endRenderPass(cmd core1_0.CommandBuffer)
	endCommandBuffer(cmd core1_0.CommandBuffer) error
	submit(fence core1_0.Fence, info core1_0.SubmitInfo) (common.VkResult, error)
	present(info khr_swapchain.PresentInfo) (common.VkResult, error)
	waitIdle() error

	// release destroys or frees any handle returned by the methods above.
	release(handle any)
}

type vulkanGPU struct {
	physicalDevice     core1_0.PhysicalDevice
	device             core1_0.Device
	queue              core1_0.Queue
	commandPool        core1_0.CommandPool
	swapchainExtension khr_swapchain.Extension
}

func newVulkanGPU(ctx *DeviceContext) *vulkanGPU {
	return &vulkanGPU{
		physicalDevice:     ctx.PhysicalDevice,
		device:             ctx.Device,
		queue:              ctx.Queue,
		commandPool:        ctx.CommandPool,
		swapchainExtension: khr_swapchain.CreateExtensionFromDevice(ctx.Device),
	}
}

func (g *vulkanGPU) surfaceCapabilities(surface khr_surface.Surface) (*khr_surface.SurfaceCapabilities, error) {
	caps, _, err := surface.PhysicalDeviceSurfaceCapabilities(g.physicalDevice)
	return caps, err
}

func (g *vulkanGPU) surfaceFormats(surface khr_surface.Surface) ([]khr_surface.SurfaceFormat, error) {
	formats, _, err := surface.PhysicalDeviceSurfaceFormats(g.physicalDevice)
	return formats, err
}

func (g *vulkanGPU) createSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	swapchain, _, err := g.swapchainExtension.CreateSwapchain(g.device, nil, info)
	return swapchain, err
}

func (g *vulkanGPU) swapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	images, _, err := swapchain.SwapchainImages()
	return images, err
}

func (g *vulkanGPU) createImage(info core1_0.ImageCreateInfo) (core1_0.Image, error) {
	image, _, err := g.device.CreateImage(nil, info)
	return image, err
}

func (g *vulkanGPU) imageMemoryRequirements(image core1_0.Image) (int, uint32) {
	memReqs := image.MemoryRequirements()
	return memReqs.Size, memReqs.MemoryTypeBits
}

func (g *vulkanGPU) allocateMemory(size int, typeIndex int) (core1_0.DeviceMemory, error) {
	memory, _, err := g.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	})
	return memory, err
}

func (g *vulkanGPU) bindImageMemory(image core1_0.Image, memory core1_0.DeviceMemory) error {
	_, err := image.BindImageMemory(memory, 0)
	return err
}

func (g *vulkanGPU) createImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	view, _, err := g.device.CreateImageView(nil, info)
	return view, err
}

func (g *vulkanGPU) createRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error) {
	renderPass, _, err := g.device.CreateRenderPass(nil, info)
	return renderPass, err
}

func (g *vulkanGPU) createFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error) {
	framebuffer, _, err := g.device.CreateFramebuffer(nil, info)
	return framebuffer, err
}

func (g *vulkanGPU) allocateCommandBuffers(count int) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := g.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        g.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	return buffers, err
}

func (g *vulkanGPU) createFence(info core1_0.FenceCreateInfo) (core1_0.Fence, error) {
	fence, _, err := g.device.CreateFence(nil, info)
	return fence, err
}

func (g *vulkanGPU) createSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := g.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (g *vulkanGPU) acquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, common.VkResult, error) {
	return swapchain.AcquireNextImage(common.NoTimeout, signal, nil)
}

func (g *vulkanGPU) waitForFence(fence core1_0.Fence) (common.VkResult, error) {
	return g.device.WaitForFences(true, common.NoTimeout, []core1_0.Fence{fence})
}

func (g *vulkanGPU) resetFence(fence core1_0.Fence) (common.VkResult, error) {
	return g.device.ResetFences([]core1_0.Fence{fence})
}

func (g *vulkanGPU) beginCommandBuffer(cmd core1_0.CommandBuffer) error {
	_, err := cmd.Begin(core1_0.CommandBufferBeginInfo{})
	return err
}

func (g *vulkanGPU) beginRenderPass(cmd core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error {
	return cmd.CmdBeginRenderPass(core1_0.SubpassContentsInline, info)
}

func (g *vulkanGPU) endRenderPass(cmd core1_0.CommandBuffer) {
	cmd.CmdEndRenderPass()
}

func (g *vulkanGPU) endCommandBuffer(cmd core1_0.CommandBuffer) error {
	_, err := cmd.End()
	return err
}

func (g *vulkanGPU) submit(fence core1_0.Fence, info core1_0.SubmitInfo) (common.VkResult, error) {
	return g.queue.Submit(fence, []core1_0.SubmitInfo{info})
}

func (g *vulkanGPU) present(info khr_swapchain.PresentInfo) (common.VkResult, error) {
	return g.swapchainExtension.QueuePresent(g.queue, info)
}

func (g *vulkanGPU) waitIdle() error {
	_, err := g.device.WaitIdle()
	return err
}

func (g *vulkanGPU) release(handle any) {
	switch h := handle.(type) {
	case khr_swapchain.Swapchain:
		h.Destroy(nil)
	case core1_0.ImageView:
		h.Destroy(nil)
	case core1_0.Image:
		h.Destroy(nil)
	case core1_0.DeviceMemory:
		h.Free(nil)
	case core1_0.Framebuffer:
		h.Destroy(nil)
	case core1_0.RenderPass:
		h.Destroy(nil)
	case core1_0.Fence:
		h.Destroy(nil)
	case core1_0.Semaphore:
		h.Destroy(nil)
	case []core1_0.CommandBuffer:
		g.device.FreeCommandBuffers(h)
	default:
		Logger().Warn("release of unknown handle type", "type", fmt.Sprintf("%T", handle))
	}
}
