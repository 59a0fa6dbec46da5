package appbase

import (
	"fmt"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"strings"
)

type fakeID struct {
	kind string
	id   int
}

func (f fakeID) label() string { return fmt.Sprintf("%s#%d", f.kind, f.id) }

type labeled interface{ label() string }

type fakeSwapchain struct {
	khr_swapchain.Swapchain
	fakeID
}

type fakeImage struct {
	core1_0.Image
	fakeID
}

type fakeMemory struct {
	core1_0.DeviceMemory
	fakeID
}

type fakeImageView struct {
	core1_0.ImageView
	fakeID
}

type fakeRenderPass struct {
	core1_0.RenderPass
	fakeID
}

type fakeFramebuffer struct {
	core1_0.Framebuffer
	fakeID
}

type fakeCommandBuffer struct {
	core1_0.CommandBuffer
	fakeID
}

type fakeFence struct {
	core1_0.Fence
	fakeID
}

type fakeSemaphore struct {
	core1_0.Semaphore
	fakeID
}

type submitCall struct {
	fence core1_0.Fence
	info  core1_0.SubmitInfo
}

// fakeGPU records every call made through the gpu interface. Swapchain images
// are owned by the swapchain and never tracked as live handles.
type fakeGPU struct {
	caps       khr_surface.SurfaceCapabilities
	formats    []khr_surface.SurfaceFormat
	imageCount int
	typeBits   uint32

	acquireOrder  []int
	acquireResult common.VkResult
	presentResult common.VkResult

	failures map[string]fakeFailure
	counts   map[string]int

	nextID     int
	live       map[string]bool
	released   []string
	doubleFree []string

	swapchainInfo    khr_swapchain.SwapchainCreateInfo
	imageInfo        core1_0.ImageCreateInfo
	viewInfos        []core1_0.ImageViewCreateInfo
	renderPassInfo   core1_0.RenderPassCreateInfo
	framebufferInfos []core1_0.FramebufferCreateInfo
	fenceInfos       []core1_0.FenceCreateInfo
	allocations      []int
	semaphores       int

	frameCalls []string
	waited     []core1_0.Fence
	reset      []core1_0.Fence
	begun      []core1_0.CommandBuffer
	passes     []core1_0.RenderPassBeginInfo
	submits    []submitCall
	presents   []khr_swapchain.PresentInfo
	idleWaits  int
}

type fakeFailure struct {
	nth int
	err error
}

func newFakeGPU(minImages int) *fakeGPU {
	return &fakeGPU{
		caps: khr_surface.SurfaceCapabilities{
			MinImageCount:  minImages,
			MaxImageCount:  8,
			CurrentExtent:  core1_0.Extent2D{Width: 640, Height: 480},
			MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
		},
		formats: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		typeBits: 0b11,
		failures: map[string]fakeFailure{},
		counts:   map[string]int{},
		live:     map[string]bool{},
	}
}

// failOn makes the nth call of method fail with err. nth == 0 fails every call.
func (g *fakeGPU) failOn(method string, nth int, err error) {
	g.failures[method] = fakeFailure{nth: nth, err: err}
}

func (g *fakeGPU) call(method string) error {
	g.counts[method]++
	f, ok := g.failures[method]
	if !ok || (f.nth != 0 && f.nth != g.counts[method]) {
		return nil
	}
	return f.err
}

func (g *fakeGPU) newID(kind string, track bool) fakeID {
	g.nextID++
	id := fakeID{kind: kind, id: g.nextID}
	if track {
		g.live[id.label()] = true
	}
	return id
}

func (g *fakeGPU) surfaceCapabilities(khr_surface.Surface) (*khr_surface.SurfaceCapabilities, error) {
	if err := g.call("surfaceCapabilities"); err != nil {
		return nil, err
	}
	caps := g.caps
	return &caps, nil
}

func (g *fakeGPU) surfaceFormats(khr_surface.Surface) ([]khr_surface.SurfaceFormat, error) {
	if err := g.call("surfaceFormats"); err != nil {
		return nil, err
	}
	return g.formats, nil
}

func (g *fakeGPU) createSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	if err := g.call("createSwapchain"); err != nil {
		return nil, err
	}
	g.swapchainInfo = info
	return &fakeSwapchain{fakeID: g.newID("swapchain", true)}, nil
}

func (g *fakeGPU) swapchainImages(khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	if err := g.call("swapchainImages"); err != nil {
		return nil, err
	}
	count := g.imageCount
	if count == 0 {
		count = g.swapchainInfo.MinImageCount
	}
	images := make([]core1_0.Image, 0, count)
	for i := 0; i < count; i++ {
		images = append(images, &fakeImage{fakeID: g.newID("swapchain image", false)})
	}
	return images, nil
}

func (g *fakeGPU) createImage(info core1_0.ImageCreateInfo) (core1_0.Image, error) {
	if err := g.call("createImage"); err != nil {
		return nil, err
	}
	g.imageInfo = info
	return &fakeImage{fakeID: g.newID("image", true)}, nil
}

func (g *fakeGPU) imageMemoryRequirements(core1_0.Image) (int, uint32) {
	return 640 * 480 * 4, g.typeBits
}

func (g *fakeGPU) allocateMemory(size int, typeIndex int) (core1_0.DeviceMemory, error) {
	if err := g.call("allocateMemory"); err != nil {
		return nil, err
	}
	g.allocations = append(g.allocations, typeIndex)
	return &fakeMemory{fakeID: g.newID("memory", true)}, nil
}

func (g *fakeGPU) bindImageMemory(core1_0.Image, core1_0.DeviceMemory) error {
	return g.call("bindImageMemory")
}

func (g *fakeGPU) createImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	if err := g.call("createImageView"); err != nil {
		return nil, err
	}
	g.viewInfos = append(g.viewInfos, info)
	return &fakeImageView{fakeID: g.newID("view", true)}, nil
}

func (g *fakeGPU) createRenderPass(info core1_0.RenderPassCreateInfo) (core1_0.RenderPass, error) {
	if err := g.call("createRenderPass"); err != nil {
		return nil, err
	}
	g.renderPassInfo = info
	return &fakeRenderPass{fakeID: g.newID("render pass", true)}, nil
}

func (g *fakeGPU) createFramebuffer(info core1_0.FramebufferCreateInfo) (core1_0.Framebuffer, error) {
	if err := g.call("createFramebuffer"); err != nil {
		return nil, err
	}
	g.framebufferInfos = append(g.framebufferInfos, info)
	return &fakeFramebuffer{fakeID: g.newID("framebuffer", true)}, nil
}

func (g *fakeGPU) allocateCommandBuffers(count int) ([]core1_0.CommandBuffer, error) {
	if err := g.call("allocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]core1_0.CommandBuffer, 0, count)
	for i := 0; i < count; i++ {
		buffers = append(buffers, &fakeCommandBuffer{fakeID: g.newID("command buffer", true)})
	}
	return buffers, nil
}

func (g *fakeGPU) createFence(info core1_0.FenceCreateInfo) (core1_0.Fence, error) {
	if err := g.call("createFence"); err != nil {
		return nil, err
	}
	g.fenceInfos = append(g.fenceInfos, info)
	return &fakeFence{fakeID: g.newID("fence", true)}, nil
}

func (g *fakeGPU) createSemaphore() (core1_0.Semaphore, error) {
	if err := g.call("createSemaphore"); err != nil {
		return nil, err
	}
	g.semaphores++
	return &fakeSemaphore{fakeID: g.newID("semaphore", true)}, nil
}

func (g *fakeGPU) acquireNextImage(khr_swapchain.Swapchain, core1_0.Semaphore) (int, common.VkResult, error) {
	g.frameCalls = append(g.frameCalls, "acquire")
	n := g.counts["acquireNextImage"]
	if err := g.call("acquireNextImage"); err != nil {
		return 0, g.acquireResult, err
	}
	index := 0
	if len(g.acquireOrder) > 0 {
		index = g.acquireOrder[n%len(g.acquireOrder)]
	}
	return index, g.acquireResult, nil
}

func (g *fakeGPU) waitForFence(fence core1_0.Fence) (common.VkResult, error) {
	g.frameCalls = append(g.frameCalls, "wait")
	g.waited = append(g.waited, fence)
	return 0, g.call("waitForFence")
}

func (g *fakeGPU) resetFence(fence core1_0.Fence) (common.VkResult, error) {
	g.frameCalls = append(g.frameCalls, "reset")
	g.reset = append(g.reset, fence)
	return 0, g.call("resetFence")
}

func (g *fakeGPU) beginCommandBuffer(cmd core1_0.CommandBuffer) error {
	g.frameCalls = append(g.frameCalls, "begin")
	g.begun = append(g.begun, cmd)
	return g.call("beginCommandBuffer")
}

func (g *fakeGPU) beginRenderPass(cmd core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error {
	g.frameCalls = append(g.frameCalls, "beginRenderPass")
	g.passes = append(g.passes, info)
	return g.call("beginRenderPass")
}

func (g *fakeGPU) endRenderPass(core1_0.CommandBuffer) {
	g.frameCalls = append(g.frameCalls, "endRenderPass")
}

func (g *fakeGPU) endCommandBuffer(core1_0.CommandBuffer) error {
	g.frameCalls = append(g.frameCalls, "end")
	return g.call("endCommandBuffer")
}

func (g *fakeGPU) submit(fence core1_0.Fence, info core1_0.SubmitInfo) (common.VkResult, error) {
	g.frameCalls = append(g.frameCalls, "submit")
	g.submits = append(g.submits, submitCall{fence: fence, info: info})
	return 0, g.call("submit")
}

func (g *fakeGPU) present(info khr_swapchain.PresentInfo) (common.VkResult, error) {
	g.frameCalls = append(g.frameCalls, "present")
	g.presents = append(g.presents, info)
	return g.presentResult, g.call("present")
}

func (g *fakeGPU) waitIdle() error {
	g.idleWaits++
	return g.call("waitIdle")
}

func (g *fakeGPU) release(handle any) {
	if buffers, ok := handle.([]core1_0.CommandBuffer); ok {
		for _, buffer := range buffers {
			g.release(buffer)
		}
		return
	}

	h, ok := handle.(labeled)
	if !ok {
		g.doubleFree = append(g.doubleFree, fmt.Sprintf("untracked %T", handle))
		return
	}
	if !g.live[h.label()] {
		g.doubleFree = append(g.doubleFree, h.label())
		return
	}
	delete(g.live, h.label())
	g.released = append(g.released, h.label())
}

// kinds returns the handle kinds of labels in order.
func kinds(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l[:strings.LastIndexByte(l, '#')])
	}
	return out
}
