package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"math"
)

// DepthFormat is the format of the shared depth buffer.
const DepthFormat = core1_0.FormatD32SignedFloat

const preferredColorFormat = core1_0.FormatB8G8R8A8SRGB

// SurfaceResources holds the swapchain, its color views and the depth buffer.
// Images belong to the swapchain; views and depth resources belong to the
// surface scope.
type SurfaceResources struct {
	Surface      khr_surface.Surface
	Format       khr_surface.SurfaceFormat
	Capabilities *khr_surface.SurfaceCapabilities
	Swapchain    khr_swapchain.Swapchain
	Extent       core1_0.Extent2D
	Images       []core1_0.Image
	Views        []core1_0.ImageView
	DepthImage   core1_0.Image
	DepthMemory  core1_0.DeviceMemory
	DepthView    core1_0.ImageView
}

// createSwapchain creates a FIFO swapchain of at least two images on surface.
// width and height are the window's pixel size, used when the surface leaves
// the extent to the application.
func createSwapchain(g gpu, sc *scope, surface khr_surface.Surface, width, height int) (*SurfaceResources, error) {
	caps, err := g.surfaceCapabilities(surface)
	if err != nil {
		return nil, err
	}

	formats, err := g.surfaceFormats(surface)
	if err != nil {
		return nil, err
	}
	format, err := selectSurfaceFormat(formats)
	if err != nil {
		return nil, err
	}

	res := &SurfaceResources{
		Surface:      surface,
		Format:       format,
		Capabilities: caps,
		Extent:       chooseSwapExtent(caps, width, height),
	}

	swapchain, err := g.createSwapchain(khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    swapchainImageCount(caps),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      res.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   caps.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    khr_surface.PresentModeFIFO,
		Clipped:        true,
	})
	if err != nil {
		return nil, err
	}
	res.Swapchain = swapchain
	sc.own("swapchain", func() { g.release(swapchain) })

	res.Images, err = g.swapchainImages(swapchain)
	if err != nil {
		return nil, err
	}

	Logger().Info("swapchain created",
		"images", len(res.Images),
		"width", res.Extent.Width,
		"height", res.Extent.Height,
		"format", format.Format)
	return res, nil
}

// swapchainImageCount requests at least two images so presentation is always
// double buffered, even when the surface would accept one.
func swapchainImageCount(caps *khr_surface.SurfaceCapabilities) int {
	return max(2, caps.MinImageCount)
}

// chooseSwapExtent returns the surface's current extent, or the window size
// clamped to the surface limits when the surface reports the undefined extent.
// undefinedExtent reports whether the surface left the extent to the
// application. The backend widens the 0xFFFFFFFF sentinel to int, so both the
// widened and the sign-extended forms are accepted.
func undefinedExtent(extent core1_0.Extent2D) bool {
	return uint32(extent.Width) == math.MaxUint32
}

func chooseSwapExtent(caps *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if !undefinedExtent(caps.CurrentExtent) {
		return caps.CurrentExtent
	}

	if caps.MaxImageExtent.Width > 0 {
		width = min(max(width, caps.MinImageExtent.Width), caps.MaxImageExtent.Width)
	}
	if caps.MaxImageExtent.Height > 0 {
		height = min(max(height, caps.MinImageExtent.Height), caps.MaxImageExtent.Height)
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

func selectSurfaceFormat(formats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(formats) == 0 {
		return khr_surface.SurfaceFormat{}, errors.New("surface reports no formats")
	}

	for _, format := range formats {
		if format.Format == preferredColorFormat {
			return format, nil
		}
	}

	return formats[0], nil
}

// createDepthBuffer allocates a device-local depth image matching the
// swapchain extent.
func (s *SurfaceResources) createDepthBuffer(g gpu, sc *scope, memoryTypes []core1_0.MemoryPropertyFlags) error {
	image, err := g.createImage(core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  s.Extent.Width,
			Height: s.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        DepthFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageDepthStencilAttachment,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return err
	}
	s.DepthImage = image
	sc.own("depth image", func() { g.release(image) })

	size, typeBits := g.imageMemoryRequirements(image)
	memoryIndex := memoryTypeIndex(memoryTypes, typeBits, core1_0.MemoryPropertyDeviceLocal)
	if memoryIndex == NoMemoryType {
		return errors.Newf("no device-local memory type in mask %#x for the depth buffer", typeBits)
	}

	memory, err := g.allocateMemory(size, memoryIndex)
	if err != nil {
		return err
	}
	s.DepthMemory = memory
	sc.own("depth memory", func() { g.release(memory) })

	return g.bindImageMemory(image, memory)
}

// createViews builds one color view per swapchain image and the depth view.
func (s *SurfaceResources) createViews(g gpu, sc *scope) error {
	s.Views = make([]core1_0.ImageView, 0, len(s.Images))
	for i, image := range s.Images {
		view, err := g.createImageView(imageViewInfo(image, s.Format.Format, core1_0.ImageAspectColor))
		if err != nil {
			return errors.Wrapf(err, "color view %d", i)
		}
		s.Views = append(s.Views, view)
		sc.own("color view", func() { g.release(view) })
	}

	view, err := g.createImageView(imageViewInfo(s.DepthImage, DepthFormat, core1_0.ImageAspectDepth))
	if err != nil {
		return errors.Wrap(err, "depth view")
	}
	s.DepthView = view
	sc.own("depth view", func() { g.release(view) })
	return nil
}

func imageViewInfo(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) core1_0.ImageViewCreateInfo {
	return core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		Components: core1_0.ComponentMapping{
			R: core1_0.ComponentSwizzleIdentity,
			G: core1_0.ComponentSwizzleIdentity,
			B: core1_0.ComponentSwizzleIdentity,
			A: core1_0.ComponentSwizzleIdentity,
		},
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}
