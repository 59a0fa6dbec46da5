package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/core1_0"
	"log/slog"
	"os"
	"path/filepath"
)

// App is the shared lesson base: it owns the device, the swapchain and its
// frame graph, and the per-image command and sync resources, and drives a
// Renderer through the frame loop.
type App struct {
	Config Config

	// OnFrameError sees frame failures that FrameError.Skippable allows to be
	// skipped. Returning nil skips the frame and keeps looping; returning an
	// error stops Run. Every other failure stops Run without reaching it, as
	// does every failure when OnFrameError is nil.
	OnFrameError func(err error) error

	window   *sdl.Window
	device   DeviceContext
	surface  *SurfaceResources
	graph    *FrameGraph
	frames   *FrameResources
	gpu      gpu
	loop     *frameLoop
	renderer Renderer

	initialized bool

	deviceScope  scope
	surfaceScope scope
	graphScope   scope
	framesScope  scope
}

// New returns an uninitialized App for cfg.
func New(cfg Config) *App {
	return &App{
		Config:       cfg,
		deviceScope:  scope{name: "device"},
		surfaceScope: scope{name: "surface"},
		graphScope:   scope{name: "frame graph"},
		framesScope:  scope{name: "frames"},
	}
}

// Initialize builds the device context on window, then the swapchain, frame
// graph and frame resources. Any failure is a setup failure; resources built
// before it are still released by Terminate.
func (a *App) Initialize(window *sdl.Window, appName string) error {
	if a.initialized {
		return errors.AssertionFailedf("Initialize called twice")
	}
	a.window = window

	steps := []struct {
		name string
		run  func() error
	}{
		{"create instance", func() error { return a.initializeInstance(appName) }},
		{"create surface", a.createSurface},
		{"select physical device", a.selectPhysicalDevice},
		{"search graphics queue", a.searchGraphicsQueue},
		{"create device", a.createDevice},
		{"create command pool", a.prepareCommandPool},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return setupFailure(err, step.name)
		}
	}

	a.gpu = newVulkanGPU(&a.device)

	width, height := window.VulkanGetDrawableSize()
	return a.buildPresentation(int(width), int(height))
}

// buildPresentation creates everything that depends on the swapchain. width
// and height are only used when the surface leaves the extent undefined.
func (a *App) buildPresentation(width, height int) error {
	var err error

	a.surface, err = createSwapchain(a.gpu, &a.surfaceScope, a.device.Surface, width, height)
	if err != nil {
		return setupFailure(err, "create swapchain")
	}
	if err := a.surface.createDepthBuffer(a.gpu, &a.surfaceScope, a.device.MemoryTypes); err != nil {
		return setupFailure(err, "create depth buffer")
	}
	if err := a.surface.createViews(a.gpu, &a.surfaceScope); err != nil {
		return setupFailure(err, "create image views")
	}

	a.graph, err = createRenderPass(a.gpu, &a.graphScope, a.surface.Format.Format)
	if err != nil {
		return setupFailure(err, "create render pass")
	}
	if err := a.graph.createFramebuffers(a.gpu, &a.graphScope, a.surface); err != nil {
		return setupFailure(err, "create framebuffers")
	}

	a.frames, err = createFrameResources(a.gpu, &a.framesScope, len(a.surface.Images))
	if err != nil {
		return setupFailure(err, "create frame resources")
	}

	a.loop = &frameLoop{
		gpu:        a.gpu,
		surface:    a.surface,
		graph:      a.graph,
		frames:     a.frames,
		clearColor: a.Config.ClearColor,
	}
	a.initialized = true
	return nil
}

// Prepare hands r the initialized App. r is driven by every later Render call.
func (a *App) Prepare(r Renderer) error {
	if !a.initialized {
		return errors.AssertionFailedf("Prepare called before Initialize")
	}
	if a.renderer != nil {
		return errors.AssertionFailedf("Prepare called twice")
	}
	a.renderer = r
	if err := r.Prepare(a); err != nil {
		return setupFailure(err, "prepare renderer")
	}
	return nil
}

// Render draws one frame. Failures are marked with ErrFrame and carry a
// *FrameError unless they are contract violations.
func (a *App) Render() error {
	if !a.initialized || a.renderer == nil {
		return errors.AssertionFailedf("Render called before Initialize and Prepare")
	}
	return a.loop.render(a.renderer)
}

// Run prepares r and renders until the window is closed or Escape is pressed.
func (a *App) Run(r Renderer) error {
	if err := a.Prepare(r); err != nil {
		return err
	}

appLoop:
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
					break appLoop
				}
			}
		}

		if err := a.handleFrameError(a.Render()); err != nil {
			return err
		}
	}

	return a.gpu.waitIdle()
}

func (a *App) handleFrameError(err error) error {
	if err == nil || a.OnFrameError == nil || Classify(err) == KindContract {
		return err
	}
	var fe *FrameError
	if !errors.As(err, &fe) || !fe.Skippable() {
		return err
	}
	return a.OnFrameError(err)
}

// Terminate waits for the device to go idle, cleans up the renderer, and
// releases frame resources, frame graph, swapchain and device in that order.
// Calling it again does nothing.
func (a *App) Terminate() error {
	var errs error

	if a.gpu != nil {
		if err := a.gpu.waitIdle(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "wait idle"))
		}
	}

	if a.renderer != nil {
		if err := a.renderer.Cleanup(a); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "cleanup renderer"))
		}
		a.renderer = nil
	}

	a.framesScope.releaseAll()
	a.graphScope.releaseAll()
	a.surfaceScope.releaseAll()
	a.deviceScope.releaseAll()

	if a.initialized {
		Logger().Info("terminated")
	}
	a.initialized = false
	a.loop = nil
	a.gpu = nil
	return errs
}

// Device is the logical device every resource is created on.
func (a *App) Device() core1_0.Device { return a.device.Device }

// PhysicalDevice is the GPU the logical device was created from.
func (a *App) PhysicalDevice() core1_0.PhysicalDevice { return a.device.PhysicalDevice }

// GraphicsQueue is the queue frames and one-time uploads are submitted to.
func (a *App) GraphicsQueue() core1_0.Queue { return a.device.Queue }

// CommandPool is the pool per-image and one-time command buffers come from.
func (a *App) CommandPool() core1_0.CommandPool { return a.device.CommandPool }

// RenderPass is the color and depth pass every frame is recorded into.
func (a *App) RenderPass() core1_0.RenderPass { return a.graph.RenderPass }

// Extent is the swapchain's pixel size.
func (a *App) Extent() core1_0.Extent2D { return a.surface.Extent }

// ImageCount is the number of swapchain images. Per-frame mutable buffers are
// sized to it so an in-flight frame never reads a buffer being rewritten.
func (a *App) ImageCount() int { return len(a.surface.Images) }

// MemoryTypeIndex returns the first memory type allowed by typeBits that has
// every flag in required, or NoMemoryType.
func (a *App) MemoryTypeIndex(typeBits uint32, required core1_0.MemoryPropertyFlags) int {
	return memoryTypeIndex(a.device.MemoryTypes, typeBits, required)
}

// AssetPath resolves name against Config.AssetDir.
func (a *App) AssetPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.Config.AssetDir, name)
}

// Run opens a fixed-size window for cfg, initializes an App on it, and runs r
// until the window closes.
func Run(cfg Config, r Renderer) (err error) {
	SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return setupFailure(err, "init sdl")
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(cfg.Width), int32(cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		return setupFailure(err, "create window")
	}
	defer window.Destroy()

	app := New(cfg)
	defer func() {
		err = errors.CombineErrors(err, app.Terminate())
	}()

	if err := app.Initialize(window, cfg.Title); err != nil {
		return err
	}
	return app.Run(r)
}
