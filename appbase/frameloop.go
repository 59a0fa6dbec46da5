package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"time"
)

const statsInterval = 300

// frameLoop drives one acquire, wait, record, submit and present cycle per
// render call. It runs on a single goroutine; CPU and GPU are ordered only by
// the per-image fences and the two shared semaphores.
type frameLoop struct {
	gpu        gpu
	surface    *SurfaceResources
	graph      *FrameGraph
	frames     *FrameResources
	clearColor [4]float32

	frameCount int
	statsStart time.Duration
}

func (l *frameLoop) render(r Renderer) error {
	imageIndex, res, err := l.gpu.acquireNextImage(l.surface.Swapchain, l.frames.ImageAcquired)
	if err != nil || res == khr_swapchain.VKSuboptimal {
		return frameFailure(StageAcquire, res, err)
	}
	if imageIndex < 0 || imageIndex >= len(l.frames.Commands) {
		return errors.AssertionFailedf("acquired image %d outside swapchain of %d images", imageIndex, len(l.frames.Commands))
	}

	cmd := l.frames.Commands[imageIndex]
	fence := l.frames.Fences[imageIndex]

	// The command buffer may only be re-recorded once its previous submission
	// has retired.
	res, err = l.gpu.waitForFence(fence)
	if err != nil {
		return frameFailure(StageWait, res, err)
	}

	if err := l.record(r, cmd, imageIndex); err != nil {
		return err
	}

	res, err = l.gpu.resetFence(fence)
	if err != nil {
		return frameFailure(StageSubmit, res, err)
	}

	res, err = l.gpu.submit(fence, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{l.frames.ImageAcquired},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{cmd},
		SignalSemaphores: []core1_0.Semaphore{l.frames.RenderCompleted},
	})
	if err != nil {
		return frameFailure(StageSubmit, res, err)
	}

	res, err = l.gpu.present(khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{l.frames.RenderCompleted},
		Swapchains:     []khr_swapchain.Swapchain{l.surface.Swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if err != nil || res == khr_swapchain.VKSuboptimal {
		return frameFailure(StagePresent, res, err)
	}

	l.countFrame()
	return nil
}

func (l *frameLoop) record(r Renderer, cmd core1_0.CommandBuffer, imageIndex int) error {
	if err := l.gpu.beginCommandBuffer(cmd); err != nil {
		return frameFailure(StageRecord, 0, err)
	}

	err := l.gpu.beginRenderPass(cmd, core1_0.RenderPassBeginInfo{
		RenderPass:  l.graph.RenderPass,
		Framebuffer: l.graph.Framebuffers[imageIndex],
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: l.surface.Extent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat(l.clearColor),
			core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
		},
	})
	if err != nil {
		return frameFailure(StageRecord, 0, err)
	}

	if err := r.MakeCommand(cmd, imageIndex); err != nil {
		return frameFailure(StageRecord, 0, errors.Wrapf(err, "image %d", imageIndex))
	}

	l.gpu.endRenderPass(cmd)

	if err := l.gpu.endCommandBuffer(cmd); err != nil {
		return frameFailure(StageRecord, 0, err)
	}
	return nil
}

func (l *frameLoop) countFrame() {
	if l.frameCount == 0 {
		l.statsStart = hrtime.Now()
	}
	l.frameCount++

	if l.frameCount%statsInterval == 0 {
		elapsed := hrtime.Since(l.statsStart)
		Logger().Debug("frame timing",
			"frames", l.frameCount,
			"avgFrame", elapsed/statsInterval)
		l.statsStart = hrtime.Now()
	}
}
