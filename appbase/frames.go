package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// FrameResources holds one command buffer and one fence per swapchain image,
// plus the two semaphores every frame reuses. Fences[i] is signaled exactly
// when Commands[i] has finished executing.
type FrameResources struct {
	Commands        []core1_0.CommandBuffer
	Fences          []core1_0.Fence
	ImageAcquired   core1_0.Semaphore
	RenderCompleted core1_0.Semaphore
}

// createFrameResources allocates count command buffers and count fences. The
// fences start signaled so the first wait on each returns at once.
func createFrameResources(g gpu, sc *scope, count int) (*FrameResources, error) {
	commands, err := g.allocateCommandBuffers(count)
	if err != nil {
		return nil, err
	}
	sc.own("command buffers", func() { g.release(commands) })
	if len(commands) != count {
		return nil, errors.AssertionFailedf("allocated %d command buffers, want %d", len(commands), count)
	}

	res := &FrameResources{
		Commands: commands,
		Fences:   make([]core1_0.Fence, 0, count),
	}

	for i := 0; i < count; i++ {
		fence, err := g.createFence(core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fence %d", i)
		}
		res.Fences = append(res.Fences, fence)
		sc.own("fence", func() { g.release(fence) })
	}

	res.ImageAcquired, err = g.createSemaphore()
	if err != nil {
		return nil, errors.Wrap(err, "image acquired semaphore")
	}
	imageAcquired := res.ImageAcquired
	sc.own("image acquired semaphore", func() { g.release(imageAcquired) })

	res.RenderCompleted, err = g.createSemaphore()
	if err != nil {
		return nil, errors.Wrap(err, "render completed semaphore")
	}
	renderCompleted := res.RenderCompleted
	sc.own("render completed semaphore", func() { g.release(renderCompleted) })

	Logger().Debug("frame resources created", "frames", count)
	return res, nil
}
