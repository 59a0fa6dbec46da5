package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"testing"
)

var frameCycle = []string{"acquire", "wait", "begin", "beginRenderPass", "endRenderPass", "end", "reset", "submit", "present"}

func preparedApp(t *testing.T, g *fakeGPU) (*App, *recordingRenderer) {
	t.Helper()
	app := newTestApp(t, g)
	r := &recordingRenderer{}
	require.NoError(t, app.Prepare(r))
	return app, r
}

func TestThreeRendersRunThreeOrderedCycles(t *testing.T) {
	g := newFakeGPU(3)
	g.acquireOrder = []int{2, 0, 1}
	app, r := preparedApp(t, g)

	for i := 0; i < 3; i++ {
		require.NoError(t, app.Render())
	}

	var want []string
	for i := 0; i < 3; i++ {
		want = append(want, frameCycle...)
	}
	assert.Equal(t, want, g.frameCalls)
	assert.Equal(t, []int{2, 0, 1}, r.indices)

	for i, imageIndex := range g.acquireOrder {
		fence := app.frames.Fences[imageIndex]
		cmd := app.frames.Commands[imageIndex]

		assert.Equal(t, fence, g.waited[i])
		assert.Equal(t, fence, g.reset[i])
		assert.Equal(t, cmd, g.begun[i])
		assert.Equal(t, cmd, r.commands[i])
		assert.Equal(t, app.graph.Framebuffers[imageIndex], g.passes[i].Framebuffer)

		submit := g.submits[i]
		assert.Equal(t, fence, submit.fence)
		assert.Equal(t, []core1_0.CommandBuffer{cmd}, submit.info.CommandBuffers)
		assert.Equal(t, []core1_0.Semaphore{app.frames.ImageAcquired}, submit.info.WaitSemaphores)
		assert.Equal(t, []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput}, submit.info.WaitDstStageMask)
		assert.Equal(t, []core1_0.Semaphore{app.frames.RenderCompleted}, submit.info.SignalSemaphores)

		present := g.presents[i]
		assert.Equal(t, []int{imageIndex}, present.ImageIndices)
		assert.Equal(t, []core1_0.Semaphore{app.frames.RenderCompleted}, present.WaitSemaphores)
		assert.Equal(t, []khr_swapchain.Swapchain{app.surface.Swapchain}, present.Swapchains)
	}
}

func TestImageIndexMappingIsStableAcrossFrames(t *testing.T) {
	g := newFakeGPU(2)
	g.acquireOrder = []int{1, 1, 0, 1, 0, 0}
	app, r := preparedApp(t, g)

	for range g.acquireOrder {
		require.NoError(t, app.Render())
	}

	fenceFor := map[int]core1_0.Fence{}
	cmdFor := map[int]core1_0.CommandBuffer{}
	for i, imageIndex := range r.indices {
		if fence, ok := fenceFor[imageIndex]; ok {
			assert.Equal(t, fence, g.waited[i])
			assert.Equal(t, cmdFor[imageIndex], r.commands[i])
		}
		fenceFor[imageIndex] = g.waited[i]
		cmdFor[imageIndex] = r.commands[i]
	}
	assert.NotEqual(t, fenceFor[0], fenceFor[1])
	assert.NotEqual(t, cmdFor[0], cmdFor[1])
}

func TestRenderPassClearsToConfiguredColorAndDepthOne(t *testing.T) {
	g := newFakeGPU(2)
	app := newTestApp(t, g)
	app.loop.clearColor = [4]float32{0.1, 0.2, 0.3, 1}
	require.NoError(t, app.Prepare(&recordingRenderer{}))

	require.NoError(t, app.Render())

	require.Len(t, g.passes, 1)
	pass := g.passes[0]
	assert.Equal(t, app.graph.RenderPass, pass.RenderPass)
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, pass.RenderArea.Extent)
	assert.Equal(t, []core1_0.ClearValue{
		core1_0.ClearValueFloat{0.1, 0.2, 0.3, 1},
		core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
	}, pass.ClearValues)
}

func TestHookReceivesIndexBeforeSubmit(t *testing.T) {
	g := newFakeGPU(3)
	g.acquireOrder = []int{1}
	app := newTestApp(t, g)

	var callsAtHook []string
	r := &recordingRenderer{onCommand: func(core1_0.CommandBuffer, int) {
		callsAtHook = append([]string(nil), g.frameCalls...)
	}}
	require.NoError(t, app.Prepare(r))
	require.NoError(t, app.Render())

	assert.Equal(t, []string{"acquire", "wait", "begin", "beginRenderPass"}, callsAtHook)
	assert.Equal(t, []int{1}, r.indices)
}

func TestAcquireFailureStopsTheFrame(t *testing.T) {
	g := newFakeGPU(2)
	g.acquireResult = khr_swapchain.VKErrorOutOfDate
	g.failOn("acquireNextImage", 0, errors.New("out of date"))
	app, r := preparedApp(t, g)

	err := app.Render()
	require.Error(t, err)
	assert.Equal(t, KindFrame, Classify(err))

	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageAcquire, fe.Stage)
	assert.True(t, fe.Stale())

	assert.Equal(t, []string{"acquire"}, g.frameCalls)
	assert.Empty(t, r.indices)
}

func TestSuboptimalPresentIsFrameFailure(t *testing.T) {
	g := newFakeGPU(2)
	g.presentResult = khr_swapchain.VKSuboptimal
	app, _ := preparedApp(t, g)

	err := app.Render()
	require.Error(t, err)

	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StagePresent, fe.Stage)
	assert.True(t, fe.Stale())
	assert.Equal(t, frameCycle, g.frameCalls)
}

func TestFenceWaitFailureSkipsRecording(t *testing.T) {
	g := newFakeGPU(2)
	g.failOn("waitForFence", 0, errors.New("device lost"))
	app, r := preparedApp(t, g)

	err := app.Render()
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageWait, fe.Stage)
	assert.False(t, fe.Stale())
	assert.Equal(t, []string{"acquire", "wait"}, g.frameCalls)
	assert.Empty(t, r.indices)
}

func TestHookFailureIsRecordStageFailure(t *testing.T) {
	g := newFakeGPU(2)
	app := newTestApp(t, g)
	r := &recordingRenderer{commandErr: errors.New("pipeline missing")}
	require.NoError(t, app.Prepare(r))

	err := app.Render()
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageRecord, fe.Stage)
	assert.Contains(t, err.Error(), "pipeline missing")
	assert.Equal(t, []string{"acquire", "wait", "begin", "beginRenderPass"}, g.frameCalls)
}

func TestSubmitFailureLeavesNoPresent(t *testing.T) {
	g := newFakeGPU(2)
	g.failOn("submit", 2, errors.New("device lost"))
	app, _ := preparedApp(t, g)

	require.NoError(t, app.Render())
	err := app.Render()

	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageSubmit, fe.Stage)
	assert.Len(t, g.presents, 1)
}

func TestSkippedAcquireFailureLeavesLoopReusable(t *testing.T) {
	g := newFakeGPU(2)
	g.acquireResult = khr_swapchain.VKErrorOutOfDate
	g.failOn("acquireNextImage", 1, errors.New("out of date"))
	app, r := preparedApp(t, g)
	app.OnFrameError = func(error) error { return nil }

	require.NoError(t, app.handleFrameError(app.Render()))
	assert.Equal(t, []string{"acquire"}, g.frameCalls)
	assert.Empty(t, g.waited)
	assert.Empty(t, g.reset)
	assert.Empty(t, g.submits)

	g.acquireResult = 0
	require.NoError(t, app.handleFrameError(app.Render()))
	assert.Equal(t, append([]string{"acquire"}, frameCycle...), g.frameCalls)
	assert.Equal(t, []core1_0.Semaphore{app.frames.ImageAcquired}, g.submits[0].info.WaitSemaphores)
	assert.Len(t, r.indices, 1)
}

func TestSubmitFailureStopsEvenWhenHookWouldSkip(t *testing.T) {
	g := newFakeGPU(2)
	g.failOn("submit", 1, errors.New("device lost"))
	app, _ := preparedApp(t, g)
	hooked := 0
	app.OnFrameError = func(error) error {
		hooked++
		return nil
	}

	err := app.handleFrameError(app.Render())
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageSubmit, fe.Stage)
	assert.False(t, fe.Skippable())
	assert.Zero(t, hooked)
	assert.Equal(t, []core1_0.Fence{app.frames.Fences[0]}, g.reset)
}

func TestRecordFailureStopsEvenWhenHookWouldSkip(t *testing.T) {
	g := newFakeGPU(2)
	app := newTestApp(t, g)
	require.NoError(t, app.Prepare(&recordingRenderer{commandErr: errors.New("pipeline missing")}))
	hooked := 0
	app.OnFrameError = func(error) error {
		hooked++
		return nil
	}

	err := app.handleFrameError(app.Render())
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageRecord, fe.Stage)
	assert.Zero(t, hooked)
}

func TestOutOfRangeImageIndexIsContractViolation(t *testing.T) {
	g := newFakeGPU(2)
	g.acquireOrder = []int{5}
	app, r := preparedApp(t, g)

	err := app.Render()
	assert.Equal(t, KindContract, Classify(err))
	assert.Empty(t, g.waited)
	assert.Empty(t, r.indices)
}
