package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"testing"
)

func buildSurface(t *testing.T, g *fakeGPU, sc *scope) *SurfaceResources {
	t.Helper()
	res, err := createSwapchain(g, sc, nil, 640, 480)
	require.NoError(t, err)
	require.NoError(t, res.createDepthBuffer(g, sc, testMemoryTypes))
	require.NoError(t, res.createViews(g, sc))
	return res
}

func TestRenderPassDeclaresColorAndDepth(t *testing.T) {
	g := newFakeGPU(2)
	sc := &scope{name: "frame graph"}

	graph, err := createRenderPass(g, sc, core1_0.FormatB8G8R8A8SRGB)
	require.NoError(t, err)
	assert.NotNil(t, graph.RenderPass)

	info := g.renderPassInfo
	require.Len(t, info.Attachments, 2)

	color := info.Attachments[0]
	assert.Equal(t, core1_0.FormatB8G8R8A8SRGB, color.Format)
	assert.Equal(t, core1_0.AttachmentLoadOpClear, color.LoadOp)
	assert.Equal(t, core1_0.AttachmentStoreOpStore, color.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutUndefined, color.InitialLayout)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, color.FinalLayout)

	depth := info.Attachments[1]
	assert.Equal(t, DepthFormat, depth.Format)
	assert.Equal(t, core1_0.AttachmentLoadOpClear, depth.LoadOp)
	assert.Equal(t, core1_0.AttachmentStoreOpStore, depth.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutDepthStencilAttachmentOptimal, depth.FinalLayout)

	require.Len(t, info.Subpasses, 1)
	subpass := info.Subpasses[0]
	require.Len(t, subpass.ColorAttachments, 1)
	assert.Equal(t, 0, subpass.ColorAttachments[0].Attachment)
	require.NotNil(t, subpass.DepthStencilAttachment)
	assert.Equal(t, 1, subpass.DepthStencilAttachment.Attachment)
}

func TestFramebuffersPairEachViewWithSharedDepth(t *testing.T) {
	for _, n := range []int{2, 3, 4} {
		g := newFakeGPU(n)
		surfaceScope := &scope{name: "surface"}
		graphScope := &scope{name: "frame graph"}
		surface := buildSurface(t, g, surfaceScope)

		graph, err := createRenderPass(g, graphScope, surface.Format.Format)
		require.NoError(t, err)
		require.NoError(t, graph.createFramebuffers(g, graphScope, surface))

		assert.Len(t, graph.Framebuffers, len(surface.Views))
		require.Len(t, g.framebufferInfos, n)
		for i, info := range g.framebufferInfos {
			assert.Equal(t, graph.RenderPass, info.RenderPass)
			assert.Equal(t, []core1_0.ImageView{surface.Views[i], surface.DepthView}, info.Attachments)
			assert.Equal(t, 640, info.Width)
			assert.Equal(t, 480, info.Height)
			assert.Equal(t, 1, info.Layers)
		}
	}
}

func TestFramebufferFailureIsWrapped(t *testing.T) {
	g := newFakeGPU(3)
	g.failOn("createFramebuffer", 3, errors.New("device lost"))
	surfaceScope := &scope{name: "surface"}
	graphScope := &scope{name: "frame graph"}
	surface := buildSurface(t, g, surfaceScope)

	graph, err := createRenderPass(g, graphScope, surface.Format.Format)
	require.NoError(t, err)

	err = graph.createFramebuffers(g, graphScope, surface)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "framebuffer 2")
	assert.Equal(t, 3, graphScope.len())

	graphScope.releaseAll()
	surfaceScope.releaseAll()
	assert.Empty(t, g.live)
}
