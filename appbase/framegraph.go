package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

// FrameGraph is the render pass and the framebuffers targeting each swapchain
// image. Framebuffers[i] pairs color view i with the shared depth view.
type FrameGraph struct {
	RenderPass   core1_0.RenderPass
	Framebuffers []core1_0.Framebuffer
}

func createRenderPass(g gpu, sc *scope, colorFormat core1_0.Format) (*FrameGraph, error) {
	renderPass, err := g.createRenderPass(core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         colorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
			{
				Format:         DepthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	sc.own("render pass", func() { g.release(renderPass) })

	return &FrameGraph{RenderPass: renderPass}, nil
}

// createFramebuffers builds one framebuffer per color view of s.
func (f *FrameGraph) createFramebuffers(g gpu, sc *scope, s *SurfaceResources) error {
	f.Framebuffers = make([]core1_0.Framebuffer, 0, len(s.Views))
	for i, view := range s.Views {
		framebuffer, err := g.createFramebuffer(core1_0.FramebufferCreateInfo{
			RenderPass: f.RenderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				view,
				s.DepthView,
			},
			Width:  s.Extent.Width,
			Height: s.Extent.Height,
		})
		if err != nil {
			return errors.Wrapf(err, "framebuffer %d", i)
		}

		f.Framebuffers = append(f.Framebuffers, framebuffer)
		sc.own("framebuffer", func() { g.release(framebuffer) })
	}

	return nil
}
