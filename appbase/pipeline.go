package appbase

import (
	"github.com/vkngwrapper/core/core1_0"
)

const colorWriteAll = core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha

// PipelineOptions is the per-demo state of a graphics pipeline drawing into
// the App's render pass. A zero CullMode disables culling.
type PipelineOptions struct {
	VertexShader   core1_0.ShaderModule
	FragmentShader core1_0.ShaderModule
	Bindings       []core1_0.VertexInputBindingDescription
	Attributes     []core1_0.VertexInputAttributeDescription
	Layout         core1_0.PipelineLayout

	CullMode  core1_0.CullModeFlags
	FrontFace core1_0.FrontFace
	Blend     core1_0.PipelineColorBlendAttachmentState

	DepthTest    bool
	DepthWrite   bool
	DepthCompare core1_0.CompareOp

	// FlipY uses a negative-height viewport so +Y points up in clip space.
	FlipY bool
}

// OpaqueBlend writes fragments unblended.
func OpaqueBlend() core1_0.PipelineColorBlendAttachmentState {
	return core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:   false,
		ColorWriteMask: colorWriteAll,
	}
}

// AdditiveBlend adds source to destination: ONE, ONE.
func AdditiveBlend() core1_0.PipelineColorBlendAttachmentState {
	return core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:        true,
		SrcColorBlendFactor: core1_0.BlendFactorOne,
		DstColorBlendFactor: core1_0.BlendFactorOne,
		ColorBlendOp:        core1_0.BlendOpAdd,
		SrcAlphaBlendFactor: core1_0.BlendFactorOne,
		DstAlphaBlendFactor: core1_0.BlendFactorOne,
		AlphaBlendOp:        core1_0.BlendOpAdd,
		ColorWriteMask:      colorWriteAll,
	}
}

// AlphaBlend is classic transparency: SRC_ALPHA, ONE_MINUS_SRC_ALPHA.
func AlphaBlend() core1_0.PipelineColorBlendAttachmentState {
	return core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:        true,
		SrcColorBlendFactor: core1_0.BlendFactorSrcAlpha,
		DstColorBlendFactor: core1_0.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        core1_0.BlendOpAdd,
		SrcAlphaBlendFactor: core1_0.BlendFactorOne,
		DstAlphaBlendFactor: core1_0.BlendFactorZero,
		AlphaBlendOp:        core1_0.BlendOpAdd,
		ColorWriteMask:      colorWriteAll,
	}
}

// Viewport covers extent. With flipY the origin moves to the bottom edge and
// the height is negated.
func Viewport(extent core1_0.Extent2D, flipY bool) core1_0.Viewport {
	viewport := core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	if flipY {
		viewport.Y = float32(extent.Height)
		viewport.Height = -float32(extent.Height)
	}
	return viewport
}

// CreateGraphicsPipeline builds a triangle-list pipeline for subpass 0 of the
// App's render pass with a fixed viewport and scissor over the swapchain.
func (a *App) CreateGraphicsPipeline(opts PipelineOptions) (core1_0.Pipeline, error) {
	extent := a.Extent()

	pipelines, _, err := a.device.Device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: opts.VertexShader,
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: opts.FragmentShader,
					Name:   "main",
				},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   opts.Bindings,
				VertexAttributeDescriptions: opts.Attributes,
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{Viewport(extent, opts.FlipY)},
				Scissors: []core1_0.Rect2D{
					{
						Offset: core1_0.Offset2D{X: 0, Y: 0},
						Extent: extent,
					},
				},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				DepthClampEnable:        false,
				RasterizerDiscardEnable: false,

				PolygonMode: core1_0.PolygonModeFill,
				CullMode:    opts.CullMode,
				FrontFace:   opts.FrontFace,

				DepthBiasEnable: false,

				LineWidth: 1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				SampleShadingEnable:  false,
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
				DepthTestEnable:  opts.DepthTest,
				DepthWriteEnable: opts.DepthWrite,
				DepthCompareOp:   opts.DepthCompare,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOpEnabled: false,
				LogicOp:        core1_0.LogicOpCopy,

				BlendConstants: [4]float32{0, 0, 0, 0},
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					opts.Blend,
				},
			},
			Layout:            opts.Layout,
			RenderPass:        a.RenderPass(),
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		return nil, err
	}
	return pipelines[0], nil
}

// CreateUniformSamplerLayout declares a uniform buffer at binding 0 for the
// vertex stage and a combined image sampler at binding 1 for the fragment
// stage.
func (a *App) CreateUniformSamplerLayout() (core1_0.DescriptorSetLayout, error) {
	layout, _, err := a.device.Device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	return layout, err
}

// WriteUniformSampler points set at buffer (binding 0) and the texture and
// sampler (binding 1).
func (a *App) WriteUniformSampler(set core1_0.DescriptorSet, buffer *Buffer, texture *Texture, sampler core1_0.Sampler) error {
	return a.device.Device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          set,
			DstBinding:      0,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBuffer,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: buffer.Buffer,
					Offset: 0,
					Range:  buffer.Size,
				},
			},
		},
		{
			DstSet:          set,
			DstBinding:      1,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   texture.View,
					Sampler:     sampler,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		},
	}, nil)
}

// CreateUniformSamplerPool sizes a descriptor pool for sets sets of the
// CreateUniformSamplerLayout shape.
func (a *App) CreateUniformSamplerPool(sets int) (core1_0.DescriptorPool, error) {
	pool, _, err := a.device.Device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: sets,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: sets,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: sets,
			},
		},
	})
	return pool, err
}

// AllocateDescriptorSets allocates count sets of layout from pool.
func (a *App) AllocateDescriptorSets(pool core1_0.DescriptorPool, layout core1_0.DescriptorSetLayout, count int) ([]core1_0.DescriptorSet, error) {
	layouts := make([]core1_0.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}

	sets, _, err := a.device.Device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     layouts,
	})
	return sets, err
}
