package main

import (
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"io/fs"
	"time"
	"unsafe"
)

type cubeRenderer struct {
	assets fs.FS

	start  time.Duration
	extent core1_0.Extent2D

	indexCount     int
	vertexBuffer   *appbase.Buffer
	indexBuffer    *appbase.Buffer
	uniformBuffers []*appbase.Buffer

	texture *appbase.Texture
	sampler core1_0.Sampler

	descriptorSetLayout core1_0.DescriptorSetLayout
	descriptorPool      core1_0.DescriptorPool
	descriptorSets      []core1_0.DescriptorSet

	pipelineLayout core1_0.PipelineLayout
	pipeline       core1_0.Pipeline
}

func (r *cubeRenderer) Prepare(app *appbase.App) error {
	r.start = hrtime.Now()
	r.extent = app.Extent()

	steps := []struct {
		name string
		run  func(app *appbase.App) error
	}{
		{"cube geometry", r.createGeometry},
		{"uniform buffers", r.createUniformBuffers},
		{"texture", r.createTexture},
		{"descriptor sets", r.createDescriptorSets},
		{"graphics pipeline", r.createGraphicsPipeline},
	}
	for _, step := range steps {
		if err := step.run(app); err != nil {
			return errors.Wrap(err, step.name)
		}
	}
	return nil
}

func (r *cubeRenderer) createGeometry(app *appbase.App) error {
	vertices, indices := cubeGeometry(1)
	r.indexCount = len(indices)

	var err error
	r.vertexBuffer, err = app.CreateHostBuffer(core1_0.BufferUsageVertexBuffer, vertices)
	if err != nil {
		return err
	}

	r.indexBuffer, err = app.CreateHostBuffer(core1_0.BufferUsageIndexBuffer, indices)
	return err
}

func (r *cubeRenderer) createUniformBuffers(app *appbase.App) error {
	var err error
	r.uniformBuffers, err = app.CreateUniformBuffers(int(unsafe.Sizeof(ShaderParameters{})))
	return err
}

func (r *cubeRenderer) createTexture(app *appbase.App) error {
	var err error
	r.texture, err = app.LoadTexture(r.assets, "texture.png")
	if err != nil {
		return err
	}

	r.sampler, err = app.CreateSampler()
	return err
}

func (r *cubeRenderer) createDescriptorSets(app *appbase.App) error {
	var err error
	r.descriptorSetLayout, err = app.CreateUniformSamplerLayout()
	if err != nil {
		return err
	}

	r.descriptorPool, err = app.CreateUniformSamplerPool(len(r.uniformBuffers))
	if err != nil {
		return err
	}

	r.descriptorSets, err = app.AllocateDescriptorSets(r.descriptorPool, r.descriptorSetLayout, len(r.uniformBuffers))
	if err != nil {
		return err
	}

	for i, set := range r.descriptorSets {
		if err := app.WriteUniformSampler(set, r.uniformBuffers[i], r.texture, r.sampler); err != nil {
			return errors.Wrapf(err, "descriptor set %d", i)
		}
	}
	return nil
}

func (r *cubeRenderer) createGraphicsPipeline(app *appbase.App) error {
	vertShader, err := app.LoadShaderModule(r.assets, "shaders/vert.spv")
	if err != nil {
		return err
	}
	defer vertShader.Destroy(nil)

	fragShader, err := app.LoadShaderModule(r.assets, "shaders/frag.spv")
	if err != nil {
		return err
	}
	defer fragShader.Destroy(nil)

	r.pipelineLayout, _, err = app.Device().CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			r.descriptorSetLayout,
		},
	})
	if err != nil {
		return err
	}

	r.pipeline, err = app.CreateGraphicsPipeline(appbase.PipelineOptions{
		VertexShader:   vertShader,
		FragmentShader: fragShader,
		Bindings:       getVertexBindingDescription(),
		Attributes:     getVertexAttributeDescriptions(),
		Layout:         r.pipelineLayout,

		FrontFace: core1_0.FrontFaceCounterClockwise,
		Blend:     appbase.AdditiveBlend(),

		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: core1_0.CompareOpLessOrEqual,

		FlipY: true,
	})
	return err
}

func (r *cubeRenderer) MakeCommand(cmd core1_0.CommandBuffer, imageIndex int) error {
	params := shaderParameters(hrtime.Now()-r.start, r.extent)
	if err := r.uniformBuffers[imageIndex].Write(0, &params); err != nil {
		return errors.Wrap(err, "update shader parameters")
	}

	cmd.CmdBindPipeline(core1_0.PipelineBindPointGraphics, r.pipeline)
	cmd.CmdBindVertexBuffers(0, []core1_0.Buffer{r.vertexBuffer.Buffer}, []int{0})
	cmd.CmdBindIndexBuffer(r.indexBuffer.Buffer, 0, core1_0.IndexTypeUInt32)
	cmd.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, r.pipelineLayout, []core1_0.DescriptorSet{
		r.descriptorSets[imageIndex],
	}, nil)
	cmd.CmdDrawIndexed(r.indexCount, 1, 0, 0, 0)
	return nil
}

func (r *cubeRenderer) Cleanup(app *appbase.App) error {
	if r.pipeline != nil {
		r.pipeline.Destroy(nil)
	}
	if r.pipelineLayout != nil {
		r.pipelineLayout.Destroy(nil)
	}
	if r.descriptorPool != nil {
		r.descriptorPool.Destroy(nil)
	}
	if r.descriptorSetLayout != nil {
		r.descriptorSetLayout.Destroy(nil)
	}
	if r.sampler != nil {
		r.sampler.Destroy(nil)
	}
	r.texture.Destroy()
	for _, buffer := range r.uniformBuffers {
		buffer.Destroy()
	}
	r.indexBuffer.Destroy()
	r.vertexBuffer.Destroy()
	return nil
}
