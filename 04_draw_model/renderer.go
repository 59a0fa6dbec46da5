package main

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"image"
	"image/color"
	"io/fs"
	"unsafe"
)

type ShaderParameters struct {
	World mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// shaderParameters is a fixed camera looking down at the model turned 45
// degrees about Y.
func shaderParameters(extent core1_0.Extent2D) ShaderParameters {
	return ShaderParameters{
		World: mgl32.HomogRotate3DY(mgl32.DegToRad(45)),
		View:  mgl32.LookAtV(mgl32.Vec3{0, 3, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
		Proj:  appbase.Perspective(mgl32.DegToRad(60), appbase.AspectRatio(extent), 0.01, 100),
	}
}

type meshBuffers struct {
	vertexBuffer *appbase.Buffer
	indexBuffer  *appbase.Buffer
	indexCount   int
	material     int
}

type modelRenderer struct {
	assets    fs.FS
	modelName string

	model   *Model
	opaque  []int
	blended []int
	params  ShaderParameters

	meshes         []meshBuffers
	textures       []*appbase.Texture
	sampler        core1_0.Sampler
	uniformBuffers []*appbase.Buffer

	descriptorSetLayout core1_0.DescriptorSetLayout
	descriptorPool      core1_0.DescriptorPool
	descriptorSets      []core1_0.DescriptorSet

	pipelineLayout  core1_0.PipelineLayout
	pipelineOpaque  core1_0.Pipeline
	pipelineBlended core1_0.Pipeline
}

func (r *modelRenderer) Prepare(app *appbase.App) error {
	var err error
	r.model, err = LoadModel(r.assets, r.modelName)
	if err != nil {
		return err
	}
	r.opaque, r.blended = splitPasses(r.model)
	r.params = shaderParameters(app.Extent())

	appbase.Logger().Info("model loaded",
		"name", r.modelName,
		"meshes", len(r.model.Meshes),
		"materials", len(r.model.Materials),
		"blended", len(r.blended))

	steps := []struct {
		name string
		run  func(app *appbase.App) error
	}{
		{"mesh buffers", r.createMeshBuffers},
		{"material textures", r.createTextures},
		{"uniform buffers", r.createUniformBuffers},
		{"descriptor sets", r.createDescriptorSets},
		{"graphics pipelines", r.createGraphicsPipelines},
	}
	for _, step := range steps {
		if err := step.run(app); err != nil {
			return errors.Wrap(err, step.name)
		}
	}
	return nil
}

func (r *modelRenderer) createMeshBuffers(app *appbase.App) error {
	for i, mesh := range r.model.Meshes {
		buffers := meshBuffers{indexCount: len(mesh.Indices), material: mesh.Material}

		var err error
		buffers.vertexBuffer, err = app.CreateDeviceBuffer(core1_0.BufferUsageVertexBuffer, mesh.Vertices)
		if err != nil {
			return errors.Wrapf(err, "mesh %d vertices", i)
		}

		buffers.indexBuffer, err = app.CreateDeviceBuffer(core1_0.BufferUsageIndexBuffer, mesh.Indices)
		if err != nil {
			buffers.vertexBuffer.Destroy()
			return errors.Wrapf(err, "mesh %d indices", i)
		}

		r.meshes = append(r.meshes, buffers)
	}
	return nil
}

func (r *modelRenderer) createTextures(app *appbase.App) error {
	for i, mat := range r.model.Materials {
		var texture *appbase.Texture
		var err error
		if len(mat.TextureData) > 0 {
			texture, err = app.DecodeTexture(mat.TextureData)
		} else {
			texture, err = app.CreateTexture(whitePixel())
		}
		if err != nil {
			return errors.Wrapf(err, "material %d (%s)", i, mat.Name)
		}
		r.textures = append(r.textures, texture)
	}

	var err error
	r.sampler, err = app.CreateSampler()
	return err
}

func whitePixel() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	return img
}

func (r *modelRenderer) createUniformBuffers(app *appbase.App) error {
	var err error
	r.uniformBuffers, err = app.CreateUniformBuffers(int(unsafe.Sizeof(ShaderParameters{})))
	return err
}

// createDescriptorSets allocates one set per swapchain image and material.
func (r *modelRenderer) createDescriptorSets(app *appbase.App) error {
	materialCount := len(r.textures)
	setCount := len(r.uniformBuffers) * materialCount

	var err error
	r.descriptorSetLayout, err = app.CreateUniformSamplerLayout()
	if err != nil {
		return err
	}

	r.descriptorPool, err = app.CreateUniformSamplerPool(setCount)
	if err != nil {
		return err
	}

	r.descriptorSets, err = app.AllocateDescriptorSets(r.descriptorPool, r.descriptorSetLayout, setCount)
	if err != nil {
		return err
	}

	for imageIndex, buffer := range r.uniformBuffers {
		for material, texture := range r.textures {
			set := r.descriptorSets[descriptorIndex(imageIndex, material, materialCount)]
			if err := app.WriteUniformSampler(set, buffer, texture, r.sampler); err != nil {
				return errors.Wrapf(err, "descriptor set for image %d material %d", imageIndex, material)
			}
		}
	}
	return nil
}

func (r *modelRenderer) createGraphicsPipelines(app *appbase.App) error {
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

	alphaShader, err := app.LoadShaderModule(r.assets, "shaders/alpha.spv")
	if err != nil {
		return err
	}
	defer alphaShader.Destroy(nil)

	r.pipelineLayout, _, err = app.Device().CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			r.descriptorSetLayout,
		},
	})
	if err != nil {
		return err
	}

	opts := appbase.PipelineOptions{
		VertexShader:   vertShader,
		FragmentShader: fragShader,
		Bindings:       getVertexBindingDescription(),
		Attributes:     getVertexAttributeDescriptions(),
		Layout:         r.pipelineLayout,

		FrontFace: core1_0.FrontFaceCounterClockwise,
		Blend:     appbase.OpaqueBlend(),

		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: core1_0.CompareOpLessOrEqual,

		FlipY: true,
	}
	r.pipelineOpaque, err = app.CreateGraphicsPipeline(opts)
	if err != nil {
		return errors.Wrap(err, "opaque")
	}

	// Blended surfaces are tested against the opaque depth but never write it.
	opts.FragmentShader = alphaShader
	opts.Blend = appbase.AlphaBlend()
	opts.DepthWrite = false
	r.pipelineBlended, err = app.CreateGraphicsPipeline(opts)
	return errors.Wrap(err, "blended")
}

func (r *modelRenderer) MakeCommand(cmd core1_0.CommandBuffer, imageIndex int) error {
	if err := r.uniformBuffers[imageIndex].Write(0, &r.params); err != nil {
		return errors.Wrap(err, "update shader parameters")
	}

	cmd.CmdBindPipeline(core1_0.PipelineBindPointGraphics, r.pipelineOpaque)
	r.drawMeshes(cmd, imageIndex, r.opaque)

	if len(r.blended) > 0 {
		cmd.CmdBindPipeline(core1_0.PipelineBindPointGraphics, r.pipelineBlended)
		r.drawMeshes(cmd, imageIndex, r.blended)
	}
	return nil
}

func (r *modelRenderer) drawMeshes(cmd core1_0.CommandBuffer, imageIndex int, meshes []int) {
	for _, i := range meshes {
		mesh := r.meshes[i]

		cmd.CmdBindVertexBuffers(0, []core1_0.Buffer{mesh.vertexBuffer.Buffer}, []int{0})
		cmd.CmdBindIndexBuffer(mesh.indexBuffer.Buffer, 0, core1_0.IndexTypeUInt32)
		cmd.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, r.pipelineLayout, []core1_0.DescriptorSet{
			r.descriptorSets[descriptorIndex(imageIndex, mesh.material, len(r.textures))],
		}, nil)
		cmd.CmdDrawIndexed(mesh.indexCount, 1, 0, 0, 0)
	}
}

func (r *modelRenderer) Cleanup(app *appbase.App) error {
	if r.pipelineBlended != nil {
		r.pipelineBlended.Destroy(nil)
	}
	if r.pipelineOpaque != nil {
		r.pipelineOpaque.Destroy(nil)
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
	for _, buffer := range r.uniformBuffers {
		buffer.Destroy()
	}
	if r.sampler != nil {
		r.sampler.Destroy(nil)
	}
	for _, texture := range r.textures {
		texture.Destroy()
	}
	for _, mesh := range r.meshes {
		mesh.indexBuffer.Destroy()
		mesh.vertexBuffer.Destroy()
	}
	return nil
}
