package main

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"io/fs"
	"unsafe"
)

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

var (
	red   = mgl32.Vec3{1, 0, 0}
	green = mgl32.Vec3{0, 1, 0}
	blue  = mgl32.Vec3{0, 0, 1}
)

// Left, right, then top center.
var vertices = []Vertex{
	{Position: mgl32.Vec3{-1, 0, 0}, Color: red},
	{Position: mgl32.Vec3{1, 0, 0}, Color: green},
	{Position: mgl32.Vec3{0, 1, 0}, Color: blue},
}

var indices = []uint32{0, 1, 2}

func getVertexBindingDescription() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func getVertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
	}
}

type triangleRenderer struct {
	assets fs.FS

	vertexBuffer   *appbase.Buffer
	indexBuffer    *appbase.Buffer
	pipelineLayout core1_0.PipelineLayout
	pipeline       core1_0.Pipeline
}

func (r *triangleRenderer) Prepare(app *appbase.App) error {
	var err error

	r.vertexBuffer, err = app.CreateHostBuffer(core1_0.BufferUsageVertexBuffer, vertices)
	if err != nil {
		return errors.Wrap(err, "vertex buffer")
	}

	r.indexBuffer, err = app.CreateHostBuffer(core1_0.BufferUsageIndexBuffer, indices)
	if err != nil {
		return errors.Wrap(err, "index buffer")
	}

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

	r.pipelineLayout, _, err = app.Device().CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "pipeline layout")
	}

	r.pipeline, err = app.CreateGraphicsPipeline(appbase.PipelineOptions{
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
	})
	return errors.Wrap(err, "graphics pipeline")
}

func (r *triangleRenderer) MakeCommand(cmd core1_0.CommandBuffer, imageIndex int) error {
	cmd.CmdBindPipeline(core1_0.PipelineBindPointGraphics, r.pipeline)
	cmd.CmdBindVertexBuffers(0, []core1_0.Buffer{r.vertexBuffer.Buffer}, []int{0})
	cmd.CmdBindIndexBuffer(r.indexBuffer.Buffer, 0, core1_0.IndexTypeUInt32)
	cmd.CmdDrawIndexed(len(indices), 1, 0, 0, 0)
	return nil
}

func (r *triangleRenderer) Cleanup(app *appbase.App) error {
	if r.pipeline != nil {
		r.pipeline.Destroy(nil)
	}
	if r.pipelineLayout != nil {
		r.pipelineLayout.Destroy(nil)
	}
	r.indexBuffer.Destroy()
	r.vertexBuffer.Destroy()
	return nil
}
