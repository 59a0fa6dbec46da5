package main

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"time"
	"unsafe"
)

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

type ShaderParameters struct {
	World mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

var (
	red     = mgl32.Vec3{1, 0, 0}
	green   = mgl32.Vec3{0, 1, 0}
	blue    = mgl32.Vec3{0, 0, 1}
	white   = mgl32.Vec3{1, 1, 1}
	black   = mgl32.Vec3{0, 0, 0}
	yellow  = mgl32.Vec3{1, 1, 0}
	magenta = mgl32.Vec3{1, 0, 1}
	cyan    = mgl32.Vec3{0, 1, 1}
)

// UV origin is the bottom left; the flipped viewport turns it upright.
var (
	uvLB = mgl32.Vec2{0, 0}
	uvLT = mgl32.Vec2{0, 1}
	uvRB = mgl32.Vec2{1, 0}
	uvRT = mgl32.Vec2{1, 1}
)

// cubeGeometry builds a cube of half-size k with four vertices per face so
// every face carries its own texture coordinates. Faces are front, right,
// left, back, top, bottom.
func cubeGeometry(k float32) ([]Vertex, []uint32) {
	vertices := []Vertex{
		{mgl32.Vec3{-k, k, k}, yellow, uvLB},
		{mgl32.Vec3{-k, -k, k}, red, uvLT},
		{mgl32.Vec3{k, k, k}, white, uvRB},
		{mgl32.Vec3{k, -k, k}, magenta, uvRT},

		{mgl32.Vec3{k, k, k}, white, uvLB},
		{mgl32.Vec3{k, -k, k}, magenta, uvLT},
		{mgl32.Vec3{k, k, -k}, cyan, uvRB},
		{mgl32.Vec3{k, -k, -k}, blue, uvRT},

		{mgl32.Vec3{-k, k, -k}, green, uvLB},
		{mgl32.Vec3{-k, -k, -k}, black, uvLT},
		{mgl32.Vec3{-k, k, k}, yellow, uvRB},
		{mgl32.Vec3{-k, -k, k}, red, uvRT},

		{mgl32.Vec3{k, k, -k}, cyan, uvLB},
		{mgl32.Vec3{k, -k, -k}, blue, uvLT},
		{mgl32.Vec3{-k, k, -k}, green, uvRB},
		{mgl32.Vec3{-k, -k, -k}, black, uvRT},

		{mgl32.Vec3{-k, k, -k}, green, uvLB},
		{mgl32.Vec3{-k, k, k}, yellow, uvLT},
		{mgl32.Vec3{k, k, -k}, cyan, uvRB},
		{mgl32.Vec3{k, k, k}, white, uvRT},

		{mgl32.Vec3{-k, -k, k}, red, uvLB},
		{mgl32.Vec3{-k, -k, -k}, black, uvLT},
		{mgl32.Vec3{k, -k, k}, magenta, uvRB},
		{mgl32.Vec3{k, -k, -k}, blue, uvRT},
	}

	indices := make([]uint32, 0, 36)
	for face := uint32(0); face < 6; face++ {
		base := face * 4
		indices = append(indices,
			base, base+2, base+1,
			base+1, base+2, base+3,
		)
	}

	return vertices, indices
}

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
		{
			Binding:  0,
			Location: 2,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.TexCoord)),
		},
	}
}

// shaderParameters spins the cube a quarter turn per second about Y.
func shaderParameters(elapsed time.Duration, extent core1_0.Extent2D) ShaderParameters {
	angle := float32(elapsed.Seconds()) * mgl32.DegToRad(90)

	return ShaderParameters{
		World: mgl32.HomogRotate3DY(angle),
		View:  mgl32.LookAtV(mgl32.Vec3{0, 3, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
		Proj:  appbase.Perspective(mgl32.DegToRad(60), appbase.AspectRatio(extent), 0.01, 100),
	}
}
