package main

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
	"io/fs"
	"path"
	"strings"
	"unsafe"
)

type Vertex struct {
	Position mgl32.Vec3
	// Color carries the normal, or white when the model has none.
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaMask:
		return "mask"
	case AlphaBlend:
		return "blend"
	default:
		return "opaque"
	}
}

// Material is the texture and blending of a set of meshes. TextureData holds
// an encoded PNG or JPEG; empty means plain white.
type Material struct {
	Name        string
	AlphaMode   AlphaMode
	TextureData []byte
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Material int
}

type Model struct {
	Meshes    []Mesh
	Materials []Material
}

var white = mgl32.Vec3{1, 1, 1}

// LoadModel reads an OBJ or glTF model from fsys. GLB and VRM files are
// binary glTF.
func LoadModel(fsys fs.FS, name string) (*Model, error) {
	var model *Model
	var err error

	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".obj":
		model, err = loadOBJ(fsys, name)
	case ".gltf", ".glb", ".vrm":
		model, err = loadGLTF(fsys, name)
	default:
		return nil, errors.Newf("model %s: unsupported format %q", name, ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", name)
	}

	model.finish()
	if len(model.Meshes) == 0 {
		return nil, errors.Newf("model %s has no triangles", name)
	}
	return model, nil
}

// finish drops empty meshes and gives meshes without a valid material a
// default opaque one.
func (m *Model) finish() {
	defaultMaterial := -1

	meshes := m.Meshes[:0]
	for _, mesh := range m.Meshes {
		if len(mesh.Indices) == 0 {
			continue
		}
		if mesh.Material < 0 || mesh.Material >= len(m.Materials) {
			if defaultMaterial < 0 {
				defaultMaterial = len(m.Materials)
				m.Materials = append(m.Materials, Material{Name: "default"})
			}
			mesh.Material = defaultMaterial
		}
		meshes = append(meshes, mesh)
	}
	m.Meshes = meshes
}

// splitPasses returns the indices of meshes drawn in the opaque pass and in
// the blended pass. Masked materials are drawn with the opaque ones.
func splitPasses(m *Model) (opaque, blended []int) {
	for i, mesh := range m.Meshes {
		if m.Materials[mesh.Material].AlphaMode == AlphaBlend {
			blended = append(blended, i)
			continue
		}
		opaque = append(opaque, i)
	}
	return opaque, blended
}

// descriptorIndex locates the set for material in the block of sets owned by
// swapchain image.
func descriptorIndex(image, material, materialCount int) int {
	return image*materialCount + material
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
