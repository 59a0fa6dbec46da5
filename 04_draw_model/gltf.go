package main

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"io/fs"
	"path"
)

func loadGLTF(fsys fs.FS, name string) (*Model, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(file).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decode gltf")
	}

	dir := path.Dir(name)
	return convertGLTF(doc, func(img *gltf.Image) ([]byte, error) {
		switch {
		case img.BufferView != nil:
			return bufferViewData(doc, *img.BufferView)
		case img.IsEmbeddedResource():
			return img.MarshalData()
		default:
			return fs.ReadFile(fsys, path.Join(dir, img.URI))
		}
	})
}

// convertGLTF turns every triangle primitive of doc into a mesh. readImage
// returns the encoded bytes of an image.
func convertGLTF(doc *gltf.Document, readImage func(img *gltf.Image) ([]byte, error)) (*Model, error) {
	model := &Model{}

	for i, m := range doc.Materials {
		mat := Material{Name: m.Name, AlphaMode: alphaModeOf(m.AlphaMode)}

		if textureIndex, ok := materialTexture(m); ok {
			data, err := textureData(doc, textureIndex, readImage)
			if err != nil {
				return nil, errors.Wrapf(err, "material %d", i)
			}
			mat.TextureData = data
		}

		model.Materials = append(model.Materials, mat)
	}

	for i, mesh := range doc.Meshes {
		for j, primitive := range mesh.Primitives {
			if primitive.Mode != gltf.PrimitiveTriangles {
				appbase.Logger().Warn("skipping non-triangle primitive", "mesh", i, "primitive", j, "mode", primitive.Mode)
				continue
			}

			converted, err := convertPrimitive(doc, primitive)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh %d primitive %d", i, j)
			}
			model.Meshes = append(model.Meshes, converted)
		}
	}

	return model, nil
}

func convertPrimitive(doc *gltf.Document, primitive *gltf.Primitive) (Mesh, error) {
	mesh := Mesh{Material: -1}
	if primitive.Material != nil {
		mesh.Material = int(*primitive.Material)
	}

	posIndex, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return mesh, errors.New("primitive has no positions")
	}
	accessor, err := accessorAt(doc, posIndex)
	if err != nil {
		return mesh, err
	}
	positions, err := modeler.ReadPosition(doc, accessor, nil)
	if err != nil {
		return mesh, errors.Wrap(err, "positions")
	}

	var normals [][3]float32
	if index, ok := primitive.Attributes[gltf.NORMAL]; ok {
		accessor, err := accessorAt(doc, index)
		if err != nil {
			return mesh, err
		}
		normals, err = modeler.ReadNormal(doc, accessor, nil)
		if err != nil {
			return mesh, errors.Wrap(err, "normals")
		}
	}

	var uvs [][2]float32
	if index, ok := primitive.Attributes[gltf.TEXCOORD_0]; ok {
		accessor, err := accessorAt(doc, index)
		if err != nil {
			return mesh, err
		}
		uvs, err = modeler.ReadTextureCoord(doc, accessor, nil)
		if err != nil {
			return mesh, errors.Wrap(err, "texture coordinates")
		}
	}

	mesh.Vertices = make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{Position: mgl32.Vec3(p), Color: white}
		if i < len(normals) {
			v.Color = mgl32.Vec3(normals[i])
		}
		if i < len(uvs) {
			v.TexCoord = mgl32.Vec2(uvs[i])
		}
		mesh.Vertices[i] = v
	}

	if primitive.Indices == nil {
		mesh.Indices = make([]uint32, len(positions))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
		return mesh, nil
	}

	accessor, err = accessorAt(doc, *primitive.Indices)
	if err != nil {
		return mesh, err
	}
	mesh.Indices, err = modeler.ReadIndices(doc, accessor, nil)
	if err != nil {
		return mesh, errors.Wrap(err, "indices")
	}
	for _, index := range mesh.Indices {
		if int(index) >= len(mesh.Vertices) {
			return mesh, errors.Newf("index %d out of range of %d vertices", index, len(mesh.Vertices))
		}
	}
	return mesh, nil
}

func accessorAt(doc *gltf.Document, index uint32) (*gltf.Accessor, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, errors.Newf("accessor %d out of range", index)
	}
	return doc.Accessors[index], nil
}

func alphaModeOf(mode gltf.AlphaMode) AlphaMode {
	switch mode {
	case gltf.AlphaMask:
		return AlphaMask
	case gltf.AlphaBlend:
		return AlphaBlend
	default:
		return AlphaOpaque
	}
}

// materialTexture picks the base color texture, falling back to the normal
// texture for materials that only carry one.
func materialTexture(m *gltf.Material) (uint32, bool) {
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
		return pbr.BaseColorTexture.Index, true
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		return *m.NormalTexture.Index, true
	}
	return 0, false
}

func textureData(doc *gltf.Document, textureIndex uint32, readImage func(img *gltf.Image) ([]byte, error)) ([]byte, error) {
	if int(textureIndex) >= len(doc.Textures) {
		return nil, errors.Newf("texture %d out of range", textureIndex)
	}
	texture := doc.Textures[textureIndex]
	if texture.Source == nil || int(*texture.Source) >= len(doc.Images) {
		return nil, errors.Newf("texture %d has no image", textureIndex)
	}
	return readImage(doc.Images[*texture.Source])
}

func bufferViewData(doc *gltf.Document, index uint32) ([]byte, error) {
	if int(index) >= len(doc.BufferViews) {
		return nil, errors.Newf("buffer view %d out of range", index)
	}
	view := doc.BufferViews[index]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, errors.Newf("buffer view %d: buffer %d out of range", index, view.Buffer)
	}

	data := doc.Buffers[view.Buffer].Data
	end := view.ByteOffset + view.ByteLength
	if int(end) > len(data) {
		return nil, errors.Newf("buffer view %d overruns its buffer", index)
	}
	return data[view.ByteOffset:end], nil
}
