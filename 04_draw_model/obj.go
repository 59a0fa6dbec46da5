package main

import (
	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"io"
	"io/fs"
	"path"
	"strings"
)

func loadOBJ(fsys fs.FS, name string) (*Model, error) {
	meshFile, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer meshFile.Close()

	// The material library is optional.
	var matReader io.Reader = strings.NewReader("")
	matFile, err := fsys.Open(strings.TrimSuffix(name, path.Ext(name)) + ".mtl")
	if err == nil {
		defer matFile.Close()
		matReader = matFile
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	decoder, err := obj.DecodeReader(meshFile, matReader)
	if err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}

	dir := path.Dir(name)
	return convertOBJ(decoder, func(texture string) ([]byte, error) {
		return fs.ReadFile(fsys, path.Join(dir, texture))
	})
}

type objVertexKey struct {
	vertex, uv, normal int
}

type objMeshBuilder struct {
	decoder *obj.Decoder
	mesh    Mesh
	unique  map[objVertexKey]uint32
}

func (b *objMeshBuilder) addVertex(face obj.Face, faceIndex int) {
	key := objVertexKey{vertex: face.Vertices[faceIndex], uv: -1, normal: -1}
	if faceIndex < len(face.Uvs) {
		key.uv = face.Uvs[faceIndex]
	}
	if faceIndex < len(face.Normals) {
		key.normal = face.Normals[faceIndex]
	}

	index, vertexExists := b.unique[key]
	if !vertexExists {
		vertInd := key.vertex
		vert := Vertex{Position: mgl32.Vec3{
			b.decoder.Vertices[vertInd*3],
			b.decoder.Vertices[vertInd*3+1],
			b.decoder.Vertices[vertInd*3+2],
		}, Color: white}

		if uvInd := key.uv; uvInd >= 0 && uvInd*2+1 < len(b.decoder.Uvs) {
			vert.TexCoord = mgl32.Vec2{
				b.decoder.Uvs[uvInd*2],
				1.0 - b.decoder.Uvs[uvInd*2+1],
			}
		}

		if nrmInd := key.normal; nrmInd >= 0 && nrmInd*3+2 < len(b.decoder.Normals) {
			vert.Color = mgl32.Vec3{
				b.decoder.Normals[nrmInd*3],
				b.decoder.Normals[nrmInd*3+1],
				b.decoder.Normals[nrmInd*3+2],
			}
		}

		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, vert)
		b.unique[key] = index
	}

	b.mesh.Indices = append(b.mesh.Indices, index)
}

// convertOBJ groups the decoded faces into one mesh per material.
// readTexture resolves diffuse map names from the material library.
func convertOBJ(decoder *obj.Decoder, readTexture func(name string) ([]byte, error)) (*Model, error) {
	model := &Model{}
	materials := map[string]int{}
	builders := map[string]*objMeshBuilder{}
	var order []string

	materialIndex := func(name string) (int, error) {
		if index, ok := materials[name]; ok {
			return index, nil
		}

		mat := Material{Name: name}
		if source, ok := decoder.Materials[name]; ok && source != nil {
			// An unset dissolve reads as zero and means opaque.
			if source.Opacity > 0 && source.Opacity < 1 {
				mat.AlphaMode = AlphaBlend
			}
			if source.MapKd != "" {
				data, err := readTexture(source.MapKd)
				if err != nil {
					return 0, errors.Wrapf(err, "material %s", name)
				}
				mat.TextureData = data
			}
		}

		materials[name] = len(model.Materials)
		model.Materials = append(model.Materials, mat)
		return materials[name], nil
	}

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			builder, ok := builders[face.Material]
			if !ok {
				index, err := materialIndex(face.Material)
				if err != nil {
					return nil, err
				}
				builder = &objMeshBuilder{
					decoder: decoder,
					mesh:    Mesh{Material: index},
					unique:  map[objVertexKey]uint32{},
				}
				builders[face.Material] = builder
				order = append(order, face.Material)
			}

			// Faces are fanned into triangles.
			for i := 2; i < len(face.Vertices); i++ {
				builder.addVertex(face, 0)
				builder.addVertex(face, i-1)
				builder.addVertex(face, i)
			}
		}
	}

	for _, name := range order {
		model.Meshes = append(model.Meshes, builders[name].mesh)
	}
	return model, nil
}
