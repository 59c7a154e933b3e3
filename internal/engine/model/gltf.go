package model

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
)

// Open reads every mesh of a glTF or GLB file.
func Open(path string, opts LoadOptions) ([]*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return LoadMeshes(doc, opts)
}

// LoadMeshes converts every mesh of doc, keeping glTF mesh order so node
// mesh references index the result directly.
func LoadMeshes(doc *gltf.Document, opts LoadOptions) ([]*Mesh, error) {
	meshes := make([]*Mesh, len(doc.Meshes))
	for i, m := range doc.Meshes {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		mesh, err := loadMesh(doc, m, name, opts)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", name, err)
		}
		meshes[i] = mesh
	}
	return meshes, nil
}

func loadMesh(doc *gltf.Document, m *gltf.Mesh, name string, opts LoadOptions) (*Mesh, error) {
	mesh := &Mesh{Name: name}

	for pi, prim := range m.Primitives {
		// Lines and points cast no shadows
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = modeler.ReadNormal(doc, doc.Accessors[normIdx], nil)
			if err != nil {
				return nil, fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs [][2]float32
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil)
			if err != nil {
				return nil, fmt.Errorf("read uvs: %w", err)
			}
		}

		p := Primitive{MaterialID: -1, Vertices: make([]Vertex, len(positions))}
		if prim.Material != nil {
			p.MaterialID = *prim.Material
		}
		for i := range positions {
			v := Vertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				v.TexCoord = uvs[i]
				if opts.FlipV {
					v.TexCoord[1] = 1 - v.TexCoord[1]
				}
			}
			p.Vertices[i] = v
		}

		if prim.Indices != nil {
			acr := doc.Accessors[*prim.Indices]
			p.IndexWidth = indexWidth(acr.ComponentType)
			if p.IndexWidth == 0 {
				return nil, &topology.AssetTopologyError{
					Mesh:   name,
					Group:  pi,
					Err:    topology.ErrIndexWidth,
					Detail: fmt.Sprintf("component type %d", acr.ComponentType),
				}
			}
			p.Indices, err = modeler.ReadIndices(doc, acr, nil)
			if err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
		} else {
			// Non-indexed: consecutive vertex triples
			p.IndexWidth = 4
			p.Indices = make([]uint32, len(positions)-len(positions)%3)
			for i := range p.Indices {
				p.Indices[i] = uint32(i)
			}
		}

		if len(normals) == 0 {
			GenerateNormals(&p, opts.SmoothNormals)
		}

		mesh.Primitives = append(mesh.Primitives, p)
	}

	mesh.UpdateBounds()
	return mesh, nil
}

// indexWidth returns the byte size of an index component type, or 0 when
// the type is not a valid unsigned index type.
func indexWidth(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentUbyte:
		return 1
	case gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint:
		return 4
	default:
		return 0
	}
}
