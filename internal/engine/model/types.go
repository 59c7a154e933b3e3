// Package model holds triangle meshes loaded from glTF files and the
// procedural shapes used by tests and tools.
package model

// Vertex represents a mesh vertex with position, normal, and texture coordinates.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// VertexSize is the byte stride of Vertex in GPU buffers.
const VertexSize = 8 * 4

// Primitive is one material sub-range of a mesh. Indices are local to Vertices.
type Primitive struct {
	MaterialID int // -1 when the primitive has no material
	Vertices   []Vertex
	Indices    []uint32
	// IndexWidth is the byte size of one index in the source asset.
	IndexWidth int
}

// Mesh holds the primitives of one glTF mesh.
type Mesh struct {
	Name       string
	Primitives []Primitive
	Bounds     Bounds
}

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the middle of the box.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// LoadOptions contains options for mesh loading.
type LoadOptions struct {
	// SmoothNormals merges generated normals at shared positions.
	SmoothNormals bool
	// FlipV converts glTF's top-left texture origin to bottom-left.
	FlipV bool
}

// DefaultLoadOptions returns the options used by the viewer.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{SmoothNormals: true, FlipV: true}
}
