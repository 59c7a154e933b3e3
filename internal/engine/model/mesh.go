package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
)

// TopologySource converts the mesh into indexer input, one group per primitive.
func (m *Mesh) TopologySource() topology.Source[Vertex] {
	src := topology.Source[Vertex]{Name: m.Name, Groups: make([]topology.Group[Vertex], len(m.Primitives))}
	for i, p := range m.Primitives {
		src.Groups[i] = topology.Group[Vertex]{
			MaterialID: p.MaterialID,
			Vertices:   p.Vertices,
			Indices:    p.Indices,
			IndexWidth: p.IndexWidth,
		}
	}
	return src
}

// TriangleCount returns the number of triangles over all primitives.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, p := range m.Primitives {
		n += len(p.Indices) / 3
	}
	return n
}

// UpdateBounds recomputes the bounding box from all vertices.
func (m *Mesh) UpdateBounds() {
	m.Bounds = Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
	for _, p := range m.Primitives {
		for _, v := range p.Vertices {
			updateBounds(&m.Bounds, v.Position)
		}
	}
}

// GenerateNormals assigns area-weighted vertex normals from the triangles of p.
// With smooth set, normals of vertices at the same position are merged too.
func GenerateNormals(p *Primitive, smooth bool) {
	acc := make([]mgl32.Vec3, len(p.Vertices))
	for t := 0; t+2 < len(p.Indices); t += 3 {
		i0, i1, i2 := p.Indices[t], p.Indices[t+1], p.Indices[t+2]
		a := mgl32.Vec3(p.Vertices[i0].Position)
		b := mgl32.Vec3(p.Vertices[i1].Position)
		c := mgl32.Vec3(p.Vertices[i2].Position)
		// Unnormalised cross product weights by triangle area
		n := b.Sub(a).Cross(c.Sub(a))
		acc[i0] = acc[i0].Add(n)
		acc[i1] = acc[i1].Add(n)
		acc[i2] = acc[i2].Add(n)
	}
	for i := range p.Vertices {
		p.Vertices[i].Normal = normalize(acc[i])
	}
	if smooth {
		SmoothNormals(p.Vertices)
	}
}

// SmoothNormals averages normals at shared vertex positions.
// This reduces faceted appearance on meshes with split vertices.
func SmoothNormals(vertices []Vertex) {
	const epsilon float32 = 0.001

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i := range vertices {
		key := [3]int32{
			int32(vertices[i].Position[0] / epsilon),
			int32(vertices[i].Position[1] / epsilon),
			int32(vertices[i].Position[2] / epsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}

		var sum mgl32.Vec3
		for _, idx := range idxs {
			sum = sum.Add(vertices[idx].Normal)
		}

		avg := normalize(sum)
		for _, idx := range idxs {
			vertices[idx].Normal = avg
		}
	}
}

// TransformPoint applies a 4x4 matrix transformation to a 3D point.
func TransformPoint(m mgl32.Mat4, p [3]float32) [3]float32 {
	return m.Mul4x1(mgl32.Vec3(p).Vec4(1)).Vec3()
}

func normalize(v mgl32.Vec3) [3]float32 {
	if v.Len() < 0.0001 {
		return [3]float32{0, 1, 0}
	}
	return v.Normalize()
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}
