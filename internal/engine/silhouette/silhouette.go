// Package silhouette is the geometry expansion stage of shadow volumes.
//
// It turns light facing triangles into front caps, back caps and extruded
// side quads, and turns edge adjacency primitives into quads along the
// silhouette only. Extruded points are homogeneous directions (w = 0) away
// from the light, so volumes reach infinity and need depth clamping rather
// than a far plane. The software rasterizer uses this package directly and
// the GL geometry shaders implement the same rules.
package silhouette

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
)

// Triangle is an emitted triangle in homogeneous world coordinates.
type Triangle [3]mgl32.Vec4

// Line is an emitted overlay segment in world coordinates.
type Line [2]mgl32.Vec3

// Corner is a mesh vertex moved to world space. Index is the vertex index
// local to its group.
type Corner struct {
	Index    uint32
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Near returns the un-extruded homogeneous point of c.
func Near(c Corner) mgl32.Vec4 { return c.Position.Vec4(1) }

// Far returns c pushed to infinity away from the light.
func Far(c Corner, light mgl32.Vec3) mgl32.Vec4 { return c.Position.Sub(light).Vec4(0) }

// FacesLight reports whether the counter-clockwise triangle (a, b, c) faces
// the light. Triangles seen edge-on do not.
func FacesLight(a, b, c, light mgl32.Vec3) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	return n.Dot(light.Sub(a)) > 0
}

// Side appends the extruded quad of edge a→b, where a→b is the edge's
// direction in a light facing triangle. The quad faces out of the volume.
// The quad diagonal depends only on the vertex indices, so the two quads
// emitted for a shared edge by neighbouring triangles cover the same
// triangles with opposite windings.
func Side(dst []Triangle, a, b Corner, light mgl32.Vec3) []Triangle {
	na, nb := Near(a), Near(b)
	fa, fb := Far(a, light), Far(b, light)
	// cyclic order b, a, a', b'
	if a.Index < b.Index {
		return append(dst, Triangle{nb, na, fb}, Triangle{na, fa, fb})
	}
	return append(dst, Triangle{nb, na, fa}, Triangle{nb, fa, fb})
}

// Volume appends the parts of the shadow volume of triangle (a, b, c)
// selected by caps. Triangles that do not face the light emit nothing.
func Volume(dst []Triangle, a, b, c Corner, light mgl32.Vec3, caps pipeline.Caps) []Triangle {
	if !FacesLight(a.Position, b.Position, c.Position, light) {
		return dst
	}
	if caps&pipeline.CapFront != 0 {
		dst = append(dst, Triangle{Near(a), Near(b), Near(c)})
	}
	if caps&pipeline.CapBack != 0 {
		dst = append(dst, Triangle{Far(a, light), Far(c, light), Far(b, light)})
	}
	if caps&pipeline.CapSides != 0 {
		dst = Side(dst, a, b, light)
		dst = Side(dst, b, c, light)
		dst = Side(dst, c, a, light)
	}
	return dst
}

// Edge decides whether the adjacency primitive p lies on the silhouette,
// and returns from→to, the edge direction inside the light facing triangle.
//
// An edge shared by two consistently wound triangles is a silhouette
// exactly when both opposite vertices lie strictly on the same side of the
// plane through the edge and the light. The side quad lies in that plane
// and is oriented with the opposite vertices behind it, so no winding is
// needed. Boundary and non-manifold edges, and manifold edges with an
// opposite vertex on the plane, resolve the winding of each triangle
// against the vertex normals and need exactly one facing triangle.
func Edge(p [topology.PrimitiveSize]uint32, at func(uint32) Corner, light mgl32.Vec3) (from, to Corner, ok bool) {
	f, s := at(p[0]), at(p[1])
	var opp [topology.MaxOpposite]Corner
	n := 0
	for _, oi := range p[2:] {
		if oi == p[0] {
			continue
		}
		opp[n] = at(oi)
		n++
	}

	if n == 2 {
		plane := s.Position.Sub(f.Position).Cross(light.Sub(f.Position))
		d0 := plane.Dot(opp[0].Position.Sub(f.Position))
		d1 := plane.Dot(opp[1].Position.Sub(f.Position))
		switch {
		case d0 > 0 && d1 > 0:
			return s, f, true
		case d0 < 0 && d1 < 0:
			return f, s, true
		case d0 != 0 && d1 != 0:
			return Corner{}, Corner{}, false
		}
	}
	return byNormals(f, s, opp[:n], light)
}

// byNormals counts the light facing triangles on edge f-s, taking the
// winding of each from the normals of its corners.
func byNormals(f, s Corner, opp []Corner, light mgl32.Vec3) (from, to Corner, ok bool) {
	facing := 0
	for _, o := range opp {
		n := s.Position.Sub(f.Position).Cross(o.Position.Sub(f.Position))
		forward := true
		if n.Dot(f.Normal.Add(s.Normal).Add(o.Normal)) < 0 {
			n, forward = n.Mul(-1), false
		}
		if n.Dot(light.Sub(f.Position)) <= 0 {
			continue
		}
		facing++
		if forward {
			from, to = f, s
		} else {
			from, to = s, f
		}
	}
	if facing != 1 {
		return Corner{}, Corner{}, false
	}
	return from, to, true
}

// Sides appends the extruded quad of p when p is a silhouette edge.
func Sides(dst []Triangle, p [topology.PrimitiveSize]uint32, at func(uint32) Corner, light mgl32.Vec3) []Triangle {
	from, to, ok := Edge(p, at, light)
	if !ok {
		return dst
	}
	return Side(dst, from, to, light)
}

// Overlay appends the segment of p when p is a silhouette edge.
func Overlay(dst []Line, p [topology.PrimitiveSize]uint32, at func(uint32) Corner, light mgl32.Vec3) []Line {
	from, to, ok := Edge(p, at, light)
	if !ok {
		return dst
	}
	return append(dst, Line{from.Position, to.Position})
}

// Transformer moves the vertices of one primitive group to world space.
type Transformer struct {
	corners []Corner
}

// NewTransformer transforms vertices by the model matrix. Normals use the
// inverse transpose so non-uniform scales keep them perpendicular.
func NewTransformer(m mgl32.Mat4, vertices []model.Vertex) *Transformer {
	nm := m.Mat3().Inv().Transpose()
	t := &Transformer{corners: make([]Corner, len(vertices))}
	for i, v := range vertices {
		t.corners[i] = Corner{
			Index:    uint32(i),
			Position: WorldPosition(m, v.Position),
			Normal:   nm.Mul3x1(mgl32.Vec3(v.Normal)),
		}
	}
	return t
}

// At returns the world space corner of local vertex i.
func (t *Transformer) At(i uint32) Corner { return t.corners[i] }

// WorldPosition transforms a model space position. Scene draws and volume
// caps both go through it so coplanar caps get bit-identical depths.
func WorldPosition(m mgl32.Mat4, p [3]float32) mgl32.Vec3 {
	return mgl32.Vec3(model.TransformPoint(m, p))
}

// TriangleVolumes expands every triangle of indices.
func TriangleVolumes(dst []Triangle, indices []uint32, t *Transformer, light mgl32.Vec3, caps pipeline.Caps) []Triangle {
	for i := 0; i+2 < len(indices); i += 3 {
		dst = Volume(dst, t.At(indices[i]), t.At(indices[i+1]), t.At(indices[i+2]), light, caps)
	}
	return dst
}

// SilhouetteSides expands every adjacency primitive of edges.
func SilhouetteSides(dst []Triangle, edges []uint32, t *Transformer, light mgl32.Vec3) []Triangle {
	for i := 0; i+topology.PrimitiveSize <= len(edges); i += topology.PrimitiveSize {
		dst = Sides(dst, primitive(edges[i:]), t.At, light)
	}
	return dst
}

// SilhouetteLines returns the overlay segments of every adjacency primitive.
func SilhouetteLines(dst []Line, edges []uint32, t *Transformer, light mgl32.Vec3) []Line {
	for i := 0; i+topology.PrimitiveSize <= len(edges); i += topology.PrimitiveSize {
		dst = Overlay(dst, primitive(edges[i:]), t.At, light)
	}
	return dst
}

func primitive(s []uint32) [topology.PrimitiveSize]uint32 {
	var p [topology.PrimitiveSize]uint32
	copy(p[:], s)
	return p
}
