// Package topology derives edge-adjacency index buffers from triangle meshes.
//
// Every edge of a mesh becomes one six-index adjacency primitive
// [first, second, opp0, opp1, opp2, opp3] where first < second and the
// opposite slots hold the third vertex of each triangle sharing the edge.
// Unused slots repeat first, which geometry shaders read as "no neighbour".
package topology

// MaxOpposite is the number of opposite vertices an adjacency primitive can carry.
const MaxOpposite = 4

// PrimitiveSize is the number of indices in one adjacency primitive.
const PrimitiveSize = 2 + MaxOpposite

// Edge is an unordered pair of vertex indices stored as (min, max).
// Construct it with MakeEdge so that Edge(a,b) == Edge(b,a).
type Edge struct {
	First  uint32
	Second uint32
}

// MakeEdge returns the canonical edge between a and b.
func MakeEdge(a, b uint32) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{First: a, Second: b}
}

// Equal reports whether two edges join the same pair of vertices.
func (e Edge) Equal(o Edge) bool {
	return MakeEdge(e.First, e.Second) == MakeEdge(o.First, o.Second)
}

// Hash mixes both indices of the canonical edge.
func (e Edge) Hash() uint64 {
	c := MakeEdge(e.First, e.Second)
	return hashCombine(hashCombine(0, uint64(c.First)), uint64(c.Second))
}

// hashCombine is the usual seed ^= h + golden + (seed<<6) + (seed>>2) mix
// over a splitmix64 finalised value.
func hashCombine(seed, v uint64) uint64 {
	v += 0x9e3779b97f4a7c15
	v = (v ^ (v >> 30)) * 0xbf58476d1ce4e5b9
	v = (v ^ (v >> 27)) * 0x94d049bb133111eb
	v ^= v >> 31
	return seed ^ (v + 0x9e3779b97f4a7c15 + (seed << 6) + (seed >> 2))
}

// OppositeVertices is the bounded list of third vertices of the triangles
// that share one edge.
type OppositeVertices struct {
	verts [MaxOpposite]uint32
	count int
}

// Add appends v. It reports false, leaving the set untouched, when the set is full.
func (o *OppositeVertices) Add(v uint32) bool {
	if o.count == MaxOpposite {
		return false
	}
	o.verts[o.count] = v
	o.count++
	return true
}

// Len returns the number of recorded opposite vertices.
func (o *OppositeVertices) Len() int { return o.count }

// At returns the i-th opposite vertex.
func (o *OppositeVertices) At(i int) uint32 { return o.verts[i] }

// Primitive packs the edge and its opposite vertices into one adjacency primitive,
// padding unused slots with e.First.
func (o *OppositeVertices) Primitive(e Edge) [PrimitiveSize]uint32 {
	p := [PrimitiveSize]uint32{e.First, e.Second}
	for i := 0; i < MaxOpposite; i++ {
		if i < o.count {
			p[2+i] = o.verts[i]
		} else {
			p[2+i] = e.First
		}
	}
	return p
}
