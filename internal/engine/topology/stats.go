package topology

// Stats summarises the adjacency structure of indexed buffers.
type Stats struct {
	Vertices  int
	Triangles int
	Edges     int
	// Opposite[k] counts edges with k opposite vertices.
	Opposite [MaxOpposite + 1]int
}

// Boundary returns the number of edges used by fewer than two triangles.
func (s Stats) Boundary() int { return s.Opposite[0] + s.Opposite[1] }

// NonManifold returns the number of edges shared by more than two triangles.
func (s Stats) NonManifold() int { return s.Opposite[3] + s.Opposite[4] }

// Closed reports whether every edge is shared by exactly two triangles.
func (s Stats) Closed() bool { return s.Edges > 0 && s.Opposite[2] == s.Edges }

// Stats counts vertices, triangles and edges by opposite-vertex count.
func (b *Buffers[V]) Stats() Stats {
	s := Stats{
		Vertices:  len(b.Vertices),
		Triangles: len(b.Indices) / 3,
		Edges:     len(b.Edges) / PrimitiveSize,
	}
	for i := 0; i < s.Edges; i++ {
		s.Opposite[OppositeCount(b.Primitive(i))]++
	}
	return s
}

// OppositeCount returns how many opposite slots of p hold a real neighbour.
func OppositeCount(p [PrimitiveSize]uint32) int {
	n := 0
	for _, v := range p[2:] {
		if v != p[0] {
			n++
		}
	}
	return n
}

// Fingerprint is an order-independent checksum of the adjacency primitives.
// Two index runs over the same input agree on it even if they emit edges in
// a different order.
func (b *Buffers[V]) Fingerprint() uint64 {
	var sum uint64
	n := len(b.Edges) / PrimitiveSize
	for i := 0; i < n; i++ {
		p := b.Primitive(i)
		h := MakeEdge(p[0], p[1]).Hash()
		for _, v := range p[2:] {
			h = hashCombine(h, uint64(v))
		}
		sum += h
	}
	return sum
}
