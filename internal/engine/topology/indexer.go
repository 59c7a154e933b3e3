package topology

import "fmt"

// Group is one material sub-range of a source mesh. Indices are local to
// Vertices and were stored with IndexWidth bytes each in the asset.
type Group[V any] struct {
	MaterialID int
	Vertices   []V
	Indices    []uint32
	IndexWidth int
}

// Source is the raw triangle mesh handed to Build.
type Source[V any] struct {
	Name   string
	Groups []Group[V]
}

// PrimGroup locates one material group inside the shared buffers.
// Offsets and counts are in elements; EdgeOffset and EdgeCount count
// indices, PrimitiveSize per edge.
type PrimGroup struct {
	MaterialID   int
	VertexOffset int
	VertexCount  int
	IndexOffset  int
	IndexCount   int
	EdgeOffset   int
	EdgeCount    int
}

// EdgePrimitives returns the number of adjacency primitives in the group.
func (g PrimGroup) EdgePrimitives() int { return g.EdgeCount / PrimitiveSize }

// Triangles returns the number of triangles in the group.
func (g PrimGroup) Triangles() int { return g.IndexCount / 3 }

// IndexByteOffset returns the byte offset of the group's first triangle index.
func (g PrimGroup) IndexByteOffset() int { return g.IndexOffset * 4 }

// EdgeByteOffset returns the byte offset of the group's first adjacency index.
func (g PrimGroup) EdgeByteOffset() int { return g.EdgeOffset * 4 }

// Buffers holds the packed vertex, triangle index and adjacency index data of
// a mesh. All groups share the three slices; indices stay local to each
// group's vertex range and are drawn with VertexOffset as base vertex.
type Buffers[V any] struct {
	Name     string
	Vertices []V
	Indices  []uint32
	Edges    []uint32
	Groups   []PrimGroup
}

// Primitive returns the i-th adjacency primitive of the whole edge buffer.
func (b *Buffers[V]) Primitive(i int) [PrimitiveSize]uint32 {
	var p [PrimitiveSize]uint32
	copy(p[:], b.Edges[i*PrimitiveSize:(i+1)*PrimitiveSize])
	return p
}

// Build indexes every group of src. On error it returns nil buffers and an
// *AssetTopologyError.
func Build[V any](src Source[V]) (*Buffers[V], error) {
	out := &Buffers[V]{Name: src.Name}

	for gi, g := range src.Groups {
		if err := validate(src.Name, gi, g); err != nil {
			return nil, err
		}

		order, opposite, err := findEdges(g.Indices)
		if err != nil {
			err.Mesh, err.Group = src.Name, gi
			return nil, err
		}

		pg := PrimGroup{
			MaterialID:   g.MaterialID,
			VertexOffset: len(out.Vertices),
			VertexCount:  len(g.Vertices),
			IndexOffset:  len(out.Indices),
			IndexCount:   len(g.Indices),
			EdgeOffset:   len(out.Edges),
			EdgeCount:    len(order) * PrimitiveSize,
		}

		out.Vertices = append(out.Vertices, g.Vertices...)
		out.Indices = append(out.Indices, g.Indices...)
		for _, e := range order {
			p := opposite[e].Primitive(e)
			out.Edges = append(out.Edges, p[:]...)
		}
		out.Groups = append(out.Groups, pg)
	}

	return out, nil
}

func validate[V any](mesh string, gi int, g Group[V]) error {
	fail := func(cause error, detail string) error {
		return &AssetTopologyError{Mesh: mesh, Group: gi, Err: cause, Detail: detail}
	}

	var limit uint64
	switch g.IndexWidth {
	case 1:
		limit = 1 << 8
	case 2:
		limit = 1 << 16
	case 4:
		limit = 1 << 32
	default:
		return fail(ErrIndexWidth, fmt.Sprintf("%d bytes", g.IndexWidth))
	}

	if len(g.Indices)%3 != 0 {
		return fail(ErrIndexCount, fmt.Sprintf("%d indices", len(g.Indices)))
	}
	for i, idx := range g.Indices {
		if int(idx) >= len(g.Vertices) || uint64(idx) >= limit {
			return fail(ErrIndexRange, fmt.Sprintf("index %d at %d, %d vertices", idx, i, len(g.Vertices)))
		}
	}
	return nil
}

// findEdges records the opposite vertex of every triangle edge. Edges are
// returned in first-seen order so repeated runs emit identical buffers.
// Triangles with a repeated index are skipped: they have no area, and the
// repeated index as an opposite vertex would read as padding.
func findEdges(indices []uint32) ([]Edge, map[Edge]*OppositeVertices, *AssetTopologyError) {
	opposite := make(map[Edge]*OppositeVertices, len(indices))
	order := make([]Edge, 0, len(indices)/2)

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		if i0 == i1 || i1 == i2 || i2 == i0 {
			continue
		}

		sides := [3][3]uint32{
			{i0, i1, i2},
			{i1, i2, i0},
			{i2, i0, i1},
		}
		for _, s := range sides {
			e := MakeEdge(s[0], s[1])
			set, ok := opposite[e]
			if !ok {
				set = &OppositeVertices{}
				opposite[e] = set
				order = append(order, e)
			}
			if !set.Add(s[2]) {
				edge := e
				return nil, nil, &AssetTopologyError{
					Edge:   &edge,
					Detail: fmt.Sprintf("triangle %d", t/3),
					Err:    ErrNonManifold,
				}
			}
		}
	}
	return order, opposite, nil
}
