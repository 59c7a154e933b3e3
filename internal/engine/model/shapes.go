package model

// boxIndices winds every face counter-clockwise seen from outside.
var boxIndices = []uint32{
	0, 3, 2, 0, 2, 1, // -Z
	4, 5, 6, 4, 6, 7, // +Z
	0, 4, 7, 0, 7, 3, // -X
	1, 2, 6, 1, 6, 5, // +X
	3, 7, 6, 3, 6, 2, // +Y
	0, 1, 5, 0, 5, 4, // -Y
}

// Box returns a closed box with 8 shared corners and 12 triangles, so that
// every edge is shared by exactly two triangles.
func Box(name string, lo, hi [3]float32, materialID int) *Mesh {
	corners := [8][3]float32{
		{lo[0], lo[1], lo[2]}, {hi[0], lo[1], lo[2]}, {hi[0], hi[1], lo[2]}, {lo[0], hi[1], lo[2]},
		{lo[0], lo[1], hi[2]}, {hi[0], lo[1], hi[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]},
	}
	p := Primitive{
		MaterialID: materialID,
		Vertices:   make([]Vertex, len(corners)),
		Indices:    append([]uint32(nil), boxIndices...),
		IndexWidth: 2,
	}
	for i, c := range corners {
		p.Vertices[i].Position = c
	}
	GenerateNormals(&p, false)

	m := &Mesh{Name: name, Primitives: []Primitive{p}}
	m.UpdateBounds()
	return m
}

// Plane returns a square in the XZ plane at height y facing +Y.
func Plane(name string, halfSize, y float32, materialID int) *Mesh {
	s := halfSize
	p := Primitive{
		MaterialID: materialID,
		Vertices: []Vertex{
			{Position: [3]float32{-s, y, -s}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 0}},
			{Position: [3]float32{-s, y, s}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 1}},
			{Position: [3]float32{s, y, s}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{s, y, -s}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 0}},
		},
		Indices:    []uint32{0, 1, 2, 0, 2, 3},
		IndexWidth: 2,
	}
	m := &Mesh{Name: name, Primitives: []Primitive{p}}
	m.UpdateBounds()
	return m
}
