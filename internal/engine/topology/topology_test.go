package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec3 [3]float32

// cubeGroup is a closed unit cube: 8 shared corners, 12 outward CCW triangles.
func cubeGroup() Group[vec3] {
	return Group[vec3]{
		MaterialID: 0,
		Vertices: []vec3{
			{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
			{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
		},
		Indices: []uint32{
			0, 3, 2, 0, 2, 1, // -Z
			4, 5, 6, 4, 6, 7, // +Z
			0, 4, 7, 0, 7, 3, // -X
			1, 2, 6, 1, 6, 5, // +X
			3, 7, 6, 3, 6, 2, // +Y
			0, 1, 5, 0, 5, 4, // -Y
		},
		IndexWidth: 2,
	}
}

// quadGroup is an open square made of two triangles sharing the 0-2 diagonal.
func quadGroup() Group[vec3] {
	return Group[vec3]{
		Vertices:   []vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Indices:    []uint32{0, 1, 2, 0, 2, 3},
		IndexWidth: 4,
	}
}

// fanGroup has n triangles sharing the edge 0-1.
func fanGroup(n int) Group[vec3] {
	g := Group[vec3]{IndexWidth: 4, Vertices: make([]vec3, n+2)}
	for k := 0; k < n; k++ {
		g.Indices = append(g.Indices, 0, 1, uint32(k+2))
	}
	return g
}

func primitiveSet(b *Buffers[vec3]) map[[PrimitiveSize]uint32]int {
	set := make(map[[PrimitiveSize]uint32]int)
	for i := 0; i < len(b.Edges)/PrimitiveSize; i++ {
		set[b.Primitive(i)]++
	}
	return set
}

func TestMakeEdgeIsSymmetric(t *testing.T) {
	pairs := [][2]uint32{{0, 1}, {7, 3}, {5, 5}, {0, 1 << 31}, {42, 17}}
	for _, p := range pairs {
		ab, ba := MakeEdge(p[0], p[1]), MakeEdge(p[1], p[0])
		assert.Equal(t, ab, ba)
		assert.True(t, ab.Equal(ba))
		assert.Equal(t, ab.Hash(), ba.Hash())
		assert.LessOrEqual(t, ab.First, ab.Second)
	}

	// Non-canonical literals still compare by vertex pair
	assert.True(t, Edge{First: 9, Second: 2}.Equal(Edge{First: 2, Second: 9}))
	assert.Equal(t, Edge{First: 9, Second: 2}.Hash(), MakeEdge(2, 9).Hash())
	assert.NotEqual(t, MakeEdge(1, 2).Hash(), MakeEdge(1, 3).Hash())
}

func TestOppositeVerticesCapacity(t *testing.T) {
	var o OppositeVertices
	for i := uint32(0); i < MaxOpposite; i++ {
		require.True(t, o.Add(10+i))
	}
	assert.False(t, o.Add(99), "fifth opposite vertex must be rejected")
	assert.Equal(t, MaxOpposite, o.Len())
	assert.Equal(t, uint32(13), o.At(3))
}

func TestClosedCubeHasTwoOppositesPerEdge(t *testing.T) {
	b, err := Build(Source[vec3]{Name: "cube", Groups: []Group[vec3]{cubeGroup()}})
	require.NoError(t, err)

	stats := b.Stats()
	assert.Equal(t, 8, stats.Vertices)
	assert.Equal(t, 12, stats.Triangles)
	assert.Equal(t, 18, stats.Edges)
	assert.Equal(t, 18, stats.Opposite[2])
	assert.True(t, stats.Closed())
	assert.Zero(t, stats.Boundary())

	for i := 0; i < stats.Edges; i++ {
		p := b.Primitive(i)
		assert.Equal(t, 2, OppositeCount(p), "edge %d-%d", p[0], p[1])
	}
}

func TestBoundaryEdges(t *testing.T) {
	b, err := Build(Source[vec3]{Name: "quad", Groups: []Group[vec3]{quadGroup()}})
	require.NoError(t, err)

	stats := b.Stats()
	assert.Equal(t, 5, stats.Edges)
	assert.Equal(t, 4, stats.Opposite[1], "outer edges")
	assert.Equal(t, 1, stats.Opposite[2], "diagonal")
	assert.Equal(t, 4, stats.Boundary())
	assert.False(t, stats.Closed())

	for i := 0; i < stats.Edges; i++ {
		p := b.Primitive(i)
		k := OppositeCount(p)
		assert.LessOrEqual(t, k, 2)
		if MakeEdge(p[0], p[1]) != MakeEdge(0, 2) {
			assert.Equal(t, 1, k, "edge %d-%d", p[0], p[1])
		}
	}
}

func TestPaddingLaw(t *testing.T) {
	for n := 1; n <= MaxOpposite; n++ {
		b, err := Build(Source[vec3]{Groups: []Group[vec3]{fanGroup(n)}})
		require.NoError(t, err)

		for i := 0; i < len(b.Edges)/PrimitiveSize; i++ {
			p := b.Primitive(i)
			require.Less(t, p[0], p[1], "entries 0,1 hold (min, max)")

			k := OppositeCount(p)
			for slot := 2 + k; slot < PrimitiveSize; slot++ {
				assert.Equal(t, p[0], p[slot], "padding slot %d of %v", slot, p)
			}
			for slot := 2; slot < 2+k; slot++ {
				assert.NotEqual(t, p[0], p[slot], "recorded slots come first in %v", p)
			}

			if MakeEdge(p[0], p[1]) == MakeEdge(0, 1) {
				assert.Equal(t, n, k)
				assert.Equal(t, uint32(2), p[2], "opposites in triangle order")
			}
		}
	}
}

func TestFiveTrianglesOnOneEdgeFail(t *testing.T) {
	b, err := Build(Source[vec3]{Name: "fan", Groups: []Group[vec3]{cubeGroup(), fanGroup(5)}})
	assert.Nil(t, b, "no partial buffers")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonManifold)

	var topoErr *AssetTopologyError
	require.ErrorAs(t, err, &topoErr)
	assert.Equal(t, "fan", topoErr.Mesh)
	assert.Equal(t, 1, topoErr.Group)
	require.NotNil(t, topoErr.Edge)
	assert.Equal(t, MakeEdge(0, 1), *topoErr.Edge)
	assert.Contains(t, err.Error(), "edge 0-1")
}

func TestInvalidIndexData(t *testing.T) {
	tests := []struct {
		name  string
		group Group[vec3]
		cause error
	}{
		{
			name:  "three byte indices",
			group: Group[vec3]{Vertices: make([]vec3, 3), Indices: []uint32{0, 1, 2}, IndexWidth: 3},
			cause: ErrIndexWidth,
		},
		{
			name:  "missing width",
			group: Group[vec3]{Vertices: make([]vec3, 3), Indices: []uint32{0, 1, 2}},
			cause: ErrIndexWidth,
		},
		{
			name:  "dangling index",
			group: Group[vec3]{Vertices: make([]vec3, 3), Indices: []uint32{0, 1, 3}, IndexWidth: 2},
			cause: ErrIndexRange,
		},
		{
			name:  "index wider than declared",
			group: Group[vec3]{Vertices: make([]vec3, 300), Indices: []uint32{0, 1, 299}, IndexWidth: 1},
			cause: ErrIndexRange,
		},
		{
			name:  "partial triangle",
			group: Group[vec3]{Vertices: make([]vec3, 3), Indices: []uint32{0, 1}, IndexWidth: 4},
			cause: ErrIndexCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Build(Source[vec3]{Name: tt.name, Groups: []Group[vec3]{tt.group}})
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tt.cause)

			var topoErr *AssetTopologyError
			assert.True(t, errors.As(err, &topoErr))
		})
	}
}

func TestIndexBufferUnchanged(t *testing.T) {
	cube := cubeGroup()
	quad := quadGroup()
	input := append(append([]uint32(nil), cube.Indices...), quad.Indices...)

	b, err := Build(Source[vec3]{Groups: []Group[vec3]{cube, quad}})
	require.NoError(t, err)
	assert.Equal(t, input, b.Indices)
	assert.Equal(t, cubeGroup().Indices, cube.Indices, "input must not be modified")
}

func TestGroupsPartitionSharedBuffers(t *testing.T) {
	b, err := Build(Source[vec3]{Groups: []Group[vec3]{cubeGroup(), quadGroup()}})
	require.NoError(t, err)
	require.Len(t, b.Groups, 2)

	cube, quad := b.Groups[0], b.Groups[1]
	assert.Equal(t, PrimGroup{
		VertexOffset: 0, VertexCount: 8,
		IndexOffset: 0, IndexCount: 36,
		EdgeOffset: 0, EdgeCount: 18 * PrimitiveSize,
	}, cube)
	assert.Equal(t, 8, quad.VertexOffset)
	assert.Equal(t, 36, quad.IndexOffset)
	assert.Equal(t, 18*PrimitiveSize, quad.EdgeOffset)
	assert.Equal(t, 5, quad.EdgePrimitives())
	assert.Equal(t, 2, quad.Triangles())
	assert.Equal(t, 36*4, quad.IndexByteOffset())
	assert.Equal(t, 18*PrimitiveSize*4, quad.EdgeByteOffset())

	assert.Len(t, b.Vertices, cube.VertexCount+quad.VertexCount)
	assert.Len(t, b.Edges, cube.EdgeCount+quad.EdgeCount)

	// Edge indices stay local to the group's vertex range
	for i := quad.EdgeOffset; i < quad.EdgeOffset+quad.EdgeCount; i++ {
		assert.Less(t, b.Edges[i], uint32(quad.VertexCount))
	}
}

func TestIndexingIsIdempotent(t *testing.T) {
	src := Source[vec3]{Groups: []Group[vec3]{cubeGroup(), quadGroup(), fanGroup(3)}}

	first, err := Build(src)
	require.NoError(t, err)
	second, err := Build(src)
	require.NoError(t, err)

	assert.Equal(t, first.Vertices, second.Vertices)
	assert.Equal(t, first.Indices, second.Indices)
	assert.Equal(t, first.Groups, second.Groups)
	assert.Equal(t, primitiveSet(first), primitiveSet(second))
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestFingerprintIgnoresPrimitiveOrder(t *testing.T) {
	b, err := Build(Source[vec3]{Groups: []Group[vec3]{cubeGroup()}})
	require.NoError(t, err)

	reversed := &Buffers[vec3]{Edges: make([]uint32, 0, len(b.Edges))}
	for i := len(b.Edges)/PrimitiveSize - 1; i >= 0; i-- {
		p := b.Primitive(i)
		reversed.Edges = append(reversed.Edges, p[:]...)
	}
	assert.Equal(t, b.Fingerprint(), reversed.Fingerprint())

	other, err := Build(Source[vec3]{Groups: []Group[vec3]{quadGroup()}})
	require.NoError(t, err)
	assert.NotEqual(t, b.Fingerprint(), other.Fingerprint())
}

func TestDegenerateTrianglesAreSkipped(t *testing.T) {
	g := quadGroup()
	g.Indices = append(g.Indices, 1, 1, 2)

	b, err := Build(Source[vec3]{Groups: []Group[vec3]{g}})
	require.NoError(t, err)
	assert.Equal(t, 5, b.Stats().Edges)
	assert.Len(t, b.Indices, 9, "degenerate triangle is still drawn as given")
}

func TestBuildAll(t *testing.T) {
	sources := []Source[vec3]{
		{Name: "cube", Groups: []Group[vec3]{cubeGroup()}},
		{Name: "quad", Groups: []Group[vec3]{quadGroup()}},
		{Name: "fan", Groups: []Group[vec3]{fanGroup(4)}},
	}

	out, err := BuildAll(context.Background(), sources, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, b := range out {
		assert.Equal(t, sources[i].Name, b.Name)
	}
	assert.Equal(t, 18, out[0].Stats().Edges)

	sources = append(sources, Source[vec3]{Name: "bad", Groups: []Group[vec3]{fanGroup(6)}})
	out, err = BuildAll(context.Background(), sources, 0)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrNonManifold)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BuildAll(ctx, sources[:1], 1)
	assert.ErrorIs(t, err, context.Canceled)
}
