package gpu

import (
	"errors"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// Mesh is an uploaded mesh. Both vertex arrays share one vertex buffer;
// triangles reads the triangle index buffer and edges the adjacency one.
type Mesh struct {
	name   string
	groups []topology.PrimGroup

	vbo       uint32
	ebo       uint32
	edgeEBO   uint32
	triangles uint32
	edges     uint32
}

var _ volume.Mesh = (*Mesh)(nil)

// Name returns the mesh name.
func (m *Mesh) Name() string { return m.name }

// Groups returns the primitive groups of the mesh.
func (m *Mesh) Groups() []topology.PrimGroup { return m.groups }

func uploadMesh(b *topology.Buffers[model.Vertex]) (*Mesh, error) {
	if b == nil {
		return nil, errors.New("gpu: upload of nil buffers")
	}
	m := &Mesh{name: b.Name, groups: b.Groups}

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(b.Vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(b.Vertices)*model.VertexSize, gl.Ptr(b.Vertices), gl.STATIC_DRAW)
	}

	m.triangles, m.ebo = vertexArray(m.vbo, b.Indices)
	m.edges, m.edgeEBO = vertexArray(m.vbo, b.Edges)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return m, nil
}

// vertexArray creates a VAO over vbo with its own element buffer.
func vertexArray(vbo uint32, indices []uint32) (vao, ebo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)

	var v model.Vertex
	stride := int32(model.VertexSize)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.Position))))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.Normal))))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(int(unsafe.Offsetof(v.TexCoord))))

	gl.GenBuffers(1, &ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}
	return vao, ebo
}

// draw issues one group. Indices are local to the group's vertices, so the
// group's vertex offset is the base vertex.
func (m *Mesh) draw(g topology.PrimGroup, geometry volume.Geometry, mode uint32) {
	switch geometry {
	case volume.Edges:
		if g.EdgeCount == 0 {
			return
		}
		gl.BindVertexArray(m.edges)
		gl.DrawElementsBaseVertex(mode, int32(g.EdgeCount), gl.UNSIGNED_INT,
			gl.PtrOffset(g.EdgeByteOffset()), int32(g.VertexOffset))
	default:
		if g.IndexCount == 0 {
			return
		}
		gl.BindVertexArray(m.triangles)
		gl.DrawElementsBaseVertex(mode, int32(g.IndexCount), gl.UNSIGNED_INT,
			gl.PtrOffset(g.IndexByteOffset()), int32(g.VertexOffset))
	}
}

func (m *Mesh) destroy() {
	gl.DeleteVertexArrays(1, &m.triangles)
	gl.DeleteVertexArrays(1, &m.edges)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteBuffers(1, &m.ebo)
	gl.DeleteBuffers(1, &m.edgeEBO)
}
