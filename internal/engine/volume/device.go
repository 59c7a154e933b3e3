package volume

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/lighting"
	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
)

// Mesh is indexed mesh data owned by a backend.
type Mesh interface {
	Name() string
	Groups() []topology.PrimGroup
}

// Device creates meshes and command buffers. The GL backend and the
// software rasterizer both implement it.
type Device interface {
	Upload(b *topology.Buffers[model.Vertex]) (Mesh, error)
	Begin() (CommandBuffer, error)
	Submit(cmd CommandBuffer) error
}

// CommandBuffer receives the commands of one frame in order.
type CommandBuffer interface {
	SetFrame(f *Frame)
	Clear(c ClearValues)
	BindPipeline(s *pipeline.State)
	Draw(d Draw)
}

// ClearValues are the values attachments are cleared to.
type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint8
}

// DefaultClear clears to black, far depth and a zero stencil count.
func DefaultClear() ClearValues {
	return ClearValues{Color: [4]float32{0, 0, 0, 1}, Depth: 1}
}

// Camera holds the view of a frame.
type Camera struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Eye        mgl32.Vec3
}

// ViewProjection returns Projection * View.
func (c Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.View)
}

// Frame is the data shared by every draw of a frame. Light 0 is the only
// light whose shadows are resolved.
type Frame struct {
	Camera Camera
	Lights []lighting.Light
	// ShadowMapped is set when the cube maps of the lights are valid.
	ShadowMapped bool
}

// ShadowLight returns light 0, or false when the frame has no lights.
func (f *Frame) ShadowLight() (lighting.Light, bool) {
	if len(f.Lights) == 0 {
		return lighting.Light{}, false
	}
	return f.Lights[0], true
}

// Draw issues one primitive group of a mesh.
type Draw struct {
	Mesh      Mesh
	Group     topology.PrimGroup
	Geometry  Geometry
	Transform mgl32.Mat4
	Material  int
	Node      int
}

// Item is one instance in the draw list.
type Item struct {
	Mesh      Mesh
	Transform mgl32.Mat4
	Node      int
}

// DrawList is the ordered list of visible instances and the materials
// their groups refer to.
type DrawList struct {
	Items     []Item
	Materials []pipeline.Material
}

// Material returns material id, or nil when the id is out of range.
func (l *DrawList) Material(id int) *pipeline.Material {
	if id < 0 || id >= len(l.Materials) {
		return nil
	}
	return &l.Materials[id]
}
