package softraster

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/lighting"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/shadow"
	"github.com/Faultbox/stencil-shadows/internal/engine/silhouette"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// lineDepthSlack lets overlay lines lying on a surface pass the depth test.
const lineDepthSlack = 1e-4

// CommandBuffer executes commands immediately against the device target.
// It also implements shadow.CubeTarget.
type CommandBuffer struct {
	dev    *Device
	target *Target
	face   *Target
	frame  *volume.Frame
	vp     mgl32.Mat4
	state  *pipeline.State
	lights []lightView

	clip  clipper
	tris  []silhouette.Triangle
	lines []silhouette.Line
	err   error
}

var _ shadow.CubeTarget = (*CommandBuffer)(nil)

// SetFrame sets the camera and lights used by following draws.
func (c *CommandBuffer) SetFrame(f *volume.Frame) {
	c.frame = f
	c.vp = f.Camera.ViewProjection()
	c.lights = c.lights[:0]
	if f.ShadowMapped {
		for _, l := range f.Lights {
			c.lights = append(c.lights, newLightView(l.Position, l.ZNear, l.ZFar))
		}
	}
}

// Clear resets the current target.
func (c *CommandBuffer) Clear(v volume.ClearValues) { c.target.Clear(v) }

// BindPipeline sets the state of following draws.
func (c *CommandBuffer) BindPipeline(s *pipeline.State) { c.state = s }

// BeginShadowFace redirects draws to one cube face of light.
func (c *CommandBuffer) BeginShadowFace(light int, face shadow.Face, s shadow.Settings) error {
	if c.face != nil {
		return errors.New("softraster: shadow face already open")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c.dev.shadow = s
	c.face = c.dev.cube(light, s.Resolution).faces[face]
	c.target = c.face
	return nil
}

// EndShadowFace returns draws to the main target.
func (c *CommandBuffer) EndShadowFace() {
	c.face = nil
	c.target = c.dev.target
}

// Draw rasterizes one primitive group with the bound state.
func (c *CommandBuffer) Draw(d volume.Draw) {
	if c.err != nil {
		return
	}
	if err := c.check(d); err != nil {
		c.err = err
		return
	}
	b := d.Mesh.(*Mesh).buffers
	g := d.Group
	t := silhouette.NewTransformer(d.Transform, b.Vertices[g.VertexOffset:g.VertexOffset+g.VertexCount])
	indices := b.Indices[g.IndexOffset : g.IndexOffset+g.IndexCount]
	edges := b.Edges[g.EdgeOffset : g.EdgeOffset+g.EdgeCount]

	switch c.state.Program {
	case pipeline.ProgramScene, pipeline.ProgramShadowMap:
		c.drawScene(indices, t, d)
	case pipeline.ProgramVolume:
		if light, ok := c.frame.ShadowLight(); ok {
			c.tris = silhouette.TriangleVolumes(c.tris[:0], indices, t, light.Position, c.state.Caps)
			c.drawVolume()
		}
	case pipeline.ProgramSilhouette:
		if light, ok := c.frame.ShadowLight(); ok {
			c.tris = silhouette.SilhouetteSides(c.tris[:0], edges, t, light.Position)
			c.drawVolume()
		}
	case pipeline.ProgramSilhouetteDebug:
		if light, ok := c.frame.ShadowLight(); ok {
			c.lines = silhouette.SilhouetteLines(c.lines[:0], edges, t, light.Position)
			c.drawLines()
		}
	}
}

func (c *CommandBuffer) check(d volume.Draw) error {
	switch {
	case c.state == nil:
		return errors.New("softraster: draw without a bound pipeline")
	case c.frame == nil:
		return errors.New("softraster: draw before SetFrame")
	}
	if _, ok := d.Mesh.(*Mesh); !ok {
		return fmt.Errorf("softraster: foreign mesh %T", d.Mesh)
	}
	adjacency := c.state.Topology == pipeline.TopologyTrianglesAdjacency
	if adjacency != (d.Geometry == volume.Edges) {
		return fmt.Errorf("softraster: %s geometry drawn with pipeline %s", d.Geometry, c.state.Name)
	}
	return nil
}

func (c *CommandBuffer) raster() *raster {
	r := &raster{width: c.target.Width, height: c.target.Height, depthClamp: c.state.DepthClamp}
	if c.state.DepthBias && c.face != nil {
		r.bias = c.dev.shadow.Offset
	}
	return r
}

// triangle clips, culls and fan triangulates one primitive.
func (c *CommandBuffer) triangle(r *raster, tri [3]vertex, emit func(*fragment)) {
	poly := c.clip.clip(tri, c.state.DepthClamp)
	if poly == nil {
		return
	}
	front, ok := frontFacing(poly)
	if !ok {
		return
	}
	switch c.state.Cull {
	case pipeline.CullBackFaces:
		if !front {
			return
		}
	case pipeline.CullFrontFaces:
		if front {
			return
		}
	}
	canonical(poly)
	for i := 1; i+1 < len(poly); i++ {
		r.triangle([3]vertex{poly[0], poly[i], poly[i+1]}, front, emit)
	}
}

func (c *CommandBuffer) drawScene(indices []uint32, t *silhouette.Transformer, d volume.Draw) {
	r := c.raster()
	emit := func(f *fragment) {
		if c.test(f) {
			c.shade(f, d)
		}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		var tri [3]vertex
		for k := range tri {
			cn := t.At(indices[i+k])
			tri[k] = vertex{clip: c.vp.Mul4x1(cn.Position.Vec4(1)), world: cn.Position, normal: cn.Normal}
		}
		c.triangle(r, tri, emit)
	}
}

func (c *CommandBuffer) drawVolume() {
	r := c.raster()
	emit := func(f *fragment) { c.test(f) }
	for _, tri := range c.tris {
		var v [3]vertex
		for k := range v {
			v[k] = vertex{clip: c.vp.Mul4x1(tri[k])}
		}
		c.triangle(r, v, emit)
	}
}

func (c *CommandBuffer) drawLines() {
	t := c.target
	if t.Color == nil {
		return
	}
	r := c.raster()
	for _, l := range c.lines {
		a, b := c.vp.Mul4x1(l[0].Vec4(1)), c.vp.Mul4x1(l[1].Vec4(1))
		r.line(a, b, func(x, y int, depth float32) {
			i := y*t.Width + x
			if c.state.DepthTest && !c.state.DepthCompare.Test(depth-lineDepthSlack, t.Depth[i]) {
				return
			}
			t.Color[i] = c.dev.Overlay
		})
	}
}

// test runs the stencil and depth tests of a fragment, applies the stencil
// operations and writes depth. It reports whether the fragment survived.
func (c *CommandBuffer) test(f *fragment) bool {
	t, s := c.target, c.state
	i := f.y*t.Width + f.x
	stencil := s.Stencil && t.Stencil != nil

	var face pipeline.StencilFace
	if stencil {
		face = s.StencilFor(f.front)
		if !face.Test(t.Stencil[i]) {
			t.Stencil[i] = face.Fail.Apply(t.Stencil[i], face.Reference, face.WriteMask)
			return false
		}
	}
	if s.DepthTest && !s.DepthCompare.Test(f.depth, t.Depth[i]) {
		if stencil {
			t.Stencil[i] = face.DepthFail.Apply(t.Stencil[i], face.Reference, face.WriteMask)
		}
		return false
	}
	if stencil {
		t.Stencil[i] = face.Pass.Apply(t.Stencil[i], face.Reference, face.WriteMask)
	}
	if s.DepthTest && s.DepthWrite {
		t.Depth[i] = f.depth
	}
	return true
}

func (c *CommandBuffer) shade(f *fragment, d volume.Draw) {
	t, s := c.target, c.state
	i := f.y*t.Width + f.x
	if t.Surface != nil && s.DepthTest && s.DepthWrite {
		t.Surface[i] = int32(d.Node + 1)
		t.Position[i] = f.world()
	}
	if !s.ColorWrite || t.Color == nil {
		return
	}
	col := c.color(s.Output, f, d.Material)
	if s.Blend.Enabled && s.Blend.Additive {
		t.Color[i] = t.Color[i].Add(col)
	} else {
		t.Color[i] = col
	}
}

// color evaluates the lighting of one output mode.
func (c *CommandBuffer) color(out pipeline.Output, f *fragment, material int) mgl32.Vec3 {
	albedo := c.dev.albedo(material)
	p, n := f.world(), f.normal()
	if !f.front {
		n = n.Mul(-1)
	}
	lights := c.frame.Lights

	var ambient, diffuse mgl32.Vec3
	switch out {
	case pipeline.OutputAmbient:
		ambient = sumAmbient(lights)
	case pipeline.OutputDiffuse:
		if len(lights) > 0 {
			diffuse = lights[0].DiffuseAt(p, n)
		}
	case pipeline.OutputFull:
		ambient = sumAmbient(lights)
		for _, l := range lights {
			diffuse = diffuse.Add(l.DiffuseAt(p, n))
		}
	case pipeline.OutputShadowMapped:
		ambient = sumAmbient(lights)
		for i, l := range lights {
			d := l.DiffuseAt(p, n)
			if i < len(c.lights) {
				d = d.Mul(c.dev.visibility(i, c.lights[i], p))
			}
			diffuse = diffuse.Add(d)
		}
	}
	return modulate(ambient.Add(diffuse), albedo)
}

func sumAmbient(lights []lighting.Light) mgl32.Vec3 {
	var a mgl32.Vec3
	for _, l := range lights {
		a = a.Add(mgl32.Vec3(l.Ambient))
	}
	return a
}

func modulate(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
