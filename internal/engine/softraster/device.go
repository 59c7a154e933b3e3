package softraster

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/shadow"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// Mesh keeps the indexed buffers in host memory.
type Mesh struct {
	buffers *topology.Buffers[model.Vertex]
}

// Name returns the mesh name.
func (m *Mesh) Name() string { return m.buffers.Name }

// Groups returns the primitive groups.
func (m *Mesh) Groups() []topology.PrimGroup { return m.buffers.Groups }

// Device renders into a Target held in memory.
type Device struct {
	target *Target
	cubes  map[int]*cubeMap
	shadow shadow.Settings

	// Palette holds the albedo of each material id. Missing entries use
	// DefaultAlbedo.
	Palette []mgl32.Vec3
	// Overlay is the colour of silhouette debug lines.
	Overlay mgl32.Vec3

	log *zap.Logger
}

// DefaultAlbedo is the surface colour of materials without a palette entry.
var DefaultAlbedo = mgl32.Vec3{0.8, 0.8, 0.8}

type cubeMap struct {
	faces [shadow.Faces]*Target
}

// NewDevice creates a device with a w x h target.
func NewDevice(w, h int, log *zap.Logger) (*Device, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("softraster: invalid target size %dx%d", w, h)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{
		target:  NewTarget(w, h),
		cubes:   make(map[int]*cubeMap),
		Overlay: mgl32.Vec3{1, 0.1, 0.1},
		log:     log,
	}, nil
}

// Target returns the main target, valid after Submit.
func (d *Device) Target() *Target { return d.target }

// Upload wraps b without copying it.
func (d *Device) Upload(b *topology.Buffers[model.Vertex]) (volume.Mesh, error) {
	if b == nil {
		return nil, errors.New("softraster: nil mesh buffers")
	}
	return &Mesh{buffers: b}, nil
}

// Begin starts a frame. Commands execute as they are recorded.
func (d *Device) Begin() (volume.CommandBuffer, error) {
	return &CommandBuffer{dev: d, target: d.target}, nil
}

// Submit finishes a frame and returns the first error a command hit.
func (d *Device) Submit(cmd volume.CommandBuffer) error {
	c, ok := cmd.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("softraster: foreign command buffer %T", cmd)
	}
	if c.face != nil {
		return errors.New("softraster: frame submitted inside a shadow face")
	}
	return c.err
}

func (d *Device) albedo(material int) mgl32.Vec3 {
	if material >= 0 && material < len(d.Palette) {
		return d.Palette[material]
	}
	return DefaultAlbedo
}

// cube returns the cube map of light, reallocating it when the resolution
// changed.
func (d *Device) cube(light, res int) *cubeMap {
	cm := d.cubes[light]
	if cm != nil && cm.faces[0].Width == res {
		return cm
	}
	cm = &cubeMap{}
	for f := range cm.faces {
		cm.faces[f] = newDepthTarget(res)
	}
	d.cubes[light] = cm
	d.log.Debug("shadow cube allocated", zap.Int("light", light), zap.Int("resolution", res))
	return cm
}

// visibility returns the lit fraction of p as seen from light l, or 1 when
// the light has no cube map.
func (d *Device) visibility(l int, light lightView, p mgl32.Vec3) float32 {
	cm := d.cubes[l]
	if cm == nil {
		return 1
	}
	dir := p.Sub(light.pos)
	f := shadow.FaceFor(dir)
	c := light.faces[f].Mul4x1(p.Vec4(1))
	if c[3] <= 0 {
		return 1
	}
	t := cm.faces[f]
	s := toWindow(c, t.Width, t.Height)
	ref := float32(s.z)

	if !d.shadow.PCF {
		x, y := clampInt(int(s.fx), t.Width), clampInt(int(s.fy), t.Height)
		return compare(ref, t.Depth[y*t.Width+x])
	}

	// Bilinear weighting of the four nearest comparisons.
	fx, fy := s.fx-0.5, s.fy-0.5
	x0, y0 := int(gomath.Floor(fx)), int(gomath.Floor(fy))
	tx, ty := float32(fx-gomath.Floor(fx)), float32(fy-gomath.Floor(fy))
	sample := func(x, y int) float32 {
		x, y = clampInt(x, t.Width), clampInt(y, t.Height)
		return compare(ref, t.Depth[y*t.Width+x])
	}
	top := sample(x0, y0)*(1-tx) + sample(x0+1, y0)*tx
	bottom := sample(x0, y0+1)*(1-tx) + sample(x0+1, y0+1)*tx
	return top*(1-ty) + bottom*ty
}

func compare(ref, stored float32) float32 {
	if ref <= stored {
		return 1
	}
	return 0
}

func clampInt(v, n int) int {
	return min(max(v, 0), n-1)
}

// lightView caches the face matrices of one light for a frame.
type lightView struct {
	pos   mgl32.Vec3
	faces [shadow.Faces]mgl32.Mat4
}

func newLightView(pos mgl32.Vec3, zNear, zFar float32) lightView {
	lv := lightView{pos: pos}
	proj := shadow.Projection(zNear, zFar)
	for f := shadow.Face(0); f < shadow.Faces; f++ {
		lv.faces[f] = proj.Mul4(shadow.FaceView(f, pos))
	}
	return lv
}
