package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/engine/framebuffer"
	"github.com/Faultbox/stencil-shadows/internal/engine/lighting"
	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/shadow"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// DefaultAlbedo is used for materials outside the palette.
var DefaultAlbedo = mgl32.Vec4{0.8, 0.8, 0.8, 1}

// DefaultAlphaCutoff is the glTF default for MASK materials.
const DefaultAlphaCutoff = 0.5

// Device renders into an offscreen framebuffer on the current GL context.
type Device struct {
	caps   Caps
	fb     *framebuffer.Framebuffer
	progs  *programs
	states map[*pipeline.State]glState
	meshes []*Mesh
	cubes  map[int]*shadow.CubeMap
	lights *lighting.Buffer
	log    *zap.Logger

	// Palette holds the base colour of each material id.
	Palette     []mgl32.Vec4
	AlphaCutoff float32
	// Overlay is the colour of silhouette debug lines.
	Overlay mgl32.Vec3
}

var _ volume.Device = (*Device)(nil)

// NewDevice loads GL entry points, checks the context and compiles the
// programs of every state in set. A GL context must be current.
func NewDevice(width, height int, set *pipeline.Set, log *zap.Logger) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := gl.Init(); err != nil {
		return nil, &DeviceCapabilityError{Capability: "GL entry points", Err: err}
	}
	caps, err := probe(log)
	if err != nil {
		return nil, err
	}

	fb, err := framebuffer.New(int32(width), int32(height), caps.DepthStencil)
	if err != nil {
		return nil, &DeviceCapabilityError{Capability: "offscreen framebuffer", Err: err}
	}
	fbw, fbh := fb.Size()
	log.Debug("offscreen framebuffer",
		zap.Int32("width", fbw),
		zap.Int32("height", fbh),
		zap.String("depth_stencil", framebuffer.FormatName(fb.DepthFormat())))
	progs, err := compilePrograms(set)
	if err != nil {
		fb.Destroy()
		return nil, err
	}

	states := make(map[*pipeline.State]glState)
	for _, st := range set.All() {
		states[st] = translate(st)
	}
	log.Debug("pipelines translated", zap.Int("states", len(states)), zap.Int("programs", len(progs.byKind)))

	return &Device{
		caps:        caps,
		fb:          fb,
		progs:       progs,
		states:      states,
		cubes:       make(map[int]*shadow.CubeMap),
		lights:      lighting.NewBuffer(),
		log:         log,
		AlphaCutoff: DefaultAlphaCutoff,
		Overlay:     mgl32.Vec3{1, 0.1, 0.1},
	}, nil
}

// Caps returns the probed context capabilities.
func (d *Device) Caps() Caps { return d.caps }

// Upload copies mesh buffers to the GPU.
func (d *Device) Upload(b *topology.Buffers[model.Vertex]) (volume.Mesh, error) {
	m, err := uploadMesh(b)
	if err != nil {
		return nil, err
	}
	d.meshes = append(d.meshes, m)
	return m, nil
}

// Begin starts a frame on the offscreen framebuffer.
func (d *Device) Begin() (volume.CommandBuffer, error) {
	d.fb.Bind()
	return &CommandBuffer{dev: d, uploaded: make(map[uint32]int)}, nil
}

// Submit reports errors recorded by cmd or raised by the driver.
func (d *Device) Submit(cmd volume.CommandBuffer) error {
	c, ok := cmd.(*CommandBuffer)
	if !ok || c.dev != d {
		return fmt.Errorf("gpu: foreign command buffer %T", cmd)
	}
	if c.cube != nil {
		return errors.New("gpu: shadow face left open")
	}
	if c.err != nil {
		return c.err
	}
	var errs []error
	for e := gl.GetError(); e != gl.NO_ERROR; e = gl.GetError() {
		errs = append(errs, fmt.Errorf("gpu: GL error 0x%x", e))
	}
	return errors.Join(errs...)
}

// Resize reallocates the offscreen framebuffer.
func (d *Device) Resize(width, height int) {
	d.fb.Resize(int32(width), int32(height))
}

// Present copies the last frame to the window's framebuffer.
func (d *Device) Present(width, height int) {
	d.fb.BlitToDefault(int32(width), int32(height))
}

// Capture reads the colour of the last frame, top row first.
func (d *Device) Capture() *image.NRGBA {
	w, h := d.fb.Size()
	img := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	flipRows(img.Pix, d.fb.ReadPixels(), int(w)*4, int(h))
	return img
}

// StencilMask reads the stencil counts of the last frame as a mask: 255
// where the count is nonzero, top row first.
func (d *Device) StencilMask() *image.Gray {
	w, h := d.fb.Size()
	img := image.NewGray(image.Rect(0, 0, int(w), int(h)))
	flipRows(img.Pix, d.fb.ReadStencil(), int(w), int(h))
	for i, v := range img.Pix {
		if v != 0 {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// flipRows copies src into dst reversing the row order.
func flipRows(dst, src []byte, stride, height int) {
	for y := range height {
		s := (height - 1 - y) * stride
		copy(dst[y*stride:(y+1)*stride], src[s:s+stride])
	}
}

func (d *Device) albedo(material int) mgl32.Vec4 {
	if material >= 0 && material < len(d.Palette) {
		return d.Palette[material]
	}
	return DefaultAlbedo
}

// cube returns the cube map of light, reallocating it when the resolution changed.
func (d *Device) cube(light int, s shadow.Settings) (*shadow.CubeMap, error) {
	cm := d.cubes[light]
	if cm.IsValid() && cm.Resolution == int32(s.Resolution) {
		return cm, nil
	}
	if cm != nil {
		cm.Destroy()
		delete(d.cubes, light)
	}
	cm, err := shadow.NewCubeMap(int32(s.Resolution), s.PCF)
	if err != nil {
		return nil, err
	}
	d.log.Debug("cube map allocated", zap.Int("light", light), zap.Int("resolution", s.Resolution))
	d.cubes[light] = cm
	return cm, nil
}

// Destroy releases every GL object the device created.
func (d *Device) Destroy() {
	for _, m := range d.meshes {
		m.destroy()
	}
	d.meshes = nil
	for l, cm := range d.cubes {
		cm.Destroy()
		delete(d.cubes, l)
	}
	d.progs.destroy()
	d.fb.Destroy()
}
