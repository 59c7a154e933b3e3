// Package shadow provides cube shadow maps for point lights.
//
// Each light renders the scene six times, once per cube face, with a 90°
// perspective looking down a major axis. Faces are independent and may be
// recorded in any order.
package shadow

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// Face is one side of a cube map, in GL cube map order.
type Face int

const (
	PositiveX Face = iota
	NegativeX
	PositiveY
	NegativeY
	PositiveZ
	NegativeZ

	// Faces is the number of cube faces.
	Faces = 6
)

func (f Face) String() string {
	names := [Faces]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}
	if f < 0 || f >= Faces {
		return fmt.Sprintf("face(%d)", int(f))
	}
	return names[f]
}

// faceBasis holds the forward and up vectors of each face. The ups follow
// the cube map sampling convention so rendered faces can be sampled by
// direction without flips.
var faceBasis = [Faces][2]mgl32.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// Forward returns the axis the face looks along.
func (f Face) Forward() mgl32.Vec3 { return faceBasis[f][0] }

// FaceView returns the view matrix of face f for a light at pos.
func FaceView(f Face, pos mgl32.Vec3) mgl32.Mat4 {
	b := faceBasis[f]
	return mgl32.LookAtV(pos, pos.Add(b[0]), b[1])
}

// Projection returns the 90° square projection shared by all faces.
func Projection(zNear, zFar float32) mgl32.Mat4 {
	return mgl32.Perspective(gomath.Pi/2, 1, zNear, zFar)
}

// FaceFor returns the face whose frustum contains direction d.
func FaceFor(d mgl32.Vec3) Face {
	ax, ay, az := abs32(d[0]), abs32(d[1]), abs32(d[2])
	switch {
	case ax >= ay && ax >= az:
		if d[0] >= 0 {
			return PositiveX
		}
		return NegativeX
	case ay >= az:
		if d[1] >= 0 {
			return PositiveY
		}
		return NegativeY
	default:
		if d[2] >= 0 {
			return PositiveZ
		}
		return NegativeZ
	}
}

// Settings control shadow map rendering and sampling. BiasClamp limits the
// slope term of the depth bias, in window depth; zero leaves it unbounded.
type Settings struct {
	Resolution   int
	BiasConstant float32
	BiasSlope    float32
	BiasClamp    float32
	ZNear        float32
	PCF          bool
	CullFront    bool
}

// Resolution bounds accepted by Validate.
const (
	MinResolution = 128
	MaxResolution = 8192
)

// ErrResolution is returned for resolutions outside [MinResolution, MaxResolution].
var ErrResolution = errors.New("shadow map resolution out of range")

// Validate checks the settings.
func (s Settings) Validate() error {
	if s.Resolution < MinResolution || s.Resolution > MaxResolution {
		return fmt.Errorf("%w: %d", ErrResolution, s.Resolution)
	}
	if s.BiasClamp < 0 {
		return fmt.Errorf("shadow map bias clamp must not be negative, got %g", s.BiasClamp)
	}
	if s.ZNear <= 0 {
		return fmt.Errorf("shadow map near plane must be positive, got %g", s.ZNear)
	}
	return nil
}

// depthUnit is the smallest resolvable step of a 24-bit depth buffer.
const depthUnit = 1.0 / (1 << 24)

// Offset returns the depth bias for a primitive whose window space depth
// changes by slope per texel, as glPolygonOffset computes it with the slope
// term limited to BiasClamp. Faces seen almost edge-on from the light
// otherwise get pushed behind the receivers they shadow.
func (s Settings) Offset(slope float32) float32 {
	return s.ConstantOffset() + s.SlopeOffset(slope)
}

// ConstantOffset returns the slope independent part of Offset.
func (s Settings) ConstantOffset() float32 { return s.BiasConstant * depthUnit }

// SlopeOffset returns the clamped slope part of Offset.
func (s Settings) SlopeOffset(slope float32) float32 {
	o := s.BiasSlope * slope
	if s.BiasClamp > 0 {
		o = min(o, s.BiasClamp)
	}
	return o
}

// CubeTarget is a command buffer that can render into cube faces.
type CubeTarget interface {
	volume.CommandBuffer
	// BeginShadowFace redirects draws to one face of a light's cube map and
	// applies the settings' resolution and bias.
	BeginShadowFace(light int, face Face, s Settings) error
	// EndShadowFace returns draws to the main target.
	EndShadowFace()
}

// MaxCubeMaps is the number of lights that get a cube map. Lights past it
// are unshadowed in shadow mapped frames.
const MaxCubeMaps = 8

// ErrNoCubeTarget is returned when the command buffer cannot render shadow maps.
var ErrNoCubeTarget = errors.New("command buffer does not support cube shadow maps")

// Renderer records the cube maps of every light.
type Renderer struct {
	settings Settings
	log      *zap.Logger
}

// NewRenderer creates a renderer with validated settings.
func NewRenderer(s Settings, log *zap.Logger) (*Renderer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{settings: s, log: log}, nil
}

// Settings returns the current settings.
func (r *Renderer) Settings() Settings { return r.settings }

// SetResolution changes the face resolution. Backends reallocate their
// cube maps on the next BeginShadowFace.
func (r *Renderer) SetResolution(res int) error {
	s := r.settings
	s.Resolution = res
	if err := s.Validate(); err != nil {
		return err
	}
	r.settings = s
	r.log.Info("shadow map resolution", zap.Int("resolution", res))
	return nil
}

// SetPCF toggles filtered sampling.
func (r *Renderer) SetPCF(on bool) { r.settings.PCF = on }

// RecordShadowMaps renders all six faces of the first MaxCubeMaps lights
// into cmd. It fills ZNear and ZFar of those lights; the far plane is the
// light's range.
func (r *Renderer) RecordShadowMaps(cmd volume.CommandBuffer, rec *volume.Recorder, frame *volume.Frame, list *volume.DrawList) error {
	target, ok := cmd.(CubeTarget)
	if !ok {
		return ErrNoCubeTarget
	}
	for l := range min(len(frame.Lights), MaxCubeMaps) {
		light := &frame.Lights[l]
		light.ZNear = r.settings.ZNear
		light.ZFar = light.Range

		pos := mgl32.Vec3(light.Position)
		proj := Projection(light.ZNear, light.ZFar)
		for f := Face(0); f < Faces; f++ {
			if err := target.BeginShadowFace(l, f, r.settings); err != nil {
				return fmt.Errorf("light %d face %s: %w", l, f, err)
			}
			faceFrame := &volume.Frame{
				Camera: volume.Camera{View: FaceView(f, pos), Projection: proj, Eye: pos},
				Lights: frame.Lights,
			}
			target.SetFrame(faceFrame)
			target.Clear(volume.ClearValues{Depth: 1})
			rec.Scene(target, list, pipeline.Depth, pipeline.DrawShadowMap, nil)
			target.EndShadowFace()
		}
	}
	return nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
