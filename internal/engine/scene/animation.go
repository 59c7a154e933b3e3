package scene

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Path is the node property a channel drives.
type Path uint8

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

// Interpolation is the keyframe interpolation of a channel.
type Interpolation uint8

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// Channel animates one property of one node. Values hold one entry per
// keyframe, or three (in-tangent, value, out-tangent) for cubic splines.
// Vectors use the first three components.
type Channel struct {
	Node          int
	Path          Path
	Interpolation Interpolation
	Times         []float32
	Values        []mgl32.Vec4
}

// value returns keyframe k's value, skipping cubic spline tangents.
func (c *Channel) value(k int) mgl32.Vec4 {
	if c.Interpolation == InterpolationCubicSpline {
		return c.Values[k*3+1]
	}
	return c.Values[k]
}

// Sample evaluates the channel at time t. Times before the first or after
// the last keyframe hold the end values.
func (c *Channel) Sample(t float32) mgl32.Vec4 {
	n := len(c.Times)
	switch {
	case n == 0:
		return mgl32.Vec4{}
	case t <= c.Times[0]:
		return c.value(0)
	case t >= c.Times[n-1]:
		return c.value(n - 1)
	}

	// k is the last keyframe at or before t.
	k := sort.Search(n, func(i int) bool { return c.Times[i] > t }) - 1
	t0, t1 := c.Times[k], c.Times[k+1]
	dt := t1 - t0
	u := (t - t0) / dt

	switch c.Interpolation {
	case InterpolationStep:
		return c.value(k)
	case InterpolationCubicSpline:
		p0, m0 := c.Values[k*3+1], c.Values[k*3+2].Mul(dt)
		p1, m1 := c.Values[(k+1)*3+1], c.Values[(k+1)*3].Mul(dt)
		u2, u3 := u*u, u*u*u
		v := p0.Mul(2*u3 - 3*u2 + 1).
			Add(m0.Mul(u3 - 2*u2 + u)).
			Add(p1.Mul(-2*u3 + 3*u2)).
			Add(m1.Mul(u3 - u2))
		if c.Path == PathRotation {
			v = quatVec(toQuat(v).Normalize())
		}
		return v
	}

	a, b := c.value(k), c.value(k+1)
	if c.Path == PathRotation {
		return quatVec(mgl32.QuatSlerp(toQuat(a), toQuat(b), u))
	}
	return a.Add(b.Sub(a).Mul(u))
}

func toQuat(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

func quatVec(q mgl32.Quat) mgl32.Vec4 {
	return mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}

// Animation plays a set of channels over [Start, End].
type Animation struct {
	Name     string
	Channels []Channel
	Start    float32
	End      float32
	time     float32
}

// Time returns the current playback time.
func (a *Animation) Time() float32 { return a.time }

// Advance moves playback forward by dt. It reports true, without moving,
// once playback has reached End.
func (a *Animation) Advance(dt float32) bool {
	if a.time >= a.End {
		return true
	}
	a.time += dt
	return false
}

// Reset rewinds playback to Start.
func (a *Animation) Reset() { a.time = a.Start }

// apply writes the sampled channel values into nodes.
func (a *Animation) apply(nodes []Node) {
	for i := range a.Channels {
		c := &a.Channels[i]
		n := &nodes[c.Node]
		v := c.Sample(a.time)
		switch c.Path {
		case PathTranslation:
			n.Translation = v.Vec3()
		case PathRotation:
			n.Rotation = toQuat(v)
		case PathScale:
			n.Scale = v.Vec3()
		}
		n.animated = true
	}
}

func loadAnimation(doc *gltf.Document, a *gltf.Animation, nodes int) (*Animation, error) {
	anim := &Animation{Name: a.Name}
	first := true
	for ci, ch := range a.Channels {
		if ch.Target.Node == nil {
			continue
		}
		node := *ch.Target.Node
		if node < 0 || node >= nodes {
			return nil, fmt.Errorf("channel %d: node %d out of range", ci, node)
		}
		var path Path
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			path = PathTranslation
		case gltf.TRSRotation:
			path = PathRotation
		case gltf.TRSScale:
			path = PathScale
		default:
			// Morph target weights are not rendered.
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
			return nil, fmt.Errorf("channel %d: sampler %d out of range", ci, ch.Sampler)
		}
		s := a.Samplers[ch.Sampler]

		c := Channel{Node: node, Path: path}
		switch s.Interpolation {
		case gltf.InterpolationStep:
			c.Interpolation = InterpolationStep
		case gltf.InterpolationCubicSpline:
			c.Interpolation = InterpolationCubicSpline
		}

		var err error
		if c.Times, err = readScalars(doc, s.Input); err != nil {
			return nil, fmt.Errorf("channel %d input: %w", ci, err)
		}
		if c.Values, err = readVectors(doc, s.Output); err != nil {
			return nil, fmt.Errorf("channel %d output: %w", ci, err)
		}
		want := len(c.Times)
		if c.Interpolation == InterpolationCubicSpline {
			want *= 3
		}
		if len(c.Times) == 0 || len(c.Values) != want {
			return nil, fmt.Errorf("channel %d: %d keyframes with %d values", ci, len(c.Times), len(c.Values))
		}

		lo, hi := c.Times[0], c.Times[len(c.Times)-1]
		if first || lo < anim.Start {
			anim.Start = lo
		}
		if first || hi > anim.End {
			anim.End = hi
		}
		first = false
		anim.Channels = append(anim.Channels, c)
	}
	anim.time = anim.Start
	return anim, nil
}

func readScalars(doc *gltf.Document, accessor int) ([]float32, error) {
	if accessor < 0 || accessor >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessor)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[accessor], nil)
	if err != nil {
		return nil, err
	}
	v, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("keyframe times are %T, want []float32", data)
	}
	return v, nil
}

// readVectors reads float or normalized integer output values.
func readVectors(doc *gltf.Document, accessor int) ([]mgl32.Vec4, error) {
	if accessor < 0 || accessor >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessor)
	}
	acr := doc.Accessors[accessor]
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][3]float32:
		out := make([]mgl32.Vec4, len(v))
		for i, x := range v {
			out[i] = mgl32.Vec4{x[0], x[1], x[2], 0}
		}
		return out, nil
	case [][4]float32:
		out := make([]mgl32.Vec4, len(v))
		for i, x := range v {
			out[i] = mgl32.Vec4(x)
		}
		return out, nil
	case [][4]int16:
		return normalized(v, func(c int16) float32 { return max(float32(c)/32767, -1) }), nil
	case [][4]uint16:
		return normalized(v, func(c uint16) float32 { return float32(c) / 65535 }), nil
	case [][4]int8:
		return normalized(v, func(c int8) float32 { return max(float32(c)/127, -1) }), nil
	case [][4]uint8:
		return normalized(v, func(c uint8) float32 { return float32(c) / 255 }), nil
	}
	return nil, fmt.Errorf("unsupported keyframe values %T", data)
}

func normalized[T any](v [][4]T, conv func(T) float32) []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(v))
	for i, x := range v {
		out[i] = mgl32.Vec4{conv(x[0]), conv(x[1]), conv(x[2]), conv(x[3])}
	}
	return out
}
