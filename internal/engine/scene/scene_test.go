package scene

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/topology"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

func index(i int) *int { return &i }

// testDoc has a translated root with a scaled mesh child, a camera node and
// a light node, plus an animation moving the light node.
func testDoc() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, -1}})
	doc.Meshes = []*gltf.Mesh{{Name: "tri", Primitives: []*gltf.Primitive{{
		Attributes: map[string]int{gltf.POSITION: pos},
		Material:   index(0),
	}}}}
	cutoff := 0.3
	doc.Materials = []*gltf.Material{{
		Name:        "red",
		DoubleSided: true,
		AlphaMode:   gltf.AlphaMask,
		AlphaCutoff: &cutoff,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
		},
	}}
	doc.Extensions = gltf.Extensions{
		lightsExtension: json.RawMessage(`{"lights":[{"type":"point","range":20,"intensity":3}]}`),
	}
	doc.Nodes = []*gltf.Node{
		{Name: "root", Translation: [3]float64{1, 0, 0}, Children: []int{1}},
		{Name: "mesh", Translation: [3]float64{0, 1, 0}, Scale: [3]float64{2, 2, 2}, Mesh: index(0)},
		{Name: "camera", Translation: [3]float64{0, 2, 5}, Camera: index(0)},
		{Name: "light", Translation: [3]float64{0, 4, 0}, Extensions: gltf.Extensions{
			lightsExtension: json.RawMessage(`{"light":0}`),
		}},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0, 2, 3}}}

	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 2})
	moves := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 4, 0}, {4, 4, 0}})
	doc.Animations = []*gltf.Animation{{
		Name:     "orbit",
		Samplers: []*gltf.AnimationSampler{{Input: times, Output: moves, Interpolation: gltf.InterpolationLinear}},
		Channels: []*gltf.AnimationChannel{{Sampler: 0, Target: gltf.AnimationChannelTarget{Node: index(3), Path: gltf.TRSTranslation}}},
	}}
	return doc
}

func TestFromDocument(t *testing.T) {
	s, err := FromDocument(testDoc(), model.DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 3}, s.Roots)
	assert.Equal(t, 0, s.Nodes[1].Parent)
	assert.Equal(t, 2, s.CameraNode)
	assert.Equal(t, 3, s.LightNode)

	world := s.NodeTransform(1)
	p := world.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{3, 1, 0}, p[:3], 1e-5, "got %v", p)

	require.Len(t, s.Lights, 1)
	assert.Equal(t, [3]float32{1, 1, 1}, s.Lights[0].Color)
	assert.Equal(t, float32(3), s.Lights[0].Intensity)
	assert.Equal(t, float32(20), s.Lights[0].Range)

	require.Len(t, s.Materials, 1)
	m := s.Materials[0]
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, m.BaseColor)
	assert.Equal(t, float32(0.3), m.AlphaCutoff)
	assert.Equal(t, pipeline.Material{DoubleSided: true, Alpha: pipeline.AlphaMask}, m.Pipeline)
}

func TestAdvanceMovesLightNode(t *testing.T) {
	s, err := FromDocument(testDoc(), model.DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, s.Animations, 1)
	a := s.Animations[0]
	assert.Equal(t, float32(0), a.Start)
	assert.Equal(t, float32(2), a.End)

	assert.False(t, s.Advance(1))
	pos, ok := s.LightPosition()
	require.True(t, ok)
	assert.InDeltaSlice(t, []float32{2, 4, 0}, pos[:], 1e-5, "got %v", pos)

	assert.False(t, s.Advance(1))
	// Reaching the end loops back to the start.
	assert.True(t, s.Advance(1))
	assert.Equal(t, float32(0), a.Time())
	pos, _ = s.LightPosition()
	assert.InDeltaSlice(t, []float32{0, 4, 0}, pos[:], 1e-5, "got %v", pos)
}

func TestChannelSample(t *testing.T) {
	times := []float32{0, 1, 3}
	vals := []mgl32.Vec4{{0, 0, 0, 0}, {2, 0, 0, 0}, {2, 4, 0, 0}}

	tests := []struct {
		name   string
		interp Interpolation
		t      float32
		want   mgl32.Vec4
	}{
		{"before first", InterpolationLinear, -1, vals[0]},
		{"linear mid", InterpolationLinear, 0.5, mgl32.Vec4{1, 0, 0, 0}},
		{"linear second span", InterpolationLinear, 2, mgl32.Vec4{2, 2, 0, 0}},
		{"on keyframe", InterpolationLinear, 1, vals[1]},
		{"after last", InterpolationLinear, 9, vals[2]},
		{"step", InterpolationStep, 2.9, vals[1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Channel{Path: PathTranslation, Interpolation: tt.interp, Times: times, Values: vals}
			got := c.Sample(tt.t)
			assert.InDeltaSlice(t, tt.want[:], got[:], 1e-5, "got %v", got)
		})
	}
}

func TestRotationSlerp(t *testing.T) {
	q0 := mgl32.QuatIdent()
	q1 := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	c := Channel{
		Path:   PathRotation,
		Times:  []float32{0, 1},
		Values: []mgl32.Vec4{quatVec(q0), quatVec(q1)},
	}
	half := toQuat(c.Sample(0.5))
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	w, h := quatVec(want), quatVec(half)
	assert.InDeltaSlice(t, w[:], h[:], 1e-5, "got %v", half)
}

func TestCubicSplineHitsKeyframes(t *testing.T) {
	c := Channel{
		Path:          PathTranslation,
		Interpolation: InterpolationCubicSpline,
		Times:         []float32{0, 1},
		Values: []mgl32.Vec4{
			{}, {0, 0, 0, 0}, {1, 0, 0, 0},
			{1, 0, 0, 0}, {1, 0, 0, 0}, {},
		},
	}
	assert.Equal(t, mgl32.Vec4{}, c.Sample(0))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0}, c.Sample(1))
	// Unit tangents at both ends make the curve a straight line.
	assert.InDelta(t, 0.5, c.Sample(0.5)[0], 1e-5)
}

func TestMatrixNodeUntilAnimated(t *testing.T) {
	m := mgl32.Translate3D(0, 0, 7)
	n := Node{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}, matrix: &m}
	assert.Equal(t, m, n.Local())
	n.animated = true
	assert.Equal(t, mgl32.Ident4(), n.Local())
}

type stubMesh string

func (m stubMesh) Name() string { return string(m) }
func (stubMesh) Groups() []topology.PrimGroup { return nil }

func TestDrawList(t *testing.T) {
	s, err := FromDocument(testDoc(), model.DefaultLoadOptions())
	require.NoError(t, err)

	_, err = s.DrawList(nil)
	assert.Error(t, err)

	list, err := s.DrawList([]volume.Mesh{stubMesh("tri")})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].Node)
	assert.Equal(t, s.NodeTransform(1), list.Items[0].Transform)
	assert.Equal(t, s.PipelineMaterials(), list.Materials)
	assert.Equal(t, []mgl32.Vec4{{1, 0, 0, 1}}, s.Palette())
}

func TestBadReferences(t *testing.T) {
	doc := testDoc()
	doc.Nodes[1].Mesh = index(5)
	_, err := FromDocument(doc, model.DefaultLoadOptions())
	assert.ErrorContains(t, err, "mesh 5 out of range")

	doc = testDoc()
	doc.Nodes[2].Children = []int{1}
	_, err = FromDocument(doc, model.DefaultLoadOptions())
	assert.ErrorContains(t, err, "two parents")
}

func TestFromMeshes(t *testing.T) {
	meshes := []*model.Mesh{
		model.Plane("floor", 5, 0, 0),
		model.Box("box", [3]float32{0, 0, 0}, [3]float32{1, 1, 1}, 0),
	}
	s := FromMeshes(meshes, []Material{{Name: "grey", BaseColor: mgl32.Vec4{0.5, 0.5, 0.5, 1}}})

	assert.Equal(t, []int{0, 1}, s.Roots)
	assert.Equal(t, -1, s.LightNode)
	assert.Equal(t, mgl32.Ident4(), s.NodeTransform(1))
	_, ok := s.LightPosition()
	assert.False(t, ok)

	list, err := s.DrawList([]volume.Mesh{stubMesh("floor"), stubMesh("box")})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
}
