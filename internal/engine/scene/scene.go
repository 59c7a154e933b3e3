// Package scene holds the node hierarchy of a loaded glTF file: world
// transforms, materials, the camera and light nodes, and node animations.
package scene

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/stencil-shadows/internal/engine/model"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
)

// lightsExtension is the glTF extension carrying punctual lights.
const lightsExtension = "KHR_lights_punctual"

// Node is one glTF node.
type Node struct {
	Name     string
	Parent   int // -1 for roots
	Children []int
	Mesh     int // -1 when the node draws nothing
	Camera   int // -1 when the node holds no camera
	Light    int // -1 when the node holds no punctual light

	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	// matrix is set for nodes authored with a matrix. Animating any TRS
	// path switches the node to TRS.
	matrix    *mgl32.Mat4
	animated  bool
	world     mgl32.Mat4
	worldDone bool
}

// Local returns the node's transform relative to its parent.
func (n *Node) Local() mgl32.Mat4 {
	if n.matrix != nil && !n.animated {
		return *n.matrix
	}
	return mgl32.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2]).
		Mul4(n.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))
}

// PunctualLight is a KHR_lights_punctual light definition.
type PunctualLight struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Color     [3]float32 `json:"-"`
	Intensity float32    `json:"-"`
	Range     float32    `json:"range"` // 0 means unlimited
}

// Material is the part of a glTF material the viewer renders.
type Material struct {
	Name        string
	BaseColor   mgl32.Vec4
	AlphaCutoff float32
	Pipeline    pipeline.Material
}

// Scene is a loaded glTF scene.
type Scene struct {
	Nodes      []Node
	Roots      []int
	Meshes     []*model.Mesh
	Materials  []Material
	Lights     []PunctualLight
	Animations []*Animation

	// CameraNode and LightNode are the first nodes holding a camera or a
	// punctual light, or -1.
	CameraNode int
	LightNode  int
}

// Load reads a glTF or GLB file.
func Load(path string, opts model.LoadOptions) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return FromDocument(doc, opts)
}

// FromDocument builds a scene from a decoded document.
func FromDocument(doc *gltf.Document, opts model.LoadOptions) (*Scene, error) {
	meshes, err := model.LoadMeshes(doc, opts)
	if err != nil {
		return nil, err
	}
	s := &Scene{Meshes: meshes, CameraNode: -1, LightNode: -1}

	if s.Lights, err = decodeLights(doc.Extensions); err != nil {
		return nil, err
	}
	s.Materials = loadMaterials(doc)

	s.Nodes = make([]Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if err := s.loadNode(i, n); err != nil {
			return nil, err
		}
	}
	for i := range s.Nodes {
		for _, c := range s.Nodes[i].Children {
			if c < 0 || c >= len(s.Nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			if s.Nodes[c].Parent >= 0 {
				return nil, fmt.Errorf("node %d has two parents", c)
			}
			s.Nodes[c].Parent = i
		}
	}
	s.Roots = roots(doc, s.Nodes)

	for i, a := range doc.Animations {
		anim, err := loadAnimation(doc, a, len(s.Nodes))
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		s.Animations = append(s.Animations, anim)
	}
	for _, a := range s.Animations {
		a.apply(s.Nodes)
	}

	s.UpdateTransforms()
	return s, nil
}

// FromMeshes builds a flat scene with one untransformed root node per mesh.
func FromMeshes(meshes []*model.Mesh, materials []Material) *Scene {
	s := &Scene{Meshes: meshes, Materials: materials, CameraNode: -1, LightNode: -1}
	for i, m := range meshes {
		s.Nodes = append(s.Nodes, Node{
			Name:     m.Name,
			Parent:   -1,
			Mesh:     i,
			Camera:   -1,
			Light:    -1,
			Rotation: mgl32.QuatIdent(),
			Scale:    mgl32.Vec3{1, 1, 1},
		})
		s.Roots = append(s.Roots, i)
	}
	s.UpdateTransforms()
	return s
}

func (s *Scene) loadNode(i int, n *gltf.Node) error {
	nd := Node{
		Name:        n.Name,
		Parent:      -1,
		Children:    n.Children,
		Mesh:        -1,
		Camera:      -1,
		Light:       -1,
		Translation: vec3(n.Translation),
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
	if n.Rotation != [4]float64{} {
		nd.Rotation = mgl32.Quat{
			W: float32(n.Rotation[3]),
			V: mgl32.Vec3{float32(n.Rotation[0]), float32(n.Rotation[1]), float32(n.Rotation[2])},
		}
	}
	if n.Scale != [3]float64{} {
		nd.Scale = vec3(n.Scale)
	}
	if n.Matrix != [16]float64{} && n.Matrix != identity {
		var m mgl32.Mat4
		for k, v := range n.Matrix {
			m[k] = float32(v)
		}
		nd.matrix = &m
	}

	if n.Mesh != nil {
		if *n.Mesh < 0 || *n.Mesh >= len(s.Meshes) {
			return fmt.Errorf("node %d: mesh %d out of range", i, *n.Mesh)
		}
		nd.Mesh = *n.Mesh
	}
	if n.Camera != nil {
		nd.Camera = *n.Camera
		if s.CameraNode < 0 {
			s.CameraNode = i
		}
	}
	if l, ok, err := nodeLight(n.Extensions); err != nil {
		return fmt.Errorf("node %d: %w", i, err)
	} else if ok {
		if l < 0 || l >= len(s.Lights) {
			return fmt.Errorf("node %d: light %d out of range", i, l)
		}
		nd.Light = l
		if s.LightNode < 0 {
			s.LightNode = i
		}
	}
	s.Nodes[i] = nd
	return nil
}

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func vec3(v [3]float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// roots returns the nodes of the default scene, or every parentless node
// when the document has no scenes.
func roots(doc *gltf.Document, nodes []Node) []int {
	if len(doc.Scenes) > 0 {
		sc := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			sc = *doc.Scene
		}
		return doc.Scenes[sc].Nodes
	}
	var out []int
	for i := range nodes {
		if nodes[i].Parent < 0 {
			out = append(out, i)
		}
	}
	return out
}

func loadMaterials(doc *gltf.Document) []Material {
	out := make([]Material, len(doc.Materials))
	for i, m := range doc.Materials {
		mat := Material{
			Name:        m.Name,
			BaseColor:   mgl32.Vec4{1, 1, 1, 1},
			AlphaCutoff: 0.5,
			Pipeline:    pipeline.Material{DoubleSided: m.DoubleSided},
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			f := pbr.BaseColorFactor
			mat.BaseColor = mgl32.Vec4{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		}
		if m.AlphaCutoff != nil {
			mat.AlphaCutoff = float32(*m.AlphaCutoff)
		}
		switch m.AlphaMode {
		case gltf.AlphaMask:
			mat.Pipeline.Alpha = pipeline.AlphaMask
		case gltf.AlphaBlend:
			mat.Pipeline.Alpha = pipeline.AlphaBlend
		}
		out[i] = mat
	}
	return out
}

// decodeLights reads the document level light list. The extension is
// decoded here rather than registered with the gltf package, so the
// value arrives as raw JSON.
func decodeLights(ext gltf.Extensions) ([]PunctualLight, error) {
	raw, ok := rawExtension(ext, lightsExtension)
	if !ok {
		return nil, nil
	}
	var doc struct {
		Lights []struct {
			PunctualLight
			Color     *[3]float32 `json:"color"`
			Intensity *float32    `json:"intensity"`
		} `json:"lights"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", lightsExtension, err)
	}
	out := make([]PunctualLight, len(doc.Lights))
	for i, l := range doc.Lights {
		out[i] = l.PunctualLight
		out[i].Color = [3]float32{1, 1, 1}
		if l.Color != nil {
			out[i].Color = *l.Color
		}
		out[i].Intensity = 1
		if l.Intensity != nil {
			out[i].Intensity = *l.Intensity
		}
	}
	return out, nil
}

// nodeLight returns the light index a node references.
func nodeLight(ext gltf.Extensions) (int, bool, error) {
	raw, ok := rawExtension(ext, lightsExtension)
	if !ok {
		return 0, false, nil
	}
	var ref struct {
		Light *int `json:"light"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return 0, false, fmt.Errorf("decode %s: %w", lightsExtension, err)
	}
	if ref.Light == nil {
		return 0, false, nil
	}
	return *ref.Light, true, nil
}

func rawExtension(ext gltf.Extensions, name string) (json.RawMessage, bool) {
	v, ok := ext[name]
	if !ok {
		return nil, false
	}
	switch raw := v.(type) {
	case json.RawMessage:
		return raw, true
	case []byte:
		return raw, true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return b, true
	}
}

// UpdateTransforms recomputes world transforms from the roots down.
func (s *Scene) UpdateTransforms() {
	for i := range s.Nodes {
		s.Nodes[i].worldDone = false
	}
	for _, r := range s.Roots {
		s.propagate(r, mgl32.Ident4())
	}
	// Nodes outside the default scene keep their own hierarchy.
	for i := range s.Nodes {
		if !s.Nodes[i].worldDone && s.Nodes[i].Parent < 0 {
			s.propagate(i, mgl32.Ident4())
		}
	}
}

func (s *Scene) propagate(i int, parent mgl32.Mat4) {
	n := &s.Nodes[i]
	if n.worldDone {
		return
	}
	n.world = parent.Mul4(n.Local())
	n.worldDone = true
	for _, c := range n.Children {
		s.propagate(c, n.world)
	}
}

// NodeTransform returns the world transform of node i, or identity when i
// is out of range.
func (s *Scene) NodeTransform(i int) mgl32.Mat4 {
	if i < 0 || i >= len(s.Nodes) {
		return mgl32.Ident4()
	}
	return s.Nodes[i].world
}

// LightPosition returns the world position of the light node.
func (s *Scene) LightPosition() (mgl32.Vec3, bool) {
	if s.LightNode < 0 {
		return mgl32.Vec3{}, false
	}
	return s.NodeTransform(s.LightNode).Col(3).Vec3(), true
}

// Advance moves every animation forward by dt seconds, looping finished
// ones, and updates world transforms. It reports whether any animation
// reached its end during the step.
func (s *Scene) Advance(dt float32) bool {
	finished := false
	for _, a := range s.Animations {
		if a.Advance(dt) {
			finished = true
			a.Reset()
		}
		a.apply(s.Nodes)
	}
	s.UpdateTransforms()
	return finished
}
