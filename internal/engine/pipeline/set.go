package pipeline

import "fmt"

// VolumeKind names one of the shadow volume stencil pipelines.
type VolumeKind uint8

const (
	// VolumeDepthPass draws per-triangle side quads with depth-pass counting.
	VolumeDepthPass VolumeKind = iota
	// VolumeDepthPassSilhouette draws silhouette side quads with depth-pass counting.
	VolumeDepthPassSilhouette
	// VolumeFrontCap draws the light facing triangles with depth-fail counting.
	VolumeFrontCap
	// VolumeSidesBackCap draws per-triangle side quads and the back cap with depth-fail counting.
	VolumeSidesBackCap
	// VolumeDepthFailSilhouette draws silhouette side quads with depth-fail counting.
	VolumeDepthFailSilhouette
	// VolumeBackCap draws the back cap alone with depth-fail counting.
	VolumeBackCap

	volumeKinds
)

func (k VolumeKind) String() string {
	switch k {
	case VolumeDepthPass:
		return "depth-pass"
	case VolumeDepthPassSilhouette:
		return "depth-pass-silhouette"
	case VolumeFrontCap:
		return "front-cap"
	case VolumeSidesBackCap:
		return "sides-back-cap"
	case VolumeDepthFailSilhouette:
		return "depth-fail-silhouette"
	case VolumeBackCap:
		return "back-cap"
	}
	return fmt.Sprintf("volume(%d)", uint8(k))
}

// Set holds every pipeline state the viewer uses. It is built once and
// never mutated, so *State values can be compared by identity.
type Set struct {
	scene [DrawShadowMap + 1][Permutations]*State
	// volume is indexed by VolumeKind
	volume          [volumeKinds]*State
	silhouetteDebug *State
}

// NewSet builds every pipeline permutation.
func NewSet() *Set {
	s := &Set{}
	for t := DrawFull; t <= DrawShadowMap; t++ {
		for f := 0; f < Permutations; f++ {
			s.scene[t][f] = sceneState(t, Flags(f))
		}
	}

	depthPassFront := StencilFace{Pass: StencilIncrWrap, Compare: CompareAlways, CompareMask: 0xff, WriteMask: 0xff}
	depthPassBack := StencilFace{Pass: StencilDecrWrap, Compare: CompareAlways, CompareMask: 0xff, WriteMask: 0xff}
	depthFailFront := StencilFace{DepthFail: StencilIncrWrap, Compare: CompareAlways, CompareMask: 0xff, WriteMask: 0xff}
	depthFailBack := StencilFace{DepthFail: StencilDecrWrap, Compare: CompareAlways, CompareMask: 0xff, WriteMask: 0xff}

	vol := func(k VolumeKind, p Program, caps Caps, clamp, depthFail bool) *State {
		st := &State{
			Name:         "volume/" + k.String(),
			Program:      p,
			Caps:         caps,
			Topology:     TopologyTriangles,
			Cull:         CullNone,
			DepthTest:    true,
			DepthCompare: CompareLess,
			DepthClamp:   clamp,
			Stencil:      true,
			StencilFront: depthPassFront,
			StencilBack:  depthPassBack,
		}
		if p == ProgramSilhouette {
			st.Topology = TopologyTrianglesAdjacency
		}
		if depthFail {
			st.StencilFront, st.StencilBack = depthFailFront, depthFailBack
		}
		return st
	}
	s.volume[VolumeDepthPass] = vol(VolumeDepthPass, ProgramVolume, CapSides, false, false)
	s.volume[VolumeDepthPassSilhouette] = vol(VolumeDepthPassSilhouette, ProgramSilhouette, CapSides, false, false)
	s.volume[VolumeFrontCap] = vol(VolumeFrontCap, ProgramVolume, CapFront, false, true)
	s.volume[VolumeSidesBackCap] = vol(VolumeSidesBackCap, ProgramVolume, CapSides|CapBack, true, true)
	s.volume[VolumeDepthFailSilhouette] = vol(VolumeDepthFailSilhouette, ProgramSilhouette, CapSides, true, true)
	s.volume[VolumeBackCap] = vol(VolumeBackCap, ProgramVolume, CapBack, true, true)

	s.silhouetteDebug = &State{
		Name:         "silhouette-debug",
		Program:      ProgramSilhouetteDebug,
		Topology:     TopologyTrianglesAdjacency,
		Cull:         CullNone,
		DepthTest:    true,
		DepthCompare: CompareLessEqual,
		ColorWrite:   true,
	}
	return s
}

func sceneState(t DrawType, f Flags) *State {
	st := &State{
		Name:         fmt.Sprintf("scene/%s/%s", t, f),
		Program:      ProgramScene,
		Topology:     TopologyTriangles,
		Cull:         f.Cull(),
		DepthTest:    f&DepthTest != 0,
		DepthWrite:   f&DepthWrite != 0,
		DepthCompare: CompareLess,
		ColorWrite:   true,
		AlphaTest:    f&AlphaTest != 0,
		Blend:        BlendState{Enabled: f&Blend != 0},
	}
	switch t {
	case DrawFull:
		st.Output = OutputFull
	case DrawShadowMapped:
		st.Output = OutputShadowMapped
	case DrawAmbient:
		st.Output = OutputAmbient
	case DrawDiffuseStencilTested:
		st.Output = OutputDiffuse
		st.DepthTest = true
		st.DepthWrite = false
		st.DepthCompare = CompareEqual
		st.Stencil = true
		st.StencilFront = StencilFace{Compare: CompareEqual, CompareMask: 0xff}
		st.StencilBack = st.StencilFront
		st.Blend = BlendState{Enabled: true, Additive: true}
	case DrawShadowMap:
		st.Program = ProgramShadowMap
		st.Output = OutputDepthOnly
		st.ColorWrite = false
		st.DepthBias = true
	}
	return st
}

// Scene returns the scene pipeline for a draw type and flag permutation.
func (s *Set) Scene(t DrawType, f Flags) *State {
	return s.scene[t][f&AllFlags]
}

// Volume returns the stencil pipeline of the given kind.
func (s *Set) Volume(k VolumeKind) *State {
	return s.volume[k]
}

// SilhouetteDebug returns the edge overlay pipeline.
func (s *Set) SilhouetteDebug() *State {
	return s.silhouetteDebug
}

// All returns every distinct state in a stable order, for backends that
// compile programs ahead of time.
func (s *Set) All() []*State {
	out := make([]*State, 0, len(s.scene)*Permutations+len(s.volume)+1)
	for t := range s.scene {
		out = append(out, s.scene[t][:]...)
	}
	out = append(out, s.volume[:]...)
	return append(out, s.silhouetteDebug)
}
