// Package pipeline describes the fixed-function state of every draw the
// viewer records. States are plain values built once at startup; backends
// translate them into API objects and compare them by pointer to skip
// redundant binds.
package pipeline

// CompareFunc is a depth or stencil comparison.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// Test reports whether a incoming value passes the comparison against stored.
func (c CompareFunc) Test(incoming, stored float32) bool {
	switch c {
	case CompareLess:
		return incoming < stored
	case CompareEqual:
		return incoming == stored
	case CompareLessEqual:
		return incoming <= stored
	case CompareGreater:
		return incoming > stored
	case CompareNotEqual:
		return incoming != stored
	case CompareGreaterEqual:
		return incoming >= stored
	case CompareAlways:
		return true
	}
	return false
}

// StencilOp is the update applied to a stencil value.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrClamp
	StencilDecrClamp
	StencilInvert
	StencilIncrWrap
	StencilDecrWrap
)

// Apply returns the stencil value after the operation, honouring writeMask.
func (op StencilOp) Apply(v, ref, writeMask uint8) uint8 {
	var n uint8
	switch op {
	case StencilKeep:
		return v
	case StencilZero:
		n = 0
	case StencilReplace:
		n = ref
	case StencilIncrClamp:
		n = v
		if v < 0xff {
			n = v + 1
		}
	case StencilDecrClamp:
		n = v
		if v > 0 {
			n = v - 1
		}
	case StencilInvert:
		n = ^v
	case StencilIncrWrap:
		n = v + 1
	case StencilDecrWrap:
		n = v - 1
	}
	return (v &^ writeMask) | (n & writeMask)
}

// CullMode selects which faces are discarded before rasterization.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullBackFaces
	CullFrontFaces
)

// Topology is the primitive assembly mode.
type Topology uint8

const (
	TopologyTriangles Topology = iota
	TopologyTrianglesAdjacency
)

// Program identifies the shader program a state runs.
type Program uint8

const (
	ProgramScene Program = iota
	ProgramShadowMap
	ProgramVolume
	ProgramSilhouette
	ProgramSilhouetteDebug
)

// Output selects what the scene fragment stage writes.
type Output uint8

const (
	OutputFull Output = iota
	OutputAmbient
	OutputDiffuse
	OutputShadowMapped
	OutputDepthOnly
)

// Caps selects which parts of a shadow volume the geometry stage emits.
type Caps uint8

const (
	CapFront Caps = 1 << iota
	CapBack
	CapSides
)

// StencilFace is the stencil state for one face orientation.
type StencilFace struct {
	Fail        StencilOp
	DepthFail   StencilOp
	Pass        StencilOp
	Compare     CompareFunc
	CompareMask uint8
	WriteMask   uint8
	Reference   uint8
}

// Test reports whether v passes the face's stencil comparison.
func (f StencilFace) Test(v uint8) bool {
	ref := float32(f.Reference & f.CompareMask)
	return f.Compare.Test(ref, float32(v&f.CompareMask))
}

// BlendState is the colour blend equation. Only additive blending and
// classic alpha blending are used.
type BlendState struct {
	Enabled  bool
	Additive bool
}

// State is the complete fixed-function configuration of one pipeline.
type State struct {
	Name     string
	Program  Program
	Output   Output
	Caps     Caps
	Topology Topology

	Cull         CullMode
	DepthTest    bool
	DepthWrite   bool
	DepthCompare CompareFunc
	DepthClamp   bool
	DepthBias    bool
	ColorWrite   bool
	AlphaTest    bool
	Blend        BlendState

	Stencil      bool
	StencilFront StencilFace
	StencilBack  StencilFace
}

// StencilFor returns the stencil face state for a front or back facing primitive.
func (s *State) StencilFor(front bool) StencilFace {
	if front {
		return s.StencilFront
	}
	return s.StencilBack
}
