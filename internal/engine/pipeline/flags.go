package pipeline

import "strings"

// Flags select one permutation of a scene pipeline.
type Flags uint8

const (
	CullBack Flags = 1 << iota
	CullFront
	AlphaTest
	DepthTest
	DepthWrite
	Blend
)

const (
	// Depth enables both depth testing and depth writes.
	Depth = DepthTest | DepthWrite
	// AllFlags has every flag bit set.
	AllFlags = CullBack | CullFront | AlphaTest | DepthTest | DepthWrite | Blend
	// Permutations is the number of distinct flag combinations.
	Permutations = int(AllFlags) + 1
)

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  Flags
		name string
	}{
		{CullBack, "cull-back"},
		{CullFront, "cull-front"},
		{AlphaTest, "alpha-test"},
		{DepthTest, "depth-test"},
		{DepthWrite, "depth-write"},
		{Blend, "blend"},
	}
	var parts []string
	for _, n := range names {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Cull returns the cull mode encoded in the flags. Both bits set culls
// back faces only; the combination never comes out of MaterialFlags.
func (f Flags) Cull() CullMode {
	switch {
	case f&CullBack != 0:
		return CullBackFaces
	case f&CullFront != 0:
		return CullFrontFaces
	}
	return CullNone
}

// DrawType is the role a scene draw plays in the frame.
type DrawType uint8

const (
	DrawFull DrawType = iota
	DrawShadowMapped
	DrawAmbient
	DrawDiffuseStencilTested
	DrawShadowMap
)

func (t DrawType) String() string {
	switch t {
	case DrawFull:
		return "full"
	case DrawShadowMapped:
		return "shadow-mapped"
	case DrawAmbient:
		return "ambient"
	case DrawDiffuseStencilTested:
		return "diffuse-stencil-tested"
	case DrawShadowMap:
		return "shadow-map"
	}
	return "unknown"
}

// AlphaMode is the glTF material alpha mode.
type AlphaMode uint8

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// Material is the part of a material that affects pipeline selection.
type Material struct {
	DoubleSided bool
	Alpha       AlphaMode
}

// MaterialFlags adds the flags required by m to base. A nil material leaves
// base unchanged. Single sided materials cull back faces, except in shadow
// map draws with cullFront set, where front faces are culled instead.
func MaterialFlags(base Flags, m *Material, t DrawType, cullFront bool) Flags {
	if m == nil {
		return base
	}
	f := base
	if !m.DoubleSided {
		if t == DrawShadowMap && cullFront {
			f |= CullFront
		} else {
			f |= CullBack
		}
	}
	switch m.Alpha {
	case AlphaMask:
		f |= AlphaTest
	case AlphaBlend:
		f |= Blend
	}
	return f
}
