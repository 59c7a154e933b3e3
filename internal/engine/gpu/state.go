package gpu

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
)

// glStencil is one face of a stencil state in GL terms.
type glStencil struct {
	fail, depthFail, pass uint32
	fn                    uint32
	ref                   int32
	readMask, writeMask   uint32
}

// glState is a pipeline.State translated to GL enums.
type glState struct {
	mode uint32

	cull     bool
	cullFace uint32

	depthTest  bool
	depthWrite bool
	depthFunc  uint32
	depthClamp bool
	depthBias  bool

	colorWrite bool
	blend      bool
	blendSrc   uint32
	blendDst   uint32

	stencil     bool
	front, back glStencil
}

func compareFunc(c pipeline.CompareFunc) uint32 {
	switch c {
	case pipeline.CompareLess:
		return gl.LESS
	case pipeline.CompareEqual:
		return gl.EQUAL
	case pipeline.CompareLessEqual:
		return gl.LEQUAL
	case pipeline.CompareGreater:
		return gl.GREATER
	case pipeline.CompareNotEqual:
		return gl.NOTEQUAL
	case pipeline.CompareGreaterEqual:
		return gl.GEQUAL
	case pipeline.CompareAlways:
		return gl.ALWAYS
	}
	return gl.NEVER
}

func stencilOp(op pipeline.StencilOp) uint32 {
	switch op {
	case pipeline.StencilZero:
		return gl.ZERO
	case pipeline.StencilReplace:
		return gl.REPLACE
	case pipeline.StencilIncrClamp:
		return gl.INCR
	case pipeline.StencilDecrClamp:
		return gl.DECR
	case pipeline.StencilInvert:
		return gl.INVERT
	case pipeline.StencilIncrWrap:
		return gl.INCR_WRAP
	case pipeline.StencilDecrWrap:
		return gl.DECR_WRAP
	}
	return gl.KEEP
}

func stencilFace(f pipeline.StencilFace) glStencil {
	return glStencil{
		fail:      stencilOp(f.Fail),
		depthFail: stencilOp(f.DepthFail),
		pass:      stencilOp(f.Pass),
		fn:        compareFunc(f.Compare),
		ref:       int32(f.Reference),
		readMask:  uint32(f.CompareMask),
		writeMask: uint32(f.WriteMask),
	}
}

func translate(s *pipeline.State) glState {
	g := glState{
		mode:       gl.TRIANGLES,
		depthTest:  s.DepthTest,
		depthWrite: s.DepthWrite,
		depthFunc:  compareFunc(s.DepthCompare),
		depthClamp: s.DepthClamp,
		depthBias:  s.DepthBias,
		colorWrite: s.ColorWrite,
		stencil:    s.Stencil,
		front:      stencilFace(s.StencilFront),
		back:       stencilFace(s.StencilBack),
	}
	if s.Topology == pipeline.TopologyTrianglesAdjacency {
		g.mode = gl.TRIANGLES_ADJACENCY
	}
	switch s.Cull {
	case pipeline.CullBackFaces:
		g.cull, g.cullFace = true, gl.BACK
	case pipeline.CullFrontFaces:
		g.cull, g.cullFace = true, gl.FRONT
	}
	if s.Blend.Enabled {
		g.blend = true
		g.blendSrc, g.blendDst = gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA
		if s.Blend.Additive {
			g.blendSrc, g.blendDst = gl.ONE, gl.ONE
		}
	}
	return g
}

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

// apply sets every piece of fixed function state g covers.
func (g *glState) apply() {
	enable(gl.CULL_FACE, g.cull)
	if g.cull {
		gl.CullFace(g.cullFace)
	}

	enable(gl.DEPTH_TEST, g.depthTest)
	gl.DepthMask(g.depthWrite)
	gl.DepthFunc(g.depthFunc)
	enable(gl.DEPTH_CLAMP, g.depthClamp)

	gl.ColorMask(g.colorWrite, g.colorWrite, g.colorWrite, g.colorWrite)
	enable(gl.BLEND, g.blend)
	if g.blend {
		gl.BlendFunc(g.blendSrc, g.blendDst)
	}

	enable(gl.STENCIL_TEST, g.stencil)
	if g.stencil {
		for _, f := range []struct {
			face uint32
			s    glStencil
		}{{gl.FRONT, g.front}, {gl.BACK, g.back}} {
			gl.StencilFuncSeparate(f.face, f.s.fn, f.s.ref, f.s.readMask)
			gl.StencilOpSeparate(f.face, f.s.fail, f.s.depthFail, f.s.pass)
			gl.StencilMaskSeparate(f.face, f.s.writeMask)
		}
	}
}
