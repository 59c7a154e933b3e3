package gpu

import (
	"errors"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/stencil-shadows/internal/engine/framebuffer"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
)

func TestParseGLVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		err  bool
	}{
		{in: "4.1 Metal - 83.1", want: Version{4, 1}},
		{in: "4.6.0 NVIDIA 550.54.14", want: Version{4, 6}},
		{in: "3.3 (Core Profile) Mesa 23.2.1", want: Version{3, 3}},
		{in: "OpenGL ES 3.2 Mesa", want: Version{3, 2}},
		{in: "", err: true},
		{in: "four.one", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseGLVersion(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	assert.True(t, Version{4, 1}.AtLeast(MinVersion))
	assert.True(t, Version{3, 2}.AtLeast(MinVersion))
	assert.False(t, Version{3, 1}.AtLeast(MinVersion))
	assert.False(t, Version{2, 9}.AtLeast(MinVersion))
}

func TestChooseDepthStencil(t *testing.T) {
	formats := framebuffer.DepthStencilFormats

	t.Run("first accepted", func(t *testing.T) {
		f, err := chooseDepthStencil(formats, func(uint32) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, uint32(gl.DEPTH32F_STENCIL8), f)
	})

	t.Run("falls back", func(t *testing.T) {
		f, err := chooseDepthStencil(formats, func(f uint32) error {
			if f == gl.DEPTH32F_STENCIL8 {
				return framebuffer.ErrIncomplete
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(gl.DEPTH24_STENCIL8), f)
	})

	t.Run("none", func(t *testing.T) {
		_, err := chooseDepthStencil(formats, func(uint32) error { return framebuffer.ErrIncomplete })
		var capErr *DeviceCapabilityError
		require.ErrorAs(t, err, &capErr)
		assert.Contains(t, capErr.Error(), "DEPTH24_STENCIL8")
	})

	t.Run("other failures abort", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := chooseDepthStencil(formats, func(uint32) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestDeviceCapabilityErrorUnwrap(t *testing.T) {
	cause := errors.New("no context")
	err := error(&DeviceCapabilityError{Capability: "GL entry points", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "gpu: missing capability GL entry points: no context", err.Error())
}

func TestTranslateVolumeStates(t *testing.T) {
	set := pipeline.NewSet()

	dp := translate(set.Volume(pipeline.VolumeDepthPass))
	assert.Equal(t, uint32(gl.TRIANGLES), dp.mode)
	assert.False(t, dp.cull)
	assert.False(t, dp.colorWrite)
	assert.False(t, dp.depthWrite)
	assert.False(t, dp.depthClamp)
	assert.True(t, dp.stencil)
	assert.Equal(t, uint32(gl.INCR_WRAP), dp.front.pass)
	assert.Equal(t, uint32(gl.DECR_WRAP), dp.back.pass)
	assert.Equal(t, uint32(gl.KEEP), dp.front.depthFail)
	assert.Equal(t, uint32(gl.ALWAYS), dp.front.fn)

	df := translate(set.Volume(pipeline.VolumeDepthFailSilhouette))
	assert.Equal(t, uint32(gl.TRIANGLES_ADJACENCY), df.mode)
	assert.True(t, df.depthClamp)
	assert.Equal(t, uint32(gl.INCR_WRAP), df.front.depthFail)
	assert.Equal(t, uint32(gl.DECR_WRAP), df.back.depthFail)
	assert.Equal(t, uint32(gl.KEEP), df.front.pass)
	assert.Equal(t, uint32(0xff), df.front.writeMask)
}

func TestTranslateSceneStates(t *testing.T) {
	set := pipeline.NewSet()

	lit := translate(set.Scene(pipeline.DrawDiffuseStencilTested, pipeline.CullBack))
	assert.True(t, lit.cull)
	assert.Equal(t, uint32(gl.BACK), lit.cullFace)
	assert.Equal(t, uint32(gl.EQUAL), lit.depthFunc)
	assert.False(t, lit.depthWrite)
	assert.True(t, lit.blend)
	assert.Equal(t, [2]uint32{gl.ONE, gl.ONE}, [2]uint32{lit.blendSrc, lit.blendDst})
	assert.Equal(t, uint32(gl.EQUAL), lit.front.fn)
	assert.Equal(t, int32(0), lit.front.ref)

	sm := translate(set.Scene(pipeline.DrawShadowMap, pipeline.Depth|pipeline.CullFront))
	assert.True(t, sm.depthBias)
	assert.False(t, sm.colorWrite)
	assert.Equal(t, uint32(gl.FRONT), sm.cullFace)

	blend := translate(set.Scene(pipeline.DrawFull, pipeline.Depth|pipeline.Blend))
	assert.Equal(t, [2]uint32{gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA}, [2]uint32{blend.blendSrc, blend.blendDst})
}

func TestCompareAndStencilMapping(t *testing.T) {
	assert.Equal(t, uint32(gl.NEVER), compareFunc(pipeline.CompareNever))
	assert.Equal(t, uint32(gl.LEQUAL), compareFunc(pipeline.CompareLessEqual))
	assert.Equal(t, uint32(gl.GEQUAL), compareFunc(pipeline.CompareGreaterEqual))
	assert.Equal(t, uint32(gl.INCR), stencilOp(pipeline.StencilIncrClamp))
	assert.Equal(t, uint32(gl.INVERT), stencilOp(pipeline.StencilInvert))
	assert.Equal(t, uint32(gl.KEEP), stencilOp(pipeline.StencilKeep))
}

func TestProgramStages(t *testing.T) {
	for _, st := range pipeline.NewSet().All() {
		stages := programStages(st.Program)
		require.NotEmpty(t, stages, st.Name)
		assert.Equal(t, uint32(gl.VERTEX_SHADER), stages[0].Type, st.Name)
		assert.Equal(t, uint32(gl.FRAGMENT_SHADER), stages[len(stages)-1].Type, st.Name)
		geometry := st.Program != pipeline.ProgramScene && st.Program != pipeline.ProgramShadowMap
		assert.Equal(t, geometry, len(stages) == 3, st.Name)
	}
}

func TestNormalMatrix(t *testing.T) {
	m := mgl32.Scale3D(2, 1, 1)
	n := normalMatrix(m)
	assert.InDelta(t, 0.5, n.At(0, 0), 1e-6)
	assert.InDelta(t, 1, n.At(1, 1), 1e-6)

	r := mgl32.HomogRotate3DY(0.7).Mul4(mgl32.Translate3D(1, 2, 3))
	want, got := r.Mat3(), normalMatrix(r)
	assert.InDeltaSlice(t, want[:], got[:], 1e-5)

	flat := mgl32.Scale3D(1, 0, 1)
	assert.Equal(t, flat.Mat3(), normalMatrix(flat))
}

func TestFlipRows(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, len(src))
	flipRows(dst, src, 2, 3)
	assert.Equal(t, []byte{5, 6, 3, 4, 1, 2}, dst)
}

func TestShadowUnits(t *testing.T) {
	units := shadowUnits()
	assert.Equal(t, int32(shadowUnit), units[0])
	assert.Equal(t, int32(shadowUnit+len(units)-1), units[len(units)-1])
}
