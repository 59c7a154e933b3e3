package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/lighting"
	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/shader"
	"github.com/Faultbox/stencil-shadows/internal/engine/shadow"
	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// shadowUnit is the texture unit of cube map 0; map i uses shadowUnit+i.
const shadowUnit = 1

// CommandBuffer issues commands to the GL context as they are recorded.
type CommandBuffer struct {
	dev   *Device
	frame *volume.Frame
	vp    mgl32.Mat4
	// gen counts SetFrame calls; uploaded maps a program to the
	// generation its frame uniforms were last set for.
	gen      int
	uploaded map[uint32]int
	maps     int

	state *pipeline.State
	gs    glState
	prog  *shader.Uniforms

	cube *shadow.CubeMap
	bias shadow.Settings
	err  error
}

var _ shadow.CubeTarget = (*CommandBuffer)(nil)

// SetFrame sets the camera and lights of following draws and binds the
// cube maps of a shadow mapped frame.
func (c *CommandBuffer) SetFrame(f *volume.Frame) {
	c.frame = f
	c.vp = f.Camera.ViewProjection()
	c.gen++
	c.dev.lights.SetLights(f.Lights)

	c.maps = 0
	if f.ShadowMapped {
		for i := range min(len(f.Lights), shadow.MaxCubeMaps) {
			cm := c.dev.cubes[i]
			if !cm.IsValid() {
				break
			}
			cm.BindTexture(gl.TEXTURE0 + shadowUnit + uint32(i))
			c.maps++
		}
	}
}

// Clear clears every attachment of the current target. Write masks are
// opened first, so the bound pipeline is applied again on the next bind.
func (c *CommandBuffer) Clear(v volume.ClearValues) {
	gl.ColorMask(true, true, true, true)
	gl.DepthMask(true)
	gl.StencilMask(0xff)
	gl.ClearColor(v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	gl.ClearDepth(float64(v.Depth))
	gl.ClearStencil(int32(v.Stencil))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
	c.state = nil
}

// BindPipeline applies s unless it is already bound.
func (c *CommandBuffer) BindPipeline(s *pipeline.State) {
	if s == c.state || s == nil {
		return
	}
	gs, ok := c.dev.states[s]
	if !ok {
		gs = translate(s)
		c.dev.states[s] = gs
	}
	gs.apply()
	c.state, c.gs = s, gs

	prog := c.dev.progs.get(s.Program)
	if prog == nil {
		c.fail(fmt.Errorf("gpu: no program for pipeline %s", s.Name))
		return
	}
	if prog != c.prog {
		gl.UseProgram(prog.Program())
		c.prog = prog
	}
}

// BeginShadowFace renders following draws into one face of light's cube map.
func (c *CommandBuffer) BeginShadowFace(light int, face shadow.Face, s shadow.Settings) error {
	if c.cube != nil {
		return errors.New("gpu: shadow face already open")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	cm, err := c.dev.cube(light, s)
	if err != nil {
		return err
	}
	if face == shadow.PositiveX {
		cm.BindTexture(gl.TEXTURE0)
		cm.SetFiltering(s.PCF)
	}
	cm.BindFace(face)
	c.cube = cm
	c.bias = s
	return nil
}

// EndShadowFace returns draws to the offscreen framebuffer.
func (c *CommandBuffer) EndShadowFace() {
	if c.cube == nil {
		return
	}
	c.cube.Unbind()
	c.cube = nil
	c.dev.fb.Bind()
}

// Draw issues one primitive group with the bound pipeline.
func (c *CommandBuffer) Draw(d volume.Draw) {
	if c.err != nil {
		return
	}
	m, err := c.check(d)
	if err != nil {
		c.fail(err)
		return
	}

	light, hasLight := c.frame.ShadowLight()
	if c.state.Program != pipeline.ProgramScene && c.state.Program != pipeline.ProgramShadowMap && !hasLight {
		return
	}

	u := c.prog
	if c.uploaded[u.Program()] != c.gen {
		c.frameUniforms(u, light)
		c.uploaded[u.Program()] = c.gen
	}

	gl.UniformMatrix4fv(u.Get("uModel"), 1, false, &d.Transform[0])
	nm := normalMatrix(d.Transform)
	gl.UniformMatrix3fv(u.Get("uNormalMatrix"), 1, false, &nm[0])

	switch c.state.Program {
	case pipeline.ProgramScene:
		albedo := c.dev.albedo(d.Material)
		gl.Uniform1i(u.Get("uOutput"), int32(c.state.Output))
		gl.Uniform4fv(u.Get("uAlbedo"), 1, &albedo[0])
		gl.Uniform1i(u.Get("uAlphaTest"), boolInt(c.state.AlphaTest))
		gl.Uniform1f(u.Get("uAlphaCutoff"), c.dev.AlphaCutoff)
	case pipeline.ProgramShadowMap:
		var bias shadow.Settings
		if c.gs.depthBias {
			bias = c.bias
		}
		gl.Uniform1f(u.Get("uBiasConstant"), bias.ConstantOffset())
		gl.Uniform1f(u.Get("uBiasSlope"), bias.BiasSlope)
		gl.Uniform1f(u.Get("uBiasClamp"), bias.BiasClamp)
	case pipeline.ProgramVolume:
		gl.Uniform1i(u.Get("uCaps"), int32(c.state.Caps))
	}

	m.draw(d.Group, d.Geometry, c.gs.mode)
}

func (c *CommandBuffer) check(d volume.Draw) (*Mesh, error) {
	switch {
	case c.state == nil:
		return nil, errors.New("gpu: draw without a bound pipeline")
	case c.frame == nil:
		return nil, errors.New("gpu: draw before SetFrame")
	}
	m, ok := d.Mesh.(*Mesh)
	if !ok {
		return nil, fmt.Errorf("gpu: foreign mesh %T", d.Mesh)
	}
	adjacency := c.state.Topology == pipeline.TopologyTrianglesAdjacency
	if adjacency != (d.Geometry == volume.Edges) {
		return nil, fmt.Errorf("gpu: %s geometry drawn with pipeline %s", d.Geometry, c.state.Name)
	}
	return m, nil
}

func (c *CommandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// frameUniforms sets the per-frame uniforms of u.
func (c *CommandBuffer) frameUniforms(u *shader.Uniforms, light lighting.Light) {
	gl.UniformMatrix4fv(u.Get("uViewProj"), 1, false, &c.vp[0])

	switch c.state.Program {
	case pipeline.ProgramScene:
		b := c.dev.lights
		positions := b.GetPositions()
		ambients := b.GetAmbients()
		diffuses := b.GetDiffuses()
		ranges := b.GetRanges()
		intensities := b.GetIntensities()
		depthRanges := b.GetDepthRanges()
		gl.Uniform1i(u.Get("uLightCount"), int32(b.Count))
		gl.Uniform3fv(u.Get("uLightPositions"), lighting.MaxLights, &positions[0])
		gl.Uniform3fv(u.Get("uLightAmbients"), lighting.MaxLights, &ambients[0])
		gl.Uniform3fv(u.Get("uLightDiffuses"), lighting.MaxLights, &diffuses[0])
		gl.Uniform1fv(u.Get("uLightRanges"), lighting.MaxLights, &ranges[0])
		gl.Uniform1fv(u.Get("uLightIntensities"), lighting.MaxLights, &intensities[0])
		gl.Uniform2fv(u.Get("uLightDepthRanges"), lighting.MaxLights, &depthRanges[0])

		units := shadowUnits()
		gl.Uniform1i(u.Get("uShadowMapCount"), int32(c.maps))
		gl.Uniform1iv(u.Get("uShadowMaps"), shadow.MaxCubeMaps, &units[0])
	case pipeline.ProgramVolume, pipeline.ProgramSilhouette, pipeline.ProgramSilhouetteDebug:
		gl.Uniform3fv(u.Get("uLightPos"), 1, &light.Position[0])
		if c.state.Program == pipeline.ProgramSilhouetteDebug {
			gl.Uniform3fv(u.Get("uColor"), 1, &c.dev.Overlay[0])
		}
	}
}

// shadowUnits returns the texture unit of every cube map sampler.
func shadowUnits() [shadow.MaxCubeMaps]int32 {
	var units [shadow.MaxCubeMaps]int32
	for i := range units {
		units[i] = shadowUnit + int32(i)
	}
	return units
}

// normalMatrix returns the inverse transpose of the upper 3x3 of m, or the
// upper 3x3 itself when it is singular.
func normalMatrix(m mgl32.Mat4) mgl32.Mat3 {
	m3 := m.Mat3()
	if m3.Det() == 0 {
		return m3
	}
	return m3.Inv().Transpose()
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
