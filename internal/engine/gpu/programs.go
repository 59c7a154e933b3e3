package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stencil-shadows/internal/engine/pipeline"
	"github.com/Faultbox/stencil-shadows/internal/engine/shader"
	"github.com/Faultbox/stencil-shadows/internal/engine/shaders"
)

// programs holds one linked program per pipeline.Program.
type programs struct {
	byKind map[pipeline.Program]*shader.Uniforms
}

func programStages(p pipeline.Program) []shader.Stage {
	switch p {
	case pipeline.ProgramScene:
		return []shader.Stage{
			shader.Vertex(shaders.SceneVertex()),
			shader.Fragment(shaders.SceneFragment()),
		}
	case pipeline.ProgramShadowMap:
		return []shader.Stage{
			shader.Vertex(shaders.DepthVertex()),
			shader.Fragment(shaders.DepthFragment()),
		}
	case pipeline.ProgramVolume:
		return []shader.Stage{
			shader.Vertex(shaders.ExtrudeVertex()),
			shader.Geometry(shaders.VolumeGeometry()),
			shader.Fragment(shaders.EmptyFragment()),
		}
	case pipeline.ProgramSilhouette:
		return []shader.Stage{
			shader.Vertex(shaders.ExtrudeVertex()),
			shader.Geometry(shaders.SilhouetteGeometry()),
			shader.Fragment(shaders.EmptyFragment()),
		}
	case pipeline.ProgramSilhouetteDebug:
		return []shader.Stage{
			shader.Vertex(shaders.ExtrudeVertex()),
			shader.Geometry(shaders.SilhouetteLinesGeometry()),
			shader.Fragment(shaders.OverlayFragment()),
		}
	}
	return nil
}

// compilePrograms links the program of every state in set.
func compilePrograms(set *pipeline.Set) (*programs, error) {
	p := &programs{byKind: make(map[pipeline.Program]*shader.Uniforms)}
	for _, st := range set.All() {
		if _, ok := p.byKind[st.Program]; ok {
			continue
		}
		id, err := shader.Link(programStages(st.Program)...)
		if err != nil {
			p.destroy()
			return nil, fmt.Errorf("program for %s: %w", st.Name, err)
		}
		p.byKind[st.Program] = shader.NewUniforms(id)
	}
	return p, nil
}

func (p *programs) get(k pipeline.Program) *shader.Uniforms { return p.byKind[k] }

func (p *programs) destroy() {
	for k, u := range p.byKind {
		gl.DeleteProgram(u.Program())
		delete(p.byKind, k)
	}
}
