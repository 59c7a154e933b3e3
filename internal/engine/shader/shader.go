// Package shader compiles and links GL programs, including programs with a
// geometry stage.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Stage is one shader stage of a program.
type Stage struct {
	Type   uint32
	Source string
}

// Vertex returns a vertex stage.
func Vertex(src string) Stage { return Stage{Type: gl.VERTEX_SHADER, Source: src} }

// Geometry returns a geometry stage.
func Geometry(src string) Stage { return Stage{Type: gl.GEOMETRY_SHADER, Source: src} }

// Fragment returns a fragment stage.
func Fragment(src string) Stage { return Stage{Type: gl.FRAGMENT_SHADER, Source: src} }

// StageName returns a readable name for a shader type.
func StageName(t uint32) string {
	switch t {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.GEOMETRY_SHADER:
		return "geometry"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	}
	return fmt.Sprintf("stage(0x%x)", t)
}

// Link compiles every stage and links them. Returns the program ID or an
// error naming the stage that failed.
func Link(stages ...Stage) (uint32, error) {
	shaders := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()
	for _, st := range stages {
		s, err := compileShader(st.Source, st.Type)
		if err != nil {
			return 0, err
		}
		shaders = append(shaders, s)
	}

	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", gl.GoStr(&log[0]))
	}
	for _, s := range shaders {
		gl.DetachShader(program, s)
	}
	return program, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", StageName(shaderType), gl.GoStr(&log[0]))
	}

	return shader, nil
}

// Uniforms caches uniform locations of one program.
type Uniforms struct {
	program uint32
	locs    map[string]int32
}

// NewUniforms creates an empty cache for program.
func NewUniforms(program uint32) *Uniforms {
	return &Uniforms{program: program, locs: make(map[string]int32)}
}

// Program returns the program the locations belong to.
func (u *Uniforms) Program() uint32 { return u.program }

// Get returns the location of name, or -1 if the uniform is not found or
// inactive. GL ignores writes to -1.
func (u *Uniforms) Get(name string) int32 {
	if loc, ok := u.locs[name]; ok {
		return loc
	}
	loc := GetUniform(u.program, name)
	u.locs[name] = loc
	return loc
}

// GetUniform returns the uniform location for the given name.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
