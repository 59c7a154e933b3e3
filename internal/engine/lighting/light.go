// Package lighting provides point light support for scene rendering.
package lighting

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the maximum number of lights supported in shaders.
const MaxLights = 32

// Light is a point light. Light 0 is the shadow caster.
type Light struct {
	Position  [3]float32 // World position
	Ambient   [3]float32 // RGB ambient term, applied everywhere
	Diffuse   [3]float32 // RGB diffuse term, applied to lit surfaces
	Range     float32    // Distance at which the light fades out
	Intensity float32    // Diffuse multiplier

	// Cube shadow map clip planes, filled when shadow maps are recorded.
	ZNear float32
	ZFar  float32
}

// Attenuation returns the distance falloff at dist, 1 at the light and
// 0 at Range and beyond.
func (l Light) Attenuation(dist float32) float32 {
	if l.Range <= 0 {
		return 0
	}
	f := 1 - dist/l.Range
	if f <= 0 {
		return 0
	}
	return f * f
}

// DiffuseAt returns the diffuse contribution of the light at a surface point
// with unit normal n. Ambient is not included.
func (l Light) DiffuseAt(p, n mgl32.Vec3) mgl32.Vec3 {
	toLight := mgl32.Vec3(l.Position).Sub(p)
	dist := toLight.Len()
	if dist == 0 {
		return mgl32.Vec3{}
	}
	ndotl := n.Dot(toLight.Mul(1 / dist))
	if ndotl <= 0 {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3(l.Diffuse).Mul(ndotl * l.Intensity * l.Attenuation(dist))
}

// Buffer holds lights for GPU upload.
type Buffer struct {
	Lights []Light
	Count  int
}

// NewBuffer creates an empty light buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		Lights: make([]Light, 0, MaxLights),
	}
}

// Clear removes all lights from the buffer.
func (b *Buffer) Clear() {
	b.Lights = b.Lights[:0]
	b.Count = 0
}

// AddLight adds a light to the buffer.
// Returns false if buffer is full.
func (b *Buffer) AddLight(light Light) bool {
	if b.Count >= MaxLights {
		return false
	}
	b.Lights = append(b.Lights, light)
	b.Count++
	return true
}

// SetLights replaces all lights in the buffer.
// Truncates to MaxLights if necessary.
func (b *Buffer) SetLights(lights []Light) {
	b.Clear()
	count := min(len(lights), MaxLights)
	b.Lights = append(b.Lights, lights[:count]...)
	b.Count = count
}

// GetPositions returns positions as a flat float32 slice for GPU upload.
// Format: [x0, y0, z0, x1, y1, z1, ...]
func (b *Buffer) GetPositions() []float32 {
	return flatten3(b.Lights, func(l Light) [3]float32 { return l.Position })
}

// GetAmbients returns ambient colours as a flat float32 slice for GPU upload.
func (b *Buffer) GetAmbients() []float32 {
	return flatten3(b.Lights, func(l Light) [3]float32 { return l.Ambient })
}

// GetDiffuses returns diffuse colours as a flat float32 slice for GPU upload.
func (b *Buffer) GetDiffuses() []float32 {
	return flatten3(b.Lights, func(l Light) [3]float32 { return l.Diffuse })
}

// GetRanges returns ranges as a flat float32 slice for GPU upload.
func (b *Buffer) GetRanges() []float32 {
	result := make([]float32, MaxLights)
	for i, light := range b.Lights {
		result[i] = light.Range
	}
	return result
}

// GetIntensities returns intensities as a flat float32 slice for GPU upload.
func (b *Buffer) GetIntensities() []float32 {
	result := make([]float32, MaxLights)
	for i, light := range b.Lights {
		result[i] = light.Intensity
	}
	return result
}

// GetDepthRanges returns the shadow map near and far planes, two per light.
func (b *Buffer) GetDepthRanges() []float32 {
	result := make([]float32, MaxLights*2)
	for i, light := range b.Lights {
		result[i*2+0] = light.ZNear
		result[i*2+1] = light.ZFar
	}
	return result
}

func flatten3(lights []Light, field func(Light) [3]float32) []float32 {
	result := make([]float32, MaxLights*3)
	for i, light := range lights {
		v := field(light)
		result[i*3+0] = v[0]
		result[i*3+1] = v[1]
		result[i*3+2] = v[2]
	}
	return result
}
