// Package softraster is a headless rasterizer implementing the same
// command buffer as the GL backend. It keeps depth, stencil and the
// visible surface of every pixel so shadow tests can inspect them.
package softraster

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stencil-shadows/internal/engine/volume"
)

// Target is a set of per-pixel attachments. Depth-only targets, such as
// cube map faces, leave Color, Surface and Position nil.
type Target struct {
	Width, Height int

	Color    []mgl32.Vec3
	Depth    []float32
	Stencil  []uint8
	Surface  []int32 // node index + 1 of the visible surface, 0 for none
	Position []mgl32.Vec3
}

// NewTarget allocates a colour target with depth, stencil and surface data.
func NewTarget(w, h int) *Target {
	n := w * h
	return &Target{
		Width:    w,
		Height:   h,
		Color:    make([]mgl32.Vec3, n),
		Depth:    make([]float32, n),
		Stencil:  make([]uint8, n),
		Surface:  make([]int32, n),
		Position: make([]mgl32.Vec3, n),
	}
}

func newDepthTarget(size int) *Target {
	return &Target{Width: size, Height: size, Depth: make([]float32, size*size)}
}

// Clear resets every attachment.
func (t *Target) Clear(c volume.ClearValues) {
	bg := mgl32.Vec3{c.Color[0], c.Color[1], c.Color[2]}
	for i := range t.Depth {
		t.Depth[i] = c.Depth
	}
	for i := range t.Stencil {
		t.Stencil[i] = c.Stencil
	}
	for i := range t.Color {
		t.Color[i] = bg
	}
	for i := range t.Surface {
		t.Surface[i] = 0
		t.Position[i] = mgl32.Vec3{}
	}
}

// Shadowed reports whether pixel (x, y) has a non-zero stencil count.
func (t *Target) Shadowed(x, y int) bool {
	return t.Stencil != nil && t.Stencil[y*t.Width+x] != 0
}

// Image converts the colour attachment to 8-bit RGBA, clamping to [0, 1].
func (t *Target) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			c := t.Color[y*t.Width+x]
			img.SetNRGBA(x, y, color.NRGBA{R: unorm(c[0]), G: unorm(c[1]), B: unorm(c[2]), A: 255})
		}
	}
	return img
}

// StencilMask renders shadowed pixels white and lit pixels black.
func (t *Target) StencilMask() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, t.Width, t.Height))
	for i, s := range t.Stencil {
		if s != 0 {
			img.Pix[i] = 255
		}
	}
	return img
}

func unorm(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
