package shadow

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// CubeMap is the depth cube of one point light.
// Uses a depth-only cube texture for shadow comparison sampling.
type CubeMap struct {
	FBO          uint32   // Framebuffer object
	DepthTexture uint32   // Depth cube texture for shadow sampling
	Resolution   int32    // Face resolution (width = height)
	prevViewport [4]int32 // Saved viewport for restore
}

// NewCubeMap creates a depth cube map with the given face resolution.
func NewCubeMap(resolution int32, pcf bool) (*CubeMap, error) {
	cm := &CubeMap{
		Resolution: resolution,
	}

	gl.GenFramebuffers(1, &cm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, cm.FBO)

	gl.GenTextures(1, &cm.DepthTexture)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, cm.DepthTexture)

	// Allocate storage for all six faces
	for f := uint32(0); f < Faces; f++ {
		gl.TexImage2D(
			gl.TEXTURE_CUBE_MAP_POSITIVE_X+f,
			0,
			gl.DEPTH_COMPONENT24,
			resolution,
			resolution,
			0,
			gl.DEPTH_COMPONENT,
			gl.FLOAT,
			nil,
		)
	}

	cm.SetFiltering(pcf)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)

	// Enable shadow comparison mode for samplerCubeShadow
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.FramebufferTexture2D(
		gl.FRAMEBUFFER,
		gl.DEPTH_ATTACHMENT,
		gl.TEXTURE_CUBE_MAP_POSITIVE_X,
		cm.DepthTexture,
		0,
	)

	// No color buffer for shadow pass
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		cm.Destroy()
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil, fmt.Errorf("shadow cube framebuffer incomplete: 0x%x", status)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)

	return cm, nil
}

// SetFiltering selects linear (PCF) or nearest comparison sampling.
// The cube texture must be bound.
func (cm *CubeMap) SetFiltering(pcf bool) {
	filter := int32(gl.NEAREST)
	if pcf {
		filter = gl.LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, filter)
}

// BindFace binds one face for rendering the depth pass.
// Sets the viewport to match the face resolution. Depth bias is applied by
// the depth program, see Settings.Offset.
func (cm *CubeMap) BindFace(face Face) {
	gl.GetIntegerv(gl.VIEWPORT, &cm.prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, cm.FBO)
	gl.FramebufferTexture2D(
		gl.FRAMEBUFFER,
		gl.DEPTH_ATTACHMENT,
		gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face),
		cm.DepthTexture,
		0,
	)
	gl.Viewport(0, 0, cm.Resolution, cm.Resolution)
}

// Unbind unbinds the cube framebuffer and restores the viewport.
func (cm *CubeMap) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(cm.prevViewport[0], cm.prevViewport[1], cm.prevViewport[2], cm.prevViewport[3])
}

// BindTexture binds the depth cube to the specified texture unit.
// Use this when sampling the shadow map in the main render pass.
func (cm *CubeMap) BindTexture(textureUnit uint32) {
	gl.ActiveTexture(textureUnit)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, cm.DepthTexture)
}

// Destroy releases all GPU resources associated with this cube map.
func (cm *CubeMap) Destroy() {
	if cm.FBO != 0 {
		gl.DeleteFramebuffers(1, &cm.FBO)
		cm.FBO = 0
	}
	if cm.DepthTexture != 0 {
		gl.DeleteTextures(1, &cm.DepthTexture)
		cm.DepthTexture = 0
	}
}

// IsValid returns true if the cube map was created successfully.
func (cm *CubeMap) IsValid() bool {
	return cm != nil && cm.FBO != 0 && cm.DepthTexture != 0
}
