// Package camera provides the free-flying viewer camera.
package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Movement speeds in units per second.
const (
	WalkSpeed = 5
	RunSpeed  = 20
)

// DefaultRotateSpeed is radians of turn per pixel of mouse motion.
const DefaultRotateSpeed = 0.01

// maxPitch keeps the view away from the poles, where LookAt degenerates.
const maxPitch = gomath.Pi/2 - gomath.Pi/16

// Controls is the input state of one frame.
type Controls struct {
	Forward, Back, Left, Right bool
	Fast                       bool
	// Mouse motion in pixels.
	DX, DY float32
}

// FPSCamera is a yaw/pitch camera moved with WASD.
type FPSCamera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3

	Yaw   float32
	Pitch float32

	FOV         float32 // radians
	ZNear       float32
	ZFar        float32
	RotateSpeed float32
}

// New creates a camera at eye looking towards target. fov is in degrees.
func New(eye, target mgl32.Vec3, fov, zNear, zFar float32) *FPSCamera {
	c := &FPSCamera{
		FOV:         mgl32.DegToRad(fov),
		ZNear:       zNear,
		ZFar:        zFar,
		RotateSpeed: DefaultRotateSpeed,
	}
	c.LookAt(eye, target)
	return c
}

// LookAt places the camera and derives yaw and pitch from the view direction.
func (c *FPSCamera) LookAt(eye, target mgl32.Vec3) {
	c.Eye = eye
	dir := target.Sub(eye)
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, 0, 1}
	}
	dir = dir.Normalize()
	c.Yaw = float32(gomath.Atan2(float64(dir[0]), float64(dir[2])))
	c.Pitch = clampPitch(float32(gomath.Asin(float64(-dir[1]))))
	c.Target = eye.Add(c.Direction())
}

// FromMatrix places the camera at the node transform m, looking down the
// node's -Z axis.
func (c *FPSCamera) FromMatrix(m mgl32.Mat4) {
	eye := m.Col(3).Vec3()
	target := m.Mul4x1(mgl32.Vec4{0, 0, -1, 1}).Vec3()
	c.LookAt(eye, target)
}

// Direction returns the unit view direction for the current yaw and pitch.
func (c *FPSCamera) Direction() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3()
}

// left returns the unit vector to the camera's left.
func (c *FPSCamera) left() mgl32.Vec3 {
	return c.rotation().Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3()
}

func (c *FPSCamera) rotation() mgl32.Mat4 {
	return mgl32.HomogRotate3DY(c.Yaw).Mul4(mgl32.HomogRotate3DX(c.Pitch))
}

// Update turns the camera by the mouse motion and moves it by the held keys.
func (c *FPSCamera) Update(dt float32, in Controls) {
	c.Yaw -= in.DX * c.RotateSpeed
	c.Pitch = clampPitch(c.Pitch + in.DY*c.RotateSpeed)

	speed := float32(WalkSpeed)
	if in.Fast {
		speed = RunSpeed
	}
	step := speed * dt
	dir, left := c.Direction(), c.left()
	if in.Forward {
		c.Eye = c.Eye.Add(dir.Mul(step))
	}
	if in.Back {
		c.Eye = c.Eye.Sub(dir.Mul(step))
	}
	if in.Left {
		c.Eye = c.Eye.Add(left.Mul(step))
	}
	if in.Right {
		c.Eye = c.Eye.Sub(left.Mul(step))
	}
	c.Target = c.Eye.Add(dir)
}

// View returns the view matrix.
func (c *FPSCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective projection for the given aspect ratio.
func (c *FPSCamera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, aspect, c.ZNear, c.ZFar)
}

func clampPitch(p float32) float32 {
	return mgl32.Clamp(p, -maxPitch, maxPitch)
}
