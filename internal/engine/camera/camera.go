// Package camera provides camera implementations for 3D rendering.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Defaults for the particle viewer.
const (
	DefaultFOV      = 45.0
	DefaultDistance = 5.0
	DefaultNear     = 0.1
	DefaultFar      = 1000.0
)

// Fixed is a perspective camera on the +Z axis looking at the origin.
// It has no user orbit; only the viewport changes after construction.
type Fixed struct {
	FOV      float32 // vertical field of view, degrees
	Distance float32 // distance from the origin
	Near     float32
	Far      float32

	width, height int
}

// NewFixed creates a camera with the given field of view and distance.
// Non-positive values fall back to the defaults.
func NewFixed(fov, distance float32) *Fixed {
	if fov <= 0 || fov >= 180 {
		fov = DefaultFOV
	}
	if distance <= 0 {
		distance = DefaultDistance
	}
	return &Fixed{
		FOV:      fov,
		Distance: distance,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// SetViewport records the drawable size. Zero or negative sizes are
// ignored and reported as false so callers can defer setup.
func (c *Fixed) SetViewport(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	c.width, c.height = width, height
	return true
}

// Viewport returns the last accepted drawable size.
func (c *Fixed) Viewport() (width, height int) {
	return c.width, c.height
}

// Ready reports whether a non-zero viewport has been set.
func (c *Fixed) Ready() bool {
	return c.width > 0 && c.height > 0
}

// Aspect returns width/height, or 1 before a viewport is set.
func (c *Fixed) Aspect() float32 {
	if !c.Ready() {
		return 1
	}
	return float32(c.width) / float32(c.height)
}

// Position returns the camera position in world space.
func (c *Fixed) Position() mgl32.Vec3 {
	return mgl32.Vec3{0, 0, c.Distance}
}

// View returns the view matrix.
func (c *Fixed) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective projection for the current aspect.
func (c *Fixed) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect(), c.Near, c.Far)
}
