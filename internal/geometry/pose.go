// Package geometry holds the planar types shared by localisation and
// navigation: vectors come from gonum's spatial/r2, and a Pose2D pairs a
// position with a heading.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/hamilton/internal/units"
)

// Rotation is a planar rotation. The angle is kept in (-π, π].
type Rotation struct {
	angle float64
}

// NewRotation returns the rotation by angle radians.
func NewRotation(angle float64) Rotation {
	return Rotation{angle: units.WrapRadians(angle)}
}

// Angle returns the rotation angle in (-π, π].
func (r Rotation) Angle() float64 {
	return r.angle
}

// Inverse returns the opposite rotation.
func (r Rotation) Inverse() Rotation {
	return NewRotation(-r.angle)
}

// Apply rotates v about the origin.
func (r Rotation) Apply(v r2.Vec) r2.Vec {
	return r2.Rotate(v, r.angle, r2.Vec{})
}

// AngleTo returns the signed shortest rotation that takes r onto other.
func (r Rotation) AngleTo(other Rotation) float64 {
	return AngleFrom(r, other)
}

// AngleFrom returns the signed shortest angular difference from a to b,
// wrapped to (-π, π]. AngleFrom(-170°, 170°) is -20°.
func AngleFrom(a, b Rotation) float64 {
	return units.WrapRadians(b.angle - a.angle)
}

// Pose2D is an immutable planar pose.
type Pose2D struct {
	Position r2.Vec
	Rotation Rotation
}

// NewPose builds a pose from coordinates and a heading in radians.
func NewPose(x, y, yaw float64) Pose2D {
	return Pose2D{Position: r2.Vec{X: x, Y: y}, Rotation: NewRotation(yaw)}
}

// Yaw is shorthand for p.Rotation.Angle().
func (p Pose2D) Yaw() float64 {
	return p.Rotation.Angle()
}

// String formats the pose as "[x, y] -> yaw°".
func (p Pose2D) String() string {
	return fmt.Sprintf("[%.4f, %.4f] -> %.2f°", p.Position.X, p.Position.Y, units.RadToDeg(p.Yaw()))
}
