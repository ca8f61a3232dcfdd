package lidar

import (
	"math"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/units"
)

const (
	// SafeDistance is the closest an obstacle may be inside the cone, in metres.
	SafeDistance = 0.3
	// ScanArea is the half-angle of the cone checked around the direction of
	// travel.
	ScanArea = math.Pi / 4
)

// ScanSource supplies the latest fresh scan.
type ScanSource interface {
	LastScan() (Scan, bool)
}

// MotorControl switches the scanner motor.
type MotorControl interface {
	StartMotor()
	StopMotor()
}

// CollisionGuard vetoes moves towards nearby obstacles.
type CollisionGuard struct {
	scans        ScanSource
	safeDistance float64
	cone         float64
}

// NewCollisionGuard checks moves against scans from src.
func NewCollisionGuard(src ScanSource) *CollisionGuard {
	return &CollisionGuard{scans: src, safeDistance: SafeDistance, cone: ScanArea}
}

// WithLimits overrides the safe distance and cone half-angle.
func (g *CollisionGuard) WithLimits(safeDistance, cone float64) *CollisionGuard {
	g.safeDistance = safeDistance
	g.cone = cone
	return g
}

// CheckMoveSafe reports whether cmd may be executed. Without a fresh scan
// every move is considered safe.
func (g *CollisionGuard) CheckMoveSafe(cmd motion.MoveCommand) bool {
	scan, ok := g.scans.LastScan()
	if !ok {
		return true
	}
	return CollisionCheck(scan.Points, cmd, g.safeDistance, g.cone)
}

// StartLidar asks the scanner to spin, if it can be controlled.
func (g *CollisionGuard) StartLidar() {
	if mc, ok := g.scans.(MotorControl); ok {
		mc.StartMotor()
	}
}

// StopLidar asks the scanner to stop spinning, if it can be controlled.
func (g *CollisionGuard) StopLidar() {
	if mc, ok := g.scans.(MotorControl); ok {
		mc.StopMotor()
	}
}

// MoveDirection is the heading of cmd's translation in the scanner frame,
// in [0, 2π). The scanner is mounted facing backwards and mirrored relative
// to the body.
func MoveDirection(cmd motion.MoveCommand) float64 {
	return units.WrapPositive(math.Atan2(cmd.Strafe, -cmd.Forward) + math.Pi)
}

// CollisionCheck reports whether every valid point within cone of the move
// direction is farther than safeDistance. Pure rotations are always safe.
func CollisionCheck(points []ScanPoint, cmd motion.MoveCommand, safeDistance, cone float64) bool {
	if !cmd.HasTranslation() {
		return true
	}
	dir := MoveDirection(cmd)
	for _, p := range points {
		if !p.IsValid() {
			continue
		}
		if math.Abs(units.WrapRadians(p.Angle-dir)) >= cone {
			continue
		}
		if p.Distance <= safeDistance {
			return false
		}
	}
	return true
}
