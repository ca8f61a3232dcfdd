package navigation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/units"
)

// Gains parameterise the proportional pose controller.
type Gains struct {
	// Translation scales body-frame position error (metres) into drive.
	Translation float64 `json:"translation" yaml:"translation"`
	// Clamp bounds each output axis.
	Clamp float64 `json:"clamp" yaml:"clamp"`
	// Deadband snaps outputs smaller than this to zero.
	Deadband float64 `json:"deadband" yaml:"deadband"`
}

// DefaultGains are tuned for the omni-wheel base on a 1 m arena.
func DefaultGains() Gains {
	return Gains{Translation: 10, Clamp: 0.5, Deadband: 0.15}
}

// Validate rejects gains that could never move the robot or would let it
// exceed the driver range.
func (g Gains) Validate() error {
	switch {
	case !finite(g.Translation) || g.Translation <= 0:
		return errors.New("translation gain must be positive")
	case !finite(g.Clamp) || g.Clamp <= 0 || g.Clamp > 1:
		return errors.New("clamp must be in (0, 1]")
	case !finite(g.Deadband) || g.Deadband < 0 || g.Deadband >= g.Clamp:
		return errors.New("deadband must be in [0, clamp)")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DriveGains computes the move from current towards target with DefaultGains.
func DriveGains(current, target geometry.Pose2D) motion.MoveCommand {
	return DefaultGains().Drive(current, target)
}

// Drive computes the move from current towards target. Position error is
// taken in the robot's own frame; yaw error is the shortest signed turn.
func (g Gains) Drive(current, target geometry.Pose2D) motion.MoveCommand {
	errWorld := r2.Sub(current.Position, target.Position)
	errBody := current.Rotation.Inverse().Apply(errWorld)

	return motion.MoveCommand{
		Forward: g.shape(-units.Clamp(errBody.X*g.Translation, -g.Clamp, g.Clamp)),
		Strafe:  g.shape(-units.Clamp(errBody.Y*g.Translation, -g.Clamp, g.Clamp)),
		Yaw:     g.shape(units.Clamp(current.Rotation.AngleTo(target.Rotation), -g.Clamp, g.Clamp)),
	}
}

func (g Gains) shape(v float64) float64 {
	if math.Abs(v) < g.Deadband {
		return 0
	}
	return v
}
