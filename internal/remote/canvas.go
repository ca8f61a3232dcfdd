package remote

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/hamilton/internal/geometry"
)

// CanvasTouch is a drag gesture on the remote's map canvas, in canvas pixels.
// The drag starts at the chosen position and points away from the heading.
type CanvasTouch struct {
	DownX  float64 `json:"down_x"`
	DownY  float64 `json:"down_y"`
	UpX    float64 `json:"up_x"`
	UpY    float64 `json:"up_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Map is the rectangular arena the canvas shows, in world coordinates.
// Canvas x runs along world y, canvas y along world x.
type Map struct {
	FrontLeft r2.Vec `json:"front_left" yaml:"front_left"`
	RearRight r2.Vec `json:"rear_right" yaml:"rear_right"`
}

// NewMap builds an arena of the given size whose rear-right corner sits at
// offset.
func NewMap(size, offset r2.Vec) Map {
	return Map{FrontLeft: r2.Add(offset, size), RearRight: offset}
}

// DefaultMap is the 1 m arena with the tracker origin 15 cm behind its edge.
func DefaultMap() Map {
	return NewMap(r2.Vec{X: 1, Y: 1}, r2.Vec{X: 0, Y: -0.15})
}

// Size returns the arena extent along world x and y.
func (m Map) Size() (x, y float64) {
	return math.Abs(m.FrontLeft.X - m.RearRight.X), math.Abs(m.FrontLeft.Y - m.RearRight.Y)
}

// Validate rejects degenerate arenas.
func (m Map) Validate() error {
	if x, y := m.Size(); x == 0 || y == 0 || math.IsNaN(x+y) || math.IsInf(x+y, 0) {
		return errors.New("map corners must span a non-empty area")
	}
	return nil
}

// CanvasTouchToPose maps a touch to a target pose.
func (m Map) CanvasTouchToPose(t CanvasTouch) (geometry.Pose2D, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return geometry.Pose2D{}, errors.New("canvas touch needs a positive width and height")
	}
	y := linearMap(t.DownX, 0, t.Width, m.FrontLeft.Y, m.RearRight.Y)
	x := linearMap(t.DownY, 0, t.Height, m.FrontLeft.X, m.RearRight.X)
	heading := math.Atan2(t.DownX-t.UpX, t.DownY-t.UpY)
	return geometry.NewPose(x, y, heading), nil
}

func linearMap(v, inMin, inMax, outMin, outMax float64) float64 {
	return (v-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
