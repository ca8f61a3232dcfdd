// Package marker decodes frames from the overhead IR tracker and recovers the
// robot pose from the marker constellation on its back: three LEDs in a
// tight triangle and a fourth further out marking the heading.
package marker

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/hamilton/internal/geometry"
)

// Point is a blob centroid in sensor pixels, serialised as [x, y].
type Point [2]float64

// Vec converts p to a gonum vector.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p[0], Y: p[1]}
}

// Frame is one tracker sample. Image axes are x right, y down.
type Frame struct {
	FrameTime  float64 `json:"frame_time"`
	PointCount int     `json:"point_count"`
	Height     float64 `json:"height"`
	Width      float64 `json:"width"`
	Channels   int     `json:"channels"`
	// The tracker firmware misspells this key.
	UsingOtsuThresholding bool    `json:"useing_otsu_thresholding"`
	BinarizationThreshold int     `json:"binarization_threshold"`
	Points                []Point `json:"points"`
}

// NewFrame builds a frame from pixel points, filling in the count.
func NewFrame(width, height float64, points ...Point) Frame {
	return Frame{
		PointCount: len(points),
		Width:      width,
		Height:     height,
		Points:     points,
	}
}

// Decode parses a JSON tracker frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode marker frame: %w", err)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return Frame{}, fmt.Errorf("decode marker frame: invalid dimensions %vx%v", f.Width, f.Height)
	}
	return f, nil
}

// Pose triangulates the frame. It lets a Frame stand in as a localisation
// observation.
func (f Frame) Pose() (geometry.Pose2D, bool) {
	return FindPose(f)
}

func linearMap(value, inMin, inMax, outMin, outMax float64) float64 {
	return (value-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Normalised maps pixels so the shorter image side spans [0, 1] and the
// longer side [0, long/short], preserving aspect ratio.
func (f Frame) Normalised() []r2.Vec {
	out := make([]r2.Vec, 0, len(f.Points))
	for _, p := range f.Points {
		var v r2.Vec
		if f.Width > f.Height {
			v.X = linearMap(p[0], 0, f.Width, 0, f.Width/f.Height)
			v.Y = linearMap(p[1], 0, f.Height, 0, 1)
		} else {
			v.X = linearMap(p[0], 0, f.Width, 0, 1)
			v.Y = linearMap(p[1], 0, f.Height, 0, f.Height/f.Width)
		}
		out = append(out, v)
	}
	return out
}
