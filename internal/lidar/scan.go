// Package lidar runs the 2D range scanner in the background and answers
// whether a commanded move would drive into something it has seen.
package lidar

import (
	"cmp"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// ScanPoint is one range measurement in the scanner frame. Angle is in
// radians, clockwise from the scanner's front, in [0, 2π). Distance is in
// metres.
type ScanPoint struct {
	Angle    float64 `json:"angle"`
	Distance float64 `json:"distance"`
	Quality  uint8   `json:"quality"`
	Valid    bool    `json:"valid"`
}

// IsValid reports whether the point carries a usable range.
func (p ScanPoint) IsValid() bool {
	return p.Valid && p.Distance > 0
}

// RobotFrame converts the point to robot coordinates, x forward and y left.
func (p ScanPoint) RobotFrame() r2.Vec {
	return r2.Vec{
		X: p.Distance * math.Cos(-p.Angle),
		Y: p.Distance * math.Sin(-p.Angle),
	}
}

// Scan is one revolution of points with the time it was stored.
type Scan struct {
	Points     []ScanPoint `json:"points"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Valid returns only the usable points.
func (s Scan) Valid() []ScanPoint {
	out := make([]ScanPoint, 0, len(s.Points))
	for _, p := range s.Points {
		if p.IsValid() {
			out = append(out, p)
		}
	}
	return out
}

// SortScan orders points by angle in place.
func SortScan(points []ScanPoint) {
	slices.SortStableFunc(points, func(a, b ScanPoint) int {
		return cmp.Compare(a.Angle, b.Angle)
	})
}
