package marker

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/hamilton/internal/geometry"
)

const (
	// MinPoints is the smallest constellation that can be triangulated.
	MinPoints = 4
	// RejectionDistance bounds the triangle side lengths in normalised units.
	RejectionDistance = 0.02
	// LeverArm is the offset from the triangle centroid to the robot centre
	// along its heading, in normalised units. It is fixed rather than scaled
	// with marker spread because the scaled version jittered.
	LeverArm = 0.058
)

// FindPose recovers the robot pose from a frame. Every point is tried in turn
// as the shared vertex of the tight triangle: its two nearest neighbours
// complete the triangle and the third nearest is the heading marker. The
// first candidate passing the distance checks wins; a heading marker that is
// not strictly farther than the triangle neighbours is rejected.
//
// The returned position is in the room frame: x grows away from the camera
// image's right edge and y from its bottom edge.
func FindPose(f Frame) (geometry.Pose2D, bool) {
	if f.PointCount < MinPoints || len(f.Points) < MinPoints {
		return geometry.Pose2D{}, false
	}
	if f.Width <= 0 || f.Height <= 0 {
		return geometry.Pose2D{}, false
	}

	points := f.Normalised()
	others := make([]int, 0, len(points)-1)
	for i, p := range points {
		others = others[:0]
		for j := range points {
			if j != i {
				others = append(others, j)
			}
		}
		sort.SliceStable(others, func(a, b int) bool {
			return r2.Norm(r2.Sub(points[others[a]], p)) < r2.Norm(r2.Sub(points[others[b]], p))
		})

		first, second, direction := points[others[0]], points[others[1]], points[others[2]]
		dFirst := r2.Norm(r2.Sub(first, p))
		dSecond := r2.Norm(r2.Sub(second, p))
		if dFirst > RejectionDistance || dSecond > RejectionDistance {
			continue
		}
		dDirection := r2.Norm(r2.Sub(direction, p))
		if dDirection <= dFirst || dDirection <= dSecond {
			continue
		}

		centroid := r2.Scale(1.0/3, r2.Add(p, r2.Add(first, second)))
		heading := r2.Sub(direction, centroid)
		if r2.Norm(heading) == 0 {
			continue
		}
		heading = r2.Unit(heading)
		// Image y points down, so the heading is measured from the image
		// y axis towards x.
		rot := geometry.NewRotation(math.Atan2(heading.X, heading.Y))

		anchor := r2.Add(centroid, rot.Apply(r2.Vec{X: LeverArm}))
		return geometry.Pose2D{
			Position: r2.Vec{X: 1 - anchor.Y, Y: 1 - anchor.X},
			Rotation: rot,
		}, true
	}
	return geometry.Pose2D{}, false
}
