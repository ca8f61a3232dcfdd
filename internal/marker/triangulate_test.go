package marker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/units"
)

// robotFrame is the reference constellation: a triangle of three markers
// around (0.5023, 0.5) with the heading marker straight down the image.
func robotFrame() Frame {
	return NewFrame(1000, 1000,
		Point{500.0, 496.0},
		Point{500.0, 504.0},
		Point{506.928, 500.0},
		Point{502.309, 520.0},
	)
}

func TestFindPose_Reference(t *testing.T) {
	pose, ok := FindPose(robotFrame())
	require.True(t, ok)

	assert.InDelta(t, 0.0, units.RadToDeg(pose.Yaw()), 0.01)
	assert.InDelta(t, 0.5, pose.Position.X, 0.001)
	assert.InDelta(t, 0.439, pose.Position.Y, 0.001)
}

func TestFindPose_TooFewPoints(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{name: "empty", frame: NewFrame(1000, 1000)},
		{name: "three points", frame: NewFrame(1000, 1000, robotFrame().Points[:3]...)},
		{
			name: "declared count below four",
			frame: func() Frame {
				f := robotFrame()
				f.PointCount = 3
				return f
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := FindPose(tt.frame)
			assert.False(t, ok)
		})
	}
}

func TestFindPose_SpreadTriangleRejected(t *testing.T) {
	// Every neighbour is more than RejectionDistance away.
	f := NewFrame(1000, 1000,
		Point{100, 100},
		Point{200, 100},
		Point{100, 200},
		Point{400, 400},
	)
	_, ok := FindPose(f)
	assert.False(t, ok)
}

func TestFindPose_RotatedHeading(t *testing.T) {
	// The reference constellation mirrored about the image diagonal, so the
	// heading marker lies along +x of the triangle.
	f := NewFrame(1000, 1000,
		Point{496.0, 500.0},
		Point{504.0, 500.0},
		Point{500.0, 506.928},
		Point{520.0, 502.309},
	)
	pose, ok := FindPose(f)
	require.True(t, ok)
	// The heading marker sits 1e-4 px off the centroid's row, about 1.7e-5 rad.
	assert.InDelta(t, math.Pi/2, pose.Yaw(), 1e-4)
}

func TestFindPose_DistractorsIgnored(t *testing.T) {
	f := robotFrame()
	f.Points = append(f.Points, Point{50, 50}, Point{950, 900})
	f.PointCount = len(f.Points)

	pose, ok := FindPose(f)
	require.True(t, ok)
	assert.InDelta(t, 0.5, pose.Position.X, 0.001)
	assert.InDelta(t, 0.439, pose.Position.Y, 0.001)
}

func TestNormalised_AspectCorrected(t *testing.T) {
	f := NewFrame(2000, 1000, Point{2000, 1000}, Point{1000, 500})
	got := f.Normalised()
	assert.InDelta(t, 2.0, got[0].X, 1e-12)
	assert.InDelta(t, 1.0, got[0].Y, 1e-12)
	assert.InDelta(t, 1.0, got[1].X, 1e-12)
	assert.InDelta(t, 0.5, got[1].Y, 1e-12)

	tall := NewFrame(500, 1000, Point{500, 1000})
	got = tall.Normalised()
	assert.InDelta(t, 1.0, got[0].X, 1e-12)
	assert.InDelta(t, 2.0, got[0].Y, 1e-12)
}
