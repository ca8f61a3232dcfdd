package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/hamilton/internal/units"
)

func deg(d float64) Rotation { return NewRotation(units.DegToRad(d)) }

func TestAngleFrom(t *testing.T) {
	tests := []struct {
		name string
		from float64
		to   float64
		want float64
	}{
		{"quarter turn left", 0, 90, 90},
		{"quarter turn right", 0, -90, -90},
		{"wraps across 180", -170, 170, -20},
		{"wraps the other way", 170, -170, 20},
		{"same heading", 45, 45, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := units.RadToDeg(AngleFrom(deg(tt.from), deg(tt.to)))
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestAngleFromAntisymmetric(t *testing.T) {
	for a := -180.0; a <= 180; a += 37 {
		for b := -180.0; b <= 180; b += 29 {
			ab := AngleFrom(deg(a), deg(b))
			ba := AngleFrom(deg(b), deg(a))
			if math.Abs(math.Abs(ab)-math.Pi) < 1e-9 {
				// exactly opposite headings are both +π by the (-π, π] convention
				continue
			}
			assert.InDelta(t, -ab, ba, 1e-9, "a=%v b=%v", a, b)
		}
	}
}

func TestRotationApplyAndInverse(t *testing.T) {
	r := deg(90)
	v := r.Apply(r2.Vec{X: 1})
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 1, v.Y, 1e-12)

	back := r.Inverse().Apply(v)
	assert.InDelta(t, 1, back.X, 1e-12)
	assert.InDelta(t, 0, back.Y, 1e-12)
}

func TestNewRotationWraps(t *testing.T) {
	assert.InDelta(t, -math.Pi/2, NewRotation(3*math.Pi/2).Angle(), 1e-12)
	assert.InDelta(t, math.Pi, NewRotation(-math.Pi).Angle(), 1e-12)
}

func TestPoseString(t *testing.T) {
	p := NewPose(0.5, 0.25, math.Pi/2)
	assert.Equal(t, "[0.5000, 0.2500] -> 90.00°", p.String())
}

func TestNewPoseKeepsInRangeYaw(t *testing.T) {
	for _, yaw := range []float64{0.2, -0.3, math.Pi / 3} {
		assert.Equal(t, yaw, NewPose(1, 2, yaw).Yaw())
	}
}
