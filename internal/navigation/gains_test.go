package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/units"
)

func TestDriveGains(t *testing.T) {
	tests := []struct {
		name    string
		current geometry.Pose2D
		target  geometry.Pose2D
		forward float64
		strafe  float64
		yaw     float64
	}{
		{
			name:    "one metre ahead clamps forward",
			current: geometry.NewPose(0, 0, 0),
			target:  geometry.NewPose(1, 0, 0),
			forward: 0.5,
		},
		{
			name:    "behind drives backwards",
			current: geometry.NewPose(0, 0, 0),
			target:  geometry.NewPose(-0.03, 0, 0),
			forward: -0.3,
		},
		{
			name:    "left is strafe",
			current: geometry.NewPose(0, 0, 0),
			target:  geometry.NewPose(0, 1, 0),
			strafe:  0.5,
		},
		{
			name:    "error is taken in the body frame",
			current: geometry.NewPose(0, 0, math.Pi/2),
			target:  geometry.NewPose(0, 1, math.Pi/2),
			forward: 0.5,
		},
		{
			name:    "yaw clamps",
			current: geometry.NewPose(0, 0, 0),
			target:  geometry.NewPose(0, 0, math.Pi/2),
			yaw:     0.5,
		},
		{
			name:    "yaw takes the short way across pi",
			current: geometry.NewPose(0, 0, units.DegToRad(-170)),
			target:  geometry.NewPose(0, 0, units.DegToRad(170)),
			yaw:     units.DegToRad(-20),
		},
		{
			name:    "small errors fall in the deadband",
			current: geometry.NewPose(0.5, 0.5, 0),
			target:  geometry.NewPose(0.51, 0.49, 0.1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DriveGains(tt.current, tt.target)
			assert.InDelta(t, tt.forward, got.Forward, 1e-9, "forward")
			assert.InDelta(t, tt.strafe, got.Strafe, 1e-9, "strafe")
			assert.InDelta(t, tt.yaw, got.Yaw, 1e-9, "yaw")
		})
	}
}

func TestDriveGains_DeadbandIsExactlyZero(t *testing.T) {
	got := DriveGains(geometry.NewPose(0, 0, 0), geometry.NewPose(0.014, -0.014, 0.149))
	assert.Equal(t, 0.0, got.Forward)
	assert.Equal(t, 0.0, got.Strafe)
	assert.Equal(t, 0.0, got.Yaw)
	assert.True(t, got.IsZero())
}

func TestGains_Custom(t *testing.T) {
	g := Gains{Translation: 1, Clamp: 1, Deadband: 0}
	got := g.Drive(geometry.NewPose(0, 0, 0), geometry.NewPose(0.2, 0, 0))
	assert.InDelta(t, 0.2, got.Forward, 1e-9)
}

func TestGains_Validate(t *testing.T) {
	tests := []struct {
		name    string
		gains   Gains
		wantErr bool
	}{
		{"defaults", DefaultGains(), false},
		{"zero deadband", Gains{Translation: 1, Clamp: 1}, false},
		{"zero translation", Gains{Clamp: 0.5}, true},
		{"clamp above one", Gains{Translation: 1, Clamp: 1.5}, true},
		{"deadband swallows clamp", Gains{Translation: 1, Clamp: 0.2, Deadband: 0.2}, true},
		{"negative deadband", Gains{Translation: 1, Clamp: 0.5, Deadband: -0.1}, true},
		{"nan gain", Gains{Translation: math.NaN(), Clamp: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gains.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGains_BodyFrameErrorFromOffsetPose(t *testing.T) {
	// Facing +y at (1, 1); a target 0.03 m further along +y is straight ahead.
	g := Gains{Translation: 10, Clamp: 1, Deadband: 0}
	got := g.Drive(geometry.NewPose(1, 1, math.Pi/2), geometry.NewPose(1, 1.03, math.Pi/2))
	assert.InDelta(t, 0.3, got.Forward, 1e-9)
	assert.InDelta(t, 0, got.Strafe, 1e-9)
	assert.Equal(t, 0.0, got.Yaw)
}
