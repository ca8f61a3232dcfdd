package driver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/hamilton/internal/motion"
)

func TestBodyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BodyConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*BodyConfig) {}},
		{name: "zero multiplier", mutate: func(c *BodyConfig) { c.Multiplier = 0 }, wantErr: true},
		{name: "duplicate id", mutate: func(c *BodyConfig) { c.RightRear.ID = 0 }, wantErr: true},
		{name: "dc channel out of range", mutate: func(c *BodyConfig) { c.RightRear.ID = 4 }, wantErr: true},
		{name: "lss ids", mutate: func(c *BodyConfig) {
			c.DriverType = DriverLSS
			c.LeftFront.ID, c.RightFront.ID, c.LeftRear.ID, c.RightRear.ID = 10, 11, 12, 13
		}},
		{name: "unknown type", mutate: func(c *BodyConfig) { c.DriverType = "stepper" }, wantErr: true},
		{name: "empty type is arduino", mutate: func(c *BodyConfig) { c.DriverType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBodyConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBodyConfig_Map(t *testing.T) {
	cfg := DefaultBodyConfig()
	cmd := motion.WheelCommand{LeftFront: 0.5, RightFront: 0.5, LeftRear: 2, RightRear: -2}

	got := cfg.Map(cmd)
	want := [4]MotorCommand{
		{ID: 0, Speed: 127.5},
		{ID: 1, Speed: -127.5},
		{ID: 2, Speed: 255},
		{ID: 3, Speed: 255},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyConfig_MapNegativeMultiplier(t *testing.T) {
	cfg := DefaultBodyConfig()
	cfg.Multiplier = -100

	got := cfg.Map(motion.WheelCommand{LeftFront: 5})
	assert.Equal(t, -100.0, got[0].Speed)
}
