// Package driver implements motion.Driver for the two drive trains the robot
// has been built with: brushed DC motors behind a microcontroller speaking a
// COBS-framed binary protocol, and Lynxmotion smart servos on an LSS bus.
package driver

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/units"
)

var (
	ErrCommFailed = errors.New("communication with motor driver failed")
	ErrOpenFailed = errors.New("failed opening serial port")
)

// DriverType selects the backend.
type DriverType string

const (
	DriverArduino DriverType = "arduino"
	DriverLSS     DriverType = "lss"
)

// DefaultPort is the udev alias of the motor controller.
const DefaultPort = "/dev/hamilton_dc_motors"

// MotorConfig maps one wheel onto a controller channel or servo id.
type MotorConfig struct {
	ID       uint8 `json:"id" yaml:"id"`
	Inverted bool  `json:"inverted" yaml:"inverted"`
}

// BodyConfig describes how wheel commands reach the motors.
type BodyConfig struct {
	LeftFront  MotorConfig `json:"left_front_controller" yaml:"left_front_controller"`
	RightFront MotorConfig `json:"right_front_controller" yaml:"right_front_controller"`
	LeftRear   MotorConfig `json:"left_rear_controller" yaml:"left_rear_controller"`
	RightRear  MotorConfig `json:"right_rear_controller" yaml:"right_rear_controller"`
	// Multiplier scales [-1, 1] wheel values into device units and is also
	// the clamp bound.
	Multiplier float64    `json:"multiplier" yaml:"multiplier"`
	DriverType DriverType `json:"driver_type" yaml:"driver_type"`
	Port       string     `json:"port" yaml:"port"`
}

// DefaultBodyConfig is the wiring of the reference robot.
func DefaultBodyConfig() BodyConfig {
	return BodyConfig{
		LeftFront:  MotorConfig{ID: 0},
		RightFront: MotorConfig{ID: 1, Inverted: true},
		LeftRear:   MotorConfig{ID: 2},
		RightRear:  MotorConfig{ID: 3, Inverted: true},
		Multiplier: 255,
		DriverType: DriverArduino,
		Port:       DefaultPort,
	}
}

// Type returns the configured backend, defaulting to DriverArduino.
func (c BodyConfig) Type() DriverType {
	if c.DriverType == "" {
		return DriverArduino
	}
	return c.DriverType
}

// IDs returns the motor ids in left-front, right-front, left-rear,
// right-rear order.
func (c BodyConfig) IDs() [4]uint8 {
	return [4]uint8{c.LeftFront.ID, c.RightFront.ID, c.LeftRear.ID, c.RightRear.ID}
}

func (c BodyConfig) motors() [4]MotorConfig {
	return [4]MotorConfig{c.LeftFront, c.RightFront, c.LeftRear, c.RightRear}
}

// Validate checks the mapping is usable by the selected backend.
func (c BodyConfig) Validate() error {
	if c.Multiplier == 0 || math.IsNaN(c.Multiplier) || math.IsInf(c.Multiplier, 0) {
		return fmt.Errorf("multiplier must be finite and non-zero, got %v", c.Multiplier)
	}

	seen := make(map[uint8]bool, 4)
	for _, id := range c.IDs() {
		if seen[id] {
			return fmt.Errorf("motor id %d used more than once", id)
		}
		seen[id] = true
	}

	switch c.Type() {
	case DriverArduino:
		for _, id := range c.IDs() {
			if id > 3 {
				return fmt.Errorf("dc motor channel %d out of range 0-3", id)
			}
		}
	case DriverLSS:
		for _, id := range c.IDs() {
			if id > 250 {
				return fmt.Errorf("lss servo id %d out of range 0-250", id)
			}
		}
	default:
		return fmt.Errorf("unknown driver type %q", c.DriverType)
	}
	return nil
}

// MotorCommand is a scaled, inverted speed addressed to one motor.
type MotorCommand struct {
	ID    uint8
	Speed float64
}

// Map scales, clamps and inverts each wheel value and pairs it with its
// motor id. The result is in left-front, right-front, left-rear, right-rear
// order.
func (c BodyConfig) Map(cmd motion.WheelCommand) [4]MotorCommand {
	var out [4]MotorCommand
	bound := math.Abs(c.Multiplier)
	values := cmd.Values()
	for i, m := range c.motors() {
		v := units.Clamp(values[i]*c.Multiplier, -bound, bound)
		if m.Inverted && v != 0 {
			v = -v
		}
		out[i] = MotorCommand{ID: m.ID, Speed: v}
	}
	return out
}
