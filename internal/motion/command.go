// Package motion defines the actuation model of the holonomic base: the
// high-level MoveCommand intent, the per-wheel WheelCommand it mixes into,
// and the Driver capability set that hardware backends implement.
package motion

import (
	"fmt"

	"github.com/banshee-data/hamilton/internal/units"
)

// MoveCommand is a body-frame intent. Each axis is conventionally in [-1, 1].
type MoveCommand struct {
	Forward float64 `json:"forward"`
	Strafe  float64 `json:"strafe"`
	Yaw     float64 `json:"yaw"`
}

// NewMoveCommand builds a MoveCommand.
func NewMoveCommand(forward, strafe, yaw float64) MoveCommand {
	return MoveCommand{Forward: forward, Strafe: strafe, Yaw: yaw}
}

// Clamped limits every axis to [-1, 1].
func (m MoveCommand) Clamped() MoveCommand {
	return MoveCommand{
		Forward: units.Clamp(m.Forward, -1, 1),
		Strafe:  units.Clamp(m.Strafe, -1, 1),
		Yaw:     units.Clamp(m.Yaw, -1, 1),
	}
}

// RotationOnly drops the translational part and keeps yaw.
func (m MoveCommand) RotationOnly() MoveCommand {
	return MoveCommand{Yaw: m.Yaw}
}

// IsZero reports whether the command asks for no motion at all.
func (m MoveCommand) IsZero() bool {
	return m.Forward == 0 && m.Strafe == 0 && m.Yaw == 0
}

// HasTranslation reports whether forward or strafe is non-zero.
func (m MoveCommand) HasTranslation() bool {
	return m.Forward != 0 || m.Strafe != 0
}

func (m MoveCommand) String() string {
	return fmt.Sprintf("move(f=%.3f s=%.3f y=%.3f)", m.Forward, m.Strafe, m.Yaw)
}

// WheelCommand holds one drive value per omni wheel.
type WheelCommand struct {
	LeftFront  float64 `json:"left_front"`
	RightFront float64 `json:"right_front"`
	LeftRear   float64 `json:"left_rear"`
	RightRear  float64 `json:"right_rear"`
}

// Stopped is the all-zero wheel command.
func Stopped() WheelCommand {
	return WheelCommand{}
}

// FromMove applies the holonomic mixing law.
func FromMove(m MoveCommand) WheelCommand {
	return WheelCommand{
		LeftFront:  m.Forward - m.Yaw - m.Strafe,
		RightFront: m.Forward + m.Yaw + m.Strafe,
		LeftRear:   m.Forward - m.Yaw + m.Strafe,
		RightRear:  m.Forward + m.Yaw - m.Strafe,
	}
}

// ToMove inverts the mixing matrix. For commands produced by FromMove with
// no clamping in between it recovers the original intent exactly.
func (w WheelCommand) ToMove() MoveCommand {
	return MoveCommand{
		Forward: (w.LeftFront + w.RightFront + w.LeftRear + w.RightRear) / 4,
		Strafe:  (-w.LeftFront + w.RightFront + w.LeftRear - w.RightRear) / 4,
		Yaw:     (-w.LeftFront + w.RightFront - w.LeftRear + w.RightRear) / 4,
	}
}

// Values returns the wheel values in left-front, right-front, left-rear,
// right-rear order.
func (w WheelCommand) Values() [4]float64 {
	return [4]float64{w.LeftFront, w.RightFront, w.LeftRear, w.RightRear}
}
