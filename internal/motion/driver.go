package motion

import (
	"context"
	"fmt"
	"strings"
)

// Driver is the capability set shared by every drive-train backend. It is
// called from the control tick, so implementations must not block for longer
// than one bus round trip.
type Driver interface {
	// Send delivers one wheel command to the motors.
	Send(ctx context.Context, cmd WheelCommand) error
	// ReadVoltage returns the supply voltage. ok is false when the backend
	// cannot measure it.
	ReadVoltage(ctx context.Context) (volts float64, ok bool, err error)
	// SetColor sets the status LED colour. ok is false when the backend has
	// no LEDs.
	SetColor(ctx context.Context, color LedColor) (ok bool, err error)
}

// LedColor enumerates status LED colours in servo-bus numbering.
type LedColor int

const (
	ColorOff LedColor = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorYellow
	ColorCyan
	ColorMagenta
	ColorWhite
)

var colorNames = []string{"off", "red", "green", "blue", "yellow", "cyan", "magenta", "white"}

func (c LedColor) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return fmt.Sprintf("LedColor(%d)", int(c))
	}
	return colorNames[c]
}

// ParseLedColor parses a colour name as produced by String.
func ParseLedColor(s string) (LedColor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range colorNames {
		if name == s {
			return LedColor(i), nil
		}
	}
	return ColorOff, fmt.Errorf("unknown led colour %q", s)
}
