package driver

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/serialport"
)

// DCDriver drives four brushed motors through the microcontroller firmware.
// Each frame carries a direction byte and a magnitude byte per channel.
type DCDriver struct {
	mu   sync.Mutex
	port serialport.Port
	cfg  BodyConfig
}

// NewDCDriver wraps an open port.
func NewDCDriver(port serialport.Port, cfg BodyConfig) *DCDriver {
	return &DCDriver{port: port, cfg: cfg}
}

// encodeFrame lays out channels 0-3 as [dir, |speed|] pairs, COBS-encodes
// them and appends the frame delimiter. Magnitudes saturate at 255.
func encodeFrame(channels [4]float64) []byte {
	raw := make([]byte, 0, 8)
	for _, v := range channels {
		var dir byte
		if v > 0 {
			dir = 1
		}
		mag := math.Min(math.Abs(v), 255)
		raw = append(raw, dir, byte(mag))
	}
	frame := cobsEncode(raw)
	return append(frame, 0)
}

// Send implements motion.Driver.
func (d *DCDriver) Send(ctx context.Context, cmd motion.WheelCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var channels [4]float64
	for _, m := range d.cfg.Map(cmd) {
		channels[m.ID] = m.Speed
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := serialport.WriteAll(d.port, encodeFrame(channels)); err != nil {
		return fmt.Errorf("%w: %v", ErrCommFailed, err)
	}
	return nil
}

// ReadVoltage is unsupported by the DC firmware.
func (d *DCDriver) ReadVoltage(ctx context.Context) (float64, bool, error) {
	return 0, false, nil
}

// SetColor is unsupported by the DC firmware.
func (d *DCDriver) SetColor(ctx context.Context, color motion.LedColor) (bool, error) {
	return false, nil
}

// Close releases the serial port.
func (d *DCDriver) Close() error {
	return d.port.Close()
}
