package navigation

import (
	"context"
	"time"

	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/timeutil"
)

const (
	// DefaultBatteryInterval is how often the supply voltage is sampled.
	DefaultBatteryInterval = time.Second
	// DefaultLowVoltage is the alarm threshold for a 3S pack at 3.6 V a cell.
	DefaultLowVoltage = 3 * 3.6
)

// BatteryMonitor samples the driver supply voltage and shows it on the
// status LEDs: red when low, magenta otherwise.
type BatteryMonitor struct {
	driver   motion.Driver
	clock    timeutil.Clock
	interval time.Duration
	low      float64
}

// NewBatteryMonitor builds a monitor. Zero interval or threshold take
// defaults.
func NewBatteryMonitor(driver motion.Driver, clock timeutil.Clock, interval time.Duration, low float64) *BatteryMonitor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultBatteryInterval
	}
	if low <= 0 {
		low = DefaultLowVoltage
	}
	return &BatteryMonitor{driver: driver, clock: clock, interval: interval, low: low}
}

// Check reads the voltage once and updates the LEDs. ok is false when the
// backend cannot measure voltage.
func (b *BatteryMonitor) Check(ctx context.Context) (volts float64, ok bool, err error) {
	volts, ok, err = b.driver.ReadVoltage(ctx)
	if err != nil || !ok {
		return volts, ok, err
	}
	color := motion.ColorMagenta
	if volts < b.low {
		color = motion.ColorRed
	}
	if _, err := b.driver.SetColor(ctx, color); err != nil {
		logf("failed to set color: %v", err)
	}
	return volts, true, nil
}

// Run checks the battery every interval until ctx ends. It returns early if
// the backend reports no voltage sensing.
func (b *BatteryMonitor) Run(ctx context.Context) {
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
		volts, ok, err := b.Check(ctx)
		switch {
		case err != nil:
			logf("battery read failed: %v", err)
		case !ok:
			logf("driver has no voltage sensing, battery monitor stopped")
			return
		default:
			logf("battery %.2fV", volts)
		}
	}
}
