package navigation

import (
	"context"
	"sync"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/telemetry"
)

type fakeDriver struct {
	mu      sync.Mutex
	sent    []motion.WheelCommand
	colors  []motion.LedColor
	sendErr error

	volts     float64
	hasVolts  bool
	voltErr   error
	colorErr  error
	voltReads int
}

func (d *fakeDriver) Send(_ context.Context, cmd motion.WheelCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, cmd)
	return nil
}

func (d *fakeDriver) ReadVoltage(context.Context) (float64, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.voltReads++
	return d.volts, d.hasVolts, d.voltErr
}

func (d *fakeDriver) SetColor(_ context.Context, c motion.LedColor) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.colorErr != nil {
		return false, d.colorErr
	}
	d.colors = append(d.colors, c)
	return true, nil
}

func (d *fakeDriver) last() motion.WheelCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent[len(d.sent)-1]
}

func (d *fakeDriver) sends() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *fakeDriver) colorsSet() []motion.LedColor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]motion.LedColor(nil), d.colors...)
}

type fakePoses struct {
	pose geometry.Pose2D
	ok   bool
	err  error
}

func (p *fakePoses) LatestPose() (geometry.Pose2D, bool, error) {
	return p.pose, p.ok, p.err
}

type fakeGuard struct {
	unsafe  bool
	checked []motion.MoveCommand
	spin    bool
}

func (g *fakeGuard) CheckMoveSafe(cmd motion.MoveCommand) bool {
	g.checked = append(g.checked, cmd)
	return !g.unsafe
}

func (g *fakeGuard) StartLidar() { g.spin = true }
func (g *fakeGuard) StopLidar()  { g.spin = false }

type recordingSink struct {
	got []telemetry.Snapshot
	err error
}

func (s *recordingSink) Publish(_ context.Context, snap telemetry.Snapshot) error {
	s.got = append(s.got, snap)
	return s.err
}
