// Package navigation decides, once per control tick, what the drive train
// should do: obey a recent manual command, steer towards a target pose, or
// stop. Every candidate move passes the collision guard before it is sent.
package navigation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/monitoring"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/telemetry"
	"github.com/banshee-data/hamilton/internal/timeutil"
)

// DefaultManualTimeout is how long a manual command keeps priority over
// target seeking.
const DefaultManualTimeout = time.Second

var logf = monitoring.Subsystem("navigation")

// Mode is the branch of the tick state machine that produced a command.
type Mode string

const (
	ModeManual       Mode = "manual"
	ModeSeeking      Mode = "seeking"
	ModeHolding      Mode = "holding"
	ModeNotLocalised Mode = "not_localised"
)

func (m Mode) String() string { return string(m) }

// PoseSource reports the robot pose while it is fresh.
type PoseSource interface {
	LatestPose() (pose geometry.Pose2D, ok bool, err error)
}

// Guard vetoes unsafe translations and owns the range sensor motor.
type Guard interface {
	CheckMoveSafe(cmd motion.MoveCommand) bool
	StartLidar()
	StopLidar()
}

type noGuard struct{}

func (noGuard) CheckMoveSafe(motion.MoveCommand) bool { return true }
func (noGuard) StartLidar()                           {}
func (noGuard) StopLidar()                            {}

// Options tune a Controller. Zero values take defaults.
type Options struct {
	ManualTimeout time.Duration
	Gains         Gains
	Clock         timeutil.Clock
}

// Status is what the last tick did.
type Status struct {
	Mode      Mode               `json:"mode"`
	Pose      *telemetry.Pose    `json:"pose,omitempty"`
	Target    *telemetry.Pose    `json:"target,omitempty"`
	Command   motion.MoveCommand `json:"command"`
	Vetoed    bool               `json:"vetoed"`
	Ticks     uint64             `json:"ticks"`
	LastTick  time.Time          `json:"last_tick"`
	LastError string             `json:"last_error,omitempty"`
}

// Controller is the navigation state machine. Tick must not be called
// concurrently with itself; the mutators and Status may be called from any
// goroutine.
type Controller struct {
	driver        motion.Driver
	poses         PoseSource
	guard         Guard
	sink          telemetry.Sink
	clock         timeutil.Clock
	gains         Gains
	manualTimeout time.Duration

	mu     sync.Mutex
	target *geometry.Pose2D
	manual timeutil.Stamped[motion.MoveCommand] // zero until the first manual command
	status Status
}

// NewController wires a controller. A nil guard never vetoes; a nil sink
// discards telemetry.
func NewController(driver motion.Driver, poses PoseSource, guard Guard, sink telemetry.Sink, opts Options) *Controller {
	if guard == nil {
		guard = noGuard{}
	}
	if sink == nil {
		sink = telemetry.Discard
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.ManualTimeout <= 0 {
		opts.ManualTimeout = DefaultManualTimeout
	}
	if opts.Gains == (Gains{}) {
		opts.Gains = DefaultGains()
	}
	return &Controller{
		driver:        driver,
		poses:         poses,
		guard:         guard,
		sink:          sink,
		clock:         opts.Clock,
		gains:         opts.Gains,
		manualTimeout: opts.ManualTimeout,
	}
}

// SetTarget makes the controller seek pose once no manual command is active.
func (c *Controller) SetTarget(pose geometry.Pose2D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = &pose
}

// ClearTarget drops any target.
func (c *Controller) ClearTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = nil
}

// Target returns the current target.
func (c *Controller) Target() (geometry.Pose2D, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return geometry.Pose2D{}, false
	}
	return *c.target, true
}

// SetUserCommand records a manual command issued at the given time.
func (c *Controller) SetUserCommand(cmd motion.MoveCommand, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manual = timeutil.Stamped[motion.MoveCommand]{Value: cmd, At: at}
}

// IssueUserCommand records a manual command issued now.
func (c *Controller) IssueUserCommand(cmd motion.MoveCommand) {
	c.SetUserCommand(cmd, c.clock.Now())
}

// StartLidar spins up the range sensor.
func (c *Controller) StartLidar() { c.guard.StartLidar() }

// StopLidar spins down the range sensor. Moves are then unguarded once the
// last scan goes stale.
func (c *Controller) StopLidar() { c.guard.StopLidar() }

// Status returns a copy of what the last tick did.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Tick runs one control step and sends exactly one wheel command. Errors
// from the pose source, the driver and the telemetry sink are returned.
func (c *Controller) Tick(ctx context.Context) error {
	now := c.clock.Now()

	c.mu.Lock()
	manual := c.manual.FreshAt(now, c.manualTimeout)
	if manual {
		c.target = nil
	}
	var target *geometry.Pose2D
	if c.target != nil {
		t := *c.target
		target = &t
	}
	userCmd := c.manual.Value
	c.mu.Unlock()

	pose, localised, err := c.poses.LatestPose()
	if err != nil {
		c.recordError(now, err)
		return fmt.Errorf("latest pose: %w", err)
	}

	var (
		mode      Mode
		candidate motion.MoveCommand
	)
	switch {
	case manual:
		mode = ModeManual
		candidate = userCmd
	case !localised:
		mode = ModeNotLocalised
	case target == nil:
		mode = ModeHolding
	default:
		mode = ModeSeeking
		candidate = c.gains.Drive(pose, *target)
	}

	cmd := candidate.Clamped()
	vetoed := false
	if cmd.HasTranslation() && !c.guard.CheckMoveSafe(cmd) {
		cmd = cmd.RotationOnly()
		vetoed = true
	}

	c.logTransition(mode, vetoed)

	if err := c.driver.Send(ctx, motion.FromMove(cmd)); err != nil {
		c.recordError(now, err)
		return fmt.Errorf("send wheel command: %w", err)
	}

	snap := telemetry.Snapshot{
		At:      now,
		Mode:    mode.String(),
		Command: cmd,
		Vetoed:  vetoed,
	}
	if target != nil {
		tp := telemetry.FromPose(*target)
		snap.Target = &tp
	}

	c.mu.Lock()
	c.status = Status{
		Mode:     mode,
		Target:   snap.Target,
		Command:  cmd,
		Vetoed:   vetoed,
		Ticks:    c.status.Ticks + 1,
		LastTick: now,
	}
	if localised {
		rp := telemetry.FromPose(pose)
		c.status.Pose = &rp
	}
	c.mu.Unlock()

	if !localised {
		return nil
	}
	snap.Robot = telemetry.FromPose(pose)
	if err := c.sink.Publish(ctx, snap); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	return nil
}

func (c *Controller) recordError(now time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastTick = now
	c.status.LastError = err.Error()
}

func (c *Controller) logTransition(mode Mode, vetoed bool) {
	c.mu.Lock()
	prev := c.status
	c.mu.Unlock()

	if prev.Mode != mode {
		switch {
		case mode == ModeNotLocalised:
			logf("not localised, stopping")
		case prev.Mode == "":
			logf("mode %s", mode)
		default:
			logf("mode %s -> %s", prev.Mode, mode)
		}
	}
	if vetoed && !prev.Vetoed {
		logf("obstacle in path, translation vetoed")
	}
}
