// Package remote receives operator input over MQTT and hands it to the
// navigation controller between ticks.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/messaging"
	"github.com/banshee-data/hamilton/internal/monitoring"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/timeutil"
)

var logf = monitoring.Subsystem("remote")

// Action names understood by Apply.
const (
	ActionStartSpin = "start_spin"
	ActionStopSpin  = "stop_spin"
)

const (
	maxPendingActions = 16
	subscribeTimeout  = 5 * time.Second
)

// Topic names below the configured prefix.
const (
	TopicTarget  = "target"
	TopicGamepad = "gamepad"
	TopicTouch   = "touch"
	TopicAction  = "action"
)

// TargetCommand is a target pose from an automated commander. IDs must
// increase; repeats and older IDs are ignored.
type TargetCommand struct {
	ID  uint32  `json:"id"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// GamepadInput is the latest stick state.
type GamepadInput struct {
	LeftX  float64 `json:"left_x"`
	LeftY  float64 `json:"left_y"`
	RightY float64 `json:"right_y"`
}

// MoveCommand maps sticks to a body-frame move.
func (g GamepadInput) MoveCommand() motion.MoveCommand {
	return motion.NewMoveCommand(g.LeftX, g.LeftY, g.RightY)
}

// Action is a named one-shot request.
type Action struct {
	ID string `json:"id"`
}

// Controller is the part of the navigation controller the inbox drives.
type Controller interface {
	SetTarget(pose geometry.Pose2D)
	SetUserCommand(cmd motion.MoveCommand, at time.Time)
	StartLidar()
	StopLidar()
}

// InboxStats counts messages.
type InboxStats struct {
	Received uint64 `json:"received"`
	Rejected uint64 `json:"rejected"`
}

// Inbox buffers the latest remote input until the control loop applies it.
type Inbox struct {
	cfg   messaging.Config
	arena Map
	clock timeutil.Clock

	received atomic.Uint64
	rejected atomic.Uint64

	mu           sync.Mutex
	target       *geometry.Pose2D
	lastTargetID uint32
	gamepad      *motion.MoveCommand
	gamepadAt    time.Time
	actions      []string
}

// NewInbox builds an inbox for topics under cfg.TopicPrefix.
func NewInbox(cfg messaging.Config, arena Map, clock timeutil.Clock) *Inbox {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Inbox{cfg: cfg, arena: arena, clock: clock}
}

// Topics lists the subscribed topics.
func (in *Inbox) Topics() []string {
	return []string{
		in.cfg.Topic(TopicTarget),
		in.cfg.Topic(TopicGamepad),
		in.cfg.Topic(TopicTouch),
		in.cfg.Topic(TopicAction),
	}
}

// Subscribe registers the inbox on every topic.
func (in *Inbox) Subscribe(sub messaging.Subscriber) error {
	for _, topic := range in.Topics() {
		tok := sub.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			if err := in.HandleMessage(msg.Topic(), msg.Payload()); err != nil {
				logf("dropping message on %s: %v", msg.Topic(), err)
			}
		})
		if err := messaging.Wait(tok, subscribeTimeout); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// HandleMessage decodes one message and buffers its effect.
func (in *Inbox) HandleMessage(topic string, payload []byte) error {
	in.received.Add(1)
	err := in.handle(topic, payload)
	if err != nil {
		in.rejected.Add(1)
	}
	return err
}

func (in *Inbox) handle(topic string, payload []byte) error {
	switch topic {
	case in.cfg.Topic(TopicTarget):
		var cmd TargetCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("decode target: %w", err)
		}
		in.mu.Lock()
		defer in.mu.Unlock()
		if cmd.ID <= in.lastTargetID {
			return fmt.Errorf("stale target id %d (last %d)", cmd.ID, in.lastTargetID)
		}
		in.lastTargetID = cmd.ID
		pose := geometry.NewPose(cmd.X, cmd.Y, cmd.Yaw)
		in.target = &pose

	case in.cfg.Topic(TopicTouch):
		var touch CanvasTouch
		if err := json.Unmarshal(payload, &touch); err != nil {
			return fmt.Errorf("decode touch: %w", err)
		}
		pose, err := in.arena.CanvasTouchToPose(touch)
		if err != nil {
			return err
		}
		in.mu.Lock()
		in.target = &pose
		in.mu.Unlock()

	case in.cfg.Topic(TopicGamepad):
		var pad GamepadInput
		if err := json.Unmarshal(payload, &pad); err != nil {
			return fmt.Errorf("decode gamepad: %w", err)
		}
		cmd := pad.MoveCommand()
		now := in.clock.Now()
		in.mu.Lock()
		in.gamepad = &cmd
		in.gamepadAt = now
		in.mu.Unlock()

	case in.cfg.Topic(TopicAction):
		var a Action
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("decode action: %w", err)
		}
		if a.ID != ActionStartSpin && a.ID != ActionStopSpin {
			return fmt.Errorf("unknown action %q", a.ID)
		}
		in.mu.Lock()
		defer in.mu.Unlock()
		if len(in.actions) >= maxPendingActions {
			return errors.New("action queue full")
		}
		in.actions = append(in.actions, a.ID)

	default:
		return fmt.Errorf("unexpected topic %q", topic)
	}
	return nil
}

// Apply hands buffered input to ctrl: target first, then the gamepad
// command with its receipt time, then queued actions in order.
func (in *Inbox) Apply(ctrl Controller) {
	in.mu.Lock()
	target := in.target
	pad, padAt := in.gamepad, in.gamepadAt
	actions := in.actions
	in.target, in.gamepad, in.actions = nil, nil, nil
	in.mu.Unlock()

	if target != nil {
		logf("new target %s", *target)
		ctrl.SetTarget(*target)
	}
	if pad != nil {
		ctrl.SetUserCommand(*pad, padAt)
	}
	for _, a := range actions {
		switch a {
		case ActionStartSpin:
			ctrl.StartLidar()
		case ActionStopSpin:
			ctrl.StopLidar()
		}
	}
}

// Stats returns message counters.
func (in *Inbox) Stats() InboxStats {
	return InboxStats{Received: in.received.Load(), Rejected: in.rejected.Load()}
}
