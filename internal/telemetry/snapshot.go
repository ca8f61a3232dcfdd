// Package telemetry carries controller snapshots to observers: an MQTT topic
// for live visualisation and a sqlite recorder for later inspection.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/motion"
)

// Pose is the wire form of a geometry.Pose2D.
type Pose struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// FromPose converts a geometry pose.
func FromPose(p geometry.Pose2D) Pose {
	return Pose{X: p.Position.X, Y: p.Position.Y, Yaw: p.Yaw()}
}

// Pose2D converts back to a geometry pose.
func (p Pose) Pose2D() geometry.Pose2D {
	return geometry.NewPose(p.X, p.Y, p.Yaw)
}

// Snapshot is one control tick as seen from outside.
type Snapshot struct {
	At      time.Time          `json:"at"`
	Robot   Pose               `json:"robot"`
	Target  *Pose              `json:"target,omitempty"`
	Mode    string             `json:"mode"`
	Command motion.MoveCommand `json:"command"`
	Vetoed  bool               `json:"vetoed"`
}

// Sink receives snapshots.
type Sink interface {
	Publish(ctx context.Context, s Snapshot) error
}

// Discard drops every snapshot.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, Snapshot) error { return nil }

// Fanout publishes to every sink in order. Each sink is tried even if an
// earlier one fails.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ctx context.Context, s Snapshot) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Publish(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
