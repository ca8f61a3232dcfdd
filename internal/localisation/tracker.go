// Package localisation turns a stream of pose observations into a single
// "where is the robot now" answer that is only given while it is fresh.
package localisation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/monitoring"
	"github.com/banshee-data/hamilton/internal/timeutil"
)

// DefaultPoseFreshness is how long a pose stays usable after it was observed.
const DefaultPoseFreshness = time.Second

var (
	// ErrDisconnected means the observation channel was closed: whatever
	// was feeding it has died.
	ErrDisconnected = errors.New("localisation channel disconnected")
	// ErrBackendNotImplemented is returned at construction for backends that
	// exist in configuration but have no implementation.
	ErrBackendNotImplemented = errors.New("localisation backend not implemented")
)

var logf = monitoring.Subsystem("localisation")

// Observation is one sample from a pose source. A marker frame implements it
// by triangulating; ok is false when no pose could be recovered.
type Observation interface {
	Pose() (pose geometry.Pose2D, ok bool)
}

// Fixed is an already-computed pose.
type Fixed geometry.Pose2D

// Pose implements Observation.
func (f Fixed) Pose() (geometry.Pose2D, bool) {
	return geometry.Pose2D(f), true
}

// Backend names a pose source.
type Backend string

const (
	BackendIRMarker  Backend = "ir_marker"
	BackendVRTracker Backend = "vr_tracker"
)

// ParseBackend accepts a backend name, case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendIRMarker, BackendVRTracker:
		return b, nil
	default:
		return "", fmt.Errorf("unknown localisation backend %q", s)
	}
}

// TrackerOptions tunes a Tracker. Zero values take defaults.
type TrackerOptions struct {
	Freshness time.Duration
	Clock     timeutil.Clock
}

// Tracker keeps the most recent valid pose from its observation channel.
type Tracker struct {
	backend   Backend
	in        <-chan Observation
	freshness time.Duration
	clock     timeutil.Clock

	mu        sync.Mutex
	latest    timeutil.Stamped[geometry.Pose2D]
	localised bool
}

// NewTracker builds a tracker for backend fed by in.
func NewTracker(backend Backend, in <-chan Observation, opts TrackerOptions) (*Tracker, error) {
	switch backend {
	case BackendIRMarker:
	case BackendVRTracker:
		return nil, fmt.Errorf("%w: %s", ErrBackendNotImplemented, backend)
	default:
		return nil, fmt.Errorf("unknown localisation backend %q", backend)
	}
	if in == nil {
		return nil, errors.New("localisation: nil observation channel")
	}

	if opts.Freshness <= 0 {
		opts.Freshness = DefaultPoseFreshness
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Tracker{
		backend:   backend,
		in:        in,
		freshness: opts.Freshness,
		clock:     opts.Clock,
	}, nil
}

// Backend reports which source the tracker was built for.
func (t *Tracker) Backend() Backend {
	return t.backend
}

// LatestPose drains every queued observation without blocking and returns
// the newest valid pose if it is younger than the freshness window. A closed
// channel yields ErrDisconnected.
func (t *Tracker) LatestPose() (geometry.Pose2D, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for drained := false; !drained; {
		select {
		case obs, ok := <-t.in:
			if !ok {
				return geometry.Pose2D{}, false, ErrDisconnected
			}
			if pose, ok := obs.Pose(); ok {
				t.latest = timeutil.Stamp(t.clock, pose)
			}
		default:
			drained = true
		}
	}

	fresh := t.latest.FreshAt(t.clock.Now(), t.freshness)
	if fresh != t.localised {
		if fresh {
			logf("localised at %v", t.latest.Value)
		} else {
			logf("lost localisation, last pose %v", t.latest.Value)
		}
		t.localised = fresh
	}
	if !fresh {
		return geometry.Pose2D{}, false, nil
	}
	return t.latest.Value, true, nil
}
