// Package tideclock drives a modified analog clock movement so that its hand
// shows the time remaining until the next high or low tide.
// The package performs no I/O of its own: wall-clock time is passed in on every
// call, the millisecond clock and the tide supplier are injected, and pulses go
// out through the Line interface.
package tideclock

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies a tide extreme.
type Kind string

const (
	High        Kind = "HIGH"
	Low         Kind = "LOW"
	Unavailable Kind = "UNAVAILABLE"
)

// TideEvent is a predicted tide extreme. Time is meaningless when Kind is
// Unavailable.
type TideEvent struct {
	Kind Kind
	Time time.Time
}

// Valid reports whether the event is a usable high or low tide.
func (e TideEvent) Valid() bool {
	return e.Kind == High || e.Kind == Low
}

// UnavailableEvent returns the sentinel a supplier hands back when it has no data.
func UnavailableEvent() TideEvent {
	return TideEvent{Kind: Unavailable}
}

// Supplier returns the next tide extreme, or an Unavailable event.
type Supplier func() TideEvent

// FaceType selects the step-count formula.
type FaceType string

const (
	Linear    FaceType = "linear"
	Nonlinear FaceType = "nonlinear"
)

var (
	ErrUnknownFace  = errors.New("unknown face type")
	ErrUnknownMotor = errors.New("unknown motor type")
)

// ParseFace validates a face selector.
func ParseFace(s string) (FaceType, error) {
	switch FaceType(s) {
	case Linear, Nonlinear:
		return FaceType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFace, s)
}

// MotorProfile holds the timing constants of one kind of movement.
type MotorProfile struct {
	Name            string
	StepsPerTick    int
	MinStepInterval time.Duration
	PulseWidth      time.Duration
}

// Motor profile names.
const (
	MotorLavet     = "lavet"
	MotorMicrostep = "microstep"
)

var profiles = map[string]MotorProfile{
	// Stock quartz movement: one coil pulse per second-hand tick.
	MotorLavet: {
		Name:            MotorLavet,
		StepsPerTick:    1,
		MinStepInterval: 200 * time.Millisecond,
		PulseWidth:      60 * time.Millisecond,
	},
	// Geared replacement movement: sixteen short pulses per tick.
	MotorMicrostep: {
		Name:            MotorMicrostep,
		StepsPerTick:    16,
		MinStepInterval: 8 * time.Millisecond,
		PulseWidth:      4 * time.Millisecond,
	},
}

// ProfileFor returns the named motor profile.
func ProfileFor(name string) (MotorProfile, error) {
	p, ok := profiles[name]
	if !ok {
		return MotorProfile{}, fmt.Errorf("%w: %q", ErrUnknownMotor, name)
	}
	return p, nil
}

// State is the coarse state of the clock.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateTracking      State = "TRACKING"
	StatePaused        State = "PAUSED"
)

// EventType names something that happened during a call to Advance.
type EventType string

const (
	EventTarget      EventType = "TARGET"
	EventMissedCycle EventType = "MISSED_CYCLE"
	EventUnavailable EventType = "UNAVAILABLE"
	EventPaused      EventType = "PAUSED"
	EventResumed     EventType = "RESUMED"
)

// Event describes a state change, suitable for publishing.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Target      TideEvent
	StepsTaken  int
	StepsNeeded int
	// QuickSteps is the catch-up backlog when a new target is acquired.
	QuickSteps int
	Paused     bool
}

// Snapshot is a point-in-time copy of the clock state.
type Snapshot struct {
	State        State
	Face         FaceType
	Motor        string
	Target       TideEvent
	StepsTaken   int
	StepsNeeded  int
	SecToTarget  int64
	Paused       bool
	MissedCycle  bool
	Pulses       uint64
	TargetsFound int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Snapshot  Snapshot
}
