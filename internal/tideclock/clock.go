package tideclock

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultQueryInterval bounds how often the supplier is asked for a new tide.
	DefaultQueryInterval = 120 * time.Second

	// Base ticks for one full approach to a tide, on either face.
	ticksPerFullCycle = 1800

	linearSpanSec     = 6 * 60 * 60
	nonlinearSpanSec  = 18 * 60 * 60
	secondsPerTick    = linearSpanSec / ticksPerFullCycle
	nonlinearSpanSqrd = int64(nonlinearSpanSec) * nonlinearSpanSec
)

// Config fixes the face and motor of a clock for its lifetime.
type Config struct {
	Face          FaceType
	Motor         string
	QueryInterval time.Duration
	StartTime     time.Time

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	// Sleep is used for pulse widths. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Clock is the tide-face state machine. It is not safe for concurrent use;
// one goroutine owns it and calls Advance at a steady cadence.
type Clock struct {
	face          FaceType
	profile       MotorProfile
	minIntervalMs uint32
	queryEveryMs  uint32
	stepper       *Stepper
	supplier      Supplier
	millis        func() uint32
	logger        zerolog.Logger
	startTime     time.Time

	target      TideEvent
	stepsTaken  int
	stepsNeeded int
	secToTarget int64
	paused      bool
	missedCycle bool
	// haveTarget is false until a target is acquired, and again after ForceStep.
	haveTarget bool

	lastPulseAt uint32
	lastQueryAt uint32
	pulsed      bool
	queried     bool

	pulses        uint64
	targetsFound  int
	lastHeartbeat time.Time
}

// New validates the face and motor selection and returns an uninitialized
// clock. millis must be a monotonic millisecond counter; it may wrap.
func New(cfg Config, tick, tock Line, supplier Supplier, millis func() uint32) (*Clock, error) {
	face, err := ParseFace(string(cfg.Face))
	if err != nil {
		return nil, err
	}
	profile, err := ProfileFor(cfg.Motor)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("tide supplier is required")
	}
	if millis == nil {
		return nil, fmt.Errorf("millisecond clock is required")
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	query := cfg.QueryInterval
	if query <= 0 {
		query = DefaultQueryInterval
	}

	return &Clock{
		face:          face,
		profile:       profile,
		minIntervalMs: uint32(profile.MinStepInterval.Milliseconds()),
		queryEveryMs:  uint32(query.Milliseconds()),
		stepper:       NewStepper(tick, tock, profile.PulseWidth, cfg.Sleep, logger),
		supplier:      supplier,
		millis:        millis,
		logger:        logger,
		startTime:     cfg.StartTime,
		lastHeartbeat: cfg.StartTime,
		target:        UnavailableEvent(),
	}, nil
}

// Advance moves the hand toward where it should be at now. It issues at most
// one pulse and returns any events worth reporting.
func (c *Clock) Advance(now time.Time) []Event {
	cur := c.millis()
	if c.pulsed && cur-c.lastPulseAt < c.minIntervalMs {
		return nil
	}

	var events []Event
	newCycle := false

	if !c.haveTarget || now.After(c.target.Time) {
		if c.queried && cur-c.lastQueryAt < c.queryEveryMs {
			return nil
		}
		next := c.supplier()
		c.queried = true
		c.lastQueryAt = cur

		if !next.Valid() {
			c.logger.Warn().Time("now", now).Msg("Next tide unavailable, will retry")
			return append(events, c.event(now, EventUnavailable))
		}

		c.missedCycle = c.haveTarget && next.Kind == c.target.Kind
		c.target = next
		c.stepsTaken = 0
		c.paused = false
		c.targetsFound++
		newCycle = true
	}

	c.secToTarget = c.target.Time.Unix() - now.Unix()
	secFromCycleEnd := c.stepsFor(c.secToTarget)

	if newCycle {
		first := !c.haveTarget
		c.haveTarget = true

		switch {
		case secFromCycleEnd < 0 && !c.missedCycle:
			c.paused = true
			c.logger.Info().
				Str("tide", string(c.target.Kind)).
				Int64("seconds_to_tide", c.secToTarget).
				Int64("pause_seconds", -secFromCycleEnd).
				Msg("New tide is beyond the face, pausing")
		case first:
			c.stepsTaken = c.stepsNeeded
			c.logger.Info().
				Str("tide", string(c.target.Kind)).
				Int64("seconds_to_tide", c.secToTarget).
				Msg("First tide acquired, check that the clock is set correctly")
		default:
			c.logger.Info().
				Str("tide", string(c.target.Kind)).
				Int64("seconds_to_tide", c.secToTarget).
				Int("quick_steps", c.stepsNeeded-c.stepsTaken).
				Msg("New tide acquired, taking quick steps")
		}

		ev := c.event(now, EventTarget)
		ev.QuickSteps = c.stepsNeeded - c.stepsTaken
		events = append(events, ev)
		if c.missedCycle {
			c.logger.Warn().
				Str("tide", string(c.target.Kind)).
				Msg("Consecutive tides of the same kind, fast-forwarding a full cycle")
			events = append(events, c.event(now, EventMissedCycle))
		}
		if c.paused {
			events = append(events, c.event(now, EventPaused))
		}
	}

	if c.paused {
		if secFromCycleEnd < 0 {
			return events
		}
		c.paused = false
		c.logger.Info().
			Int64("seconds_to_tide", c.secToTarget).
			Msg("Tide is within the face, starting clock")
		events = append(events, c.event(now, EventResumed))
	}

	if c.stepsNeeded > c.stepsTaken {
		c.stepper.Pulse()
		c.stepsTaken++
		c.pulses++
		c.lastPulseAt = cur
		c.pulsed = true
	}

	return events
}

// stepsFor sets stepsNeeded for the given distance to the target and returns
// the seconds elapsed since the start of the face's span.
func (c *Clock) stepsFor(secToTarget int64) int64 {
	spt := int64(c.profile.StepsPerTick)

	var secFromCycleEnd, needed int64
	switch c.face {
	case Nonlinear:
		secFromCycleEnd = nonlinearSpanSec - secToTarget
		if secFromCycleEnd > 0 {
			needed = spt * ticksPerFullCycle * secFromCycleEnd * secFromCycleEnd / nonlinearSpanSqrd
		}
	default:
		secFromCycleEnd = linearSpanSec - secToTarget
		if secFromCycleEnd > 0 {
			needed = spt * secFromCycleEnd / secondsPerTick
		}
	}
	if c.missedCycle {
		needed += spt * ticksPerFullCycle
	}

	c.stepsNeeded = int(needed)
	return secFromCycleEnd
}

// ForceStep issues one pulse if the motor's minimum interval has elapsed,
// ignoring the face. The hand position no longer matches the computed state,
// so the target is dropped and the next Advance starts over as if new.
func (c *Clock) ForceStep() bool {
	cur := c.millis()
	if c.pulsed && cur-c.lastPulseAt < c.minIntervalMs {
		return false
	}

	c.stepper.Pulse()
	c.pulses++
	c.lastPulseAt = cur
	c.pulsed = true

	c.target = UnavailableEvent()
	c.haveTarget = false
	c.stepsTaken = 0
	c.stepsNeeded = 0
	c.paused = false
	c.missedCycle = false
	return true
}

func (c *Clock) event(now time.Time, t EventType) Event {
	return Event{
		Timestamp:   now,
		Type:        t,
		Target:      c.target,
		StepsTaken:  c.stepsTaken,
		StepsNeeded: c.stepsNeeded,
		Paused:      c.paused,
	}
}

// NextTide returns the tide currently being approached.
func (c *Clock) NextTide() TideEvent {
	return c.target
}

// Profile returns the motor profile in use.
func (c *Clock) Profile() MotorProfile {
	return c.profile
}

// State returns the coarse state of the clock.
func (c *Clock) State() State {
	switch {
	case !c.haveTarget:
		return StateUninitialized
	case c.paused:
		return StatePaused
	default:
		return StateTracking
	}
}

// Snapshot returns a copy of the current state.
func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		State:        c.State(),
		Face:         c.face,
		Motor:        c.profile.Name,
		Target:       c.target,
		StepsTaken:   c.stepsTaken,
		StepsNeeded:  c.stepsNeeded,
		SecToTarget:  c.secToTarget,
		Paused:       c.paused,
		MissedCycle:  c.missedCycle,
		Pulses:       c.pulses,
		TargetsFound: c.targetsFound,
	}
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if interval is <= 0 (disabled).
func (c *Clock) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Snapshot:  c.Snapshot(),
	}
}
