package tideclock

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/tide-clock/internal/gpio"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// rig wires a Clock to fake lines, a scripted supplier and a manual
// millisecond counter.
type rig struct {
	clock      *Clock
	tick, tock *gpio.FakeOutput
	journal    *gpio.Journal
	ms         uint32
	tides      []TideEvent
	calls      int
}

func newRig(t *testing.T, face FaceType, motor string, tides ...TideEvent) *rig {
	t.Helper()
	r := &rig{journal: &gpio.Journal{}, tides: tides}
	r.tick = gpio.NewFakeOutput(gpio.PinTick, r.journal)
	r.tock = gpio.NewFakeOutput(gpio.PinTock, r.journal)

	supplier := func() TideEvent {
		r.calls++
		if len(r.tides) == 0 {
			return UnavailableEvent()
		}
		ev := r.tides[0]
		if len(r.tides) > 1 {
			r.tides = r.tides[1:]
		}
		return ev
	}

	c, err := New(Config{
		Face:      face,
		Motor:     motor,
		StartTime: base,
		Sleep:     func(time.Duration) {},
	}, r.tick, r.tock, supplier, func() uint32 { return r.ms })
	require.NoError(t, err)
	r.clock = c
	return r
}

func (r *rig) pulses() int {
	return r.tick.Pulses + r.tock.Pulses
}

// at advances both clocks to base+d and calls Advance.
func (r *rig) at(d time.Duration) []Event {
	r.ms = uint32(d.Milliseconds())
	return r.clock.Advance(base.Add(d))
}

func eventTypes(events []Event) []EventType {
	var out []EventType
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestNewRejectsUnknownSelectors(t *testing.T) {
	lines := gpio.NewFakeOutput(0, nil)
	supplier := func() TideEvent { return UnavailableEvent() }
	millis := func() uint32 { return 0 }

	_, err := New(Config{Face: "round", Motor: MotorLavet}, lines, lines, supplier, millis)
	assert.True(t, errors.Is(err, ErrUnknownFace), "got %v", err)

	_, err = New(Config{Face: Linear, Motor: "diesel"}, lines, lines, supplier, millis)
	assert.True(t, errors.Is(err, ErrUnknownMotor), "got %v", err)

	_, err = New(Config{Face: Linear, Motor: MotorLavet}, lines, lines, nil, millis)
	assert.Error(t, err)
}

func TestProfiles(t *testing.T) {
	lavet, err := ProfileFor(MotorLavet)
	require.NoError(t, err)
	assert.Equal(t, 1, lavet.StepsPerTick)
	assert.Equal(t, 200*time.Millisecond, lavet.MinStepInterval)
	assert.Equal(t, 60*time.Millisecond, lavet.PulseWidth)

	micro, err := ProfileFor(MotorMicrostep)
	require.NoError(t, err)
	assert.Equal(t, 16, micro.StepsPerTick)
}

func TestFirstTargetLinear(t *testing.T) {
	r := newRig(t, Linear, MotorLavet, TideEvent{Kind: High, Time: base.Add(3 * time.Hour)})
	assert.Equal(t, StateUninitialized, r.clock.State())

	events := r.at(0)

	assert.Equal(t, 900, r.clock.Snapshot().StepsNeeded)
	assert.Equal(t, 900, r.clock.Snapshot().StepsTaken)
	assert.Equal(t, 0, r.pulses())
	assert.Equal(t, StateTracking, r.clock.State())
	assert.Equal(t, []EventType{EventTarget}, eventTypes(events))
	assert.Equal(t, 0, events[0].QuickSteps)
}

func TestSecondInvocationTakesOneStep(t *testing.T) {
	r := newRig(t, Linear, MotorLavet, TideEvent{Kind: High, Time: base.Add(3 * time.Hour)})
	r.at(0)

	events := r.at(12 * time.Second)

	snap := r.clock.Snapshot()
	assert.Empty(t, events)
	assert.Equal(t, 901, snap.StepsNeeded)
	assert.Equal(t, 901, snap.StepsTaken)
	assert.Equal(t, 1, r.pulses())
	assert.Equal(t, 1, r.calls, "supplier should not be asked again")
}

func TestNonlinearAtFullSpan(t *testing.T) {
	r := newRig(t, Nonlinear, MotorLavet, TideEvent{Kind: Low, Time: base.Add(18 * time.Hour)})

	r.at(0)
	assert.Equal(t, 0, r.clock.Snapshot().StepsNeeded)
	assert.False(t, r.clock.Snapshot().Paused)

	// The eased face needs 1528 s before the first tick is due.
	r.at(1527 * time.Second)
	assert.Equal(t, 0, r.pulses())

	r.at(1528 * time.Second)
	assert.Equal(t, 1, r.clock.Snapshot().StepsNeeded)
	assert.Equal(t, 1, r.pulses())
}

func TestNonlinearFirstRunAssumption(t *testing.T) {
	r := newRig(t, Nonlinear, MotorMicrostep, TideEvent{Kind: High, Time: base.Add(6 * time.Hour)})

	r.at(0)

	// 12 h into an 18 h span: 16 * 1800 * (12/18)^2.
	snap := r.clock.Snapshot()
	assert.Equal(t, 12800, snap.StepsNeeded)
	assert.Equal(t, 12800, snap.StepsTaken)
	assert.Equal(t, 0, r.pulses())
}

func TestNonlinearFullApproach(t *testing.T) {
	r := newRig(t, Nonlinear, MotorLavet, TideEvent{Kind: High, Time: base.Add(18 * time.Hour)})
	r.at(0)

	r.at(18 * time.Hour)
	assert.Equal(t, ticksPerFullCycle, r.clock.Snapshot().StepsNeeded)
}

func TestPulseThrottle(t *testing.T) {
	r := newRig(t, Linear, MotorLavet,
		TideEvent{Kind: High, Time: base.Add(3 * time.Hour)},
		TideEvent{Kind: Low, Time: base.Add(6*time.Hour + time.Second)},
	)
	r.at(0)

	// Pass the first tide; the second needs 900 quick steps.
	start := 3*time.Hour + time.Second
	events := r.at(start)
	require.Equal(t, []EventType{EventTarget}, eventTypes(events))
	assert.Equal(t, 900, events[0].QuickSteps)
	assert.Equal(t, 1, r.pulses())

	// Hammer Advance every 50 ms for two seconds.
	now := base.Add(start)
	startMs := r.ms
	for i := 1; i < 40; i++ {
		r.ms = startMs + uint32(i*50)
		r.clock.Advance(now)
	}

	assert.Equal(t, 10, r.pulses())
	assert.Equal(t, 10, r.clock.Snapshot().StepsTaken)
}

func TestPulseThrottleWraparound(t *testing.T) {
	r := newRig(t, Linear, MotorLavet,
		TideEvent{Kind: High, Time: base.Add(3 * time.Hour)},
		TideEvent{Kind: Low, Time: base.Add(6*time.Hour + time.Second)},
	)
	r.at(0)

	now := base.Add(3*time.Hour + time.Second)
	r.ms = math.MaxUint32 - 50
	r.clock.Advance(now)
	require.Equal(t, 1, r.pulses())

	r.ms = 100 // 151 ms after the last pulse
	r.clock.Advance(now)
	assert.Equal(t, 1, r.pulses())

	r.ms = 149 // 200 ms after the last pulse
	r.clock.Advance(now)
	assert.Equal(t, 2, r.pulses())
}

func TestQueryThrottle(t *testing.T) {
	r := newRig(t, Linear, MotorLavet)

	var unavailable int
	for s := 0; s < 300; s++ {
		for _, e := range r.at(time.Duration(s) * time.Second) {
			if e.Type == EventUnavailable {
				unavailable++
			}
		}
	}

	// Queries at 0 s, 120 s and 240 s.
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, 3, unavailable)
	assert.Equal(t, 0, r.pulses())
	assert.Equal(t, StateUninitialized, r.clock.State())
}

func TestUnavailableKeepsTarget(t *testing.T) {
	r := newRig(t, Linear, MotorLavet,
		TideEvent{Kind: High, Time: base.Add(3 * time.Hour)},
		UnavailableEvent(),
	)
	r.at(0)

	events := r.at(3*time.Hour + time.Second)
	assert.Equal(t, []EventType{EventUnavailable}, eventTypes(events))
	assert.Equal(t, High, r.clock.NextTide().Kind)
	assert.Equal(t, 2, r.calls)

	// Still within the query throttle.
	r.at(3*time.Hour + 10*time.Second)
	assert.Equal(t, 2, r.calls)
}

func TestPauseAndResume(t *testing.T) {
	r := newRig(t, Linear, MotorLavet, TideEvent{Kind: Low, Time: base.Add(8 * time.Hour)})

	events := r.at(0)
	assert.Equal(t, []EventType{EventTarget, EventPaused}, eventTypes(events))
	assert.Equal(t, StatePaused, r.clock.State())

	r.at(time.Hour)
	r.at(2*time.Hour - time.Second)
	assert.Equal(t, 0, r.pulses())
	assert.True(t, r.clock.Snapshot().Paused)

	events = r.at(2 * time.Hour)
	assert.Equal(t, []EventType{EventResumed}, eventTypes(events))
	assert.Equal(t, StateTracking, r.clock.State())
	assert.Equal(t, 0, r.pulses())

	r.at(2*time.Hour + 12*time.Second)
	assert.Equal(t, 1, r.pulses())
	assert.Equal(t, 1, r.clock.Snapshot().StepsTaken)
}

func TestMissedCycleAddsFullCycle(t *testing.T) {
	for _, motor := range []string{MotorLavet, MotorMicrostep} {
		t.Run(motor, func(t *testing.T) {
			profile, err := ProfileFor(motor)
			require.NoError(t, err)

			needed := func(second Kind) (int, []Event) {
				r := newRig(t, Linear, motor,
					TideEvent{Kind: High, Time: base.Add(3 * time.Hour)},
					TideEvent{Kind: second, Time: base.Add(6*time.Hour + time.Second)},
				)
				r.at(0)
				events := r.at(3*time.Hour + time.Second)
				return r.clock.Snapshot().StepsNeeded, events
			}

			normal, _ := needed(Low)
			missed, events := needed(High)

			assert.Equal(t, profile.StepsPerTick*ticksPerFullCycle, missed-normal)
			assert.Contains(t, eventTypes(events), EventMissedCycle)
		})
	}
}

func TestMissedCycleDoesNotPause(t *testing.T) {
	r := newRig(t, Linear, MotorLavet,
		TideEvent{Kind: High, Time: base.Add(3 * time.Hour)},
		TideEvent{Kind: High, Time: base.Add(11 * time.Hour)},
	)
	r.at(0)

	r.at(3*time.Hour + time.Second)

	snap := r.clock.Snapshot()
	assert.False(t, snap.Paused)
	assert.True(t, snap.MissedCycle)
	assert.Equal(t, ticksPerFullCycle, snap.StepsNeeded)
	assert.Equal(t, 1, r.pulses())
}

func TestForceStep(t *testing.T) {
	r := newRig(t, Linear, MotorLavet,
		TideEvent{Kind: High, Time: base.Add(3 * time.Hour)},
		TideEvent{Kind: High, Time: base.Add(4 * time.Hour)},
	)
	r.at(0)

	r.ms = 1000
	assert.True(t, r.clock.ForceStep())
	assert.Equal(t, 1, r.pulses())
	assert.Equal(t, StateUninitialized, r.clock.State())

	r.ms = 1100
	assert.False(t, r.clock.ForceStep(), "second force step inside the motor interval")

	// The query throttle still applies to the re-fetch.
	r.ms = 60000
	r.clock.Advance(base.Add(time.Minute))
	assert.Equal(t, 1, r.calls)

	// The refetched target is treated as the first one: no catch-up and no
	// missed cycle even though the kind repeats.
	r.ms = 120000
	events := r.clock.Advance(base.Add(2 * time.Minute))
	assert.Equal(t, 2, r.calls)
	assert.Equal(t, []EventType{EventTarget}, eventTypes(events))
	snap := r.clock.Snapshot()
	assert.Equal(t, snap.StepsNeeded, snap.StepsTaken)
	assert.False(t, snap.MissedCycle)
	assert.Equal(t, 1, r.pulses())
}

func TestStepsNeverExceedNeeded(t *testing.T) {
	// Alternating tides 6h12m30s apart, sampled once a second for two days.
	var tides []TideEvent
	kind := High
	for at := 3 * time.Hour; at < 60*time.Hour; at += 6*time.Hour + 12*time.Minute + 30*time.Second {
		tides = append(tides, TideEvent{Kind: kind, Time: base.Add(at)})
		if kind == High {
			kind = Low
		} else {
			kind = High
		}
	}

	for _, face := range []FaceType{Linear, Nonlinear} {
		t.Run(string(face), func(t *testing.T) {
			r := newRig(t, face, MotorLavet, tides...)

			lastTarget := time.Time{}
			lastTaken := 0
			for s := 0; s < 48*60*60; s++ {
				r.at(time.Duration(s) * time.Second)
				snap := r.clock.Snapshot()

				if snap.StepsTaken > snap.StepsNeeded {
					t.Fatalf("at %ds: taken %d > needed %d", s, snap.StepsTaken, snap.StepsNeeded)
				}
				if snap.Target.Time.Equal(lastTarget) && snap.StepsTaken < lastTaken {
					t.Fatalf("at %ds: taken went backwards %d -> %d", s, lastTaken, snap.StepsTaken)
				}
				lastTarget = snap.Target.Time
				lastTaken = snap.StepsTaken
			}
			assert.Greater(t, r.pulses(), 0)
			assert.Equal(t, 0, r.tick.Pulses-r.tock.Pulses-(r.pulses()%2))
		})
	}
}

func TestCheckHeartbeat(t *testing.T) {
	r := newRig(t, Linear, MotorLavet, TideEvent{Kind: High, Time: base.Add(3 * time.Hour)})
	r.at(0)

	assert.Nil(t, r.clock.CheckHeartbeat(base.Add(time.Minute), 0))
	assert.Nil(t, r.clock.CheckHeartbeat(base.Add(59*time.Second), time.Minute))

	hb := r.clock.CheckHeartbeat(base.Add(time.Minute), time.Minute)
	require.NotNil(t, hb)
	assert.Equal(t, time.Minute, hb.Uptime)
	assert.Equal(t, StateTracking, hb.Snapshot.State)

	assert.Nil(t, r.clock.CheckHeartbeat(base.Add(90*time.Second), time.Minute))
}
