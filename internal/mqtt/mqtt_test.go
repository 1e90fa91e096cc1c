package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

var ts = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTopicsFor(t *testing.T) {
	topics := TopicsFor("kitchen")
	assert.Equal(t, "tideclock/kitchen/events", topics.Events)
	assert.Equal(t, "tideclock/kitchen/system", topics.System)
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := tideclock.Event{
		Timestamp:   ts,
		Type:        tideclock.EventTarget,
		Target:      tideclock.TideEvent{Kind: tideclock.High, Time: ts.Add(3 * time.Hour)},
		StepsTaken:  0,
		StepsNeeded: 900,
		QuickSteps:  900,
	}

	got, err := FormatPayload(event)
	require.NoError(t, err)

	want := `{"clock":{"timestamp":"2026-01-01T12:00:00Z","event":"TARGET","tide":{"kind":"HIGH","time":"2026-01-01T15:00:00Z"},"steps_taken":0,"steps_needed":900,"quick_steps":900,"paused":false}}`
	assert.Equal(t, want, string(got))
}

func TestFormatPayloadOmitsUnavailableTide(t *testing.T) {
	event := tideclock.Event{
		Timestamp: ts,
		Type:      tideclock.EventUnavailable,
		Target:    tideclock.UnavailableEvent(),
	}

	got, err := FormatPayload(event)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(got, &p))
	assert.Nil(t, p.Clock.Tide)
	assert.Equal(t, "UNAVAILABLE", p.Clock.Event)
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	event := tideclock.Event{
		Timestamp: time.Date(2026, 1, 1, 4, 0, 0, 0, loc),
		Type:      tideclock.EventResumed,
	}

	got, err := FormatPayload(event)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"timestamp":"2026-01-01T12:00:00Z"`)
}

func TestFormatSystemPayload(t *testing.T) {
	got, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGTERM"})
	require.NoError(t, err)
	assert.Equal(t, `{"system":{"timestamp":"2026-01-01T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`, string(got))

	got, err = FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "OFFLINE"})
	require.NoError(t, err)
	assert.NotContains(t, string(got), "reason")

	raw := []byte(`{"custom":true}`)
	got, err = FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	assert.True(t, f.IsConnected())

	require.NoError(t, f.Publish(tideclock.Event{Timestamp: ts, Type: tideclock.EventTarget}))
	require.NoError(t, f.Publish(tideclock.Event{Timestamp: ts, Type: tideclock.EventPaused}))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP"}))

	assert.Equal(t, []tideclock.EventType{tideclock.EventTarget, tideclock.EventPaused}, f.EventTypes())
	assert.Equal(t, []string{"STARTUP"}, f.SystemEventNames())
	assert.Len(t, f.Payloads, 2)
	assert.Len(t, f.SystemPayloads, 1)

	f.PublishError = errors.New("broker down")
	assert.Error(t, f.Publish(tideclock.Event{Timestamp: ts}))
	assert.Error(t, f.PublishSystem(SystemEvent{Timestamp: ts}))
	assert.Len(t, f.Events, 2)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
}
