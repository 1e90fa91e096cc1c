// Package mqtt publishes clock and lifecycle events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

// Topics are the per-clock topics.
type Topics struct {
	Events string
	System string
}

// TopicsFor returns the topics for a clock identified by clientID.
func TopicsFor(clientID string) Topics {
	prefix := "tideclock/" + clientID
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a clock event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event tideclock.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the JSON body of a clock event.
type Payload struct {
	Clock ClockPayload `json:"clock"`
}

// ClockPayload contains the clock event details.
type ClockPayload struct {
	Timestamp   string       `json:"timestamp"`
	Event       string       `json:"event"`
	Tide        *TidePayload `json:"tide,omitempty"`
	StepsTaken  int          `json:"steps_taken"`
	StepsNeeded int          `json:"steps_needed"`
	QuickSteps  int          `json:"quick_steps,omitempty"`
	Paused      bool         `json:"paused"`
}

// TidePayload is the target tide.
type TidePayload struct {
	Kind string `json:"kind"`
	Time string `json:"time"`
}

// FormatPayload creates the JSON payload for a clock event. The tide is
// omitted when the clock has no target.
func FormatPayload(event tideclock.Event) ([]byte, error) {
	payload := Payload{
		Clock: ClockPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       string(event.Type),
			StepsTaken:  event.StepsTaken,
			StepsNeeded: event.StepsNeeded,
			QuickSteps:  event.QuickSteps,
			Paused:      event.Paused,
		},
	}
	if event.Target.Valid() {
		payload.Clock.Tide = &TidePayload{
			Kind: string(event.Target.Kind),
			Time: event.Target.Time.UTC().Format(time.RFC3339),
		}
	}
	return json.Marshal(payload)
}

// SystemPayload is the body of simple system events (LWT, RECONNECTED) that
// carry no status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
