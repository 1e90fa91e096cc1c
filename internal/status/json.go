package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Tide          *TideJSON    `json:"tide,omitempty"`
	Steps         StepsJSON    `json:"steps"`
	LastEvent     string       `json:"last_event,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// TideJSON is the tide the clock is approaching.
type TideJSON struct {
	Kind          string `json:"kind"`
	Time          string `json:"time"`
	SecondsToTide int64  `json:"seconds_to_tide"`
	MissedCycle   bool   `json:"missed_cycle,omitempty"`
}

// StepsJSON reports motor progress.
type StepsJSON struct {
	Taken  int    `json:"taken"`
	Needed int    `json:"needed"`
	Pulses uint64 `json:"pulses"`
	Paused bool   `json:"paused"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Face        string `json:"face"`
	Motor       string `json:"motor"`
	Station     string `json:"station"`
	Backend     string `json:"backend"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	clock := snap.Clock
	state := string(clock.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State: state,
		Steps: StepsJSON{
			Taken:  clock.StepsTaken,
			Needed: clock.StepsNeeded,
			Pulses: clock.Pulses,
			Paused: clock.Paused,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Face:        snap.Config.Face,
			Motor:       snap.Config.Motor,
			Station:     snap.Config.Station,
			Backend:     snap.Config.Backend,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if clock.Target.Valid() {
		inner.Tide = &TideJSON{
			Kind:          string(clock.Target.Kind),
			Time:          clock.Target.Time.UTC().Format(time.RFC3339),
			SecondsToTide: clock.SecToTarget,
			MissedCycle:   clock.MissedCycle,
		}
	}
	if snap.LastEvent != nil {
		inner.LastEvent = string(snap.LastEvent.Type)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
