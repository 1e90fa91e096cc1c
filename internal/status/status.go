// Package status provides a thread-safe status tracker for the tide-clock daemon.
// The run loop writes to it; HTTP handlers and MQTT heartbeats read from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Face        string
	Motor       string
	Station     string
	Backend     string
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Clock         tideclock.Snapshot
	LastEvent     *tideclock.Event
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Clock:     tideclock.Snapshot{State: tideclock.StateUninitialized},
		},
		now: time.Now,
	}
}

// Update stores the latest clock state and, if events is not empty, the
// last of them. Called from the run loop on every tick.
func (t *Tracker) Update(clock tideclock.Snapshot, events []tideclock.Event) {
	t.mu.Lock()
	t.snap.Clock = clock
	if len(events) > 0 {
		last := events[len(events)-1]
		t.snap.LastEvent = &last
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
