// Package metrics reports clock state as DogStatsD gauges.
package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

// Sink is the subset of the statsd client used here.
type Sink interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Close() error
}

// Reporter emits clock gauges. A Reporter without a sink does nothing.
type Reporter struct {
	sink       Sink
	logger     zerolog.Logger
	lastPulses uint64
}

// New connects to the DogStatsD agent at addr. An empty addr returns a
// disabled reporter.
func New(addr, namespace string, tags []string, logger zerolog.Logger) (*Reporter, error) {
	if addr == "" {
		return &Reporter{logger: logger}, nil
	}

	client, err := statsd.New(addr)
	if err != nil {
		return nil, err
	}
	client.Namespace = namespace
	client.Tags = tags

	logger.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")

	return NewWithSink(client, logger), nil
}

// NewWithSink wraps an existing sink.
func NewWithSink(sink Sink, logger zerolog.Logger) *Reporter {
	return &Reporter{sink: sink, logger: logger}
}

// Enabled reports whether metrics are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r.sink != nil
}

// Report sends the gauges for one snapshot and counts pulses since the last
// report.
func (r *Reporter) Report(snap tideclock.Snapshot) {
	if r.sink == nil {
		return
	}

	tags := []string{"face:" + string(snap.Face), "motor:" + snap.Motor}
	paused := 0.0
	if snap.Paused {
		paused = 1
	}

	r.gauge("steps_taken", float64(snap.StepsTaken), tags)
	r.gauge("steps_needed", float64(snap.StepsNeeded), tags)
	r.gauge("seconds_to_target", float64(snap.SecToTarget), tags)
	r.gauge("paused", paused, tags)

	if snap.Pulses > r.lastPulses {
		if err := r.sink.Count("pulses", int64(snap.Pulses-r.lastPulses), tags, 1); err != nil {
			r.logger.Warn().Err(err).Str("metric", "pulses").Msg("Failed to emit count metric")
		}
	}
	r.lastPulses = snap.Pulses
}

func (r *Reporter) gauge(name string, value float64, tags []string) {
	if err := r.sink.Gauge(name, value, tags, 1); err != nil {
		r.logger.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

// Close flushes and closes the sink.
func (r *Reporter) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}
