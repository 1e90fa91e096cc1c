package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/tide-clock/internal/config"
	"github.com/sweeney/tide-clock/internal/metrics"
	"github.com/sweeney/tide-clock/internal/mqtt"
	"github.com/sweeney/tide-clock/internal/noaa"
	"github.com/sweeney/tide-clock/internal/status"
	"github.com/sweeney/tide-clock/internal/store"
	"github.com/sweeney/tide-clock/internal/tideclock"
	"github.com/sweeney/tide-clock/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the clock",
	Long:  "Fetch tide predictions, pulse the movement and publish state until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// tideRecorder persists acquired targets.
type tideRecorder interface {
	RecordTide(rec store.TideRecord) error
}

func newTideClient(c config.Config) *noaa.Client {
	return noaa.New(noaa.Config{
		Server:      c.Tides.Server,
		Station:     c.Tides.Station,
		Application: c.Tides.Application,
		Timeout:     c.Tides.Timeout.Duration,
	}, log.With().Str("component", "noaa").Logger())
}

// sinceStart returns a wrapping millisecond counter starting at zero.
func sinceStart(start time.Time) func() uint32 {
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

func run(c config.Config) error {
	st, err := openStore(c.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	lines, err := openCoil(c.GPIO)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := lines.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release coil lines")
		}
	}()

	start := time.Now()
	clockLogger := log.With().Str("component", "clock").Logger()
	clock, err := tideclock.New(tideclock.Config{
		Face:          tideclock.FaceType(c.Clock.Face),
		Motor:         c.Clock.Motor,
		QueryInterval: c.Clock.QueryInterval.Duration,
		StartTime:     start,
		Logger:        &clockLogger,
	}, lines.tick, lines.tock, newTideClient(c).Supplier(time.Now), sinceStart(start))
	if err != nil {
		return fmt.Errorf("init clock: %w", err)
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = discardPublisher{}
	if c.MQTT.Broker != "" {
		rp, err := mqtt.NewRealPublisher(c.MQTT.Broker, c.MQTT.ClientID, log.With().Str("component", "mqtt").Logger())
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = rp
	}
	defer publisher.Close()

	reporter, err := metrics.New(c.Metrics.Addr, c.Metrics.Namespace, c.Metrics.Tags, log.With().Str("component", "metrics").Logger())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer reporter.Close()

	// Tracker exists before STARTUP so the event carries a full snapshot.
	tracker := status.NewTracker(start, status.Config{
		Face:        c.Clock.Face,
		Motor:       c.Clock.Motor,
		Station:     c.Tides.Station,
		Backend:     c.GPIO.Backend,
		HeartbeatMs: c.MQTT.Heartbeat.Milliseconds(),
		Broker:      c.MQTT.Broker,
		HTTPAddr:    c.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn().Err(err).Msg("Failed to publish startup event")
	} else {
		log.Info().Msg("Published startup event")
	}

	if c.HTTP.Addr != "" {
		srv := web.New(c.HTTP.Addr, tracker, st, log.With().Str("component", "web").Logger())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("HTTP server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", c.HTTP.Addr).Msg("HTTP status server listening")
	}

	profile := clock.Profile()
	log.Info().
		Str("face", c.Clock.Face).
		Str("motor", profile.Name).
		Str("station", c.Tides.Station).
		Dur("step_interval", profile.MinStepInterval).
		Dur("heartbeat", c.MQTT.Heartbeat.Duration).
		Msg("Started")

	ticker := time.NewTicker(profile.MinStepInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(clock, publisher, publisher, tracker, st, reporter, c.MQTT.Heartbeat.Duration, time.Now, ticker.C, sigCh)
}

func runLoop(clock *tideclock.Clock, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, recorder tideRecorder, reporter *metrics.Reporter, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var reported tideclock.Snapshot
	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("Shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn().Err(err).Msg("Failed to publish shutdown event")
			} else {
				log.Info().Msg("Published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			events := clock.Advance(t)
			snap := clock.Snapshot()

			for _, event := range events {
				log.Info().
					Str("event", string(event.Type)).
					Str("tide", string(event.Target.Kind)).
					Int("steps_taken", event.StepsTaken).
					Int("steps_needed", event.StepsNeeded).
					Msg("Clock event")
				if err := publisher.Publish(event); err != nil {
					log.Warn().Err(err).Str("event", string(event.Type)).Msg("Publish error")
				}

				if event.Type == tideclock.EventTarget && recorder != nil {
					rec := store.TideRecord{
						Kind:        event.Target.Kind,
						Time:        event.Target.Time,
						AcquiredAt:  event.Timestamp,
						MissedCycle: snap.MissedCycle,
						QuickSteps:  event.QuickSteps,
					}
					if err := recorder.RecordTide(rec); err != nil {
						log.Warn().Err(err).Msg("Failed to record tide")
					}
				}
			}

			if tracker != nil {
				tracker.Update(snap, events)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
			// Ticks outpace the one-second resolution of the state.
			if reporter != nil && snap != reported {
				reporter.Report(snap)
				reported = snap
			}

			if hb := clock.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Info().
					Dur("uptime", hb.Uptime).
					Str("state", string(hb.Snapshot.State)).
					Uint64("pulses", hb.Snapshot.Pulses).
					Int("targets", hb.Snapshot.TargetsFound).
					Msg("Heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn().Err(err).Msg("Heartbeat publish error")
				}
			}
		}
	}
}

// discardPublisher stands in when no broker is configured.
type discardPublisher struct{}

func (discardPublisher) Publish(tideclock.Event) error        { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }
func (discardPublisher) IsConnected() bool                    { return false }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
