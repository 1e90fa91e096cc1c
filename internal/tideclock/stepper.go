package tideclock

import (
	"time"

	"github.com/rs/zerolog"
)

// Line is one digital output wired to the movement's coil.
type Line interface {
	SetHigh() error
	SetLow() error
}

// Stepper alternates coil pulses between the tick and tock lines.
// It does not enforce a cadence; callers must space pulses at least
// MinStepInterval apart.
type Stepper struct {
	tick, tock Line
	pulseWidth time.Duration
	sleep      func(time.Duration)
	logger     zerolog.Logger

	// tockNext selects the line for the next pulse.
	tockNext bool
}

// NewStepper creates a stepper. A nil sleep uses time.Sleep.
func NewStepper(tick, tock Line, pulseWidth time.Duration, sleep func(time.Duration), logger zerolog.Logger) *Stepper {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Stepper{
		tick:       tick,
		tock:       tock,
		pulseWidth: pulseWidth,
		sleep:      sleep,
		logger:     logger,
	}
}

// Pulse drives the current line high for the pulse width, then low, and
// flips to the other line. Line errors are logged, never returned.
func (s *Stepper) Pulse() {
	line, name := s.tick, "tick"
	if s.tockNext {
		line, name = s.tock, "tock"
	}

	if err := line.SetHigh(); err != nil {
		s.logger.Warn().Err(err).Str("line", name).Msg("set line high")
	}
	s.sleep(s.pulseWidth)
	if err := line.SetLow(); err != nil {
		s.logger.Warn().Err(err).Str("line", name).Msg("set line low")
	}

	s.tockNext = !s.tockNext
}

// Polarity reports which line fires next: false for tick, true for tock.
func (s *Stepper) Polarity() bool {
	return s.tockNext
}
