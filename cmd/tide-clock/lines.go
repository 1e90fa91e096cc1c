package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/tide-clock/internal/config"
	"github.com/sweeney/tide-clock/internal/gpio"
)

// coil holds the two output lines of the movement.
type coil struct {
	tick, tock gpio.Output
	release    func() error
}

// Close drives both lines low and releases the backend.
func (c *coil) Close() error {
	return errors.Join(c.tick.Close(), c.tock.Close(), c.release())
}

func openCoil(g config.GPIO) (*coil, error) {
	switch g.Backend {
	case config.BackendSerial:
		link, err := gpio.OpenSerial(g.SerialPort, g.Baud)
		if err != nil {
			return nil, err
		}
		log.Info().Str("port", g.SerialPort).Int("baud", g.Baud).Msg("Driving coil over serial")
		return &coil{tick: link.Output(g.Tick), tock: link.Output(g.Tock), release: link.Close}, nil

	case config.BackendGPIOCDev:
		tick, err := gpio.NewRealOutput(g.Chip, g.Tick)
		if err != nil {
			return nil, fmt.Errorf("failed to open tick line: %w", err)
		}
		tock, err := gpio.NewRealOutput(g.Chip, g.Tock)
		if err != nil {
			tick.Close()
			return nil, fmt.Errorf("failed to open tock line: %w", err)
		}
		log.Info().Str("chip", g.Chip).Int("tick", g.Tick).Int("tock", g.Tock).Msg("Driving coil over GPIO")
		return &coil{tick: tick, tock: tock, release: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", g.Backend)
}
