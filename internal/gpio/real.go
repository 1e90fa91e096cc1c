//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives one line of a Linux GPIO character device.
type RealOutput struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	offset int
}

// NewRealOutput requests offset on the named chip as an output, initially low.
func NewRealOutput(chipName string, offset int) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// Start low so the coil carries no current until the first pulse.
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("tide-clock"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}

	return &RealOutput{chip: chip, line: line, offset: offset}, nil
}

// SetHigh drives the line high.
func (r *RealOutput) SetHigh() error {
	if err := r.line.SetValue(1); err != nil {
		return fmt.Errorf("set line %d high: %w", r.offset, err)
	}
	return nil
}

// SetLow drives the line low.
func (r *RealOutput) SetLow() error {
	if err := r.line.SetValue(0); err != nil {
		return fmt.Errorf("set line %d low: %w", r.offset, err)
	}
	return nil
}

// Close drives the line low, returns it to an input with pull-down (the Pi
// boot default) and releases it.
func (r *RealOutput) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive line low: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
