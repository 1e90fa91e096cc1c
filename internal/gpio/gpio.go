// Package gpio provides the digital output lines that drive the clock coil.
// The real implementation uses the Linux GPIO character device, a serial
// implementation hands the levels to a USB microcontroller, and the fake
// implementation allows testing without hardware.
package gpio

// Output is a single digital output line.
type Output interface {
	// SetHigh drives the line to its active level.
	SetHigh() error

	// SetLow drives the line to ground.
	SetLow() error

	// Close drives the line low and releases it.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering).
const (
	PinTick = 17
	PinTock = 27
)
