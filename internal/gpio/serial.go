package gpio

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// SerialLink talks to a microcontroller that owns the coil lines. Each level
// change is sent as one ASCII command: "H<line>\n" or "L<line>\n".
type SerialLink struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// OpenSerial opens a serial port at the given baud rate.
func OpenSerial(portName string, baud int) (*SerialLink, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return NewSerialLink(port), nil
}

// NewSerialLink wraps an already open port.
func NewSerialLink(port io.WriteCloser) *SerialLink {
	return &SerialLink{port: port}
}

// Output returns the output for one line behind the link.
func (s *SerialLink) Output(line int) *SerialOutput {
	return &SerialOutput{link: s, line: line}
}

func (s *SerialLink) send(cmd byte, line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.port, "%c%d\n", cmd, line); err != nil {
		return fmt.Errorf("write %c%d: %w", cmd, line, err)
	}
	return nil
}

// Close closes the port. Outputs must not be used afterwards.
func (s *SerialLink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

// SerialOutput is one line driven through a SerialLink.
type SerialOutput struct {
	link *SerialLink
	line int
}

// SetHigh sends the high command for the line.
func (o *SerialOutput) SetHigh() error {
	return o.link.send('H', o.line)
}

// SetLow sends the low command for the line.
func (o *SerialOutput) SetLow() error {
	return o.link.send('L', o.line)
}

// Close drives the line low. The link stays open.
func (o *SerialOutput) Close() error {
	return o.link.send('L', o.line)
}
