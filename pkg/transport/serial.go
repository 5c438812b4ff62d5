package transport

import (
	"context"
	"fmt"

	"go.bug.st/serial"
)

// SerialTransport talks to the legacy client over a physical or virtual
// serial port.
type SerialTransport struct {
	device string
	mode   serial.Mode
	port   serial.Port
}

// NewSerial creates a serial transport for the given device, e.g.
// "/dev/ttyUSB0". A baud rate of 0 defaults to 9600.
func NewSerial(device string, baud int) *SerialTransport {
	if baud == 0 {
		baud = 9600
	}
	return &SerialTransport{
		device: device,
		mode:   serial.Mode{BaudRate: baud},
	}
}

// Open opens the serial device. A second Open reopens it, which serves
// as the session reset after a broken line.
func (t *SerialTransport) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.port != nil {
		t.port.Close()
		t.port = nil
	}

	port, err := serial.Open(t.device, &t.mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", t.device, err)
	}
	t.port = port
	return port, nil
}

// Close closes the serial device
func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Kind returns the transport name
func (t *SerialTransport) Kind() string {
	return "serial"
}
