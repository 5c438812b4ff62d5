package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/creack/pty"
)

// PTYTransport allocates a pseudo-terminal pair and serves the master
// side. The slave device path is handed to the legacy software (or a VM
// COM port mapping) as its "serial port".
type PTYTransport struct {
	master *os.File
	slave  *os.File
}

// NewPTY allocates the pseudo-terminal pair
func NewPTY() (*PTYTransport, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open pty: %w", err)
	}
	return &PTYTransport{master: master, slave: slave}, nil
}

// SlavePath returns the device path the client should open
func (t *PTYTransport) SlavePath() string {
	return t.slave.Name()
}

// Open returns the master side of the pair. The pair survives client
// reopens of the slave, so every Open returns the same stream.
func (t *PTYTransport) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.master == nil {
		return nil, ErrTransportClosed
	}
	return nopCloser{t.master}, nil
}

// Close releases both sides of the pair
func (t *PTYTransport) Close() error {
	if t.master == nil {
		return nil
	}
	err := t.master.Close()
	t.slave.Close()
	t.master = nil
	t.slave = nil
	return err
}

// Kind returns the transport name
func (t *PTYTransport) Kind() string {
	return "pty"
}

// nopCloser keeps the pty master open across session resets; only
// Transport.Close releases it.
type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error { return nil }
