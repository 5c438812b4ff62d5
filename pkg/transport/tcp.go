package transport

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
)

// TCPTransport listens for the legacy client over TCP and serves one
// client session at a time.
type TCPTransport struct {
	listener net.Listener
	closed   atomic.Bool
}

// NewTCP creates a listening TCP transport
func NewTCP(addr string) (*TCPTransport, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &TCPTransport{listener: listener}, nil
}

// Addr returns the bound listen address
func (t *TCPTransport) Addr() net.Addr {
	return t.listener.Addr()
}

// Open accepts the next client connection
func (t *TCPTransport) Open(ctx context.Context) (Stream, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	// Unblock Accept on cancellation
	stop := context.AfterFunc(ctx, func() { t.listener.Close() })
	defer stop()

	conn, err := t.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if t.closed.Load() {
			return nil, ErrTransportClosed
		}
		return nil, fmt.Errorf("accept failed: %w", err)
	}
	return conn, nil
}

// Close stops listening
func (t *TCPTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.listener.Close()
}

// Kind returns the transport name
func (t *TCPTransport) Kind() string {
	return "tcp"
}
