// Package transport provides the byte-stream connection toward the
// legacy client. A transport delivers arbitrary byte chunks with no
// message boundaries; everything above it must tolerate unaligned reads.
package transport

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
)

// Stream is one byte-stream session with the legacy client
type Stream = io.ReadWriteCloser

// Transport produces client sessions. Connection-oriented transports
// (TCP, QUIC) block in Open until a client arrives; device-backed
// transports (serial, pty, file) return their device stream.
type Transport interface {
	// Open returns the next client session.
	// Blocks until one is available or the context is cancelled.
	Open(ctx context.Context) (Stream, error)

	// Close releases the transport; pending Open calls unblock
	Close() error

	// Kind returns a short transport name for logging
	Kind() string
}

// ErrTransportClosed is returned by Open after Close
var ErrTransportClosed = errors.New("transport closed")

// Stats tracks transport-level statistics
type Stats struct {
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
	readErrors   atomic.Uint64
	writeErrors  atomic.Uint64
	sessions     atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of transport statistics
type StatsSnapshot struct {
	BytesRead    uint64 `json:"bytes_read"`
	BytesWritten uint64 `json:"bytes_written"`
	ReadErrors   uint64 `json:"read_errors"`
	WriteErrors  uint64 `json:"write_errors"`
	Sessions     uint64 `json:"sessions"`
}

// Snapshot returns a copy of the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		BytesRead:    s.bytesRead.Load(),
		BytesWritten: s.bytesWritten.Load(),
		ReadErrors:   s.readErrors.Load(),
		WriteErrors:  s.writeErrors.Load(),
		Sessions:     s.sessions.Load(),
	}
}

// Session increments the session counter
func (s *Stats) Session() {
	s.sessions.Add(1)
}

// WithStats wraps a stream so byte and error counts accumulate in stats
func WithStats(inner Stream, stats *Stats) Stream {
	return &countingStream{inner: inner, stats: stats}
}

type countingStream struct {
	inner Stream
	stats *Stats
}

func (c *countingStream) Read(p []byte) (int, error) {
	n, err := c.inner.Read(p)
	c.stats.bytesRead.Add(uint64(n))
	if err != nil && !errors.Is(err, io.EOF) {
		c.stats.readErrors.Add(1)
	}
	return n, err
}

func (c *countingStream) Write(p []byte) (int, error) {
	n, err := c.inner.Write(p)
	c.stats.bytesWritten.Add(uint64(n))
	if err != nil {
		c.stats.writeErrors.Add(1)
	}
	return n, err
}

func (c *countingStream) Close() error {
	return c.inner.Close()
}
