// Package channel implements the per-channel protocol state machine.
//
// Each channel owns at most one TCP connection to a remote station and a
// queue of messages (link status texts and received data) that the client
// drains through the poll command. Connection setup and teardown always
// leave exactly one status message behind, so the client's view of the
// link stays synchronized with the socket.
package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"tfemu/internal/logger"
)

// State is the WA8DED link state reported by the L command
type State int

const (
	StateDisconnected  State = 0 // no link
	StateLinkSetup     State = 1 // connect in progress
	StateDisconnecting State = 3 // disconnect requested
	StateConnected     State = 4 // information transfer
)

// String returns string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateLinkSetup:
		return "LinkSetup"
	case StateDisconnecting:
		return "Disconnecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

const (
	// MaxFrameLen is the largest data segment queued or transmitted at
	// once, emulating the radio frame size limit.
	MaxFrameLen = 254

	// MaxPendingData bounds the number of undelivered data messages.
	// Socket reads pause while the queue is full.
	MaxPendingData = 9

	// DefaultCallsign is used until the client assigns one
	DefaultCallsign = "NOCALL"

	defaultDialTimeout = 30 * time.Second
)

// telnet IAC WONT ECHO, purged from received data as the original does
var telnetWontEcho = []byte{0xff, 0xfc, 0x01}

// Errors
var (
	ErrNotDisconnected = errors.New("channel is not disconnected")
	ErrNotConnected    = errors.New("channel is not connected")
	ErrClosed          = errors.New("channel is closed")
)

// Directory resolves a station identifier to a "host:port" address.
// Absence of a station is a normal failure, reported via ok=false.
type Directory interface {
	Lookup(call string) (addr string, ok bool)
}

// Tap receives a read-only copy of data passing through a connected
// channel. Implemented by the monitor synthesizer. A Tap must not block
// for long and has no access to the channel itself.
type Tap interface {
	Tap(from, to string, payload []byte)
}

// Config configures a channel
type Config struct {
	Index       int              // channel number as seen by the client
	Directory   Directory        // station resolution, required
	Tap         Tap              // optional monitor tap
	Logger      logger.Logger    // optional
	DialTimeout time.Duration    // 0 = 30s
}

// Channel is one logical TNC channel driving one TCP connection
type Channel struct {
	index       int
	dir         Directory
	tap         Tap
	log         logger.Logger
	dialTimeout time.Duration

	mu   sync.Mutex
	cond *sync.Cond // signals queue space, transmit work and state changes

	state   State
	station string // remote station while setup/connected
	call    string // channel callsign
	conn    net.Conn

	msgs        []Message
	dataPending int

	txbuf [][]byte // unbounded transmit FIFO, drained by writeLoop

	cancelDial context.CancelFunc
	gen        uint64 // connection generation, guards stale events
	closed     bool

	notify func() // optional ready signal toward the controller
}

// New creates a disconnected channel
func New(cfg Config) *Channel {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}

	c := &Channel{
		index:       cfg.Index,
		dir:         cfg.Directory,
		tap:         cfg.Tap,
		log:         log,
		dialTimeout: dialTimeout,
		state:       StateDisconnected,
		call:        DefaultCallsign,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// SetNotify installs a callback invoked whenever a message is queued.
// Must be called before the channel is used.
func (c *Channel) SetNotify(fn func()) {
	c.notify = fn
}

// Index returns the channel number
func (c *Channel) Index() int {
	return c.index
}

// State returns the current link state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Station returns the remote station while connecting or connected,
// or "" when disconnected.
func (c *Channel) Station() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.station
}

// Callsign returns the channel callsign
func (c *Channel) Callsign() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.call
}

// SetCallsign assigns the channel callsign
func (c *Channel) SetCallsign(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.call = strings.ToUpper(call)
}

// Connect starts an asynchronous connection attempt to the given station.
// The channel enters LinkSetup immediately; the outcome arrives later as
// exactly one queued status message. A station the directory cannot
// resolve fails the attempt without ever opening a socket.
func (c *Channel) Connect(station string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state != StateDisconnected {
		return ErrNotDisconnected
	}

	station = strings.ToUpper(station)
	c.station = station
	c.state = StateLinkSetup
	c.gen++

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel

	go c.dial(ctx, c.gen, station)
	return nil
}

func (c *Channel) dial(ctx context.Context, gen uint64, station string) {
	addr, ok := c.dir.Lookup(station)
	if !ok {
		c.log.Info("Channel %d: unknown station %s", c.index, station)
		c.fail(gen, fmt.Sprintf("LINK FAILURE with %s: Unknown station", station))
		return
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			// Attempt was abandoned by a disconnect or shutdown;
			// that path already reported.
			return
		}
		c.log.Info("Channel %d: connect to %s (%s) failed: %v", c.index, station, addr, err)
		if errors.Is(err, syscall.ECONNREFUSED) {
			c.fail(gen, fmt.Sprintf("BUSY fm %s", station))
		} else {
			c.fail(gen, fmt.Sprintf("LINK FAILURE with %s", station))
		}
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateLinkSetup {
		c.mu.Unlock()
		conn.Close()
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.txbuf = nil
	if c.cancelDial != nil {
		// The attempt is over; release its context
		c.cancelDial()
		c.cancelDial = nil
	}
	c.enqueueLocked(Message{MessageStatus, []byte("CONNECTED to " + station)})
	c.mu.Unlock()

	c.log.Info("Channel %d: connected to %s (%s)", c.index, station, addr)

	go c.readLoop(conn, gen, station)
	go c.writeLoop(conn, gen, station)
}

// fail reports a failed connection attempt and returns to Disconnected
func (c *Channel) fail(gen uint64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	c.state = StateDisconnected
	c.station = ""
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.enqueueLocked(Message{MessageStatus, []byte(status)})
}

// Disconnect closes the link. A connect still in progress is abandoned.
// Does nothing when already disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()

	switch c.state {
	case StateDisconnected:
		c.mu.Unlock()
		return

	case StateLinkSetup:
		station := c.station
		c.gen++
		if c.cancelDial != nil {
			c.cancelDial()
			c.cancelDial = nil
		}
		c.state = StateDisconnected
		c.station = ""
		c.enqueueLocked(Message{MessageStatus, []byte("DISCONNECTED fm " + station)})
		c.mu.Unlock()

	default:
		c.state = StateDisconnecting
		c.teardownLocked("DISCONNECTED fm " + c.station)
		c.mu.Unlock()
	}
}

// drop handles a connection ending from the socket side (peer close,
// reset, write failure). Stale events from a previous connection are
// ignored via the generation counter.
func (c *Channel) drop(gen uint64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	c.teardownLocked(status)
}

// teardownLocked closes the live connection and reports one status message.
// Caller holds c.mu.
func (c *Channel) teardownLocked(status string) {
	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.txbuf = nil
	c.state = StateDisconnected
	c.station = ""
	c.enqueueLocked(Message{MessageStatus, []byte(status)})
	c.cond.Broadcast()
}

// readLoop packages received socket bytes into data messages.
// It blocks while the data queue is full, pausing socket reads until the
// client drains the backlog.
func (c *Channel) readLoop(conn net.Conn, gen uint64, station string) {
	buf := make([]byte, MaxFrameLen)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := bytes.ReplaceAll(buf[:n], telnetWontEcho, nil)
			if len(data) > 0 {
				if !c.enqueueData(gen, data) {
					return
				}
				if c.tap != nil {
					c.tap.Tap(station, c.Callsign(), data)
				}
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.drop(gen, "DISCONNECTED fm "+station)
			case errors.Is(err, syscall.ECONNRESET):
				c.drop(gen, "LINK RESET fm "+station)
			default:
				// Locally closed or some other terminal error
				c.drop(gen, "LINK RESET fm "+station)
			}
			return
		}
	}
}

// writeLoop drains the transmit queue to the socket in FIFO order.
// Only this goroutine ever waits on the socket write side, so a remote
// that stops reading jams the queue, never the caller.
func (c *Channel) writeLoop(conn net.Conn, gen uint64, station string) {
	for {
		c.mu.Lock()
		for len(c.txbuf) == 0 && c.gen == gen {
			c.cond.Wait()
		}
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		data := c.txbuf[0]
		c.txbuf = c.txbuf[1:]
		c.mu.Unlock()

		for len(data) > 0 {
			n, err := conn.Write(data)
			if err != nil {
				c.drop(gen, "LINK RESET fm "+station)
				return
			}
			data = data[n:]
		}
	}
}

// Send queues data for transmission on the connected socket. Data longer
// than MaxFrameLen is split; order is preserved. The transmit queue is
// unbounded, so Send never blocks however slow the remote is.
func (c *Channel) Send(data []byte) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}

	for off := 0; off < len(data); off += MaxFrameLen {
		end := off + MaxFrameLen
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, end-off)
		copy(chunk, data[off:end])
		c.txbuf = append(c.txbuf, chunk)
	}
	c.cond.Broadcast()
	c.mu.Unlock()

	if c.tap != nil {
		c.tap.Tap(c.Callsign(), c.Station(), data)
	}
	return nil
}

// enqueueData appends a received data message, waiting while the queue
// holds MaxPendingData undelivered data messages. Returns false when the
// connection ended while waiting.
func (c *Channel) enqueueData(gen uint64, data []byte) bool {
	payload := make([]byte, len(data))
	copy(payload, data)

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.dataPending >= MaxPendingData {
		if c.gen != gen || c.closed {
			return false
		}
		c.cond.Wait()
	}
	if c.gen != gen || c.closed {
		return false
	}

	c.dataPending++
	c.enqueueLocked(Message{MessageData, payload})
	return true
}

// enqueueLocked appends a message and fires the ready callback.
// Caller holds c.mu.
func (c *Channel) enqueueLocked(m Message) {
	c.msgs = append(c.msgs, m)
	if c.notify != nil {
		c.notify()
	}
}

// Poll removes and returns the oldest queued message passing the filter.
// Returns ok=false when nothing matches.
func (c *Channel) Poll(f PollFilter) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.msgs {
		if !f.Matches(m.Kind) {
			continue
		}
		c.msgs = append(c.msgs[:i], c.msgs[i+1:]...)
		if m.Kind == MessageData {
			c.dataPending--
			c.cond.Broadcast()
		}
		return m, true
	}
	return Message{}, false
}

// LinkInfo returns the six WA8DED L counters:
// pending status messages, pending data messages, unsent frames,
// unacknowledged frames, tries, link state.
func (c *Channel) LinkInfo() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var statusPending int
	for _, m := range c.msgs {
		if m.Kind == MessageStatus {
			statusPending++
		}
	}

	return []byte(fmt.Sprintf("%d %d %d %d %d %d",
		statusPending, c.dataPending, len(c.txbuf), 0, 0, int(c.state)))
}

// Reset forces the channel to Disconnected without queuing a status
// message and clears the message queue. Applied uniformly to all channels
// when the transport stream toward the client is lost.
func (c *Channel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.txbuf = nil
	c.state = StateDisconnected
	c.station = ""
	c.msgs = nil
	c.dataPending = 0
	c.cond.Broadcast()
}

// Close shuts the channel down for good
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.txbuf = nil
	c.state = StateDisconnected
	c.station = ""
	c.cond.Broadcast()
}
