// Package monitor synthesizes "overheard" frame indications from data
// passing through connected channels. It is presentation-only: the tap
// receives copies and can never touch the real data path.
package monitor

import (
	"fmt"
	"strings"
	"sync"

	"tfemu/pkg/channel"
)

const (
	// DefaultCallsign labels the monitor end of synthesized headers
	DefaultCallsign = "NOCALL"

	// DefaultFilter disables monitoring until the client turns it on
	DefaultFilter = "N"

	// MaxSegment is the largest info segment in a synthesized frame,
	// emulating the radio frame size limit.
	MaxSegment = 254

	// maxPending bounds the monitor queue; oldest entries are dropped
	// first since monitor output is purely informational.
	maxPending = 64
)

// Monitor is the virtual channel 0: it owns the monitor filter, the
// global callsign and CQ callsign, and the queue of synthesized frames.
type Monitor struct {
	mu      sync.Mutex
	call    string
	cq      string
	mfilter string
	msgs    []channel.Message
	notify  func()
}

// New creates a monitor with monitoring disabled
func New() *Monitor {
	return &Monitor{
		call:    DefaultCallsign,
		cq:      DefaultCallsign,
		mfilter: DefaultFilter,
	}
}

// SetNotify installs a callback invoked whenever a frame is queued.
// Must be called before the monitor is used.
func (m *Monitor) SetNotify(fn func()) {
	m.notify = fn
}

// Filter returns the monitor filter string
func (m *Monitor) Filter() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mfilter
}

// SetFilter replaces the monitor filter. A filter containing I or U
// enables data monitoring; "N" disables it.
func (m *Monitor) SetFilter(f string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mfilter = strings.ToUpper(f)
}

// Enabled reports whether data monitoring is active
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabledLocked()
}

func (m *Monitor) enabledLocked() bool {
	return strings.ContainsAny(m.mfilter, "IU")
}

// Callsign returns the global callsign
func (m *Monitor) Callsign() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.call
}

// SetCallsign assigns the global callsign
func (m *Monitor) SetCallsign(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.call = strings.ToUpper(call)
}

// CQ returns the CQ callsign
func (m *Monitor) CQ() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cq
}

// SetCQ assigns the CQ callsign
func (m *Monitor) SetCQ(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cq = strings.ToUpper(call)
}

// Tap implements channel.Tap. When monitoring is enabled it queues a
// synthesized header followed by the payload cut into radio-sized
// segments. Disabling the filter stops new frames immediately; frames
// already queued remain deliverable.
func (m *Monitor) Tap(from, to string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabledLocked() {
		return
	}
	if from == "" {
		from = DefaultCallsign
	}
	if to == "" {
		to = DefaultCallsign
	}

	header := []byte(fmt.Sprintf("fm %s to %s ctl I pid F0", from, to))

	if len(payload) == 0 {
		m.enqueueLocked(channel.Message{Kind: channel.MessageMonHeader, Payload: header})
		return
	}

	m.enqueueLocked(channel.Message{Kind: channel.MessageMonHeaderInfo, Payload: header})
	for off := 0; off < len(payload); off += MaxSegment {
		end := off + MaxSegment
		if end > len(payload) {
			end = len(payload)
		}
		seg := make([]byte, end-off)
		copy(seg, payload[off:end])
		m.enqueueLocked(channel.Message{Kind: channel.MessageMonInfo, Payload: seg})
	}
}

func (m *Monitor) enqueueLocked(msg channel.Message) {
	if len(m.msgs) >= maxPending {
		m.msgs = m.msgs[1:]
	}
	m.msgs = append(m.msgs, msg)
	if m.notify != nil {
		m.notify()
	}
}

// Poll removes and returns the oldest queued frame passing the filter
func (m *Monitor) Poll(f channel.PollFilter) (channel.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, msg := range m.msgs {
		if !f.Matches(msg.Kind) {
			continue
		}
		m.msgs = append(m.msgs[:i], m.msgs[i+1:]...)
		return msg, true
	}
	return channel.Message{}, false
}

// LinkInfo returns the two monitor L counters: pending status messages
// and pending frames.
func (m *Monitor) LinkInfo() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var status int
	for _, msg := range m.msgs {
		if msg.Kind == channel.MessageStatus {
			status++
		}
	}
	return []byte(fmt.Sprintf("%d %d", status, len(m.msgs)-status))
}

// Reset clears the queue. Called when the transport stream is lost.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = nil
}
