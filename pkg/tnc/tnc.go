// Package tnc implements the TNC controller: it owns the monitor and all
// channels, decodes the client byte stream in either protocol mode,
// dispatches commands and data to the addressed channel, and serializes
// every response onto the shared transport stream without ever splitting
// a frame.
package tnc

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"time"

	"tfemu/pkg/channel"
	"tfemu/internal/logger"
	"tfemu/pkg/monitor"
	"tfemu/pkg/transport"
	"tfemu/pkg/wire"
)

// Mode is the interface protocol mode
type Mode int

const (
	ModeTerminal Mode = iota // line-oriented text commands
	ModeHost                 // binary length-framed units
)

// String returns string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeTerminal:
		return "Terminal"
	case ModeHost:
		return "Host"
	default:
		return "Unknown"
	}
}

// DefaultChannels is the channel count when none is configured
const DefaultChannels = 4

// Config configures a TNC
type Config struct {
	Channels    int               // number of connectable channels, default 4
	HostMode    bool              // start sessions in host mode
	Directory   channel.Directory // station resolution, required
	Logger      logger.Logger     // optional
	DialTimeout time.Duration     // per-connect timeout, 0 = default
}

// TNC emulates one terminal node controller over one transport stream
type TNC struct {
	log       logger.Logger
	startHost bool
	nchan     int

	mon   *monitor.Monitor
	chans []*channel.Channel // 1-based; index 0 unused (monitor)

	stateMu sync.Mutex
	mode    Mode
	current int // terminal-mode current channel

	writeMu sync.Mutex
	stream  transport.Stream // nil outside a session

	hostDec wire.HostDecoder
	termDec wire.TermDecoder

	ready chan struct{}
	rr    int // round-robin cursor for terminal output
}

// poller is the common polling surface of the monitor and the channels
type poller interface {
	Poll(channel.PollFilter) (channel.Message, bool)
	LinkInfo() []byte
}

// New creates a TNC with its monitor and channels
func New(cfg Config) *TNC {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	nchan := cfg.Channels
	if nchan <= 0 {
		nchan = DefaultChannels
	}

	t := &TNC{
		log:       log,
		startHost: cfg.HostMode,
		nchan:     nchan,
		mon:       monitor.New(),
		chans:     make([]*channel.Channel, nchan+1),
		current:   1,
		ready:     make(chan struct{}, 1),
	}
	t.mon.SetNotify(t.signal)

	for i := 1; i <= nchan; i++ {
		ch := channel.New(channel.Config{
			Index:       i,
			Directory:   cfg.Directory,
			Tap:         t.mon,
			Logger:      log,
			DialTimeout: cfg.DialTimeout,
		})
		ch.SetNotify(t.signal)
		t.chans[i] = ch
	}

	if cfg.HostMode {
		t.mode = ModeHost
	}
	return t
}

// Channels returns the configured channel count
func (t *TNC) Channels() int {
	return t.nchan
}

// Mode returns the current protocol mode
func (t *TNC) Mode() Mode {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.mode
}

func (t *TNC) setMode(m Mode) {
	t.stateMu.Lock()
	t.mode = m
	t.stateMu.Unlock()
	t.log.Info("TNC in %s mode", m)
}

// Current returns the terminal-mode current channel
func (t *TNC) Current() int {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.current
}

func (t *TNC) setCurrent(ch int) {
	t.stateMu.Lock()
	t.current = ch
	t.stateMu.Unlock()
	t.signal()
}

// ChannelStatus describes one channel for status reporting
type ChannelStatus struct {
	Index   int    `json:"index"`
	State   string `json:"state"`
	Station string `json:"station,omitempty"`
}

// Snapshot reports the state of every connectable channel
func (t *TNC) Snapshot() []ChannelStatus {
	out := make([]ChannelStatus, 0, t.nchan)
	for i := 1; i <= t.nchan; i++ {
		out = append(out, ChannelStatus{
			Index:   i,
			State:   t.chans[i].State().String(),
			Station: t.chans[i].Station(),
		})
	}
	return out
}

// Run serves one transport session until the stream fails or the context
// is cancelled. On return the decoders are reset and every channel is
// forced back to Disconnected, so a reconnecting client always sees a
// consistent idle TNC.
func (t *TNC) Run(ctx context.Context, stream transport.Stream) error {
	t.beginSession(stream)
	defer t.endSession()

	pumpCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.pump(pumpCtx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	buf := make([]byte, 512)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			t.feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (t *TNC) beginSession(stream transport.Stream) {
	t.writeMu.Lock()
	t.stream = stream
	t.writeMu.Unlock()

	t.hostDec.Reset()
	t.termDec.Reset()
	if t.startHost {
		t.setMode(ModeHost)
	} else {
		t.setMode(ModeTerminal)
	}
	t.setCurrent(1)
}

// endSession applies the transport-loss policy: all channels forced to
// Disconnected, queues and decoders cleared.
func (t *TNC) endSession() {
	t.writeMu.Lock()
	t.stream = nil
	t.writeMu.Unlock()

	for i := 1; i <= t.nchan; i++ {
		t.chans[i].Reset()
	}
	t.mon.Reset()
	t.hostDec.Reset()
	t.termDec.Reset()
}

// Close shuts down every channel for good
func (t *TNC) Close() {
	for i := 1; i <= t.nchan; i++ {
		t.chans[i].Close()
	}
}

// feed hands received bytes to the decoder of the current mode.
// Bytes are consumed one at a time so a mode switch command takes effect
// at the exact byte where it was issued.
func (t *TNC) feed(p []byte) {
	for i := range p {
		b := p[i : i+1]
		if t.Mode() == ModeHost {
			for _, u := range t.hostDec.Decode(b) {
				t.handleHostUnit(u)
			}
		} else {
			for _, l := range t.termDec.Decode(b) {
				t.handleTermLine(l)
			}
		}
	}
}

// signal nudges the terminal output pump
func (t *TNC) signal() {
	select {
	case t.ready <- struct{}{}:
	default:
	}
}

// writeFrame writes one encoded unit to the transport stream.
// The lock spans the whole frame, which is the single point upholding
// the no-interleaving invariant.
func (t *TNC) writeFrame(frame []byte) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.stream == nil {
		return
	}
	if logger.FrameDebug() {
		t.log.Debug("TX %s", hex.EncodeToString(frame))
	}
	if _, err := t.stream.Write(frame); err != nil {
		t.log.Warn("Transport write failed: %v", err)
	}
}

// queueFor returns the queue owner for a channel index; 0 is the monitor
func (t *TNC) queueFor(ch int) poller {
	if ch == 0 {
		return t.mon
	}
	return t.chans[ch]
}
