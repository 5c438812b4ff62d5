package tnc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tfemu/pkg/channel"
	"tfemu/pkg/wire"
)

// handleHostUnit dispatches one decoded host-mode unit
func (t *TNC) handleHostUnit(u wire.Unit) {
	if u.Kind == wire.KindData {
		t.hostData(u.Channel, u.Payload)
		return
	}
	t.hostCmd(u.Channel, u.Payload)
}

// hostData transmits data on the addressed channel
func (t *TNC) hostData(ch int, data []byte) {
	if ch < 1 || ch > t.nchan {
		// Channel 0 accepts no data; out-of-range frames are dropped
		// and the header is already consumed, so the stream stays in
		// sync without further recovery.
		t.log.Warn("Dropping %d data bytes for invalid channel %d", len(data), ch)
		return
	}

	if err := t.chans[ch].Send(data); err != nil {
		t.respond(ch, wire.CondErrMsg, []byte("CHANNEL NOT CONNECTED"))
		return
	}
	t.respond(ch, wire.CondOK, nil)
}

// hostCmd executes a host-mode command and writes the answer
func (t *TNC) hostCmd(ch int, cmd []byte) {
	letter := cmd[0]
	args := string(bytes.TrimSpace(cmd[1:]))

	if ch > t.nchan {
		t.respond(ch, wire.CondErrMsg, []byte("INVALID CHANNEL NUMBER"))
		return
	}

	switch letter {
	case 'G': // poll the channel
		t.hostPoll(ch, args)

	case 'C': // connect, or query the connect target
		t.hostConnect(ch, args)

	case 'I': // channel callsign
		if args == "" {
			t.respond(ch, wire.CondOKMsg, []byte(t.callsign(ch)))
		} else {
			t.setCallsign(ch, args)
			t.respond(ch, wire.CondOK, nil)
		}

	case 'M': // monitor filter, global regardless of channel
		if args == "" {
			t.respond(ch, wire.CondOKMsg, []byte(t.mon.Filter()))
		} else {
			t.mon.SetFilter(args)
			t.log.Info("Monitor filter set to %s", t.mon.Filter())
			t.respond(ch, wire.CondOK, nil)
		}

	case 'Y': // max connections
		if args == "" {
			t.respond(ch, wire.CondOKMsg, []byte(strconv.Itoa(t.nchan)))
			return
		}
		n, err := strconv.Atoi(args)
		if err == nil && n <= t.nchan {
			t.respond(ch, wire.CondOK, nil)
			return
		}
		t.log.Warn("Requested %s channels, %d available", args, t.nchan)
		t.respond(ch, wire.CondErrMsg,
			[]byte(fmt.Sprintf("INVALID COMMAND: TNC started with %d channels.", t.nchan)))

	case 'L': // link status counters
		t.respond(ch, wire.CondOKMsg, t.queueFor(ch).LinkInfo())

	case 'D': // disconnect
		if ch > 0 {
			t.chans[ch].Disconnect()
		}
		t.respond(ch, wire.CondOK, nil)

	case 'J': // JHOST0 leaves host mode
		t.respond(ch, wire.CondOK, nil)
		if strings.EqualFold(args, "HOST0") {
			t.setMode(ModeTerminal)
			t.writeLine([]byte("ok"))
		}

	case 'U', 'K', 'Z', 'H':
		// Unattended mode, timestamp, flow control, heard list:
		// accepted for client compatibility, nothing to emulate.
		t.respond(ch, wire.CondOK, nil)

	case '@':
		if strings.HasPrefix(args, "B") { // free buffers
			t.respond(ch, wire.CondOKMsg, []byte("512"))
		} else {
			t.respond(ch, wire.CondOK, nil)
		}

	default:
		t.log.Warn("Unknown host command %q args %q", letter, args)
		t.respond(ch, wire.CondErrMsg, []byte(fmt.Sprintf("INVALID COMMAND: %c", letter)))
	}
}

// hostPoll answers the G command: the next queued message, if any,
// encoded under the condition matching its kind.
func (t *TNC) hostPoll(ch int, args string) {
	var filter channel.PollFilter
	switch args {
	case "0":
		filter = channel.PollData
	case "1":
		filter = channel.PollStatus
	default:
		filter = channel.PollAny
	}

	msg, ok := t.queueFor(ch).Poll(filter)
	if !ok {
		t.respond(ch, wire.CondOK, nil)
		return
	}

	switch msg.Kind {
	case channel.MessageStatus:
		t.respond(ch, wire.CondLink, msg.Payload)
	case channel.MessageData:
		t.respond(ch, wire.CondConInfo, msg.Payload)
	case channel.MessageMonHeader:
		t.respond(ch, wire.CondMon, msg.Payload)
	case channel.MessageMonHeaderInfo:
		t.respond(ch, wire.CondMonHdr, msg.Payload)
	case channel.MessageMonInfo:
		t.respond(ch, wire.CondMonInfo, msg.Payload)
	default:
		t.log.Error("Unknown message kind %d on channel %d", msg.Kind, ch)
	}
}

// hostConnect answers the C command
func (t *TNC) hostConnect(ch int, args string) {
	if ch == 0 {
		// Channel 0 carries the CQ callsign instead of a link
		if args == "" {
			t.respond(ch, wire.CondOKMsg, []byte(t.mon.CQ()))
		} else {
			t.mon.SetCQ(args)
			t.respond(ch, wire.CondOK, nil)
		}
		return
	}

	if args == "" {
		station := t.chans[ch].Station()
		if station == "" {
			t.respond(ch, wire.CondErrMsg, []byte("CHANNEL NOT CONNECTED"))
		} else {
			t.respond(ch, wire.CondOKMsg, []byte(station))
		}
		return
	}

	if err := t.chans[ch].Connect(args); err != nil {
		if errors.Is(err, channel.ErrNotDisconnected) {
			t.respond(ch, wire.CondErrMsg, []byte("CHANNEL ALREADY CONNECTED"))
		} else {
			t.respond(ch, wire.CondErrMsg, []byte("LINK FAILURE"))
		}
		return
	}
	t.respond(ch, wire.CondOK, nil)
}

// respond encodes and writes one host-mode response frame
func (t *TNC) respond(ch int, cond wire.Condition, msg []byte) {
	frame, err := wire.EncodeResponse(ch, cond, msg)
	if err != nil {
		t.log.Error("Cannot encode response ch=%d cond=%s: %v", ch, cond, err)
		return
	}
	t.writeFrame(frame)
}

// callsign returns the callsign owner for a channel index
func (t *TNC) callsign(ch int) string {
	if ch == 0 {
		return t.mon.Callsign()
	}
	return t.chans[ch].Callsign()
}

func (t *TNC) setCallsign(ch int, call string) {
	if ch == 0 {
		t.mon.SetCallsign(call)
		return
	}
	t.chans[ch].SetCallsign(call)
}
