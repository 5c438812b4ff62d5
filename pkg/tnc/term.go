package tnc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tfemu/pkg/channel"
	"tfemu/pkg/wire"
)

// pumpInterval paces the terminal output pump between ready signals
const pumpInterval = 100 * time.Millisecond

// handleTermLine dispatches one completed terminal-mode line.
// Command lines were introduced by the escape byte; everything else is
// converse data for the current channel.
func (t *TNC) handleTermLine(l wire.Line) {
	if l.Command {
		t.termCmd(string(l.Text))
		return
	}
	t.termData(l.Text)
}

// termData forwards a converse line to the current channel's socket.
// The line delimiter is restored because the decoder strips it.
func (t *TNC) termData(text []byte) {
	if len(text) == 0 {
		return
	}

	cur := t.Current()
	data := make([]byte, 0, len(text)+1)
	data = append(data, text...)
	data = append(data, '\r')

	if err := t.chans[cur].Send(data); err != nil {
		t.writeLine([]byte(fmt.Sprintf("(%d) CHANNEL NOT CONNECTED", cur)))
	}
}

// termCmd executes a terminal-mode command line
func (t *TNC) termCmd(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	upper := strings.ToUpper(line)
	if upper == "JHOST1" {
		// Host mode is entered silently; the first host response
		// answers the first host command.
		t.setMode(ModeHost)
		return
	}

	letter := upper[0]
	args := strings.TrimSpace(line[1:])
	cur := t.Current()

	switch letter {
	case 'C':
		if args == "" {
			station := t.chans[cur].Station()
			if station == "" {
				t.writeLine([]byte("CHANNEL NOT CONNECTED"))
			} else {
				t.writeLine([]byte(station))
			}
			return
		}
		if err := t.chans[cur].Connect(args); err != nil {
			t.writeLine([]byte("CHANNEL ALREADY CONNECTED"))
		}
		// Link status arrives asynchronously via the pump

	case 'D':
		t.chans[cur].Disconnect()

	case 'S':
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 || n > t.nchan {
			t.writeLine([]byte("INVALID CHANNEL NUMBER"))
			return
		}
		t.setCurrent(n)

	case 'I':
		if args == "" {
			t.writeLine([]byte(t.chans[cur].Callsign()))
		} else {
			t.chans[cur].SetCallsign(args)
		}

	case 'L':
		t.writeLine([]byte(fmt.Sprintf("(%d) %s", cur, t.chans[cur].LinkInfo())))

	case 'M':
		if args == "" {
			t.writeLine([]byte(t.mon.Filter()))
		} else {
			t.mon.SetFilter(args)
		}

	default:
		msg := fmt.Sprintf("INVALID COMMAND: %s", line)
		t.log.Warn("%s", msg)
		t.writeLine([]byte(msg))
	}
}

// writeLine writes one terminal-mode response line
func (t *TNC) writeLine(msg []byte) {
	t.writeFrame(wire.EncodeLine(msg))
}

// pump pushes unsolicited terminal-mode output: link status changes for
// every channel in round-robin order, received data for the current
// channel, and monitor frames. Host mode is strictly poll-driven, so the
// pump idles there.
func (t *TNC) pump(ctx context.Context) {
	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.ready:
		case <-ticker.C:
		}

		if t.Mode() != ModeTerminal {
			continue
		}
		t.drainTerminal()
	}
}

// drainTerminal writes everything currently deliverable in terminal mode
func (t *TNC) drainTerminal() {
	// Status messages for all channels, starting past the last channel
	// serviced first so no channel can starve the others.
	for i := 0; i < t.nchan; i++ {
		ch := 1 + (t.rr+i)%t.nchan
		for {
			msg, ok := t.chans[ch].Poll(channel.PollStatus)
			if !ok {
				break
			}
			t.writeLine([]byte(fmt.Sprintf("(%d) %s", ch, msg.Payload)))
		}
	}
	t.rr = (t.rr + 1) % t.nchan

	// Received data is shown only for the current channel; background
	// channels keep their data queued (and their sockets paused once
	// the queue fills) until selected.
	cur := t.Current()
	for {
		msg, ok := t.chans[cur].Poll(channel.PollData)
		if !ok {
			break
		}
		t.writeFrame(msg.Payload)
	}

	// Monitor frames: headers as lines, info segments raw
	for {
		msg, ok := t.mon.Poll(channel.PollAny)
		if !ok {
			break
		}
		switch msg.Kind {
		case channel.MessageMonHeader, channel.MessageMonHeaderInfo:
			t.writeLine(msg.Payload)
		default:
			t.writeFrame(msg.Payload)
		}
	}
}
