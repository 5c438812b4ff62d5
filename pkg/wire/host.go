package wire

import "fmt"

// Unit is one complete host-mode unit received from the client:
// either raw channel data or a command addressed to a channel.
type Unit struct {
	Channel int    // target channel index
	Kind    Kind   // data or command
	Payload []byte // at least one byte
}

// String returns a string representation of the unit
func (u Unit) String() string {
	return fmt.Sprintf("Unit{Ch=%d, Kind=%s, Len=%d}", u.Channel, u.Kind, len(u.Payload))
}

// HostDecoder incrementally decodes host-mode units from an unaligned
// byte stream. Partial input is retained across calls; only fully-formed
// units are emitted.
type HostDecoder struct {
	buf []byte
}

// Decode appends p to the residual buffer and returns all complete units.
// Decoding the same stream in different chunkings yields the same units.
func (d *HostDecoder) Decode(p []byte) []Unit {
	d.buf = append(d.buf, p...)

	var units []Unit
	for {
		if len(d.buf) < HeaderSize {
			break
		}

		// Length byte stores length-1
		payloadLen := int(d.buf[2]) + 1
		total := HeaderSize + payloadLen
		if len(d.buf) < total {
			break
		}

		kind := KindData
		if d.buf[1] != 0 {
			kind = KindCommand
		}

		payload := make([]byte, payloadLen)
		copy(payload, d.buf[HeaderSize:total])

		units = append(units, Unit{
			Channel: int(d.buf[0]),
			Kind:    kind,
			Payload: payload,
		})

		d.buf = d.buf[total:]
	}

	// Reclaim the backing array once fully consumed
	if len(d.buf) == 0 {
		d.buf = nil
	}

	return units
}

// Pending returns the number of residual bytes awaiting completion
func (d *HostDecoder) Pending() int {
	return len(d.buf)
}

// Reset discards any partially received unit.
// Called when the transport stream is lost or replaced.
func (d *HostDecoder) Reset() {
	d.buf = nil
}

// EncodeUnit builds the wire form of a host-mode unit.
// Used by clients and tests; the emulator itself only decodes units.
func EncodeUnit(u Unit) ([]byte, error) {
	if len(u.Payload) == 0 {
		return nil, ErrPayloadEmpty
	}
	if len(u.Payload) > MaxPayload {
		return nil, ErrPayloadTooLong
	}

	out := make([]byte, HeaderSize+len(u.Payload))
	out[0] = byte(u.Channel)
	out[1] = byte(u.Kind)
	out[2] = byte(len(u.Payload) - 1)
	copy(out[HeaderSize:], u.Payload)
	return out, nil
}

// EncodeResponse builds a host-mode response for the given channel and
// condition. The byte layout per condition follows the WA8DED host-mode
// output formats:
//
//	CondOK                  [ch][0]
//	CondOKMsg/CondErrMsg    [ch][cond]msg NUL
//	CondLink                [ch][3]"(ch) "msg NUL
//	CondMon/CondMonHdr      [ch][cond]msg NUL
//	CondMonInfo/CondConInfo [ch][cond][len-1]msg
func EncodeResponse(ch int, cond Condition, msg []byte) ([]byte, error) {
	switch cond {
	case CondOK:
		return []byte{byte(ch), byte(cond)}, nil

	case CondOKMsg, CondErrMsg, CondMon, CondMonHdr:
		out := make([]byte, 0, 3+len(msg))
		out = append(out, byte(ch), byte(cond))
		out = append(out, msg...)
		return append(out, 0), nil

	case CondLink:
		prefix := fmt.Sprintf("(%d) ", ch)
		out := make([]byte, 0, 3+len(prefix)+len(msg))
		out = append(out, byte(ch), byte(cond))
		out = append(out, prefix...)
		out = append(out, msg...)
		return append(out, 0), nil

	case CondMonInfo, CondConInfo:
		if len(msg) == 0 {
			return nil, ErrPayloadEmpty
		}
		if len(msg) > MaxPayload {
			return nil, ErrPayloadTooLong
		}
		out := make([]byte, 0, 3+len(msg))
		out = append(out, byte(ch), byte(cond), byte(len(msg)-1))
		return append(out, msg...), nil

	default:
		return nil, ErrUnknownCond
	}
}
