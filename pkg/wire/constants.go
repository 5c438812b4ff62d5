package wire

import "errors"

// WA8DED host-mode protocol constants

// Unit header layout: [channel][info/cmd][length-1] followed by exactly
// length payload bytes. The length byte stores length-1, so a unit always
// carries at least one payload byte.
const (
	HeaderSize = 3   // channel + kind + length byte
	MaxPayload = 256 // largest payload expressible by the length-1 byte
)

// Kind distinguishes data units from command units
type Kind uint8

const (
	KindData    Kind = 0 // payload is raw data for the channel
	KindCommand Kind = 1 // payload is a single-letter command with arguments
)

// String returns string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindData:
		return "Data"
	case KindCommand:
		return "Command"
	default:
		return "Unknown"
	}
}

// Condition is the host-mode response code sent back toward the client
type Condition uint8

const (
	CondOK      Condition = 0 // success, nothing follows (short format)
	CondOKMsg   Condition = 1 // success, null-terminated message follows
	CondErrMsg  Condition = 2 // failure, null-terminated message follows
	CondLink    Condition = 3 // link status, null-terminated "(ch) text"
	CondMon     Condition = 4 // monitor header without info, null-terminated
	CondMonHdr  Condition = 5 // monitor header with info following, null-terminated
	CondMonInfo Condition = 6 // monitor information, byte-count format
	CondConInfo Condition = 7 // connected information, byte-count format
)

// String returns string representation of Condition
func (c Condition) String() string {
	switch c {
	case CondOK:
		return "OK"
	case CondOKMsg:
		return "OKMsg"
	case CondErrMsg:
		return "ErrMsg"
	case CondLink:
		return "Link"
	case CondMon:
		return "Mon"
	case CondMonHdr:
		return "MonHdr"
	case CondMonInfo:
		return "MonInfo"
	case CondConInfo:
		return "ConInfo"
	default:
		return "Unknown"
	}
}

// Terminal-mode control bytes
const (
	TermCAN byte = 0x18 // cancel: clear the pending line
	TermCR  byte = 0x0d // carriage return: complete the pending line
	TermESC byte = 0x1b // escape: switch the pending line to command input
)

// Errors
var (
	ErrPayloadEmpty    = errors.New("payload must carry at least one byte")
	ErrPayloadTooLong  = errors.New("payload exceeds maximum length")
	ErrUnknownCond     = errors.New("unknown response condition")
)
