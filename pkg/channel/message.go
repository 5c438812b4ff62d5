package channel

// MessageKind classifies queued channel output. The numeric values match
// the host-mode message types so the controller can map a message straight
// to its response condition.
type MessageKind int

const (
	MessageData          MessageKind = 0 // received connection data
	MessageStatus        MessageKind = 1 // link status text
	MessageMonHeader     MessageKind = 4 // monitor header, no info follows
	MessageMonHeaderInfo MessageKind = 5 // monitor header, info follows
	MessageMonInfo       MessageKind = 6 // monitor information segment
)

// String returns string representation of MessageKind
func (k MessageKind) String() string {
	switch k {
	case MessageData:
		return "Data"
	case MessageStatus:
		return "Status"
	case MessageMonHeader:
		return "MonHeader"
	case MessageMonHeaderInfo:
		return "MonHeaderInfo"
	case MessageMonInfo:
		return "MonInfo"
	default:
		return "Unknown"
	}
}

// Message is one queued item awaiting delivery toward the client.
// Link status texts and data segments share one queue because the poll
// command returns them in chronological order.
type Message struct {
	Kind    MessageKind
	Payload []byte
}

// PollFilter selects which message kinds a poll may return
type PollFilter int

const (
	PollAny    PollFilter = iota // any queued message, chronological
	PollData                     // information messages only
	PollStatus                   // link status messages only
)

// Matches reports whether a message kind passes the filter
func (f PollFilter) Matches(k MessageKind) bool {
	switch f {
	case PollData:
		return k == MessageData
	case PollStatus:
		return k == MessageStatus
	default:
		return true
	}
}
