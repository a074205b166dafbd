package codec

// Kind identifies which of the 9 packet variants a [Packet] carries.
// Kind values are independent of either transport's wire tag numbers:
// server mode and dev mode each keep their own tag table (see
// [ServerTags] and [DevTags]) that maps onto this same set of kinds.
type Kind uint8

const (
	KindOpen Kind = iota
	KindRetry
	KindReset
	KindRedirect
	KindClose
	KindPing
	KindPong
	KindMessage
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "OPEN"
	case KindRetry:
		return "RETRY"
	case KindReset:
		return "RESET"
	case KindRedirect:
		return "REDIRECT"
	case KindClose:
		return "CLOSE"
	case KindPing:
		return "PING"
	case KindPong:
		return "PONG"
	case KindMessage:
		return "MESSAGE"
	case KindAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// Header is one key/value pair of a MESSAGE packet, kept as raw bytes.
// On the wire both are msgpack strings: the decoder reads them as
// strings, rejecting invalid UTF-8, and then copies them into bytes.
type Header struct {
	Key   []byte
	Value []byte
}

// Packet is a tagged union of the 9 packet variants defined by the wire
// protocol. Only the fields relevant to Kind are meaningful; the others
// are left at their zero value.
type Packet struct {
	Kind Kind

	// OPEN
	PingInterval   uint8
	PingTimeout    uint8
	CompressSize   uint8 // dev mode only
	CompressMethod uint8 // dev mode only

	// RETRY, RESET, REDIRECT
	Delay  uint8
	Target string // REDIRECT only

	// CLOSE
	Reason string

	// MESSAGE, ACK
	ID    int32
	PkgID int32

	// MESSAGE
	Headers  []Header
	Payload  []byte
	SocketID string // dev mode only
	Compress uint8  // dev mode only
}
