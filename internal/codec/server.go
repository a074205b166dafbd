package codec

// ServerTags enumerates the wire tag values used by the server-mode
// transport (a socket accepted by the listener in mode A). These tags
// are deliberately independent of [DevTags]: dev mode keeps its own
// table, and the two must never be merged (see [Kind]).
const (
	ServerOpen     uint8 = 1
	ServerRetry    uint8 = 2
	ServerReset    uint8 = 3
	ServerRedirect uint8 = 4
	ServerClose    uint8 = 5
	ServerPing     uint8 = 6
	ServerPong     uint8 = 7
	ServerMessage  uint8 = 8
	ServerAck      uint8 = 9
)

// EncodeServerOpen builds the bytes for an OPEN packet as sent by the
// server to a freshly accepted client.
func EncodeServerOpen(pingInterval, pingTimeout uint8) []byte {
	buf := make([]byte, 0, 3)
	buf = writePfix(buf, ServerOpen)
	buf = writeSint(buf, int32(pingInterval))
	buf = writeSint(buf, int32(pingTimeout))
	return buf
}

// EncodeServerRetry builds the bytes for a RETRY packet.
func EncodeServerRetry(delay uint8) []byte {
	buf := make([]byte, 0, 2)
	buf = writePfix(buf, ServerRetry)
	buf = writeSint(buf, int32(delay))
	return buf
}

// EncodeServerReset builds the bytes for a RESET packet.
func EncodeServerReset(delay uint8) []byte {
	buf := make([]byte, 0, 2)
	buf = writePfix(buf, ServerReset)
	buf = writeSint(buf, int32(delay))
	return buf
}

// EncodeServerRedirect builds the bytes for a REDIRECT packet.
func EncodeServerRedirect(delay uint8, target string) []byte {
	buf := make([]byte, 0, 3+len(target))
	buf = writePfix(buf, ServerRedirect)
	buf = writeSint(buf, int32(delay))
	buf = writeStr(buf, target)
	return buf
}

// EncodeServerClose builds the bytes for a CLOSE packet.
func EncodeServerClose(reason string) []byte {
	buf := make([]byte, 0, 2+len(reason))
	buf = writePfix(buf, ServerClose)
	buf = writeStr(buf, reason)
	return buf
}

// EncodeServerPing builds the bytes for a PING packet.
func EncodeServerPing() []byte {
	return writePfix(nil, ServerPing)
}

// EncodeServerPong builds the bytes for a PONG packet.
func EncodeServerPong() []byte {
	return writePfix(nil, ServerPong)
}

// EncodeServerMessage builds the bytes for a server-mode MESSAGE packet:
// the tag, id, pkg_id, a flat header map, and the opaque payload. There
// is no socket_id or compress field in this transport's MESSAGE shape;
// those belong only to the dev-mode wire format.
func EncodeServerMessage(id, pkgID int32, headers []Header, payload []byte) []byte {
	buf := make([]byte, 0, messageCapHint(len(payload), 0, headers))
	buf = writePfix(buf, ServerMessage)
	buf = writeSint(buf, id)
	buf = writeSint(buf, pkgID)
	buf = writeMapLen(buf, len(headers))
	for _, h := range headers {
		buf = writeStrBytes(buf, h.Key)
		buf = writeStrBytes(buf, h.Value)
	}
	buf = writeBin(buf, payload)
	return buf
}

// EncodeServerAck builds the bytes for an ACK packet.
func EncodeServerAck(id, pkgID int32) []byte {
	buf := make([]byte, 0, 3)
	buf = writePfix(buf, ServerAck)
	buf = writeSint(buf, id)
	buf = writeSint(buf, pkgID)
	return buf
}

// messageCapHint implements the advisory pre-sizing heuristic: it is
// never relied on for correctness, only to reduce reallocations.
func messageCapHint(payloadLen, socketIDLen int, headers []Header) int {
	n := 4 + 2 + payloadLen + 2 + socketIDLen + 2
	for _, h := range headers {
		n += 5 + len(h.Key) + len(h.Value)
	}
	return n
}

func writeStrBytes(buf []byte, b []byte) []byte {
	return writeStr(buf, string(b))
}

// DecodeServerPackets decodes as many packets as possible from data,
// using the server-mode tag table. Decoding stops at the first
// primitive decode failure or unrecognized tag; everything parsed
// before that point is returned, with no indication of how many bytes
// were consumed; the rest of the frame is discarded.
func DecodeServerPackets(data []byte) []Packet {
	var out []Packet
	pos := 0

	for pos < len(data) {
		tag, newPos, err := readPfix(data, pos)
		if err != nil {
			break
		}

		var p Packet
		var ok bool
		switch tag {
		case ServerOpen:
			p, newPos, ok = decodeOpen(data, newPos, false)
		case ServerRetry:
			p, newPos, ok = decodeRetry(data, newPos)
		case ServerReset:
			p, newPos, ok = decodeReset(data, newPos)
		case ServerRedirect:
			p, newPos, ok = decodeRedirect(data, newPos)
		case ServerClose:
			p, newPos, ok = decodeClose(data, newPos)
		case ServerPing:
			p, ok = Packet{Kind: KindPing}, true
		case ServerPong:
			p, ok = Packet{Kind: KindPong}, true
		case ServerMessage:
			p, newPos, ok = decodeMessage(data, newPos, false)
		case ServerAck:
			p, newPos, ok = decodeAck(data, newPos)
		default:
			return out // Unknown tag: frame terminator, not an error.
		}

		if !ok {
			return out
		}
		out = append(out, p)
		pos = newPos
	}

	return out
}

func decodeOpen(data []byte, pos int, dev bool) (Packet, int, bool) {
	pi, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	pt, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}

	p := Packet{Kind: KindOpen, PingInterval: uint8(pi), PingTimeout: uint8(pt)} //nolint:gosec // wire values are u8.
	if !dev {
		return p, pos, true
	}

	cs, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	cm, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	p.CompressSize = uint8(cs)   //nolint:gosec // wire values are u8.
	p.CompressMethod = uint8(cm) //nolint:gosec // wire values are u8.
	return p, pos, true
}

func decodeRetry(data []byte, pos int) (Packet, int, bool) {
	d, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	return Packet{Kind: KindRetry, Delay: uint8(d)}, pos, true //nolint:gosec // wire values are u8.
}

func decodeReset(data []byte, pos int) (Packet, int, bool) {
	d, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	return Packet{Kind: KindReset, Delay: uint8(d)}, pos, true //nolint:gosec // wire values are u8.
}

func decodeRedirect(data []byte, pos int) (Packet, int, bool) {
	d, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	target, pos, err := readStr(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	return Packet{Kind: KindRedirect, Delay: uint8(d), Target: target}, pos, true //nolint:gosec // wire values are u8.
}

func decodeClose(data []byte, pos int) (Packet, int, bool) {
	reason, pos, err := readStr(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	return Packet{Kind: KindClose, Reason: reason}, pos, true
}

func decodeMessage(data []byte, pos int, dev bool) (Packet, int, bool) {
	id, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	pkgID, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	n, pos, err := readMapLen(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}

	// n comes straight off the wire and is untrusted; clamp the
	// preallocation so a bogus map_len doesn't force a multi-gigabyte
	// allocation before a single header byte has been validated. Each
	// header is at least two str_len-prefixed byte strings, so two
	// remaining bytes is the loosest possible bound per header.
	// A MESSAGE with no headers decodes to nil Headers, the same zero
	// value the encoder was given.
	var headers []Header
	if n > 0 {
		headers = make([]Header, 0, min(n, (len(data)-pos)/2))
	}
	for range n {
		var key, value string
		key, pos, err = readStr(data, pos)
		if err != nil {
			return Packet{}, pos, false
		}
		value, pos, err = readStr(data, pos)
		if err != nil {
			return Packet{}, pos, false
		}
		headers = append(headers, Header{Key: []byte(key), Value: []byte(value)})
	}

	payload, pos, err := readBin(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}

	p := Packet{
		Kind:    KindMessage,
		ID:      int32(id), //nolint:gosec // wire values fit int32.
		PkgID:   int32(pkgID), //nolint:gosec // wire values fit int32.
		Headers: headers,
		Payload: payload,
	}
	if !dev {
		return p, pos, true
	}

	socketID, pos, err := readStr(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	compress, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	p.SocketID = socketID
	p.Compress = uint8(compress) //nolint:gosec // wire values are u8.
	return p, pos, true
}

func decodeAck(data []byte, pos int) (Packet, int, bool) {
	id, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	pkgID, pos, err := readInt(data, pos)
	if err != nil {
		return Packet{}, pos, false
	}
	return Packet{Kind: KindAck, ID: int32(id), PkgID: int32(pkgID)}, pos, true //nolint:gosec // wire values fit int32.
}
