package codec

// DevTags enumerates the wire tag values used by the dev-mode transport
// (the single uplink socket that multiplexes every virtual socket to the
// devtools relay). Dev mode has no RESET packet, and its range 6..13
// overlaps the server-mode range 1..9, so the same tag byte means a
// different packet in each table.
const (
	DevOpen     uint8 = 6
	DevClose    uint8 = 7
	DevPing     uint8 = 8
	DevPong     uint8 = 9
	DevRetry    uint8 = 10
	DevRedirect uint8 = 11
	DevMessage  uint8 = 12
	DevAck      uint8 = 13
)

// EncodeDevOpen builds the bytes for an OPEN packet as sent over the
// dev-mode uplink. Unlike the server-mode variant it also carries the
// compression advertisement fields, which the gateway records but never
// acts on.
func EncodeDevOpen(pingInterval, pingTimeout, compressSize, compressMethod uint8) []byte {
	buf := make([]byte, 0, 5)
	buf = writePfix(buf, DevOpen)
	buf = writeSint(buf, int32(pingInterval))
	buf = writeSint(buf, int32(pingTimeout))
	buf = writeSint(buf, int32(compressSize))
	buf = writeSint(buf, int32(compressMethod))
	return buf
}

// EncodeDevClose builds the bytes for a CLOSE packet.
func EncodeDevClose(reason string) []byte {
	buf := make([]byte, 0, 2+len(reason))
	buf = writePfix(buf, DevClose)
	buf = writeStr(buf, reason)
	return buf
}

// EncodeDevPing builds the bytes for a PING packet.
func EncodeDevPing() []byte {
	return writePfix(nil, DevPing)
}

// EncodeDevPong builds the bytes for a PONG packet.
func EncodeDevPong() []byte {
	return writePfix(nil, DevPong)
}

// EncodeDevRetry builds the bytes for a RETRY packet.
func EncodeDevRetry(delay uint8) []byte {
	buf := make([]byte, 0, 2)
	buf = writePfix(buf, DevRetry)
	buf = writeSint(buf, int32(delay))
	return buf
}

// EncodeDevRedirect builds the bytes for a REDIRECT packet.
func EncodeDevRedirect(delay uint8, target string) []byte {
	buf := make([]byte, 0, 3+len(target))
	buf = writePfix(buf, DevRedirect)
	buf = writeSint(buf, int32(delay))
	buf = writeStr(buf, target)
	return buf
}

// EncodeDevMessage builds the bytes for a dev-mode MESSAGE packet. The
// shape is the server-mode MESSAGE shape plus the trailing socket_id and
// compress fields that let the relay demultiplex to the right virtual
// socket.
func EncodeDevMessage(id, pkgID int32, headers []Header, payload []byte, socketID string, compress uint8) []byte {
	buf := make([]byte, 0, messageCapHint(len(payload), len(socketID), headers))
	buf = writePfix(buf, DevMessage)
	buf = writeSint(buf, id)
	buf = writeSint(buf, pkgID)
	buf = writeMapLen(buf, len(headers))
	for _, h := range headers {
		buf = writeStrBytes(buf, h.Key)
		buf = writeStrBytes(buf, h.Value)
	}
	buf = writeBin(buf, payload)
	buf = writeStr(buf, socketID)
	buf = writeSint(buf, int32(compress))
	return buf
}

// EncodeDevAck builds the bytes for an ACK packet.
func EncodeDevAck(id, pkgID int32) []byte {
	buf := make([]byte, 0, 3)
	buf = writePfix(buf, DevAck)
	buf = writeSint(buf, id)
	buf = writeSint(buf, pkgID)
	return buf
}

// DecodeDevPackets decodes as many packets as possible from data using
// the dev-mode tag table, with the same stop-on-first-failure and
// stop-on-unknown-tag contract as [DecodeServerPackets].
func DecodeDevPackets(data []byte) []Packet {
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
		case DevOpen:
			p, newPos, ok = decodeOpen(data, newPos, true)
		case DevClose:
			p, newPos, ok = decodeClose(data, newPos)
		case DevPing:
			p, ok = Packet{Kind: KindPing}, true
		case DevPong:
			p, ok = Packet{Kind: KindPong}, true
		case DevRetry:
			p, newPos, ok = decodeRetry(data, newPos)
		case DevRedirect:
			p, newPos, ok = decodeRedirect(data, newPos)
		case DevMessage:
			p, newPos, ok = decodeMessage(data, newPos, true)
		case DevAck:
			p, newPos, ok = decodeAck(data, newPos)
		default:
			return out
		}

		if !ok {
			return out
		}
		out = append(out, p)
		pos = newPos
	}

	return out
}
