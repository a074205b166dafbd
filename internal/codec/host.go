package codec

// EncodeHostMessage builds the bytes handed to the host through the
// read pipe. Unlike the two wire transports this shape carries no tag
// and no packet id: the host only ever sees finished messages, never
// control packets, so there is nothing for it to acknowledge or route
// by id. socketID names the socket a message arrived on: the
// server-assigned id of the accepted socket in server mode, or the
// virtual socket_id carried by the MESSAGE in dev mode.
func EncodeHostMessage(pkgID int32, headers []Header, payload []byte, socketID string) []byte {
	buf := make([]byte, 0, messageCapHint(len(payload), len(socketID), headers))
	buf = writeSint(buf, pkgID)
	buf = writeMapLen(buf, len(headers))
	for _, h := range headers {
		buf = writeStrBytes(buf, h.Key)
		buf = writeStrBytes(buf, h.Value)
	}
	buf = writeBin(buf, payload)
	buf = writeStr(buf, socketID)
	return buf
}

// DecodeHostMessage parses bytes taken from the read pipe back into
// their fields. It is the inverse of [EncodeHostMessage], used on the
// host side of the boundary (for example by cmd/hfncore's read loop).
func DecodeHostMessage(data []byte) (pkgID int32, headers []Header, payload []byte, socketID string, ok bool) {
	pos := 0

	pid, pos, err := readInt(data, pos)
	if err != nil {
		return 0, nil, nil, "", false
	}

	n, pos, err := readMapLen(data, pos)
	if err != nil {
		return 0, nil, nil, "", false
	}

	hdrs := make([]Header, 0, n)
	for range n {
		var key, value string
		key, pos, err = readStr(data, pos)
		if err != nil {
			return 0, nil, nil, "", false
		}
		value, pos, err = readStr(data, pos)
		if err != nil {
			return 0, nil, nil, "", false
		}
		hdrs = append(hdrs, Header{Key: []byte(key), Value: []byte(value)})
	}

	pl, pos, err := readBin(data, pos)
	if err != nil {
		return 0, nil, nil, "", false
	}

	sid, _, err := readStr(data, pos)
	if err != nil {
		return 0, nil, nil, "", false
	}

	return int32(pid), hdrs, pl, sid, true //nolint:gosec // wire values fit int32.
}
