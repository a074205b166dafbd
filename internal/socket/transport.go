package socket

import "github.com/tzrikka/hfncore/internal/codec"

// Transport knows how to turn an Action into wire bytes and how to
// parse an incoming frame back into packets, using whichever of the
// two tag tables its role calls for. The FSM and the supervisor are
// written once against this interface; only the tag numbers and the
// MESSAGE shape differ between the two implementations.
type Transport interface {
	Encode(a Action) []byte
	Decode(data []byte) []codec.Packet
	Role() string
}

// ServerTransport implements Transport for mode A: one socket per
// physical connection, no socket_id or compress field on MESSAGE.
type ServerTransport struct{}

func (ServerTransport) Encode(a Action) []byte {
	switch a.Kind {
	case codec.KindOpen:
		return codec.EncodeServerOpen(a.PingInterval, a.PingTimeout)
	case codec.KindRetry:
		return codec.EncodeServerRetry(a.Delay)
	case codec.KindReset:
		return codec.EncodeServerReset(a.Delay)
	case codec.KindRedirect:
		return codec.EncodeServerRedirect(a.Delay, a.Target)
	case codec.KindClose:
		return codec.EncodeServerClose(a.Reason)
	case codec.KindPing:
		return codec.EncodeServerPing()
	case codec.KindPong:
		return codec.EncodeServerPong()
	case codec.KindMessage:
		return codec.EncodeServerMessage(a.ID, a.PkgID, a.Headers, a.Payload)
	case codec.KindAck:
		return codec.EncodeServerAck(a.ID, a.PkgID)
	default:
		return nil
	}
}

func (ServerTransport) Decode(data []byte) []codec.Packet {
	return codec.DecodeServerPackets(data)
}

func (ServerTransport) Role() string { return "server" }

// DevTransport implements Transport for mode B: a single physical
// uplink multiplexing many virtual sockets, so MESSAGE always carries
// socket_id and compress inline.
type DevTransport struct{}

func (DevTransport) Encode(a Action) []byte {
	switch a.Kind {
	case codec.KindOpen:
		return codec.EncodeDevOpen(a.PingInterval, a.PingTimeout, a.CompressSize, a.CompressMethod)
	case codec.KindRetry:
		return codec.EncodeDevRetry(a.Delay)
	case codec.KindRedirect:
		return codec.EncodeDevRedirect(a.Delay, a.Target)
	case codec.KindClose:
		return codec.EncodeDevClose(a.Reason)
	case codec.KindPing:
		return codec.EncodeDevPing()
	case codec.KindPong:
		return codec.EncodeDevPong()
	case codec.KindMessage:
		return codec.EncodeDevMessage(a.ID, a.PkgID, a.Headers, a.Payload, a.SocketID, a.Compress)
	case codec.KindAck:
		return codec.EncodeDevAck(a.ID, a.PkgID)
	default:
		return nil
	}
}

func (DevTransport) Decode(data []byte) []codec.Packet {
	return codec.DecodeDevPackets(data)
}

func (DevTransport) Role() string { return "dev" }
