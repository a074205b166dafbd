package socket

import "github.com/tzrikka/hfncore/internal/codec"

// Action is the unit of work the sink task consumes: a packet waiting
// to be framed and written. An action and an outbound packet are the
// same thing here, so Action is just an alias rather than a wrapper
// type — the sink task never needs anything beyond what codec.Packet
// already carries.
type Action = codec.Packet
