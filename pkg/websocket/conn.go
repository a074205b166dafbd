package websocket

import (
	"bufio"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// Conn represents the configuration and state of an open WebSocket
// connection, on either side: a client connection opened with [Dial]
// (used by the gateway client's uplink), or a server-side connection
// accepted with [Accept] (used by the server listener).
type Conn struct {
	// Initialized before the handshake.
	logger  zerolog.Logger
	client  *http.Client // set only for Dial-side connections; unused on the accept side.
	headers http.Header

	// isServer is true for connections accepted with [Accept]. It flips the
	// masking rules required by https://datatracker.ietf.org/doc/html/rfc6455#section-5.1:
	// a server never masks outbound frames and requires inbound frames to be masked;
	// a client always masks outbound frames and requires inbound frames to be unmasked.
	isServer bool

	// Initialized after the handshake.
	bufio  *bufio.ReadWriter
	reader chan Message
	writer chan internalMessage
	closer io.ReadWriteCloser

	// closed is closed by Abort to tell writeMessages to stop, for
	// callers that tear a connection down without going through the
	// closing handshake (e.g. a missed heartbeat).
	closed    chan struct{}
	abortOnce sync.Once

	// No need for synchronization: value changes are possible only in
	// one direction (false to true), and are always done by a single
	// function, which is guaranteed to run in a single goroutine.
	closeReceived bool

	closeSent   bool
	closeSentMu sync.RWMutex

	// Only for the purpose of minimizing memory allocations (safely),
	// not for state management or memory sharing of any kind.
	readBuf  [8]byte
	writeBuf [8]byte
	closeBuf [maxControlPayload]byte

	// For unit-testing only.
	nonceGen io.Reader
}

// Message with WebSocket data, from one or more (defragmented) data frames,
// as defined in https://datatracker.ietf.org/doc/html/rfc6455#section-5.6.
// Returned by the Go channel that is exposed by [Conn.IncomingMessages].
type Message struct {
	Opcode Opcode
	Data   []byte
}

// internalMessage is used to synchronize concurrent calls to [Conn.writeFrame].
type internalMessage struct {
	Opcode Opcode
	Data   []byte
	err    chan<- error
}

// IncomingMessages returns the connection's channel that publishes
// data [Message]s as they are received from the peer.
func (c *Conn) IncomingMessages() <-chan Message {
	return c.reader
}

// readMessages runs as a [Conn] goroutine, to call [Conn.readMessage]
// continuously, in order to process control and data frames, and
// publish data [Message]s to the connection's subscribers.
func (c *Conn) readMessages() {
	msg := c.readMessage()
	for msg != nil {
		select {
		case c.reader <- Message{Opcode: msg.Opcode, Data: msg.Data}:
		case <-c.closed: // Aborted while no one was reading.
			close(c.reader)
			return
		}
		msg = c.readMessage()
	}
	close(c.reader)
}

// writeMessages runs as a [Conn] goroutine, to synchronize concurrent
// calls to [Conn.writeFrame]. For the time being, this package doesn't
// need to implement frame fragmentation in outbound messages.
func (c *Conn) writeMessages() {
	for {
		select {
		case msg, ok := <-c.writer:
			if !ok {
				return
			}
			msg.err <- c.writeFrame(msg.Opcode, msg.Data)
			// The message's error channel can be used at most once.
			close(msg.err)
		case <-c.closed:
			return
		}
	}
}
