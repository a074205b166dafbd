// Package gateway implements the mode-B dev-mode uplink: a single
// outbound WebSocket connection to a devtools relay that multiplexes
// every downstream client as a virtual socket, identified inline by
// MESSAGE.socket_id rather than by a dedicated physical connection.
package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/logger"
	"github.com/tzrikka/hfncore/internal/socket"
	"github.com/tzrikka/hfncore/pkg/websocket"
)

const openHandshakeTimeout = 10 * time.Second

// Reconnect backoff bounds for Run. A dropped devtools uplink is the
// normal case during a relay deploy, not an outage, so retries start
// fast and only slow down if the relay stays unreachable.
const (
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// Client owns the uplink connection and the single Socket that
// represents it in the shared table. Downstream clients never get
// their own Socket in dev mode: they are just a socket_id carried
// inline on MESSAGE packets over this one connection.
type Client struct {
	DevtoolsURL string
	UpstreamID  string
	AppID       string
	Version     string
	SDK         string

	Table     *socket.Table
	OnMessage socket.MessageHandler
	Logger    zerolog.Logger

	uplink atomic.Pointer[socket.Socket]
}

// Uplink returns the uplink socket once the handshake has completed,
// or nil if Run hasn't reached that point yet (or failed before it).
// The host boundary uses this to route send_message calls directly to
// the uplink's action queue instead of consulting the socket table.
func (c *Client) Uplink() *socket.Socket {
	return c.uplink.Load()
}

// Run dials the devtools relay, waits for its OPEN handshake to learn
// the heartbeat parameters, and then runs the shared supervisor over
// the resulting connection until it closes. It reconnects for as long as
// ctx stays alive, waiting 1s after a clean close and doubling the wait
// (up to 30s) after each consecutive failure, since the uplink is
// the dev-mode process's only path to the host and must not stay down
// because of a transient relay restart.
func (c *Client) Run(ctx context.Context) error {
	delay := reconnectMinDelay
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.uplink.Store(nil)
		if err != nil {
			c.Logger.Err(err).Dur("retry_in", delay).Msg("devtools uplink failed, reconnecting")
		} else {
			c.Logger.Warn().Dur("retry_in", delay).Msg("devtools uplink closed, reconnecting")
			delay = reconnectMinDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if err != nil {
			delay = min(delay*2, reconnectMaxDelay)
		}
	}
}

// runOnce performs a single dial-handshake-supervise cycle. It returns
// nil once the socket closes cleanly, or an error if the dial or
// handshake failed before a socket could even be created.
func (c *Client) runOnce(ctx context.Context) error {
	u, err := c.buildURL()
	if err != nil {
		return err
	}

	conn, err := websocket.Dial(logger.InContext(ctx, c.Logger), u)
	if err != nil {
		return fmt.Errorf("failed to dial devtools relay: %w", err)
	}

	open, err := waitForOpen(conn)
	if err != nil {
		conn.Abort()
		return err
	}

	s := socket.New(c.UpstreamID, open.PingInterval, open.PingTimeout)
	s.SetState(socket.StateLive)
	c.Table.Add(s)
	c.uplink.Store(s)

	socket.Supervise(s, conn, socket.DevTransport{}, c.Table, c.OnMessage, c.Logger)
	return nil
}

func (c *Client) buildURL() (string, error) {
	base, err := url.Parse(c.DevtoolsURL)
	if err != nil {
		return "", fmt.Errorf("invalid devtools URL: %w", err)
	}
	q := base.Query()
	q.Set("usid", c.UpstreamID)
	q.Set("appid", c.AppID)
	q.Set("ver", c.Version)
	q.Set("sdk", c.SDK)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// waitForOpen blocks on the connection's first incoming frame and
// requires it to decode to exactly one OPEN packet: the relay's
// handshake, carrying the heartbeat parameters this uplink honors for
// the rest of its life. compress_size and compress_method are recorded
// on the returned packet but never acted on beyond that.
func waitForOpen(conn *websocket.Conn) (codec.Packet, error) {
	select {
	case msg, ok := <-conn.IncomingMessages():
		if !ok {
			return codec.Packet{}, fmt.Errorf("devtools relay closed before sending OPEN")
		}
		packets := codec.DecodeDevPackets(msg.Data)
		if len(packets) != 1 || packets[0].Kind != codec.KindOpen {
			return codec.Packet{}, fmt.Errorf("expected a single OPEN packet from devtools relay, got %+v", packets)
		}
		return packets[0], nil
	case <-time.After(openHandshakeTimeout):
		return codec.Packet{}, fmt.Errorf("timed out waiting for OPEN from devtools relay")
	}
}
