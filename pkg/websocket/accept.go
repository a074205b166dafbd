package websocket

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// AcceptOpt configures a connection accepted with [Accept].
type AcceptOpt func(*Conn)

// WithAcceptLogger lets callers of [Accept] attach a specific logger
// to the resulting [Conn]. Without it, the [Conn] uses a no-op logger.
func WithAcceptLogger(l zerolog.Logger) AcceptOpt {
	return func(c *Conn) {
		c.logger = l
	}
}

// Accept performs the server side of a [WebSocket handshake]: it validates
// an incoming upgrade request and hijacks the underlying TCP connection,
// the same way [net/http.Hijacker] is used to take over a connection for
// a protocol other than HTTP. It returns an error (and leaves the response
// unwritten beyond what's needed for the caller to send an error status)
// if the request isn't a valid upgrade request.
//
// [WebSocket handshake]: https://datatracker.ietf.org/doc/html/rfc6455#section-4.2
func Accept(w http.ResponseWriter, r *http.Request, opts ...AcceptOpt) (*Conn, error) {
	nonce, err := checkUpgradeRequest(r)
	if err != nil {
		return nil, err
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, errors.New("response writer does not support hijacking")
	}

	conn, brw, err := hj.Hijack()
	if err != nil {
		return nil, fmt.Errorf("failed to hijack connection for WebSocket upgrade: %w", err)
	}

	resp := acceptResponse(nonce)
	if _, err := brw.WriteString(resp); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to write WebSocket handshake response: %w", err)
	}
	if err := brw.Flush(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to flush WebSocket handshake response: %w", err)
	}

	c := &Conn{
		logger:   zerolog.Nop(),
		isServer: true,
		bufio:    bufio.NewReadWriter(brw.Reader, bufio.NewWriter(conn)),
		reader:   make(chan Message),
		writer:   make(chan internalMessage),
		closer:   conn,
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readMessages()
	go c.writeMessages()

	c.logger.Debug().Msg("WebSocket connection accepted")
	return c, nil
}

// checkUpgradeRequest validates the request details in
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.1,
// and returns the client-supplied nonce on success.
func checkUpgradeRequest(r *http.Request) (string, error) {
	if r.Method != http.MethodGet {
		return "", fmt.Errorf("WebSocket upgrade request method: got %q, want GET", r.Method)
	}
	if err := checkHTTPHeader(r.Header, "Upgrade", "websocket"); err != nil {
		return "", err
	}
	if !headerContainsToken(r.Header.Get("Connection"), "upgrade") {
		return "", fmt.Errorf("WebSocket upgrade request header %q: got %q, want %q",
			"Connection", r.Header.Get("Connection"), "Upgrade")
	}
	if err := checkHTTPHeader(r.Header, "Sec-WebSocket-Version", "13"); err != nil {
		return "", err
	}

	nonce := r.Header.Get("Sec-WebSocket-Key")
	if nonce == "" {
		return "", errors.New("missing Sec-WebSocket-Key header in WebSocket upgrade request")
	}

	return nonce, nil
}

func headerContainsToken(header, token string) bool {
	for _, v := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(v), token) {
			return true
		}
	}
	return false
}

// acceptResponse constructs the 101 response in
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2.
func acceptResponse(nonce string) string {
	accept := expectedServerAcceptValue(nonce)
	return "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"
}
