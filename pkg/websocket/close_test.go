package websocket

import (
	"bufio"
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// countingCloser is an io.ReadWriteCloser that counts its Close calls
// and never errors, so a test can assert the underlying transport was
// actually torn down without caring how many times.
type countingCloser struct {
	bytes.Buffer
	closes atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return nil
}

func TestCheckClosePayload(t *testing.T) {
	tests := []struct {
		name       string
		status     StatusCode
		reason     string
		wantStatus StatusCode
	}{
		{
			name:       "valid_normal_closure",
			status:     StatusNormalClosure,
			reason:     "bye",
			wantStatus: StatusNormalClosure,
		},
		{
			name:       "reserved_not_received_becomes_protocol_error",
			status:     StatusNotReceived,
			wantStatus: StatusProtocolError,
		},
		{
			name:       "reserved_closed_abnormally_becomes_protocol_error",
			status:     StatusClosedAbnormally,
			wantStatus: StatusProtocolError,
		},
		{
			name:       "below_range_becomes_protocol_error",
			status:     StatusCode(999),
			wantStatus: StatusProtocolError,
		},
		{
			name:       "above_private_range_becomes_protocol_error",
			status:     StatusCode(5000),
			wantStatus: StatusProtocolError,
		},
		{
			name:       "library_reserved_range_is_untouched",
			status:     StatusCode(3000),
			wantStatus: StatusCode(3000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStatus, _ := checkClosePayload(tt.status, tt.reason)
			if gotStatus != tt.wantStatus {
				t.Errorf("checkClosePayload() status = %v, want %v", gotStatus, tt.wantStatus)
			}
		})
	}
}

func TestCheckClosePayloadTruncatesLongReason(t *testing.T) {
	long := make([]byte, maxCloseReason+10)
	for i := range long {
		long[i] = 'a'
	}

	_, reason := checkClosePayload(StatusNormalClosure, string(long))
	if len(reason) != maxCloseReason {
		t.Errorf("checkClosePayload() reason length = %d, want %d", len(reason), maxCloseReason)
	}
}

// newClosingConn builds a Conn whose writeMessages goroutine is running,
// wired to a countingCloser so a test can observe whether the transport
// was actually torn down.
func newClosingConn(t *testing.T) (*Conn, *countingCloser) {
	t.Helper()
	cc := &countingCloser{}
	c := &Conn{
		logger: zerolog.Nop(),
		bufio:  bufio.NewReadWriter(bufio.NewReader(cc), bufio.NewWriter(cc)),
		writer: make(chan internalMessage),
		closer: cc,
		closed: make(chan struct{}),
	}
	go c.writeMessages()
	t.Cleanup(c.Abort)
	return c, cc
}

// TestSendCloseControlFrameClosesTransportWhenWeCloseFirst covers the
// ordering sendCloseControlFrame's early "already sent" return used to
// miss: we send our close frame first (closeReceived still false, so
// nothing closes yet), then the peer's close frame arrives and the
// second call must finish the handshake by closing the transport.
func TestSendCloseControlFrameClosesTransportWhenWeCloseFirst(t *testing.T) {
	c, cc := newClosingConn(t)

	c.sendCloseControlFrame(StatusNormalClosure, "")
	if got := cc.closes.Load(); got != 0 {
		t.Errorf("closer.Close() called %d times after our own close frame alone, want 0", got)
	}

	c.closeReceived = true
	c.sendCloseControlFrame(StatusNormalClosure, "")
	if got := cc.closes.Load(); got != 1 {
		t.Errorf("closer.Close() called %d times once both sides closed, want 1", got)
	}
}

// TestAbortClosesTransportAndStopsWriteMessages covers the teardown
// path used when a peer never responds to a close frame at all: Abort
// must close the transport and let writeMessages exit without needing
// the writer channel itself to be closed.
func TestAbortClosesTransportAndStopsWriteMessages(t *testing.T) {
	c, cc := newClosingConn(t)

	c.Abort()
	if got := cc.closes.Load(); got != 1 {
		t.Errorf("closer.Close() called %d times after Abort(), want 1", got)
	}

	select {
	case <-c.closed:
	default:
		t.Error("closed channel not closed after Abort()")
	}

	// A second Abort() must not panic from a close-of-closed-channel, and
	// must not close the transport again.
	c.Abort()
	if got := cc.closes.Load(); got != 1 {
		t.Errorf("closer.Close() called %d times after a second Abort(), want 1", got)
	}
}

func TestParseClosePayload(t *testing.T) {
	c := &Conn{logger: zerolog.Nop()}

	tests := []struct {
		name       string
		payload    []byte
		wantStatus StatusCode
		wantReason string
	}{
		{
			name:       "empty_payload",
			payload:    nil,
			wantStatus: StatusNormalClosure,
		},
		{
			name:       "single_byte_is_protocol_error",
			payload:    []byte{0x01},
			wantStatus: StatusProtocolError,
		},
		{
			name:       "status_and_reason",
			payload:    append([]byte{0x03, 0xe8}, "done"...), // 1000
			wantStatus: StatusNormalClosure,
			wantReason: "done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := c.parseClosePayload(tt.payload)
			if status != tt.wantStatus {
				t.Errorf("parseClosePayload() status = %v, want %v", status, tt.wantStatus)
			}
			if reason != tt.wantReason {
				t.Errorf("parseClosePayload() reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}
