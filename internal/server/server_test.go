package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/socket"
	"github.com/tzrikka/hfncore/pkg/websocket"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := &Server{
		AppID:  "acme",
		Table:  socket.NewTable(),
		Logger: zerolog.Nop(),
	}
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return s, hs
}

func TestUpgradeRejectionMissingOrOversizeField(t *testing.T) {
	_, hs := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing_aid", "cid=c&sid=s&ver=1&ts=0"},
		{"missing_cid", "aid=acme&sid=s&ver=1&ts=0"},
		{"oversize_sid", "aid=acme&cid=c&sid=" + strings.Repeat("x", 65) + "&ver=1&ts=0"},
		{"oversize_ver", "aid=acme&cid=c&sid=s&ver=" + strings.Repeat("v", 17) + "&ts=0"},
		{"wrong_aid", "aid=wrong&cid=c&sid=s&ver=1&ts=0"},
		{"bad_ts", "aid=acme&cid=c&sid=s&ver=1&ts=notanumber"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(hs.URL + "/hfn?" + tt.query)
			if err != nil {
				t.Fatalf("GET error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != "Bad Request" {
				t.Errorf("body = %q, want %q", body, "Bad Request")
			}
		})
	}
}

func TestNonUpgradeRequestWithValidQueryReturns400(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/hfn?aid=acme&cid=c&sid=s&ver=1&ts=0")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Bad Request" {
		t.Errorf("body = %q, want %q", body, "Bad Request")
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/not-hfn")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestValidUpgradeAddsSocketAndEnqueuesOpen(t *testing.T) {
	s, hs := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/hfn?aid=acme&cid=c&sid=s&ver=1&ts=0"
	client, err := websocket.Dial(t.Context(), wsURL)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	select {
	case msg := <-client.IncomingMessages():
		packets := codec.DecodeServerPackets(msg.Data)
		if len(packets) != 1 || packets[0].Kind != codec.KindOpen {
			t.Fatalf("got packets %+v, want one OPEN", packets)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OPEN")
	}

	if s.Table.Len() != 1 {
		t.Errorf("Table.Len() = %d, want 1", s.Table.Len())
	}
}
