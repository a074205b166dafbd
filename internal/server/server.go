// Package server implements the mode-A WebSocket listener: it accepts
// upgrade requests on /hfn, validates the handshake query parameters,
// and hands each accepted connection off to the shared socket
// supervisor as a single physical socket.
package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/socket"
	"github.com/tzrikka/hfncore/pkg/websocket"
)

const (
	maxIDLen      = 64
	maxVersionLen = 16
	timeout       = 3 * time.Second
)

// Server accepts client connections on the configured port and answers
// them over the server-mode wire protocol.
type Server struct {
	Port      int
	AppID     string
	Table     *socket.Table
	OnMessage socket.MessageHandler
	Logger    zerolog.Logger
}

// Handler returns the server's HTTP handler: /hfn for upgrades, 404 for
// everything else via the mux's default behavior.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hfn", s.handleUpgrade)
	return mux
}

// Run starts the HTTP server and blocks until it returns an error (e.g.
// the listener is closed).
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(s.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	s.Logger.Info().Int("port", s.Port).Msg("WebSocket server listening")
	return srv.ListenAndServe()
}

// handleUpgrade validates the handshake query parameters, accepts the
// WebSocket upgrade, and hands the new socket to the supervisor.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	aid, cid, sid, ver, ts := q.Get("aid"), q.Get("cid"), q.Get("sid"), q.Get("ver"), q.Get("ts")

	if !withinCap(aid, maxIDLen) || !withinCap(cid, maxIDLen) || !withinCap(sid, maxIDLen) || !withinCap(ver, maxVersionLen) {
		badRequest(w)
		return
	}
	if aid != s.AppID {
		badRequest(w)
		return
	}
	if _, err := strconv.ParseUint(ts, 10, 64); err != nil {
		badRequest(w)
		return
	}

	conn, err := websocket.Accept(w, r, websocket.WithAcceptLogger(s.Logger))
	if err != nil {
		s.Logger.Err(err).Msg("failed to accept WebSocket upgrade")
		badRequest(w)
		return
	}

	id := shortuuid.New()
	sock := socket.New(id, socket.DefaultPingInterval, socket.DefaultPingTimeout)
	s.Table.Add(sock)
	sock.Enqueue(socket.Action{
		Kind:         codec.KindOpen,
		PingInterval: socket.DefaultPingInterval,
		PingTimeout:  socket.DefaultPingTimeout,
	})

	go socket.Supervise(sock, conn, socket.ServerTransport{}, s.Table, s.OnMessage, s.Logger)
}

// withinCap reports whether a required query field is present and does
// not exceed its size cap.
func withinCap(v string, max int) bool {
	return v != "" && len(v) <= max
}

func badRequest(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte("Bad Request"))
}
