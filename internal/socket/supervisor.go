package socket

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/metrics"
	"github.com/tzrikka/hfncore/pkg/websocket"
)

// Conn is the physical connection a supervisor drives. Server-mode
// sockets get one per accepted connection; in dev mode the one uplink
// Conn is driven by a single Supervise call, and the virtual sockets it
// carries are only socket_id values on its MESSAGE packets.
type Conn = websocket.Conn

// MessageHandler is invoked from the stream task for every successfully
// decoded MESSAGE packet, after the heartbeat deadline has already been
// extended. The server listener and the gateway client each supply one
// to splice the packet into the host-facing read pipe.
type MessageHandler func(socketID string, pkt codec.Packet)

// Supervise runs the sink, stream, and heartbeat tasks for one socket
// until any of them signals termination, then removes the socket from
// table. It blocks the calling goroutine until the socket is gone: the
// server listener invokes it with go, while the gateway client calls it
// directly and waits for it to return.
func Supervise(s *Socket, conn *Conn, tr Transport, table *Table, onMessage MessageHandler, logger zerolog.Logger) {
	metrics.LiveSockets.WithLabelValues(tr.Role()).Inc()
	defer metrics.LiveSockets.WithLabelValues(tr.Role()).Dec()
	defer table.Remove(s.ID)

	go sink(s, conn, tr, logger)
	go heartbeat(s, tr, logger)
	stream(s, conn, tr, onMessage, logger)

	<-s.Done()

	// Best-effort graceful notification, then a guaranteed teardown: the
	// peer that triggered this (protocol close, write failure, or a
	// missed heartbeat) may never complete the closing handshake, and
	// the connection's goroutines and file descriptor must not outlive it.
	conn.Close(websocket.StatusGoingAway)
	conn.Abort()
}

// sink is the socket's single writer. It drains the action queue and
// turns each action into a frame; a write failure terminates the
// socket, since there is nothing left to retry against.
func sink(s *Socket, conn *Conn, tr Transport, logger zerolog.Logger) {
	for {
		action, ok := s.NextAction()
		if !ok {
			return
		}
		if err := <-conn.SendBinaryMessage(tr.Encode(action)); err != nil {
			logger.Err(err).Str("socket_id", s.ID).Msg("failed to write outbound frame")
			s.Terminate()
			return
		}
		metrics.PacketsEncoded.WithLabelValues(tr.Role(), action.Kind.String()).Inc()
	}
}

// stream reads incoming frames, decodes them, and feeds the FSM. It
// never writes to the connection itself; replies are enqueued for the
// sink task to send. last_heartbeat only advances once at least one
// packet in a frame decoded successfully, never for a frame that
// produced nothing.
func stream(s *Socket, conn *Conn, tr Transport, onMessage MessageHandler, logger zerolog.Logger) {
	defer s.Terminate()

	for {
		select {
		case <-s.Done():
			return
		case msg, ok := <-conn.IncomingMessages():
			if !ok {
				return
			}
			if msg.Opcode != websocket.OpcodeBinary {
				continue
			}

			packets := tr.Decode(msg.Data)
			if len(packets) == 0 {
				logger.Debug().Str("socket_id", s.ID).Msg("dropping frame with no recognized packets")
				continue
			}
			s.Touch()

			if s.State() == StateOpening {
				s.SetState(StateLive)
			}

			for _, pkt := range packets {
				metrics.PacketsDecoded.WithLabelValues(tr.Role(), pkt.Kind.String()).Inc()
				switch pkt.Kind {
				case codec.KindPing:
					s.Enqueue(Action{Kind: codec.KindPong})
				case codec.KindClose:
					s.SetState(StateClosing)
					return
				case codec.KindMessage:
					if onMessage != nil {
						id := s.ID
						if pkt.SocketID != "" {
							id = pkt.SocketID
						}
						onMessage(id, pkt)
					}
				}
			}
		}
	}
}

// heartbeat sleeps for the socket's ping interval, rechecks the
// deadline, and either enqueues an outbound ping or terminates the
// socket for having missed it.
func heartbeat(s *Socket, tr Transport, logger zerolog.Logger) {
	for {
		select {
		case <-s.Done():
			return
		case <-time.After(s.PingInterval()):
		}

		if s.Stale(time.Now()) {
			logger.Warn().Str("socket_id", s.ID).Msg("socket missed its heartbeat deadline")
			metrics.HeartbeatCloses.WithLabelValues(tr.Role()).Inc()
			s.Terminate()
			return
		}
		s.Enqueue(Action{Kind: codec.KindPing})
	}
}
