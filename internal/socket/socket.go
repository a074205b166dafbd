// Package socket implements the session state machine, the action
// queue each accepted connection drains, and the process-wide table of
// live sockets, shared by both the server listener (mode A, one socket
// per physical connection) and the gateway client (mode B, many
// virtual sockets multiplexed over a single uplink).
package socket

import (
	"sync/atomic"
	"time"
)

// DefaultPingInterval and DefaultPingTimeout are the server-mode
// heartbeat defaults from the OPEN handshake. Dev mode overrides both
// with whatever the upstream OPEN packet carries.
const (
	DefaultPingInterval uint8 = 25
	DefaultPingTimeout  uint8 = 20
)

// Socket tracks one session's FSM state, heartbeat deadline, and
// outbound action queue. It is deliberately silent about what kind of
// transport backs it: the supervisor that owns the physical connection
// (server mode) or the shared uplink sink (dev mode) is the only thing
// that knows how an Action becomes bytes on the wire.
type Socket struct {
	ID string

	state         atomic.Int32
	lastHeartbeat atomic.Int64

	pingInterval uint8
	pingTimeout  uint8

	actions    *actionQueue
	terminate  chan struct{}
	terminated atomic.Bool
}

// New creates a socket in the OPENING state with the given heartbeat
// parameters. Server-mode sockets start with the library defaults; the
// single dev-mode uplink socket is told the interval the upstream OPEN
// packet advertised.
func New(id string, pingInterval, pingTimeout uint8) *Socket {
	s := &Socket{
		ID:           id,
		pingInterval: pingInterval,
		pingTimeout:  pingTimeout,
		actions:      newActionQueue(),
		terminate:    make(chan struct{}),
	}
	s.state.Store(int32(StateOpening))
	s.lastHeartbeat.Store(time.Now().Unix())
	return s
}

// State returns the socket's current FSM state.
func (s *Socket) State() State {
	return State(s.state.Load())
}

// SetState advances the socket to the given state.
func (s *Socket) SetState(st State) {
	s.state.Store(int32(st))
}

// Touch records that a frame was successfully processed, resetting the
// heartbeat deadline. It must never be called for a frame that failed
// to decode: last_heartbeat only advances on successful processing.
func (s *Socket) Touch() {
	s.lastHeartbeat.Store(time.Now().Unix())
}

// Stale reports whether the socket has exceeded its heartbeat
// deadline: now - last_heartbeat > ping_interval + ping_timeout.
func (s *Socket) Stale(now time.Time) bool {
	deadline := int64(s.pingInterval) + int64(s.pingTimeout)
	return now.Unix()-s.lastHeartbeat.Load() > deadline
}

// PingInterval returns the heartbeat task's sleep interval.
func (s *Socket) PingInterval() time.Duration {
	return time.Duration(s.pingInterval) * time.Second
}

// Enqueue pushes an outbound action for the sink task to drain. It
// never blocks and silently drops the action once the socket has
// begun terminating.
func (s *Socket) Enqueue(a Action) {
	s.actions.push(a)
}

// NextAction blocks until an action is available or the socket is
// terminating.
func (s *Socket) NextAction() (Action, bool) {
	return s.actions.pop()
}

// Terminate signals shutdown. It is safe to call from any of the three
// supervisor tasks, and safe to call more than once: only the first
// call has any effect. The termination channel is closed rather than
// written to, so every independent receiver (each task's select loop,
// plus the supervisor's final wait) observes the same close exactly
// once instead of racing to consume a single buffered value.
func (s *Socket) Terminate() {
	if s.terminated.CompareAndSwap(false, true) {
		s.actions.close()
		close(s.terminate)
	}
}

// Done returns the channel that closes once Terminate has been called.
func (s *Socket) Done() <-chan struct{} {
	return s.terminate
}
