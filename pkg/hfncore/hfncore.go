// Package hfncore exposes the five control entry points that an
// embedding host program calls to drive the runtime: init, run, read,
// try_read, and send_message. Every entry point speaks bytes in and
// bytes out, so the binding layer for any host language only needs to
// pass buffers across the boundary, never Go types.
package hfncore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/config"
	"github.com/tzrikka/hfncore/internal/gateway"
	"github.com/tzrikka/hfncore/internal/hostpipe"
	"github.com/tzrikka/hfncore/internal/server"
	"github.com/tzrikka/hfncore/internal/socket"
)

// ReadStatus is the tri-state result of [TryRead].
type ReadStatus int

const (
	Empty ReadStatus = iota
	Data
	Closed
)

// sendItem is one (socket_id, payload) pair, the element type of the
// runtime's send pipe. SendMessage does not push onto that pipe: it
// enqueues the MESSAGE directly on the uplink socket's action queue.
type sendItem struct {
	socketID string
	payload  []byte
}

// runtime holds every piece of process-wide state created by Init. A
// pointer to it is published atomically so Run/Read/TryRead/SendMessage
// never race with a concurrent Init.
type runtime struct {
	dev   bool
	appID string

	table    *socket.Table
	readPipe *hostpipe.Pipe[[]byte]
	sendPipe *hostpipe.Pipe[sendItem]

	gatewayClient *gateway.Client
	srv           *server.Server

	bindPort int
}

var core atomic.Pointer[runtime]

// Init parses msgpack-encoded [codec.InitArgs], loads and projects the
// configuration file (env HFN_CONFIG_PATH > arg > ./hfn.json), and
// returns msgpack-encoded [codec.InitResult] bytes. It may be called
// exactly once per process; subsequent calls return an error.
func Init(argBytes []byte) ([]byte, error) {
	if core.Load() != nil {
		return nil, errors.New("hfncore: init already called")
	}

	args, err := codec.DecodeInitArgs(argBytes)
	if err != nil {
		return nil, fmt.Errorf("hfncore: %w", err)
	}

	path := config.ResolvePath(args.HfnConfigPath)
	file, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("hfncore: %w", err)
	}

	packages, modules, models, hfns, rpcs, schemas, fields := config.Project(file)

	// The upstream id is a per-process identifier, not a per-socket one
	// (those use shortuuid, see internal/server), so it's generated from
	// a distinct source: a k-sortable xid rather than a short UUID.
	upstreamID := args.UpstreamID
	if !args.HasUpstreamID || upstreamID == "" {
		upstreamID = xid.New().String()
	}

	rt := &runtime{
		dev:      args.Dev,
		appID:    file.AppID,
		table:    socket.NewTable(),
		readPipe: hostpipe.New[[]byte](),
		sendPipe: hostpipe.New[sendItem](),
	}

	if args.Dev {
		rt.gatewayClient = &gateway.Client{
			DevtoolsURL: file.Dev.Devtools,
			UpstreamID:  upstreamID,
			AppID:       file.AppID,
			Version:     args.SDK,
			SDK:         args.SDK,
			Table:       rt.table,
			OnMessage:   rt.deliverMessage,
			Logger:      log.Logger,
		}
	} else {
		rt.srv = &server.Server{
			AppID:     file.AppID,
			Table:     rt.table,
			OnMessage: rt.deliverMessage,
			Logger:    log.Logger,
		}
	}

	if !core.CompareAndSwap(nil, rt) {
		return nil, errors.New("hfncore: init already called")
	}

	result := codec.EncodeInitResult(codec.InitResult{
		UpstreamID: upstreamID,
		Packages:   packages,
		Modules:    modules,
		Models:     models,
		Hfns:       hfns,
		Rpcs:       rpcs,
		Schemas:    schemas,
		Fields:     fields,
	})
	return result, nil
}

// deliverMessage re-encodes an inbound MESSAGE packet in the host-facing
// shape (pkg_id, headers, payload, socket_id) and pushes it to the read
// pipe, regardless of which mode produced it.
func (rt *runtime) deliverMessage(socketID string, pkt codec.Packet) {
	rt.readPipe.Push(codec.EncodeHostMessage(pkt.PkgID, pkt.Headers, pkt.Payload, socketID))
}

// Run spawns the listener (server mode) or the gateway client (dev
// mode) and returns immediately; both run for the lifetime of the
// process on their own goroutines.
func Run(ctx context.Context, bindPort int) error {
	rt := core.Load()
	if rt == nil {
		return errors.New("hfncore: run called before init")
	}

	if rt.dev {
		go func() {
			if err := rt.gatewayClient.Run(ctx); err != nil {
				log.Error().Err(err).Msg("gateway client exited")
			}
		}()
		return nil
	}

	rt.srv.Port = bindPort
	go func() {
		if err := rt.srv.Run(); err != nil {
			log.Error().Err(err).Msg("server listener exited")
		}
	}()
	return nil
}

// Read blocks until a read-pipe message is available.
func Read() ([]byte, error) {
	rt := core.Load()
	if rt == nil {
		return nil, errors.New("hfncore: read called before init")
	}
	v, ok := rt.readPipe.Read()
	if !ok {
		return nil, errors.New("hfncore: read pipe closed")
	}
	return v, nil
}

// TryRead is the non-blocking counterpart to Read.
func TryRead() (ReadStatus, []byte, error) {
	rt := core.Load()
	if rt == nil {
		return Empty, nil, errors.New("hfncore: try_read called before init")
	}
	v, ok, closed := rt.readPipe.TryRead()
	switch {
	case ok:
		return Data, v, nil
	case closed:
		return Closed, nil, nil
	default:
		return Empty, nil, nil
	}
}

// SendMessage routes a host-originated payload to the socket it names.
// In dev mode every send goes to the single uplink, tagged with
// socket_id; in server mode it looks the socket up in the local table.
// A socket_id that names nothing is silently dropped: there is no error
// surface back to the host for this call.
func SendMessage(socketID string, payload []byte) error {
	rt := core.Load()
	if rt == nil {
		return errors.New("hfncore: send_message called before init")
	}

	action := socket.Action{Kind: codec.KindMessage, Payload: payload, SocketID: socketID}

	if rt.dev {
		if up := rt.gatewayClient.Uplink(); up != nil {
			up.Enqueue(action)
		}
		return nil
	}

	if s, ok := rt.table.Get(socketID); ok {
		s.Enqueue(action)
	}
	return nil
}

// reset is a test-only escape hatch: the single-shot Init contract has
// no production reset path.
func reset() {
	core.Store(nil)
}
