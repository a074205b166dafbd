// Package metrics exposes the runtime's Prometheus instrumentation:
// live socket counts and packet/heartbeat activity, broken down by
// transport role and packet kind.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hfncore"

var (
	// LiveSockets tracks how many sockets are currently open, per
	// transport role ("server" or "dev").
	LiveSockets = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_sockets",
		Help:      "Number of sockets currently tracked in the socket table.",
	}, []string{"role"})

	// PacketsDecoded counts successfully decoded inbound packets, per
	// transport role and packet kind.
	PacketsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_decoded_total",
		Help:      "Inbound packets successfully decoded from a frame.",
	}, []string{"role", "kind"})

	// PacketsEncoded counts outbound packets written to the wire, per
	// transport role and packet kind.
	PacketsEncoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_encoded_total",
		Help:      "Outbound packets encoded and written to a connection.",
	}, []string{"role", "kind"})

	// HeartbeatCloses counts sockets the heartbeat task terminated for
	// missing their deadline, per transport role.
	HeartbeatCloses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "heartbeat_closes_total",
		Help:      "Sockets closed by the heartbeat task for missing their deadline.",
	}, []string{"role"})
)

// Register adds every collector in this package to reg. Call this once
// during init, before serving /metrics.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{LiveSockets, PacketsDecoded, PacketsEncoded, HeartbeatCloses} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
