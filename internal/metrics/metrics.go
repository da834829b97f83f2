// Package metrics exposes the reactor's operational counters as
// Prometheus metrics. Registration happens once at startup; updates are
// plain atomic counter increments from the single reactor goroutine, and
// are safe to scrape concurrently from the HTTP handler goroutine — the
// one place this server is not single-threaded, and it never touches the
// keyspace.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters and gauges the reactor feeds.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	connectionsTotal  prometheus.Counter
	bytesReadTotal    prometheus.Counter
	bytesWrittenTotal prometheus.Counter
	keysTotal         prometheus.Gauge
}

// New registers and returns a fresh metric set on its own registry (never
// the global default, so tests can spin up multiple servers in-process).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		commandsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "redrust_commands_total",
			Help: "Number of commands evaluated, by command name.",
		}, []string{"command"}),
		connectionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "redrust_connections_total",
			Help: "Number of client connections accepted since startup.",
		}),
		bytesReadTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "redrust_bytes_read_total",
			Help: "Bytes read from client sockets since startup.",
		}),
		bytesWrittenTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "redrust_bytes_written_total",
			Help: "Bytes written to client sockets since startup.",
		}),
		keysTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "redrust_keys_total",
			Help: "Number of live keys currently held in the keyspace.",
		}),
	}
	return m
}

// RecordCommand implements eval.Recorder.
func (m *Metrics) RecordCommand(name string) {
	m.commandsTotal.WithLabelValues(name).Inc()
}

// RecordConnection increments the accepted-connection counter.
func (m *Metrics) RecordConnection() {
	m.connectionsTotal.Inc()
}

// RecordBytesRead adds n to the bytes-read counter.
func (m *Metrics) RecordBytesRead(n int) {
	m.bytesReadTotal.Add(float64(n))
}

// RecordBytesWritten adds n to the bytes-written counter.
func (m *Metrics) RecordBytesWritten(n int) {
	m.bytesWrittenTotal.Add(float64(n))
}

// SetKeysTotal reports the current keyspace size.
func (m *Metrics) SetKeysTotal(n int) {
	m.keysTotal.Set(float64(n))
}

// Handler returns the /metrics HTTP handler for this metric set's
// registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
