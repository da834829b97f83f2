package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/armandparra/redrust-go/internal/metrics"
)

// serveMetrics runs the Prometheus /metrics endpoint on its own listener,
// deliberately outside the reactor's epoll fd set: the reactor never
// shares its single-threaded keyspace access with this goroutine.
func serveMetrics(log *logrus.Logger, m *metrics.Metrics, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	log.WithField("addr", addr).Info("serving /metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server exited")
	}
}
