// Package server owns the tiny HTTP surface of the exporter.
// It exposes helpers to construct the mux that serves /metrics and /healthz.
package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
)

// HealthFunc returns whether the exporter is healthy and, if not, a short reason.
type HealthFunc func() (bool, string)

const (
	metricsPath = "/metrics"
	healthzPath = "/healthz"

	okBody       = "ok\n"
	defaultCause = "unhealthy"
)

// NewMux returns an http.ServeMux with:
//   - /metrics serving everything gatherer collects
//   - /healthz returning 200 (healthy) or 503 (unhealthy) using the provided function
func NewMux(gatherer prometheus.Gatherer, isHealthy HealthFunc) *http.ServeMux {
	metricsHandler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(logger.L().Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})

	mux := http.NewServeMux()
	mux.Handle(metricsPath, metricsHandler)
	mux.HandleFunc(healthzPath, healthHandler(isHealthy))

	return mux
}

func healthHandler(isHealthy HealthFunc) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, _ *http.Request) {
		responseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")

		ok, reason := isHealthy()
		if ok {
			responseWriter.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(responseWriter, okBody)

			return
		}

		if reason == "" {
			reason = defaultCause
		}

		responseWriter.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(responseWriter, reason+"\n")
	}
}
