package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns the exporter's registry. The poll loop is its only writer; the
// HTTP handler gathers from it concurrently. client_golang vectors are safe
// for that: every sample is set atomically, but a scrape during a poll may
// see a mix of old and new samples across series.
type Metrics struct {
	registry *prometheus.Registry

	containerRestartCount  *prometheus.GaugeVec
	containerOOMKilled     *prometheus.GaugeVec
	containerStatus        *prometheus.GaugeVec
	serviceRunningReplicas *prometheus.GaugeVec
	serviceDesiredReplicas *prometheus.GaugeVec

	exporterHealth        prometheus.Gauge
	buildInfo             *prometheus.GaugeVec
	pollDuration          prometheus.Histogram
	pollsTotal            prometheus.Counter
	pollErrorsTotal       *prometheus.CounterVec
	unknownStatusTotal    *prometheus.CounterVec
	eventsReconnectsTotal prometheus.Counter
}

// NewMetrics creates a dedicated registry holding the runtime metrics, the
// exporter's self-metrics and the Go/process collectors.
func NewMetrics(build BuildInfo) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	statusLabels := make([]string, 0, len(containerLabelNames)+1)
	statusLabels = append(statusLabels, containerLabelNames...)
	statusLabels = append(statusLabels, containerStatusLabel)

	metrics := &Metrics{
		registry: registry,

		containerRestartCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: containerRestartCountName,
			Help: "Number of times a container has been restarted",
		}, containerLabelNames),
		containerOOMKilled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: containerOOMKilledName,
			Help: "Is the container OOMKilled",
		}, containerLabelNames),
		containerStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: containerStatusName,
			Help: "Container Status",
		}, statusLabels),
		serviceRunningReplicas: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: serviceRunningReplicasName,
			Help: "Number of tasks of a swarm service currently running",
		}, serviceLabelNames),
		serviceDesiredReplicas: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: serviceDesiredReplicasName,
			Help: "Number of replicas a swarm service should be running",
		}, serviceLabelNames),
	}

	registry.MustRegister(
		metrics.containerRestartCount,
		metrics.containerOOMKilled,
		metrics.containerStatus,
		metrics.serviceRunningReplicas,
		metrics.serviceDesiredReplicas,
	)

	metrics.registerExporterMetrics(build)

	return metrics
}

// Gatherer is what the /metrics handler serves.
func (metrics *Metrics) Gatherer() prometheus.Gatherer {
	return metrics.registry
}
