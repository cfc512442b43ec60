/*
 * MIT License
 *
 * Copyright (c) 2025 Roberto Leinardi
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// registerExporterMetrics registers the exporter self-observability metrics.
func (metrics *Metrics) registerExporterMetrics(build BuildInfo) {
	metrics.exporterHealth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "health",
		Help:      "Exporter health status: 1=healthy, 0=unhealthy.",
	})

	metrics.buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "build_info",
		Help:      "Build information for this exporter.",
	}, []string{"version", "commit", "date"})

	metrics.pollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "poll_duration_seconds",
		Help:      "Duration of a full runtime poll, in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	metrics.pollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "polls_total",
		Help:      "Total number of runtime polls attempted.",
	})

	metrics.pollErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "poll_errors_total",
		Help:      "Total number of failed polls per domain (containers, services).",
	}, []string{"domain"})

	metrics.unknownStatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "unknown_container_status_total",
		Help:      "Container classifications whose runtime status fell outside the known states.",
	}, []string{"status"})

	metrics.eventsReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: exporterNamespace,
		Subsystem: exporterSubsystem,
		Name:      "events_reconnects_total",
		Help:      "Total number of runtime event stream reconnects.",
	})

	metrics.registry.MustRegister(
		metrics.exporterHealth,
		metrics.buildInfo,
		metrics.pollDuration,
		metrics.pollsTotal,
		metrics.pollErrorsTotal,
		metrics.unknownStatusTotal,
		metrics.eventsReconnectsTotal,
	)

	metrics.buildInfo.WithLabelValues(build.Version, build.Commit, build.Date).Set(1)

	// Expose both domains from the start so rate() works before the first error.
	metrics.pollErrorsTotal.WithLabelValues(domainContainers).Add(0)
	metrics.pollErrorsTotal.WithLabelValues(domainServices).Add(0)
}

// ObservePollDuration records a single poll duration.
func (metrics *Metrics) ObservePollDuration(duration time.Duration) {
	metrics.pollDuration.Observe(duration.Seconds())
}

// IncPolls increments the total polls counter.
func (metrics *Metrics) IncPolls() {
	metrics.pollsTotal.Inc()
}

// IncPollErrors increments the error counter of one domain.
func (metrics *Metrics) IncPollErrors(domain string) {
	metrics.pollErrorsTotal.WithLabelValues(domain).Inc()
}

// IncEventReconnect increments the event reconnects counter.
func (metrics *Metrics) IncEventReconnect() {
	metrics.eventsReconnectsTotal.Inc()
}

// SetExporterHealth sets the health gauge to 1 or 0.
func (metrics *Metrics) SetExporterHealth(healthy bool) {
	if healthy {
		metrics.exporterHealth.Set(1)
	} else {
		metrics.exporterHealth.Set(0)
	}
}
