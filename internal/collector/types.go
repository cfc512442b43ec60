// Package collector reconciles Docker runtime snapshots into Prometheus
// metrics. It owns the metric registry, the per-entity classifiers and the
// poll loop that drives them.
// This package is internal because its API is not intended to be imported by others.
package collector

import (
	"context"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
)

// Runtime is the read-only view of the container runtime a poll needs.
type Runtime interface {
	ListContainers(ctx context.Context) (engine.ContainerListing, error)
	Info(ctx context.Context) (engine.Info, error)
	ListServices(ctx context.Context) ([]engine.Service, error)
}

// EventSource streams runtime events. The error channel yields at most one
// value once the stream ends.
type EventSource interface {
	Events(ctx context.Context) (<-chan engine.Event, <-chan error)
}

// BuildInfo is exported once as docker_metrics_exporter_build_info.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}
