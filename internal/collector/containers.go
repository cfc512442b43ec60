package collector

// containers maps one container record to the restart-count gauge, the
// OOM-killed gauge and the container_status state-set, all keyed by
// {name, compose_project, compose_service}.

import (
	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
	labelutil "github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/labels"
)

// Container states exposed by container_status.
const (
	StatusRestarting = "restarting"
	StatusRunning    = "running"
	StatusPaused     = "paused"
	StatusExited     = "exited"

	// StatusUnknown stands in for any runtime status outside the set above
	// (created, removing, dead, or anything a future engine adds).
	StatusUnknown = "unknown"
)

// containerStatuses is emitted for every container. StatusUnknown is only
// present while it is the active state, so the series set of a container in
// a known state is exactly these four.
var containerStatuses = []string{
	StatusRestarting,
	StatusRunning,
	StatusPaused,
	StatusExited,
}

// ContainerSnapshot is the classified state of one container in one poll.
type ContainerSnapshot struct {
	Name           string
	ComposeProject string
	ComposeService string
	RestartCount   int
	OOMKilled      bool

	// Status is one of containerStatuses or StatusUnknown; RawStatus is what
	// the runtime reported.
	Status    string
	RawStatus string
}

// containerKey identifies the series of one container.
type containerKey [3]string

// ClassifyContainer derives the metric values and label set for a container.
func ClassifyContainer(record *engine.Container) ContainerSnapshot {
	return ContainerSnapshot{
		Name:           record.Name,
		ComposeProject: labelutil.Lookup(record.Labels, labelutil.ComposeProjectKey),
		ComposeService: labelutil.Lookup(record.Labels, labelutil.ComposeServiceKey),
		RestartCount:   record.RestartCount,
		OOMKilled:      record.OOMKilled,
		Status:         normalizeStatus(record.Status),
		RawStatus:      record.Status,
	}
}

func normalizeStatus(status string) string {
	switch status {
	case StatusRestarting, StatusRunning, StatusPaused, StatusExited:
		return status
	default:
		return StatusUnknown
	}
}

func (snapshot *ContainerSnapshot) key() containerKey {
	return containerKey{snapshot.Name, snapshot.ComposeProject, snapshot.ComposeService}
}

func (snapshot *ContainerSnapshot) oomKilledValue() float64 {
	if snapshot.OOMKilled {
		return 1
	}

	return 0
}

// SetContainer overwrites every series of the container with the snapshot.
func (metrics *Metrics) SetContainer(snapshot *ContainerSnapshot) {
	labelutil.MaybeWarnHighCardinality("name", snapshot.Name)

	key := snapshot.key()

	metrics.containerRestartCount.WithLabelValues(key[:]...).Set(float64(snapshot.RestartCount))
	metrics.containerOOMKilled.WithLabelValues(key[:]...).Set(snapshot.oomKilledValue())

	for _, state := range containerStatuses {
		value := 0.0
		if state == snapshot.Status {
			value = 1.0
		}

		metrics.containerStatus.WithLabelValues(key[0], key[1], key[2], state).Set(value)
	}

	if snapshot.Status != StatusUnknown {
		metrics.containerStatus.DeleteLabelValues(key[0], key[1], key[2], StatusUnknown)

		return
	}

	metrics.containerStatus.WithLabelValues(key[0], key[1], key[2], StatusUnknown).Set(1)
	metrics.unknownStatusTotal.WithLabelValues(snapshot.RawStatus).Inc()
}

// DeleteContainer drops every series of a container that is no longer listed.
func (metrics *Metrics) DeleteContainer(key containerKey) {
	metrics.containerRestartCount.DeleteLabelValues(key[:]...)
	metrics.containerOOMKilled.DeleteLabelValues(key[:]...)

	for _, state := range containerStatuses {
		metrics.containerStatus.DeleteLabelValues(key[0], key[1], key[2], state)
	}

	metrics.containerStatus.DeleteLabelValues(key[0], key[1], key[2], StatusUnknown)
}
