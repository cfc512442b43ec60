package collector

// services maps one Swarm service to service_running_replicas and
// service_desired_replicas, keyed by {service_name, stack, swarm_nodes}.

import (
	"strconv"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
	labelutil "github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/labels"
)

// ServiceSnapshot is the classified state of one service in one poll.
type ServiceSnapshot struct {
	ServiceName     string
	Stack           string
	SwarmNodeCount  int
	DesiredReplicas int
	RunningReplicas int
}

type serviceKey [3]string

// ClassifyService counts replicas from the task list in a single pass.
// Desired is the number of tasks not meant to be shut down, unless the
// service is replicated with an explicit target, which wins. Global and job
// modes keep the task-derived estimate.
func ClassifyService(record *engine.Service, nodeCount int) ServiceSnapshot {
	desired := 0
	running := 0

	for index := range record.Tasks {
		task := &record.Tasks[index]

		if task.DesiredState != engine.TaskStateShutdown {
			desired++
		}

		if task.CurrentState == engine.TaskStateRunning {
			running++
		}
	}

	if record.Replicated && record.TargetReplicas != nil {
		desired = int(*record.TargetReplicas) //nolint:gosec // replica counts are far below MaxInt
	}

	return ServiceSnapshot{
		ServiceName:     record.Name,
		Stack:           labelutil.Lookup(record.Labels, labelutil.StackNamespaceKey),
		SwarmNodeCount:  nodeCount,
		DesiredReplicas: desired,
		RunningReplicas: running,
	}
}

func (snapshot *ServiceSnapshot) key() serviceKey {
	return serviceKey{snapshot.ServiceName, snapshot.Stack, strconv.Itoa(snapshot.SwarmNodeCount)}
}

// SetService overwrites both replica gauges of the service.
func (metrics *Metrics) SetService(snapshot *ServiceSnapshot) {
	key := snapshot.key()

	metrics.serviceRunningReplicas.WithLabelValues(key[:]...).Set(float64(snapshot.RunningReplicas))
	metrics.serviceDesiredReplicas.WithLabelValues(key[:]...).Set(float64(snapshot.DesiredReplicas))
}

// DeleteService drops both replica series of a service.
func (metrics *Metrics) DeleteService(key serviceKey) {
	metrics.serviceRunningReplicas.DeleteLabelValues(key[:]...)
	metrics.serviceDesiredReplicas.DeleteLabelValues(key[:]...)
}
